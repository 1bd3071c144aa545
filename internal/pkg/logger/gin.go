package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
)

// SetupGin 注册 JSON 访问日志与 panic 恢复
func SetupGin(r *gin.Engine) {
	index, token := "logstash-prompt-center", ""
	if config.Cfg != nil {
		index, token = config.Cfg.Logstash.Index, config.Cfg.Logstash.Token
	}

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output: LogWriter,
		SkipPaths: []string{"/api/ping"},
		Formatter: func(p gin.LogFormatterParams) string {
			var traceID string
			if id, ok := p.Keys[TraceIDKey].(string); ok {
				traceID = id
			}
			if traceID == "" && p.Request != nil {
				traceID = TraceID(p.Request.Context())
			}

			return fmt.Sprintf(
				`{"time":"%s","level":"INFO","msg":"GIN_ACCESS","trace_id":"%s","log_token":"%s","target_index":"%s","method":"%s","path":"%s","client_ip":"%s","status":%d,"latency":"%v"}`+"\n",
				p.TimeStamp.Format(time.RFC3339),
				traceID,
				token,
				index,
				p.Method,
				p.Path,
				p.ClientIP,
				p.StatusCode,
				p.Latency,
			)
		},
	}))

	r.Use(gin.Recovery())
}

package logger

import (
	"io"
	log "log/slog"
	"net"
	"os"
	"time"

	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
)

var LogWriter io.Writer = os.Stdout

// InitLogger 初始化默认 logger: stdout JSON，配置了 logstash 时同时上报带 trace_id 的日志
func InitLogger() {
	log.SetDefault(NewLogger(config.Cfg.Logstash))
}

// NewLogger 构造带 trace_id 注入的 logger
func NewLogger(cfg config.LogstashConfig) *log.Logger {
	hStdout := log.NewJSONHandler(os.Stdout, &log.HandlerOptions{Level: log.LevelInfo})

	var finalHandler log.Handler = hStdout
	LogWriter = os.Stdout

	if cfg.Address != "" {
		conn, err := net.DialTimeout("tcp", cfg.Address, 3*time.Second)
		if err == nil {
			hRemote := log.NewJSONHandler(conn, &log.HandlerOptions{Level: log.LevelInfo}).
				WithAttrs([]log.Attr{
					log.String("target_index", cfg.Index),
					log.String("log_token", cfg.Token),
				})

			finalHandler = &TeeHandler{
				handlers: []log.Handler{hStdout, &RemoteFilterHandler{next: hRemote}},
			}
			LogWriter = conn
		} else {
			log.Warn("Failed to connect to Logstash, logging to stdout only", "err", err)
		}
	}

	return log.New(&ContextHandler{finalHandler})
}

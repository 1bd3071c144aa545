package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/consts"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/logger"
	"github.com/google/uuid"
)

func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(consts.HeaderTraceID)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(logger.TraceIDKey, traceID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))

		c.Header(consts.HeaderTraceID, traceID)
		c.Next()
	}
}

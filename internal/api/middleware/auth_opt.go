package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/consts"
)

// AuthOptionalMiddleware 可选鉴权：解析成功注入 UID，失败或缺失则 UID 为 0，按匿名或 IP 浏览者处理
func AuthOptionalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c)
		if !ok {
			c.Set(consts.CtxUserIDKey, uint64(0))
			c.Next()
			return
		}

		c.Set(consts.CtxUserIDKey, claims.UserID)
		c.Set(consts.CtxRolesKey, claims.Roles)
		c.Next()
	}
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/consts"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/response"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/security"
)

// AuthMiddleware 负责验证 JWT 并将用户身份信息注入 Context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c)
		if !ok {
			response.Fail(c, response.Unauthorized, "Token 缺失、无效或已过期")
			c.Abort()
			return
		}

		c.Set(consts.CtxUserIDKey, claims.UserID)
		c.Set(consts.CtxRolesKey, claims.Roles)
		c.Next()
	}
}

func parseBearer(c *gin.Context) (*security.UserClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, false
	}
	claims, err := security.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return nil, false
	}
	return claims, true
}

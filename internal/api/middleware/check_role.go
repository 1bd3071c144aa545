package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/consts"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/response"
)

// CheckRoles 检查当前用户是否拥有至少一个指定的角色
func CheckRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles := c.GetStringSlice(consts.CtxRolesKey)

		for _, required := range requiredRoles {
			if slices.Contains(roles, required) {
				c.Next()
				return
			}
		}

		response.Fail(c, response.Forbidden, "权限不足：无权访问该资源")
		c.Abort()
	}
}

package shared

import "github.com/gin-gonic/gin"

// ContextKeyAdmin 后台鉴权通过后写入的用户名
const ContextKeyAdmin = "admin_username"

// AdminUsername 从上下文读取当前管理员用户名。
func AdminUsername(c *gin.Context) string {
	value, exists := c.Get(ContextKeyAdmin)
	if !exists {
		return ""
	}
	username, _ := value.(string)
	return username
}

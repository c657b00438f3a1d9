package middleware

import (
	"strings"

	"github.com/GoPolymarket/buildmymeta/internal/capture"
	"github.com/gin-gonic/gin"
)

const HeaderUserID = "X-User-ID"

// IdentityMiddleware 将请求头中的用户标识写入上下文，采集记录据此填充 userId
func IdentityMiddleware(header string) gin.HandlerFunc {
	if header == "" {
		header = HeaderUserID
	}
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader(header)); userID != "" {
			c.Set(capture.ContextUserIDKey, userID)
		}
		c.Next()
	}
}

package middleware

import (
	"strings"

	"secbank-cbs/internal/audit"

	"github.com/gin-gonic/gin"
)

// ClientIP prefers proxy headers over the socket address.
func ClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" && !strings.EqualFold(ip, "unknown") {
			return ip
		}
	}
	for _, h := range []string{"Proxy-Client-IP", "WL-Proxy-Client-IP"} {
		if ip := strings.TrimSpace(c.GetHeader(h)); ip != "" && !strings.EqualFold(ip, "unknown") {
			return ip
		}
	}
	return c.ClientIP()
}

// AuditContext stores the caller's IP and user agent on the request context
// so audit records can pick them up.
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithClient(c.Request.Context(), audit.Client{
			IP:        ClientIP(c),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

package middleware

import "github.com/gin-gonic/gin"

// NoStore forbids caching entirely. Responses carrying presigned links must
// never outlive the link's expiry in an intermediate cache.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

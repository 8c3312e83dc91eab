package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore keeps responses out of browser and proxy caches.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "private, no-store")
		c.Next()
	}
}

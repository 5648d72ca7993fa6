package middleware

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS middleware to handle cross-origin requests. Allowed origins come from
// ALLOWED_ORIGINS (comma separated); the defaults cover local Expo and web
// dev servers.
func CORS() gin.HandlerFunc {
	allowed := map[string]bool{
		"http://localhost:19006": true,
		"http://localhost:8081":  true,
		"http://localhost:3000":  true,
	}
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		allowed = map[string]bool{}
		for _, origin := range strings.Split(env, ",") {
			if o := strings.TrimSpace(origin); o != "" {
				allowed[o] = true
			}
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, User-Agent, Cache-Control, Keep-Alive, X-Requested-With, Pragma, X-API-Version")
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		}

		// Handle preflight requests
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

package middlewares

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSMiddlewares serves the guest ordering UI and the staff dashboard, which
// are hosted separately from the API. X-Session-Key must be allowed or guest
// order calls die in preflight.
func CORSMiddlewares() gin.HandlerFunc {
	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "http://127.0.0.1:5500"
	}

	allowedHeaders := strings.Join([]string{
		"Content-Type", "Content-Length", "Accept-Encoding", "Authorization",
		"X-Session-Key", "accept", "origin", "Cache-Control", "X-Requested-With",
		"Sec-WebSocket-Protocol", "Sec-WebSocket-Version", "Sec-WebSocket-Key", "Upgrade",
	}, ", ")

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			if c.GetHeader("Upgrade") == "websocket" {
				c.Writer.Header().Set("Connection", "Upgrade")
				c.Writer.Header().Set("Upgrade", "websocket")
			}
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

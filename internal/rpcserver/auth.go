package rpcserver

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates bearer tokens against YUVD_API_TOKEN. If the
// variable is unset, every request is allowed (development mode) — the
// same escape hatch and loud release-mode warning as the teacher's
// AuthMiddleware, renamed to this node's own env var.
func AuthMiddleware() gin.HandlerFunc {
	token := os.Getenv("YUVD_API_TOKEN")

	if token == "" && os.Getenv("GIN_MODE") == "release" {
		log.Println("rpcserver: YUVD_API_TOKEN is not set in release mode; every protected route is open")
	}

	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			c.Abort()
			return
		}

		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid Authorization header format"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

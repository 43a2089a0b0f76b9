// file: internal/server/middleware/basicauth.go
// version: 1.1.0
// guid: f6b47c71-f679-4c1b-bc98-814702396eb3

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// BasicAuth returns a Gin middleware enforcing HTTP Basic Authentication
// against a bcrypt password hash. An empty hash disables the check entirely.
// Health and metrics endpoints are exempt so probes keep working.
func BasicAuth(username, passwordHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if passwordHash == "" {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		if path == "/api/health" || path == "/metrics" {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="tunevault"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passMatch := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(pass)) == nil

		if !userMatch || !passMatch {
			c.Header("WWW-Authenticate", `Basic realm="tunevault"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Next()
	}
}

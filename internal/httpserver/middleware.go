package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
	adminKeyHeader  = "X-Admin-Key"
)

// requestID propagates an incoming X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// adminGate requires an admin key matching hash. Browsers cannot set headers
// on websocket upgrades, so the key is also read from the admin_key query.
func adminGate(hash string) gin.HandlerFunc {
	if hash == "" {
		return func(c *gin.Context) { c.Next() }
	}
	hashed := []byte(hash)
	return func(c *gin.Context) {
		key := c.GetHeader(adminKeyHeader)
		if key == "" {
			key = c.Query("admin_key")
		}
		if key == "" || bcrypt.CompareHashAndPassword(hashed, []byte(key)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorEnvelope{Success: false, Message: "unauthorized"})
			return
		}
		c.Next()
	}
}

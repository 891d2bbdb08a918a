// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the admin allow-list gate. Staff endpoints carry the
// caller's chat identity in the X-Admin-ID header; the gate admits only
// identities present in the configured allow-list and stashes the parsed ID
// for handlers. This is deliberately not an authentication scheme: the
// service is expected to sit behind a trusted front that has already
// verified the identity (bot webhook, mini-app init data).
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Identity headers used across the API surface.
const (
	// HeaderAdminID carries the staff caller's chat identity.
	HeaderAdminID = "X-Admin-ID"
	// HeaderChatID carries the guest caller's chat identity.
	HeaderChatID = "X-Chat-ID"
)

// ctxKeyAdminID is the Gin context key under which the admitted admin
// identity is stored.
const ctxKeyAdminID = "adminID"

// AdminID returns the admin identity admitted by AdminGate. The second
// return value is false outside gated routes.
func AdminID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxKeyAdminID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// ChatID parses the guest identity header. Zero with false when the header
// is absent or malformed.
func ChatID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader(HeaderChatID)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// AdminGate returns a Gin middleware that rejects requests whose X-Admin-ID
// is missing, malformed, or not admitted by isAdmin. Admitted identities
// are stored in the context for handlers (see AdminID).
func AdminGate(isAdmin func(int64) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderAdminID)
		if raw == "" {
			abortForbidden(c, "admin identity required")
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			abortForbidden(c, "malformed admin identity")
			return
		}
		if !isAdmin(id) {
			abortForbidden(c, "not an admin")
			return
		}
		c.Set(ctxKeyAdminID, id)
		c.Next()
	}
}

func abortForbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "forbidden",
		"message":    msg,
	})
}

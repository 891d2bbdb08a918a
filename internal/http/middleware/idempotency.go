// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for booking creation. Clients
// retrying POST /api/bookings send a stable Idempotency-Key header; the
// middleware validates the header, stashes the normalized key in the
// request context, and optionally consults a lookup to detect a replay of
// a previously completed request. On a replay the rate limiter is bypassed
// so retries of already-charged work are free.
//
// The middleware never serves the cached payload itself; the booking
// handler stays in control of replaying the stored response.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header that conveys an idempotency
// key for unsafe operations. The value is expected to be stable across
// retries of the same semantic operation.
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored replay exists
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// GetIdempotencyKey returns the validated idempotency key stored by
// IdempotencyValidator. Handlers should prefer this over reading the
// header directly.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the middleware detected that this request would
// replay a previously completed booking for the same (chat, key) pair.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures header validation. TTL enforcement lives
// in the lookup, not here.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative
	// token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// IdempotencyLookup answers whether a successful, still-valid booking
// exists for (chatID, key) at the given time. Implementations consult the
// stored idempotency records and their TTL window. Return an error only
// for lookup failures; those do not block normal processing.
type IdempotencyLookup func(ctx context.Context, chatID int64, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator validates the Idempotency-Key header when present,
// stashes it in the request context, and checks for a prior completed
// request via the supplied lookup. The guest identity comes from the
// X-Chat-ID header; without it the replay check is skipped and the key is
// still stashed for the handler, which sees the identity in the body.
//
// An absent header makes the middleware a no-op; a malformed header is a
// 400 with a compact error body.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if chatID, ok := ChatID(c); ok {
				now := time.Now().UTC()
				if exists, _ := lookup(c.Request.Context(), chatID, key, now); exists {
					c.Set(ctxKeyIdemReplay, true)
					c.Set(ctxKeyRateBypass, true)
				}
			}
		}

		c.Next()
	}
}

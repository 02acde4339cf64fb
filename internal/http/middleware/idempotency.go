// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header on submissions and, when the
// caller has already committed a submission under that key, marks the request
// as a replay. Replays skip rate limiting; the submission service serves the
// stored result itself.
package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's
// idempotency token.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: a committed submission exists
	ctxKeyRateBypass = "rate.bypass" // bool: skip rate limiting
)

// defaultKeyPattern matches the token alphabet accepted by the submission
// service.
var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~:-]+$`)

// GetIdempotencyKey returns the validated header key, if any.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether IdempotencyValidator found a committed submission
// for this caller and key.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; nil uses ^[A-Za-z0-9._~:-]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether userID already committed a submission
// under key. Errors are treated as "not found".
type IdempotencyLookup func(ctx context.Context, userID, key string) (bool, error)

// IdempotencyValidator validates the Idempotency-Key header when present and
// stashes it for handlers. A malformed key is rejected with 400. When lookup
// finds a prior commit for the authenticated caller, the request is marked as
// a replay and exempted from rate limiting.
//
// Install after Authenticator so the caller is known.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if uid := UserID(c); lookup != nil && uid != "" {
			exists, err := lookup(c.Request.Context(), uid, key)
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
			if exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

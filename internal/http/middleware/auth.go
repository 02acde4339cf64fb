// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. Tokens are HS256 JWTs
// whose subject claim is the caller's user id. On success the id is stored
// under the "userID" Gin key and the request-scoped logger is enriched with
// it, so downstream logs see the same identity. See ClientKey for the quota
// and rate-limit identity.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// HeaderDevUser carries a user id when development auth is enabled.
const HeaderDevUser = "X-User-ID"

// ctxKeyUserID is the Gin key holding the authenticated user id.
const ctxKeyUserID = "userID"

// ctxKeyDevAuth marks identities taken from HeaderDevUser.
const ctxKeyDevAuth = "devAuth"

// AuthOptions configures Authenticator.
type AuthOptions struct {
	// Secret is the HS256 signing key. Empty disables token verification.
	Secret []byte
	// Issuer, when set, must match the token's iss claim.
	Issuer string
	// DevHeader accepts X-User-ID when no Authorization header is sent.
	// Never enable in production.
	DevHeader bool
}

var errNoCredentials = errors.New("missing credentials")

// Authenticator rejects requests without a valid identity with 401.
func Authenticator(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, dev, err := identify(c, opts)
		if err != nil {
			LoggerFrom(c).Debug().Err(err).Msg("auth rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "authentication required",
			})
			return
		}
		SetUserID(c, uid)
		if dev {
			c.Set(ctxKeyDevAuth, true)
		}
		c.Next()
	}
}

// SetUserID records uid as the caller and tags the request logger with it.
func SetUserID(c *gin.Context, uid string) {
	c.Set(ctxKeyUserID, uid)
	l := LoggerFrom(c).With().Str("user_id", uid).Logger()
	c.Set(ctxKeyLogger, &l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
}

// UserID returns the authenticated user id, or "" when none is set.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// IsDevAuth reports whether the caller was identified by the unverified
// development header.
func IsDevAuth(c *gin.Context) bool {
	return c.GetBool(ctxKeyDevAuth)
}

func identify(c *gin.Context, opts AuthOptions) (uid string, dev bool, err error) {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz == "" {
		if opts.DevHeader {
			if id := strings.TrimSpace(c.GetHeader(HeaderDevUser)); id != "" {
				return id, true, nil
			}
		}
		return "", false, errNoCredentials
	}
	raw, ok := strings.CutPrefix(authz, "Bearer ")
	if !ok || len(opts.Secret) == 0 {
		return "", false, errNoCredentials
	}
	uid, err = parseToken(strings.TrimSpace(raw), opts)
	return uid, false, err
}

func parseToken(raw string, opts AuthOptions) (string, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return opts.Secret, nil
	}, parserOpts...)
	if err != nil {
		return "", err
	}
	if !tok.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

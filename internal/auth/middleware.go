package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	claimsKey   = "claims"
	tokenKey    = "token"
	verifiedKey = "token_verified"
)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(header string) string {
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("bearer "):])
}

// Bearer requires a well-formed, unexpired bearer token and stores its claims
// and raw value on the context. With a signing key the signature is checked
// too; without one the transport API stays the only verifier.
func Bearer(issuer, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		claims, verified, err := Read(token, issuer, key, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(claimsKey, claims)
		c.Set(tokenKey, token)
		c.Set(verifiedKey, verified)
		c.Next()
	}
}

// Verified reports whether Bearer checked the token's signature.
func Verified(c *gin.Context) bool {
	return c.GetBool(verifiedKey)
}

// FromContext returns the claims stored by Bearer.
func FromContext(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// TokenFromContext returns the raw token stored by Bearer.
func TokenFromContext(c *gin.Context) string {
	return c.GetString(tokenKey)
}

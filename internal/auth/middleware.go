package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "auth.claims"

// RevocationChecker reports whether a token id was signed out.
type RevocationChecker interface {
	IsRevoked(jti string) (bool, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// verified claims on the context.
func Middleware(issuer *Issuer, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			// Browsers cannot set headers on websocket upgrades.
			raw = c.Query("token")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, no token"})
			return
		}
		claims, err := issuer.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, token failed"})
			return
		}
		if revoked != nil {
			gone, err := revoked.IsRevoked(claims.ID)
			if err != nil {
				log.Printf("auth: revocation lookup: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
			if gone {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, token revoked"})
				return
			}
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ClaimsFrom returns the claims stored by Middleware, or nil.
func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// UserID returns the authenticated user's id, or "" outside Middleware.
func UserID(c *gin.Context) string {
	if claims := ClaimsFrom(c); claims != nil {
		return claims.Subject
	}
	return ""
}

package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/cat-backend/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
	// ContextKeyAuthError holds why a presented token was rejected.
	ContextKeyAuthError = "auth_error"
)

// TokenAuthenticator resolves a raw token into verified claims.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*service.Claims, error)
}

// Authenticate resolves the caller's token when one is presented. It never
// aborts: Authorize decides whether a missing or rejected token matters for
// the matched route.
func Authenticate(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			c.Next()
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			c.Set(ContextKeyAuthError, err)
			c.Next()
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetCaller returns the authenticated identity, if any.
func GetCaller(c *gin.Context) (service.Caller, bool) {
	claims := GetClaims(c)
	if claims == nil {
		return service.Caller{}, false
	}
	return claims.Caller(), true
}

func getAuthError(c *gin.Context) error {
	val, exists := c.Get(ContextKeyAuthError)
	if !exists {
		return nil
	}
	err, _ := val.(error)
	return err
}

// extractToken reads a bearer token, falling back to ?token= for WebSocket
// upgrades which cannot send headers.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}

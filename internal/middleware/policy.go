package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stemsi/cat-backend/internal/response"
	"github.com/stemsi/cat-backend/internal/service"
)

// Access is the requirement a route places on its caller.
type Access int

const (
	AccessPublic Access = iota
	AccessAuthenticated
	AccessAdmin
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessAdmin:
		return "admin"
	default:
		return "authenticated"
	}
}

// Rule binds a route template prefix (and optionally a set of methods) to an
// access requirement. An empty Methods list matches every method.
type Rule struct {
	Methods []string
	Prefix  string
	Access  Access
}

func (r Rule) matches(method, path string) bool {
	if path != r.Prefix && !strings.HasPrefix(path, r.Prefix+"/") {
		return false
	}
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

var readMethods = []string{http.MethodGet, http.MethodHead}

// DefaultPolicy is the access table for every route the router mounts.
// Rules are evaluated top to bottom; the first match wins.
var DefaultPolicy = []Rule{
	{Prefix: "/health", Access: AccessPublic},
	{Methods: []string{http.MethodPost}, Prefix: "/api/v1/auth/login", Access: AccessPublic},
	{Methods: []string{http.MethodPost}, Prefix: "/api/v1/auth/register", Access: AccessPublic},
	{Prefix: "/api/v1/auth", Access: AccessAuthenticated},

	{Methods: readMethods, Prefix: "/api/v1/tests", Access: AccessPublic},
	{Prefix: "/api/v1/tests", Access: AccessAdmin},
	{Methods: readMethods, Prefix: "/api/v1/questions", Access: AccessAuthenticated},
	{Prefix: "/api/v1/questions", Access: AccessAdmin},

	{Prefix: "/api/v1/sessions", Access: AccessAuthenticated},
	{Prefix: "/api/v1/export", Access: AccessAuthenticated},
	{Prefix: "/ws/v1", Access: AccessAuthenticated},

	{Prefix: "/api/v1/analytics", Access: AccessAdmin},
	{Prefix: "/api/v1/admin", Access: AccessAdmin},
}

// Evaluate returns the requirement of the first matching rule. Unmatched
// requests require authentication.
func Evaluate(rules []Rule, method, path string) Access {
	for _, r := range rules {
		if r.matches(method, path) {
			return r.Access
		}
	}
	return AccessAuthenticated
}

// Authorize enforces rules against the identity resolved by Authenticate.
// Missing, invalid or revoked tokens yield 401; a wrong role yields 403.
func Authorize(rules []Rule, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "authorize").Logger()

	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		access := Evaluate(rules, c.Request.Method, path)
		if access == AccessPublic {
			c.Next()
			return
		}

		caller, ok := GetCaller(c)
		if !ok {
			abortUnauthenticated(c, log)
			return
		}

		if access == AccessAdmin && caller.Role != model.RoleAdmin {
			response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}

		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, log zerolog.Logger) {
	err := getAuthError(c)
	switch {
	case err == nil:
		response.AbortFail(c, http.StatusUnauthorized, response.ErrUnauthorized)
	case errors.Is(err, service.ErrTokenRevoked):
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRevoked)
	case errors.Is(err, service.ErrUnauthorized):
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
	default:
		log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Msg("Token verification failed")
		response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/turtacn/FreshGuard/pkg/errors"
)

// AdminIDKey is the gin context key holding the acting admin id.
const AdminIDKey = "adminID"

// DefaultAdminHeader is used when no header name is configured.
const DefaultAdminHeader = "X-Admin-ID"

// IdentityProvider resolves the admin performing a request. The upstream
// gateway authenticates the admin; FreshGuard only reads the result.
type IdentityProvider interface {
	AdminID(c *gin.Context) (string, bool)
}

// HeaderIdentity reads the admin id from a trusted request header.
type HeaderIdentity struct {
	Header string
}

func NewHeaderIdentity(header string) HeaderIdentity {
	if header == "" {
		header = DefaultAdminHeader
	}
	return HeaderIdentity{Header: header}
}

func (h HeaderIdentity) AdminID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader(h.Header))
	return id, id != ""
}

// Identify stores the admin id on the context when one is present. It never
// rejects a request.
func Identify(provider IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := provider.AdminID(c); ok {
			c.Set(AdminIDKey, id)
		}
		c.Next()
	}
}

// RequireAdmin rejects requests without a resolved admin id. Mount it after
// Identify on every mutating route.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if AdminID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    apperrors.ErrCodeUnauthorized,
				"message": "admin identity required",
			})
			return
		}
		c.Next()
	}
}

// AdminID returns the admin id set by Identify, or "".
func AdminID(c *gin.Context) string {
	return c.GetString(AdminIDKey)
}

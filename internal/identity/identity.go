// Package identity resolves the current user. Authentication itself happens
// upstream (the auth proxy terminates the session and forwards identity
// headers); this package only trusts and exposes that result.
package identity

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/unselab/saju/internal/observability/obscontext"
)

// User is the authenticated caller.
type User struct {
	ID    string
	Email string
}

type contextKey struct{}

// Header names set by the upstream auth proxy.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
)

// Middleware extracts the forwarded identity into the request context. No
// identity headers means an anonymous request; gated handlers reject those.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if id == "" {
			c.Next()
			return
		}

		user := User{
			ID:    id,
			Email: strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserEmail))),
		}
		ctx := WithUser(c.Request.Context(), user)
		ctx = obscontext.WithUserID(ctx, user.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// WithUser stores the current user on the context.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// FromContext returns the current user, if authenticated.
func FromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(contextKey{}).(User)
	return user, ok && user.ID != ""
}

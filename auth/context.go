package auth

import (
	"context"
	"net/http"
)

// User is the identity resolved for one request. Handlers read it from the
// request context instead of the session.
type User struct {
	Username string
	Lang     string
	ViaToken bool
}

type contextKey string

const userContextKey contextKey = "user"

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userContextKey).(User)
	return u, ok && u.Username != ""
}

// GetCurrentUser extracts the user from the request context
func GetCurrentUser(r *http.Request) (User, bool) {
	return UserFrom(r.Context())
}

// SetUserContext adds a user to the request context
func SetUserContext(r *http.Request, u User) *http.Request {
	return r.WithContext(WithUser(r.Context(), u))
}

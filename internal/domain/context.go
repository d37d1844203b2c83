package domain

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const sessionContextKey contextKey = "shopify_session"

// WithSession stores a verified session on the request context.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext retrieves the verified session, or nil.
func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionContextKey).(*Session)
	return session
}

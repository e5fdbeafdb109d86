package cont

import (
	"context"

	"FleetTalk/entity"
)

type contextKey string

const sessionKey contextKey = "session"

// PutSession stores the authenticated session in a request context.
func PutSession(ctx context.Context, session *entity.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// GetSession returns the session stored by the authenticate middleware,
// or nil when the request was not authenticated.
func GetSession(ctx context.Context) *entity.Session {
	session, ok := ctx.Value(sessionKey).(*entity.Session)
	if !ok {
		return nil
	}
	return session
}

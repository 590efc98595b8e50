package shared

import "context"

type sessionKey struct{}

// ContextWithSession attaches sess to ctx.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the request session or nil.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	return sess
}

// Caller is the identity bound to the request session.
type Caller struct {
	UserID         int64
	ActiveLocation int64
}

// CallerFromContext reports the signed-in user and, when set, the active
// location (zero otherwise). ok is false for anonymous requests.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	sess := SessionFromContext(ctx)
	userID, ok := sess.UserID()
	if !ok {
		return Caller{}, false
	}
	active, _ := sess.ActiveLocation()
	return Caller{UserID: userID, ActiveLocation: active}, true
}

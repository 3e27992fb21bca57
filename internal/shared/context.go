package shared

import "context"

type sessionContextKey struct{}

type operatorContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithOperator stores the authenticated operator name.
func ContextWithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, operator)
}

// OperatorFromContext returns the authenticated operator name, or "".
func OperatorFromContext(ctx context.Context) string {
	op, _ := ctx.Value(operatorContextKey{}).(string)
	return op
}

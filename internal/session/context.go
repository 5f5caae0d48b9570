package session

import "context"

type contextKey struct{}

// WithGate returns a copy of ctx carrying g
func WithGate(ctx context.Context, g *Gate) context.Context {
	return context.WithValue(ctx, contextKey{}, g)
}

// FromContext returns the gate provisioned by WithGate.
// It panics when none was provisioned: every route must run behind the session loader.
func FromContext(ctx context.Context) *Gate {
	g, ok := ctx.Value(contextKey{}).(*Gate)
	if !ok || g == nil {
		panic("session: FromContext called without a provisioned gate")
	}
	return g
}

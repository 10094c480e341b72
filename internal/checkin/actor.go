package checkin

import "context"

// Actor is the authenticated user performing a transition.
type Actor struct {
	UserID uint64
	Role   string
}

type actorKey struct{}

// WithActor attaches the acting user to ctx for audit attribution.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the acting user, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

func actorID(ctx context.Context) *uint64 {
	a, ok := ActorFrom(ctx)
	if !ok || a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

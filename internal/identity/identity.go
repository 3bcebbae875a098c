package identity

import "context"

// Provider supplies the id of the actor performing a request
type Provider interface {
	ActorID(ctx context.Context) (string, bool)
}

type actorKey struct{}

// WithActor returns a context carrying the actor id
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// FromContext returns the actor id stored by WithActor
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorKey{}).(string)
	return id, ok && id != ""
}

// ContextProvider reads the actor from the request context, falling back to
// Fallback when it is set.
type ContextProvider struct {
	Fallback string
}

// Ensure ContextProvider implements Provider
var _ Provider = ContextProvider{}

func (p ContextProvider) ActorID(ctx context.Context) (string, bool) {
	if id, ok := FromContext(ctx); ok {
		return id, true
	}
	return p.Fallback, p.Fallback != ""
}

// Static always reports the same actor; an empty Static means nobody is signed in
type Static string

func (s Static) ActorID(context.Context) (string, bool) {
	return string(s), s != ""
}

package auth

import "context"

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller.
type Identity struct {
	OwnerID string
	Name    string
	Email   string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// OwnerID is empty when the request was not authenticated.
func OwnerID(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.OwnerID
}

package web

import (
	"context"

	"github.com/engagehub/submission/internal/core"
)

type contextKey string

const identityKey contextKey = "identity"

// withIdentity stores the authenticated caller on the request context.
func withIdentity(ctx context.Context, ident core.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// identityFrom returns the authenticated caller, if any.
func identityFrom(ctx context.Context) (core.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(core.Identity)
	return ident, ok
}

package rbac

import (
	"context"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

type contextKey struct{}

// ContextWithCaller attaches the resolved caller to ctx
func ContextWithCaller(ctx context.Context, caller *types.Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, caller)
}

// CallerFromContext returns the caller attached to ctx, or nil for an
// anonymous request.
func CallerFromContext(ctx context.Context) *types.Caller {
	caller, _ := ctx.Value(contextKey{}).(*types.Caller)
	return caller
}

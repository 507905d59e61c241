package services

import "context"

type dispatchIDKey struct{}

// WithDispatchID tags ctx with the dispatch id (used in logs and transfer requests)
func WithDispatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, dispatchIDKey{}, id)
}

func DispatchIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(dispatchIDKey{}).(string); ok {
		return id
	}
	return ""
}

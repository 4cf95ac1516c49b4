package guard

import "context"

type unsafeKey struct{}

// MarkUnsafe returns a context flagged as running inside the ingestion path.
func MarkUnsafe(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, unsafeKey{}, true)
}

// IsMarkedUnsafe reports whether ctx was flagged with MarkUnsafe.
func IsMarkedUnsafe(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(unsafeKey{}).(bool)
	return v
}

// ContextGuard is safe unless the context carries the unsafe flag.
type ContextGuard struct{}

func (ContextGuard) IsCurrentEventSafe(ctx context.Context) bool { return !IsMarkedUnsafe(ctx) }

package guard

import "context"

// Guard reports whether an event raised in the current execution context may
// be captured without risking recursive self-reporting.
type Guard interface {
	IsCurrentEventSafe(ctx context.Context) bool
}

// Func adapts a plain function to the Guard interface.
type Func func(ctx context.Context) bool

func (f Func) IsCurrentEventSafe(ctx context.Context) bool { return f(ctx) }

// Always is a Guard that considers every context safe.
var Always Guard = Func(func(context.Context) bool { return true })

// All is safe only when every member guard is safe. The first unsafe answer
// short-circuits.
type All []Guard

func (a All) IsCurrentEventSafe(ctx context.Context) bool {
	for _, g := range a {
		if g != nil && !g.IsCurrentEventSafe(ctx) {
			return false
		}
	}
	return true
}

// New returns the default guard: the context flag is checked first, then the
// call stack against locations.
func New(locations LocationSet) Guard {
	return All{ContextGuard{}, NewStackGuard(locations)}
}

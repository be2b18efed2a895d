// Package ctxkeys holds the typed context keys shared by api middleware and
// handlers. It is a leaf package so both sides can import it.
package ctxkeys

import "context"

// Key is the named type for all API context keys.
type Key string

const (
	// Subject is the authenticated admin's token subject.
	Subject Key = "subject"
	// Role is the role claim of the authenticated caller.
	Role Key = "role"
)

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// String returns the value stored under key, or "".
func String(ctx context.Context, key Key) string {
	v, _ := ctx.Value(key).(string)
	return v
}

package discovery

import "context"

// Resolver expands a cluster address into the concrete target addresses a
// check should query. Implementations return targets in a stable order and
// fail with an error rather than an empty list when nothing can be resolved.
type Resolver interface {
    Resolve(ctx context.Context, address string) ([]string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, address string) ([]string, error)

func (f ResolverFunc) Resolve(ctx context.Context, address string) ([]string, error) {
    return f(ctx, address)
}

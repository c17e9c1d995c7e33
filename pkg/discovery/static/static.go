package static

import (
    "context"
    "fmt"
    "strings"

    "github.com/amirimatin/vault-check/pkg/discovery"
)

type identity struct{}

// Identity returns a Resolver that treats the address as already concrete:
// the result is always the single-element list holding the address itself.
func Identity() discovery.Resolver { return identity{} }

func (identity) Resolve(_ context.Context, address string) ([]string, error) {
    return []string{address}, nil
}

type list struct{}

// List returns a Resolver that splits a comma-separated address into host
// names used verbatim, without any DNS lookups. This keeps host names
// intact for TLS certificate verification.
func List() discovery.Resolver { return list{} }

func (list) Resolve(_ context.Context, address string) ([]string, error) {
    out := Parse(address)
    if len(out) == 0 {
        return nil, fmt.Errorf("static: no addresses in %q", address)
    }
    return out, nil
}

// Parse converts a comma-separated list into []string, dropping blanks.
func Parse(csv string) []string {
    if csv == "" {
        return nil
    }
    parts := strings.Split(csv, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" {
            out = append(out, p)
        }
    }
    return out
}

package dns

import (
    "context"
    "fmt"
    "log"
    "net"
    "strings"

    "github.com/amirimatin/vault-check/pkg/discovery"
)

// HostResolver is the subset of *net.Resolver used for lookups.
type HostResolver interface {
    LookupHost(ctx context.Context, host string) ([]string, error)
    LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// Options configures DNS-based resolution.
type Options struct {
    // Resolver optionally overrides the DNS resolver used.
    Resolver HostResolver

    // Logger optional.
    Logger *log.Logger
}

type impl struct {
    opts Options
}

// New returns a Resolver that expands a name into every address it resolves
// to, in the order the resolver returns them. SRV names
// ("_vault._tcp.example.com") expand to their target hosts, each of which is
// then resolved to addresses. Duplicates are kept.
func New(opts Options) discovery.Resolver {
    if opts.Resolver == nil { opts.Resolver = net.DefaultResolver }
    return &impl{opts: opts}
}

func (d *impl) Resolve(ctx context.Context, name string) ([]string, error) {
    name = strings.TrimSpace(name)
    if name == "" {
        return nil, fmt.Errorf("dns: empty name")
    }
    hosts := []string{name}
    if isSRVName(name) {
        var err error
        if hosts, err = d.lookupSRV(ctx, name); err != nil {
            return nil, err
        }
    }
    var out []string
    for _, h := range hosts {
        addrs, err := d.opts.Resolver.LookupHost(ctx, h)
        if err != nil {
            return nil, fmt.Errorf("dns: lookup %s: %w", h, err)
        }
        if d.opts.Logger != nil {
            d.opts.Logger.Printf("dns: %s -> %v", h, addrs)
        }
        out = append(out, addrs...)
    }
    if len(out) == 0 {
        return nil, fmt.Errorf("dns: %s resolved to no addresses", name)
    }
    return out, nil
}

func (d *impl) lookupSRV(ctx context.Context, fqdn string) ([]string, error) {
    svc, proto, domain := parseSRVName(fqdn)
    _, recs, err := d.opts.Resolver.LookupSRV(ctx, svc, proto, domain)
    if err != nil {
        return nil, fmt.Errorf("dns: srv lookup %s: %w", fqdn, err)
    }
    out := make([]string, 0, len(recs))
    for _, r := range recs {
        out = append(out, strings.TrimSuffix(r.Target, "."))
    }
    return out, nil
}

func isSRVName(name string) bool {
    s, p, n := parseSRVName(name)
    return strings.HasPrefix(name, "_") && s != "" && p != "" && n != ""
}

func parseSRVName(fqdn string) (service, proto, name string) {
    // Expect pattern: _service._proto.name
    parts := strings.SplitN(fqdn, ".", 3)
    if len(parts) < 3 || !strings.HasPrefix(parts[1], "_") { return "", "", "" }
    s := strings.TrimPrefix(parts[0], "_")
    p := strings.TrimPrefix(parts[1], "_")
    n := parts[2]
    return s, p, n
}

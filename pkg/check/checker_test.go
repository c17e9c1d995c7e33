package check

import (
    "context"
    "errors"
    "io"
    "log"
    "net"
    "sync"
    "testing"
    "time"

    "github.com/amirimatin/vault-check/pkg/discovery"
    "github.com/amirimatin/vault-check/pkg/transport"
)

type fakeClient struct {
    mu      sync.Mutex
    leaders map[string]transport.LeaderResponse
    sealed  map[string]bool
    errs    map[string]error
    delay   map[string]time.Duration
    calls   []string
}

func (f *fakeClient) wait(ctx context.Context, target string) error {
    f.mu.Lock()
    f.calls = append(f.calls, target)
    d := f.delay[target]
    err := f.errs[target]
    f.mu.Unlock()
    if d > 0 {
        select {
        case <-time.After(d):
        case <-ctx.Done():
            return ctx.Err()
        }
    }
    return err
}

func (f *fakeClient) GetLeader(ctx context.Context, target string) (transport.LeaderResponse, error) {
    if err := f.wait(ctx, target); err != nil { return transport.LeaderResponse{}, err }
    return f.leaders[target], nil
}

func (f *fakeClient) GetSealStatus(ctx context.Context, target string) (transport.SealStatusResponse, error) {
    if err := f.wait(ctx, target); err != nil { return transport.SealStatusResponse{}, err }
    s := f.sealed[target]
    return transport.SealStatusResponse{Initialized: true, Sealed: &s}, nil
}

func fixed(targets ...string) discovery.Resolver {
    return discovery.ResolverFunc(func(context.Context, string) ([]string, error) { return targets, nil })
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// Scenario A: one target reporting a leader.
func TestLeaderSingleTargetHealthy(t *testing.T) {
    cli := &fakeClient{leaders: map[string]transport.LeaderResponse{
        "vault.example.com": {HAEnabled: true, LeaderAddress: "10.0.0.5:8201"},
    }}
    c := &Checker{Kind: KindLeader, Client: cli, Logger: quietLogger()}
    v, err := c.Run(context.Background(), "vault.example.com")
    if err != nil { t.Fatalf("run: %v", err) }
    if !v.Healthy || len(v.Failed) != 0 {
        t.Fatalf("unexpected verdict: %#v", v)
    }
    if got := v.Summary(KindLeader); got != "Vault has a leader" {
        t.Fatalf("summary = %q", got)
    }
}

// Scenario B: three expanded targets, one without a leader.
func TestLeaderExpandedOneWithoutLeader(t *testing.T) {
    cli := &fakeClient{leaders: map[string]transport.LeaderResponse{
        "10.0.0.1": {LeaderAddress: "https://10.0.0.1:8200", IsSelf: true},
        "10.0.0.2": {LeaderAddress: ""},
        "10.0.0.3": {LeaderAddress: "https://10.0.0.1:8200"},
    }}
    c := &Checker{Kind: KindLeader, Resolver: fixed("10.0.0.1", "10.0.0.2", "10.0.0.3"), Client: cli, Logger: quietLogger()}
    v, err := c.Run(context.Background(), "vault.example.com")
    if err != nil { t.Fatalf("run: %v", err) }
    if v.Healthy || len(v.Failed) != 1 || v.Failed[0] != "10.0.0.2" {
        t.Fatalf("unexpected verdict: %#v", v)
    }
    if got := v.Summary(KindLeader); got != "Problems found with vault server(s) [10.0.0.2]" {
        t.Fatalf("summary = %q", got)
    }
}

// Scenario C: one sealed target.
func TestSealSingleTargetSealed(t *testing.T) {
    cli := &fakeClient{sealed: map[string]bool{"10.0.0.7": true}}
    c := &Checker{Kind: KindSeal, Client: cli, Logger: quietLogger()}
    v, err := c.Run(context.Background(), "10.0.0.7")
    if err != nil { t.Fatalf("run: %v", err) }
    if v.Healthy || len(v.Failed) != 1 || v.Failed[0] != "10.0.0.7" {
        t.Fatalf("unexpected verdict: %#v", v)
    }
    if v.Results[0].Outcome.State != Unhealthy {
        t.Fatalf("state = %v, want unhealthy", v.Results[0].Outcome.State)
    }
}

// Scenario D: the query times out or is refused; fail closed.
func TestSealQueryFailureFailsClosed(t *testing.T) {
    refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
    for name, cli := range map[string]*fakeClient{
        "refused": {errs: map[string]error{"10.0.0.7": refused}},
        "timeout": {delay: map[string]time.Duration{"10.0.0.7": time.Second}},
    } {
        c := &Checker{Kind: KindSeal, Client: cli, Timeout: 50 * time.Millisecond, Logger: quietLogger()}
        v, err := c.Run(context.Background(), "10.0.0.7")
        if err != nil { t.Fatalf("%s: run: %v", name, err) }
        if v.Healthy || len(v.Failed) != 1 || v.Failed[0] != "10.0.0.7" {
            t.Fatalf("%s: unexpected verdict: %#v", name, v)
        }
        out := v.Results[0].Outcome
        if out.State != QueryFailed || !errors.Is(out.Err, ErrQuery) {
            t.Fatalf("%s: outcome = %#v", name, out)
        }
    }
}

// Scenario E: resolution fails; no target is queried.
func TestResolutionFailureAborts(t *testing.T) {
    cli := &fakeClient{}
    boom := &net.DNSError{Err: "no such host", Name: "vault.invalid", IsNotFound: true}
    c := &Checker{
        Kind:     KindLeader,
        Resolver: discovery.ResolverFunc(func(context.Context, string) ([]string, error) { return nil, boom }),
        Client:   cli,
        Logger:   quietLogger(),
    }
    _, err := c.Run(context.Background(), "vault.invalid")
    if !errors.Is(err, ErrResolve) {
        t.Fatalf("expected ErrResolve, got %v", err)
    }
    var dnsErr *net.DNSError
    if !errors.As(err, &dnsErr) {
        t.Fatalf("cause lost: %v", err)
    }
    if len(cli.calls) != 0 {
        t.Fatalf("queried %v after resolution failure", cli.calls)
    }
}

func TestEmptyResolutionAborts(t *testing.T) {
    c := &Checker{Kind: KindSeal, Resolver: fixed(), Client: &fakeClient{}, Logger: quietLogger()}
    if _, err := c.Run(context.Background(), "vault.example.com"); !errors.Is(err, ErrResolve) {
        t.Fatalf("expected ErrResolve, got %v", err)
    }
}

func TestDefaultResolverIsIdentity(t *testing.T) {
    cli := &fakeClient{sealed: map[string]bool{}}
    c := &Checker{Kind: KindSeal, Client: cli, Logger: quietLogger()}
    if _, err := c.Run(context.Background(), "vault-a.example.com,vault-b.example.com"); err != nil {
        t.Fatalf("run: %v", err)
    }
    if len(cli.calls) != 1 || cli.calls[0] != "vault-a.example.com,vault-b.example.com" {
        t.Fatalf("identity resolution expected, calls = %v", cli.calls)
    }
}

// Cancelling the run mid-flight yields ErrInterrupted, not a failure list.
func TestCancelledRunIsInterrupted(t *testing.T) {
    cli := &fakeClient{
        sealed: map[string]bool{},
        delay:  map[string]time.Duration{"10.0.0.1": time.Minute, "10.0.0.2": time.Minute},
    }
    c := &Checker{Kind: KindSeal, Resolver: fixed("10.0.0.1", "10.0.0.2"), Client: cli, Timeout: time.Minute, Logger: quietLogger()}
    ctx, cancel := context.WithCancel(context.Background())
    time.AfterFunc(50*time.Millisecond, cancel)
    v, err := c.Run(ctx, "vault")
    if !errors.Is(err, ErrInterrupted) || !errors.Is(err, context.Canceled) {
        t.Fatalf("expected ErrInterrupted wrapping context.Canceled, got %v", err)
    }
    if len(v.Failed) != 0 || v.Healthy {
        t.Fatalf("interrupted run must not carry a verdict: %#v", v)
    }
}

// A per-target timeout is a target failure, not an interruption.
func TestTargetTimeoutIsNotInterruption(t *testing.T) {
    cli := &fakeClient{sealed: map[string]bool{}, delay: map[string]time.Duration{"10.0.0.2": time.Minute}}
    c := &Checker{Kind: KindSeal, Resolver: fixed("10.0.0.1", "10.0.0.2"), Client: cli, Timeout: 50 * time.Millisecond, Logger: quietLogger()}
    v, err := c.Run(context.Background(), "vault")
    if err != nil { t.Fatalf("run: %v", err) }
    if v.Healthy || len(v.Failed) != 1 || v.Failed[0] != "10.0.0.2" {
        t.Fatalf("unexpected verdict: %#v", v)
    }
}

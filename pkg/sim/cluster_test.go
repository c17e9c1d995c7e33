package sim

import (
    "context"
    "errors"
    "io"
    "log"
    "net"
    "net/http"
    "strconv"
    "testing"
    "time"

    "github.com/amirimatin/vault-check/pkg/bootstrap"
    "github.com/amirimatin/vault-check/pkg/check"
    "github.com/amirimatin/vault-check/pkg/discovery"
    "github.com/amirimatin/vault-check/pkg/transport"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

// needLoopbackAliases skips when 127.0.0.2+ cannot be bound (e.g. macOS).
func needLoopbackAliases(t *testing.T) {
    t.Helper()
    for _, h := range DefaultHosts[1:] {
        ln, err := net.Listen("tcp", net.JoinHostPort(h, "0"))
        if err != nil { t.Skipf("loopback alias %s unavailable: %v", h, err) }
        _ = ln.Close()
    }
}

func startSim(t *testing.T, opts Options) *Cluster {
    t.Helper()
    if opts.Logger == nil { opts.Logger = quiet() }
    c, err := Start(context.Background(), opts)
    if err != nil { t.Fatalf("start sim: %v", err) }
    t.Cleanup(func() { _ = c.Close() })
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if _, err := c.WaitLeader(ctx); err != nil { t.Fatalf("wait leader: %v", err) }
    return c
}

func runCheck(t *testing.T, c *Cluster, kind check.Kind, token string) check.Verdict {
    t.Helper()
    hosts := c.Hosts()
    v, err := bootstrap.Run(context.Background(), bootstrap.Config{
        Kind:      kind,
        Address:   hosts[0],
        VerifyAll: true,
        Port:      c.Port(),
        Token:     token,
        Timeout:   2 * time.Second,
        Logger:    quiet(),
        Resolver: discovery.ResolverFunc(func(context.Context, string) ([]string, error) {
            return hosts, nil
        }),
    })
    if err != nil { t.Fatalf("%s check: %v", kind, err) }
    return v
}

func TestSingleNodeServesStatus(t *testing.T) {
    c := startSim(t, Options{Hosts: []string{"127.0.0.1"}})
    if !runCheck(t, c, check.KindLeader, "").Healthy { t.Fatalf("leader check should pass") }
    if !runCheck(t, c, check.KindSeal, "").Healthy { t.Fatalf("seal check should pass") }

    // Seal through the HTTP API.
    url := "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(c.Port())) + transport.PathSeal
    req, _ := http.NewRequest(http.MethodPut, url, nil)
    resp, err := http.DefaultClient.Do(req)
    if err != nil { t.Fatalf("seal request: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != http.StatusNoContent { t.Fatalf("seal status %d", resp.StatusCode) }
    if !c.Node(0).Sealed() { t.Fatalf("node should be sealed") }

    v := runCheck(t, c, check.KindSeal, "")
    if v.Healthy || len(v.Failed) != 1 || v.Failed[0] != "127.0.0.1" {
        t.Fatalf("unexpected seal verdict: %#v", v)
    }
    // A sealed node answers the leader endpoint with 503.
    if runCheck(t, c, check.KindLeader, "").Healthy { t.Fatalf("leader check should fail on a sealed node") }

    if err := c.Node(0).Unseal(context.Background()); err != nil { t.Fatalf("unseal: %v", err) }
    if !runCheck(t, c, check.KindSeal, "").Healthy { t.Fatalf("seal check should pass after unseal") }
}

func TestThreeNodesSealedFollower(t *testing.T) {
    needLoopbackAliases(t)
    c := startSim(t, Options{Hosts: DefaultHosts, Scenario: &Scenario{Nodes: []NodeSpec{{}, {Sealed: true}, {}}}})

    v := runCheck(t, c, check.KindSeal, "")
    if v.Healthy || len(v.Failed) != 1 || v.Failed[0] != "127.0.0.2" {
        t.Fatalf("unexpected seal verdict: %#v", v)
    }
    if len(v.Results) != 3 || v.Results[0].Outcome.State != check.Healthy || v.Results[1].Outcome.State != check.Unhealthy {
        t.Fatalf("unexpected per-target results: %#v", v.Results)
    }
    if err := c.Node(1).Unseal(context.Background()); err != nil { t.Fatalf("unseal: %v", err) }
    if !runCheck(t, c, check.KindSeal, "").Healthy { t.Fatalf("seal check should pass once unsealed") }
    if !runCheck(t, c, check.KindLeader, "").Healthy { t.Fatalf("leader check should pass") }
}

func TestSealingLeaderMovesLeadership(t *testing.T) {
    needLoopbackAliases(t)
    c := startSim(t, Options{Hosts: DefaultHosts})
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    events := c.Subscribe(ctx)

    old, _ := c.Leader()
    if err := old.Seal(ctx); err != nil { t.Fatalf("seal: %v", err) }

    deadline := time.Now().Add(5 * time.Second)
    for time.Now().Before(deadline) {
        if l, ok := c.Leader(); ok && l != old { break }
        time.Sleep(50 * time.Millisecond)
    }
    if l, ok := c.Leader(); !ok || l == old {
        t.Fatalf("leadership did not move off the sealed node")
    }

    sawSeal := false
    for !sawSeal {
        select {
        case ev := <-events:
            sawSeal = ev.Type == EventSealed && ev.Node == old.ID()
        case <-ctx.Done():
            t.Fatalf("no seal event observed")
        }
    }
}

func TestLeaveStopsNode(t *testing.T) {
    needLoopbackAliases(t)
    c := startSim(t, Options{Hosts: DefaultHosts})
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    events := c.Subscribe(ctx)

    old, _ := c.Leader()
    if err := old.Leave(ctx); err != nil { t.Fatalf("leave: %v", err) }
    if !old.Left() { t.Fatalf("node should be marked as left") }
    if err := old.Leave(ctx); err != nil { t.Fatalf("second leave should be a no-op: %v", err) }

    next, err := c.WaitLeader(ctx)
    if err != nil { t.Fatalf("remaining nodes did not elect a leader: %v", err) }
    if next == old { t.Fatalf("departed node still leads") }

    v := runCheck(t, c, check.KindSeal, "")
    if v.Healthy || len(v.Failed) != 1 || v.Failed[0] != old.Host() {
        t.Fatalf("departed host should fail closed: %#v", v)
    }

    sawLeft := false
    for !sawLeft {
        select {
        case ev := <-events:
            sawLeft = ev.Type == EventLeft && ev.Node == old.ID()
        case <-ctx.Done():
            t.Fatalf("no left event observed")
        }
    }
}

func TestTokenRequired(t *testing.T) {
    c := startSim(t, Options{Hosts: []string{"127.0.0.1"}, Token: "s.root"})
    v := runCheck(t, c, check.KindLeader, "")
    if v.Healthy || v.Results[0].Outcome.State != check.QueryFailed {
        t.Fatalf("missing token must fail closed: %#v", v)
    }
    if !errors.Is(v.Results[0].Outcome.Err, check.ErrQuery) {
        t.Fatalf("expected ErrQuery, got %v", v.Results[0].Outcome.Err)
    }
    if !runCheck(t, c, check.KindLeader, "s.root").Healthy { t.Fatalf("valid token should pass") }
}

func TestOptionsValidate(t *testing.T) {
    if err := (Options{Hosts: []string{"127.0.0.1"}, Port: 70000}).Validate(); err == nil {
        t.Fatalf("expected port error")
    }
    if err := (Options{}).Validate(); err == nil {
        t.Fatalf("expected missing hosts error")
    }
    if err := (Options{Scenario: &Scenario{Nodes: []NodeSpec{{Host: "127.0.0.1"}}}}).Validate(); err != nil {
        t.Fatalf("scenario hosts suffice: %v", err)
    }
}

package sim

import (
    "context"
    "errors"
    "fmt"
    "log"
    "net"
    "path/filepath"
    "strconv"
    "sync"
    "time"

    "github.com/google/uuid"

    raftcons "github.com/amirimatin/vault-check/pkg/consensus/raft"
    "github.com/amirimatin/vault-check/pkg/internal/logutil"
    "github.com/amirimatin/vault-check/pkg/observability/metrics"
    "github.com/amirimatin/vault-check/pkg/transport/httpjson"
)

// Cluster is a set of simulated Vault nodes sharing one port on distinct
// hosts. Leadership is decided by raft; seal state is local to each node.
type Cluster struct {
    opts      Options
    log       *log.Logger
    scenario  Scenario
    clusterID string
    port      int
    nodes     []*Node
    eb        eventBus

    cancel context.CancelFunc
    mu     sync.Mutex
    closed bool
}

// Start launches every node of the scenario: raft members first, then the
// HTTP servers once a leader is elected. The cluster is stopped when ctx is
// done or Close is called.
func Start(ctx context.Context, opts Options) (*Cluster, error) {
    if err := opts.Validate(); err != nil { return nil, err }
    if opts.Logger == nil { opts.Logger = logutil.New(nil) }
    if opts.ElectionTimeout == 0 { opts.ElectionTimeout = 10 * time.Second }
    var sc Scenario
    if opts.Scenario != nil { sc = *opts.Scenario }
    sc, err := sc.resolve(opts.Hosts)
    if err != nil { return nil, err }
    metrics.Register()

    ctx, cancel := context.WithCancel(ctx)
    c := &Cluster{opts: opts, log: opts.Logger, scenario: sc, clusterID: uuid.NewString(), port: opts.Port, cancel: cancel}
    if err := c.start(ctx); err != nil {
        _ = c.Close()
        return nil, err
    }
    return c, nil
}

func (c *Cluster) start(ctx context.Context) error {
    for i, spec := range c.scenario.Nodes {
        ropts := raftcons.Options{
            NodeID:           fmt.Sprintf("node-%d", i+1),
            Logger:           c.log,
            Bootstrap:        i == 0,
            HeartbeatTimeout: 200 * time.Millisecond,
            ElectionTimeout:  200 * time.Millisecond,
            CommitTimeout:    20 * time.Millisecond,
        }
        if c.opts.DataDir != "" { ropts.DataDir = filepath.Join(c.opts.DataDir, ropts.NodeID) }
        rn, err := raftcons.New(ropts)
        if err != nil { return err }
        n := &Node{c: c, id: ropts.NodeID, host: spec.Host, version: spec.Version, cons: rn}
        n.sealed.Store(spec.Sealed)
        metrics.SimSealed.WithLabelValues(n.id).Set(metrics.BoolGauge(spec.Sealed))
        metrics.SimIsLeader.WithLabelValues(n.id).Set(0)
        for _, peer := range c.nodes { rn.Connect(peer.cons) }
        c.nodes = append(c.nodes, n)
    }
    for _, n := range c.nodes {
        if err := n.cons.Start(ctx); err != nil { return fmt.Errorf("sim %s: raft: %w", n.id, err) }
        go c.watchLeader(ctx, n)
    }

    ectx, cancel := context.WithTimeout(ctx, c.opts.ElectionTimeout)
    defer cancel()
    first := c.nodes[0]
    if err := waitFor(ectx, first.IsLeader); err != nil { return ErrNoLeader }
    for _, n := range c.nodes[1:] {
        if err := first.cons.AddVoter(n.id, n.cons.Addr(), c.opts.ElectionTimeout); err != nil {
            return fmt.Errorf("sim %s: add voter: %w", n.id, err)
        }
    }

    for _, n := range c.nodes {
        if err := c.serve(ctx, n); err != nil { return err }
    }
    logutil.Infof(c.log, "sim: %d node(s) serving on port %d", len(c.nodes), c.port)
    return nil
}

func (c *Cluster) serve(ctx context.Context, n *Node) error {
    bind := net.JoinHostPort(n.host, strconv.Itoa(c.port))
    srv := httpjson.NewServer(bind, n.id, c.log)
    if c.opts.TLS != nil { srv.UseTLS(c.opts.TLS) }
    if err := srv.Start(ctx, n.handlers()); err != nil { return fmt.Errorf("sim %s: listen %s: %w", n.id, bind, err) }
    n.srv = srv
    if c.port == 0 {
        _, p, err := net.SplitHostPort(srv.Addr())
        if err != nil { return err }
        c.port, _ = strconv.Atoi(p)
    }
    logutil.Debugf(c.log, "sim %s: listening on %s", n.id, srv.Addr())
    return nil
}

func (c *Cluster) watchLeader(ctx context.Context, n *Node) {
    for {
        select {
        case <-ctx.Done():
            return
        case li := <-n.cons.LeaderCh():
            metrics.SimIsLeader.WithLabelValues(n.id).Set(metrics.BoolGauge(li.ID == n.id))
            metrics.SimLeaderChanges.Inc()
            logutil.Infof(c.log, "sim %s: leader change observed: id=%s term=%d", n.id, li.ID, li.Term)
            liCopy := li
            c.eb.publish(Event{Type: EventLeaderChanged, At: time.Now(), Node: n.id, Leader: &liCopy})
        }
    }
}

func waitFor(ctx context.Context, cond func() bool) error {
    t := time.NewTicker(25 * time.Millisecond)
    defer t.Stop()
    for !cond() {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-t.C:
        }
    }
    return nil
}

// Hosts returns the node hosts in scenario order; these are the targets a
// check resolves to.
func (c *Cluster) Hosts() []string {
    out := make([]string, len(c.nodes))
    for i, n := range c.nodes { out[i] = n.host }
    return out
}

// Port is the port shared by all nodes.
func (c *Cluster) Port() int { return c.port }

func (c *Cluster) Nodes() []*Node { return c.nodes }

// Node returns the i-th node (0-based) or nil.
func (c *Cluster) Node(i int) *Node {
    if i < 0 || i >= len(c.nodes) { return nil }
    return c.nodes[i]
}

func (c *Cluster) nodeByID(id string) *Node {
    for _, n := range c.nodes {
        if n.id == id { return n }
    }
    return nil
}

// Leader returns the node that currently holds raft leadership.
func (c *Cluster) Leader() (*Node, bool) {
    for _, n := range c.nodes {
        if n.IsLeader() { return n, true }
    }
    return nil, false
}

// WaitLeader blocks until every remaining node agrees on one leader or ctx
// is done.
func (c *Cluster) WaitLeader(ctx context.Context) (*Node, error) {
    var leader *Node
    err := waitFor(ctx, func() bool {
        l, ok := c.Leader()
        if !ok { return false }
        for _, n := range c.nodes {
            if n.Left() { continue }
            if id, _, ok := n.cons.Leader(); !ok || id != l.id { return false }
        }
        leader = l
        return true
    })
    if err != nil { return nil, fmt.Errorf("%w: %v", ErrNoLeader, err) }
    return leader, nil
}

func (c *Cluster) scheme() string {
    if c.opts.TLS != nil { return "https" }
    return "http"
}

// Close stops every HTTP server and raft member. Calling it again is a no-op.
func (c *Cluster) Close() error {
    c.mu.Lock()
    if c.closed { c.mu.Unlock(); return nil }
    c.closed = true
    c.mu.Unlock()

    sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    var errs []error
    for _, n := range c.nodes {
        if n.srv != nil { errs = append(errs, n.srv.Stop(sctx)) }
        errs = append(errs, n.cons.Stop())
    }
    c.cancel()
    return errors.Join(errs...)
}

package sim

import (
    "context"
    "fmt"
    "net"
    "strconv"
    "sync/atomic"
    "time"

    raftcons "github.com/amirimatin/vault-check/pkg/consensus/raft"
    "github.com/amirimatin/vault-check/pkg/internal/logutil"
    "github.com/amirimatin/vault-check/pkg/observability/metrics"
    "github.com/amirimatin/vault-check/pkg/transport"
    "github.com/amirimatin/vault-check/pkg/transport/httpjson"
)

// Node is one simulated Vault server: a raft member plus an HTTP server
// exposing the sys status endpoints.
type Node struct {
    c       *Cluster
    id      string
    host    string
    version string
    sealed  atomic.Bool
    left    atomic.Bool
    cons    *raftcons.Node
    srv     *httpjson.Server
}

func (n *Node) ID() string   { return n.id }
func (n *Node) Host() string { return n.host }

// APIAddr is the advertised API address, e.g. "http://127.0.0.2:8200".
func (n *Node) APIAddr() string {
    return n.c.scheme() + "://" + net.JoinHostPort(n.host, strconv.Itoa(n.c.port))
}

// ClusterAddr mimics Vault's request-forwarding address (API port + 1).
func (n *Node) ClusterAddr() string {
    return "https://" + net.JoinHostPort(n.host, strconv.Itoa(n.c.port+1))
}

func (n *Node) Sealed() bool   { return n.sealed.Load() }
func (n *Node) IsLeader() bool { return n.cons.IsLeader() }

// Seal seals the node. A sealed leader hands leadership to another voter
// when one exists.
func (n *Node) Seal(ctx context.Context) error {
    if n.sealed.Swap(true) { return nil }
    metrics.SimSealed.WithLabelValues(n.id).Set(1)
    n.c.eb.publish(Event{Type: EventSealed, At: time.Now(), Node: n.id})
    logutil.Infof(n.c.log, "sim %s: sealed", n.id)
    if n.cons.IsLeader() && len(n.c.nodes) > 1 {
        if err := n.cons.TransferLeadership(); err != nil {
            logutil.Warnf(n.c.log, "sim %s: leadership transfer: %v", n.id, err)
        }
    }
    return ctx.Err()
}

// Unseal unseals the node.
func (n *Node) Unseal(ctx context.Context) error {
    if !n.sealed.Swap(false) { return nil }
    metrics.SimSealed.WithLabelValues(n.id).Set(0)
    n.c.eb.publish(Event{Type: EventUnsealed, At: time.Now(), Node: n.id})
    logutil.Infof(n.c.log, "sim %s: unsealed", n.id)
    return ctx.Err()
}

// Left reports whether the node has left the cluster.
func (n *Node) Left() bool { return n.left.Load() }

// Leave removes the node from the raft configuration through the current
// leader and stops it, like a decommissioned server. Its host stops
// answering. A leaving leader steps down once the removal commits.
func (n *Node) Leave(ctx context.Context) error {
    if !n.left.CompareAndSwap(false, true) { return nil }
    leader, ok := n.c.Leader()
    if !ok {
        n.left.Store(false)
        return ErrNoLeader
    }
    if err := leader.cons.RemoveServer(n.id, n.c.opts.ElectionTimeout); err != nil {
        n.left.Store(false)
        return fmt.Errorf("sim %s: remove server: %w", n.id, err)
    }
    if n.srv != nil {
        if err := n.srv.Stop(ctx); err != nil { logutil.Errorf(n.c.log, "sim %s: stop server: %v", n.id, err) }
    }
    if err := n.cons.Stop(); err != nil { logutil.Errorf(n.c.log, "sim %s: stop raft: %v", n.id, err) }
    metrics.SimIsLeader.WithLabelValues(n.id).Set(0)
    n.c.eb.publish(Event{Type: EventLeft, At: time.Now(), Node: n.id})
    logutil.Infof(n.c.log, "sim %s: left the cluster", n.id)
    return nil
}

func (n *Node) handlers() transport.Handlers {
    return transport.Handlers{
        Leader:     n.leader,
        SealStatus: n.sealStatus,
        Seal:       n.Seal,
        Unseal:     n.Unseal,
        Token:      n.c.opts.Token,
    }
}

func (n *Node) leader(ctx context.Context) (transport.LeaderResponse, error) {
    if n.Sealed() { return transport.LeaderResponse{}, transport.ErrSealed }
    resp := transport.LeaderResponse{HAEnabled: true}
    id, _, ok := n.cons.Leader()
    if !ok { return resp, nil }
    if ln := n.c.nodeByID(id); ln != nil {
        resp.IsSelf = ln == n
        resp.LeaderAddress = ln.APIAddr()
        resp.LeaderClusterAddress = ln.ClusterAddr()
    }
    return resp, ctx.Err()
}

func (n *Node) sealStatus(ctx context.Context) (transport.SealStatusResponse, error) {
    sealed := n.Sealed()
    return transport.SealStatusResponse{
        Type:        "shamir",
        Initialized: true,
        Sealed:      &sealed,
        Threshold:   3,
        Shares:      5,
        Version:     n.version,
        ClusterName: n.c.scenario.ClusterName,
        ClusterID:   n.c.clusterID,
    }, ctx.Err()
}

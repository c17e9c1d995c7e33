package raftcons

import (
    "context"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strconv"
    "sync"
    "time"

    "github.com/hashicorp/raft"
    raftboltdb "github.com/hashicorp/raft-boltdb"

    c "github.com/amirimatin/vault-check/pkg/consensus"
)

// Node implements consensus.Consensus using HashiCorp Raft over an
// in-memory loopback transport. Nodes of one process are wired together
// with Connect.
type Node struct {
    opts Options
    log  *log.Logger
    lch  chan c.LeaderInfo

    mu    sync.RWMutex
    r     *raft.Raft
    addr  raft.ServerAddress
    trans *raft.InmemTransport
    bolt  *raftboltdb.BoltStore
}

func New(opts Options) (*Node, error) {
    if opts.NodeID == "" {
        return nil, fmt.Errorf("raftcons: empty NodeID")
    }
    if opts.Logger == nil {
        opts.Logger = log.Default()
    }
    if opts.LogLevel == "" {
        opts.LogLevel = "ERROR"
    }
    addr, trans := raft.NewInmemTransport(raft.ServerAddress(opts.NodeID))
    return &Node{opts: opts, log: opts.Logger, lch: make(chan c.LeaderInfo, 16), addr: addr, trans: trans}, nil
}

// Addr returns the raft transport address of the node.
func (n *Node) Addr() string { return string(n.addr) }

// ID returns the raft server ID.
func (n *Node) ID() string { return n.opts.NodeID }

// Connect wires the loopback transports of n and peer in both directions.
func (n *Node) Connect(peer *Node) {
    n.trans.Connect(peer.addr, peer.trans)
    peer.trans.Connect(n.addr, n.trans)
}

func (n *Node) handle() *raft.Raft {
    n.mu.RLock()
    defer n.mu.RUnlock()
    return n.r
}

func (n *Node) Start(ctx context.Context) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.r != nil {
        return nil
    }

    // Raft configuration
    cfg := raft.DefaultConfig()
    cfg.LocalID = raft.ServerID(n.opts.NodeID)
    cfg.LogOutput = n.log.Writer()
    cfg.LogLevel = n.opts.LogLevel
    if n.opts.HeartbeatTimeout > 0 {
        cfg.HeartbeatTimeout = n.opts.HeartbeatTimeout
        // Keep lease <= heartbeat to satisfy invariants
        if cfg.LeaderLeaseTimeout > cfg.HeartbeatTimeout {
            cfg.LeaderLeaseTimeout = cfg.HeartbeatTimeout / 2
            if cfg.LeaderLeaseTimeout == 0 { cfg.LeaderLeaseTimeout = cfg.HeartbeatTimeout }
        }
    }
    if n.opts.ElectionTimeout > 0 { cfg.ElectionTimeout = n.opts.ElectionTimeout }
    if n.opts.CommitTimeout > 0 { cfg.CommitTimeout = n.opts.CommitTimeout }

    var (
        logs   raft.LogStore
        stable raft.StableStore
        snaps  raft.SnapshotStore
    )

    // Storage selection: on-disk when DataDir provided, else in-memory.
    if n.opts.DataDir != "" {
        if n.opts.SnapshotsRetained == 0 { n.opts.SnapshotsRetained = 2 }
        if err := os.MkdirAll(n.opts.DataDir, 0o755); err != nil { return err }
        // Bolt store for both log and stable
        bstore, err := raftboltdb.NewBoltStore(filepath.Join(n.opts.DataDir, "raft.db"))
        if err != nil { return err }
        snaps, err = raft.NewFileSnapshotStore(n.opts.DataDir, n.opts.SnapshotsRetained, n.log.Writer())
        if err != nil { _ = bstore.Close(); return err }
        n.bolt = bstore
        logs = bstore
        stable = bstore
    } else {
        logs = raft.NewInmemStore()
        stable = raft.NewInmemStore()
        snaps = raft.NewInmemSnapshotStore()
    }

    r, err := raft.NewRaft(cfg, &indexFSM{}, logs, stable, snaps, n.trans)
    if err != nil {
        n.closeStores()
        return err
    }
    n.r = r

    // Observe leadership changes and forward to LeaderCh.
    obsCh := make(chan raft.Observation, 32)
    observer := raft.NewObserver(obsCh, false, func(o *raft.Observation) bool {
        _, ok := o.Data.(raft.LeaderObservation)
        return ok
    })
    r.RegisterObserver(observer)
    go func() {
        for {
            select {
            case <-ctx.Done():
                r.DeregisterObserver(observer)
                return
            case o := <-obsCh:
                lo := o.Data.(raft.LeaderObservation)
                n.emitLeader(c.LeaderInfo{ID: string(lo.LeaderID), Addr: string(lo.LeaderAddr), Term: n.Term()})
            }
        }
    }()

    if n.opts.Bootstrap {
        cfgs := raft.Configuration{Servers: []raft.Server{{
            ID:      cfg.LocalID,
            Address: n.addr,
        }}}
        if err := r.BootstrapCluster(cfgs).Error(); err != nil && !errors.Is(err, raft.ErrCantBootstrap) {
            return err
        }
    }

    go func() {
        <-ctx.Done()
        _ = n.Stop()
    }()
    return nil
}

func (n *Node) IsLeader() bool {
    r := n.handle()
    if r == nil { return false }
    return r.State() == raft.Leader
}

func (n *Node) Leader() (id string, addr string, ok bool) {
    r := n.handle()
    if r == nil { return "", "", false }
    a, sid := r.LeaderWithID()
    if sid == "" { return "", "", false }
    return string(sid), string(a), true
}

func (n *Node) Term() uint64 {
    r := n.handle()
    if r == nil { return 0 }
    // Try to parse from stats; falls back to 0.
    if v := r.Stats()["current_term"]; v != "" {
        if u, err := strconv.ParseUint(v, 10, 64); err == nil { return u }
    }
    return 0
}

func (n *Node) Stop() error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.r == nil { return nil }
    err := n.r.Shutdown().Error()
    n.r = nil
    n.closeStores()
    return err
}

func (n *Node) closeStores() {
    if n.bolt != nil {
        _ = n.bolt.Close()
        n.bolt = nil
    }
}

// Ensure interface compliance
var (
    _ c.Consensus      = (*Node)(nil)
    _ c.LeaderNotifier = (*Node)(nil)
    _ c.Reconfigurer   = (*Node)(nil)
)

func (n *Node) LeaderCh() <-chan c.LeaderInfo { return n.lch }

func (n *Node) emitLeader(li c.LeaderInfo) {
    select {
    case n.lch <- li:
    default:
        // drop to avoid blocking; last-writer-wins semantics are ok for leadership
    }
}

// --- Dynamic Reconfiguration ---

// AddVoter adds a voting server to the Raft cluster if not already present.
func (n *Node) AddVoter(id, addr string, timeout time.Duration) error {
    r := n.handle()
    if r == nil {
        return fmt.Errorf("raftcons: not started")
    }
    // Fast-path: if exists with same address, accept.
    cfg := r.GetConfiguration()
    if err := cfg.Error(); err == nil {
        for _, srv := range cfg.Configuration().Servers {
            if string(srv.ID) == id {
                if string(srv.Address) == addr {
                    return nil
                }
                // Remove stale entry with different address before adding
                if err := r.RemoveServer(srv.ID, 0, timeout).Error(); err != nil { return err }
                break
            }
        }
    }
    return r.AddVoter(raft.ServerID(id), raft.ServerAddress(addr), 0, timeout).Error()
}

// RemoveServer removes a server from the Raft cluster if present.
func (n *Node) RemoveServer(id string, timeout time.Duration) error {
    r := n.handle()
    if r == nil {
        return fmt.Errorf("raftcons: not started")
    }
    return r.RemoveServer(raft.ServerID(id), 0, timeout).Error()
}

// TransferLeadership hands leadership to another voter.
func (n *Node) TransferLeadership() error {
    r := n.handle()
    if r == nil {
        return fmt.Errorf("raftcons: not started")
    }
    return r.LeadershipTransfer().Error()
}

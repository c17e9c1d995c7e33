package consensus

import "context"

// Consensus is the minimal abstraction over a leader-based consensus engine
// (e.g., RAFT) used by the simulator: it only needs leadership and term.
type Consensus interface {
    Start(ctx context.Context) error
    IsLeader() bool
    Leader() (id string, addr string, ok bool)
    Term() uint64
    Stop() error
}

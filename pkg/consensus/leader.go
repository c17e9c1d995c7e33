package consensus

// LeaderInfo describes the current known leader. A zero ID means no leader
// is known.
type LeaderInfo struct {
    ID   string
    Addr string
    Term uint64
}

// LeaderNotifier is an optional interface that a Consensus implementation may
// provide to notify about leadership changes via an observable channel.
type LeaderNotifier interface {
    // LeaderCh delivers leadership updates, including loss of leadership.
    // Updates are coalesced and may be dropped when the reader lags.
    LeaderCh() <-chan LeaderInfo
}

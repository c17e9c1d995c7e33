package raftcons

import (
    "encoding/binary"
    "io"
    "sync/atomic"

    "github.com/hashicorp/raft"
)

// indexFSM keeps no application state; it only tracks the last applied log
// index so snapshots and restores have something to carry.
type indexFSM struct {
    applied atomic.Uint64
}

func (f *indexFSM) Apply(l *raft.Log) interface{} {
    f.applied.Store(l.Index)
    return nil
}

func (f *indexFSM) Snapshot() (raft.FSMSnapshot, error) {
    return &snapshot{index: f.applied.Load()}, nil
}

func (f *indexFSM) Restore(rc io.ReadCloser) error {
    defer rc.Close()
    var buf [8]byte
    if _, err := io.ReadFull(rc, buf[:]); err != nil { return err }
    f.applied.Store(binary.BigEndian.Uint64(buf[:]))
    return nil
}

type snapshot struct {
    index uint64
}

func (s *snapshot) Persist(sink raft.SnapshotSink) error {
    var buf [8]byte
    binary.BigEndian.PutUint64(buf[:], s.index)
    if _, err := sink.Write(buf[:]); err != nil { _ = sink.Cancel(); return err }
    return sink.Close()
}

func (s *snapshot) Release() {}

// Ensure compile-time interface compliance.
var _ raft.FSM = (*indexFSM)(nil)

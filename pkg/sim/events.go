package sim

import (
    "context"
    "sync"
    "time"

    "github.com/amirimatin/vault-check/pkg/consensus"
)

type EventType string

const (
    EventLeaderChanged EventType = "leader_changed"
    EventSealed        EventType = "sealed"
    EventUnsealed      EventType = "unsealed"
    EventLeft          EventType = "left"
)

// Event describes a state change of the simulated cluster. Leader is set
// for leader changes only.
type Event struct {
    Type   EventType
    At     time.Time
    Node   string
    Leader *consensus.LeaderInfo
}

// Subscribe returns a channel of events. The returned channel is buffered and
// closed automatically when ctx is done. Events may be dropped if the consumer
// is too slow.
func (c *Cluster) Subscribe(ctx context.Context) <-chan Event {
    ch := make(chan Event, 64)
    c.eb.add(ch)
    go func() {
        <-ctx.Done()
        c.eb.remove(ch)
        close(ch)
    }()
    return ch
}

type eventBus struct {
    mu   sync.Mutex
    subs map[chan Event]struct{}
}

func (e *eventBus) add(ch chan Event) {
    e.mu.Lock()
    if e.subs == nil { e.subs = make(map[chan Event]struct{}) }
    e.subs[ch] = struct{}{}
    e.mu.Unlock()
}

func (e *eventBus) remove(ch chan Event) {
    e.mu.Lock()
    if e.subs != nil { delete(e.subs, ch) }
    e.mu.Unlock()
}

func (e *eventBus) publish(ev Event) {
    e.mu.Lock()
    for ch := range e.subs {
        select {
        case ch <- ev:
        default:
            // drop if receiver is slow
        }
    }
    e.mu.Unlock()
}

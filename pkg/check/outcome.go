package check

import (
    "errors"
    "fmt"
)

// State is the normalized result of querying one target.
type State int

const (
    Healthy State = iota
    Unhealthy
    QueryFailed
)

func (s State) String() string {
    switch s {
    case Healthy:
        return "healthy"
    case Unhealthy:
        return "unhealthy"
    case QueryFailed:
        return "query_failed"
    default:
        return fmt.Sprintf("state(%d)", int(s))
    }
}

// Outcome is what a single status query produced. Err is set only for
// QueryFailed; Detail carries a short human-readable observation such as
// the reported leader address or "sealed".
type Outcome struct {
    State  State
    Detail string
    Err    error
}

// Failed builds a QueryFailed outcome. The cause is wrapped with ErrQuery.
func Failed(cause error) Outcome {
    if cause == nil {
        cause = errors.New("unknown error")
    }
    if !errors.Is(cause, ErrQuery) {
        cause = fmt.Errorf("%w: %w", ErrQuery, cause)
    }
    return Outcome{State: QueryFailed, Err: cause}
}

// Healthy reports whether the outcome counts as healthy. QueryFailed is
// never healthy: an unreachable member must show up in the failure list.
func (o Outcome) Healthy() bool {
    switch o.State {
    case Healthy:
        return true
    case Unhealthy, QueryFailed:
        return false
    default:
        return false
    }
}

// Reason describes why a target is unhealthy, or what it reported when healthy.
func (o Outcome) Reason() string {
    if o.State == QueryFailed && o.Err != nil {
        return o.Err.Error()
    }
    if o.Detail != "" {
        return o.Detail
    }
    return o.State.String()
}

package check

import (
    "context"
    "fmt"
    "strings"
    "time"

    "golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel target queries when none is configured.
const DefaultConcurrency = 8

// TargetResult attributes an outcome to the target that produced it.
type TargetResult struct {
    Target   string
    Outcome  Outcome
    Duration time.Duration
}

// Verdict is the aggregated result of one run.
type Verdict struct {
    // Healthy is true iff every target normalized to Healthy.
    Healthy bool
    // Failed lists unhealthy targets (including failed queries) in resolver order.
    Failed []string
    // Results holds one entry per target, in resolver order.
    Results []TargetResult
}

// Summary renders the one-line operator message for the verdict.
func (v Verdict) Summary(k Kind) string {
    if v.Healthy {
        return k.OKMessage()
    }
    return fmt.Sprintf("Problems found with vault server(s) [%s]", strings.Join(v.Failed, ", "))
}

// Aggregate queries every target through probe with at most limit queries in
// flight and folds the outcomes into a Verdict. Each target is queried
// exactly once; results are stored by index so completion order does not
// affect the failure list.
func Aggregate(ctx context.Context, targets []string, probe ProbeFunc, limit int) Verdict {
    results := make([]TargetResult, len(targets))
    if limit <= 0 {
        limit = DefaultConcurrency
    }
    if limit > len(targets) {
        limit = len(targets)
    }
    if limit < 1 {
        limit = 1
    }

    var g errgroup.Group
    g.SetLimit(limit)
    for i, target := range targets {
        i, target := i, target
        g.Go(func() error {
            start := time.Now()
            out := safeProbe(ctx, probe, target)
            results[i] = TargetResult{Target: target, Outcome: out, Duration: time.Since(start)}
            return nil
        })
    }
    _ = g.Wait()

    v := Verdict{Healthy: true, Results: results}
    for _, r := range results {
        if !r.Outcome.Healthy() {
            v.Healthy = false
            v.Failed = append(v.Failed, r.Target)
        }
    }
    return v
}

// safeProbe turns a panicking probe into a QueryFailed outcome.
func safeProbe(ctx context.Context, probe ProbeFunc, target string) (out Outcome) {
    defer func() {
        if r := recover(); r != nil {
            out = Failed(fmt.Errorf("probe panicked: %v", r))
        }
    }()
    if err := ctx.Err(); err != nil {
        return Failed(err)
    }
    return probe(ctx, target)
}

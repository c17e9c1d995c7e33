package check

import (
    "context"
    "fmt"
    "log"
    "time"

    "go.opentelemetry.io/otel/attribute"

    "github.com/amirimatin/vault-check/pkg/discovery"
    "github.com/amirimatin/vault-check/pkg/discovery/static"
    "github.com/amirimatin/vault-check/pkg/internal/logutil"
    "github.com/amirimatin/vault-check/pkg/observability/metrics"
    "github.com/amirimatin/vault-check/pkg/observability/tracing"
    "github.com/amirimatin/vault-check/pkg/transport"
)

// DefaultTimeout bounds a single target query when none is configured.
const DefaultTimeout = 5 * time.Second

// Checker runs one check kind against every target behind a cluster address.
// A Checker is read-only after construction and may be reused across runs.
type Checker struct {
    Kind     Kind
    Resolver discovery.Resolver
    Client   transport.StatusClient
    // Timeout bounds each target query.
    Timeout time.Duration
    // Concurrency bounds the number of queries in flight.
    Concurrency int
    Logger      *log.Logger
}

// Run resolves address, queries every target and aggregates the verdict.
// The returned error is non-nil only for ErrResolve and ErrInterrupted;
// per-target failures are part of the verdict.
func (c *Checker) Run(ctx context.Context, address string) (Verdict, error) {
    ctx, span := tracing.StartSpan(ctx, "check.run",
        attribute.String("check", string(c.Kind)),
        attribute.String("address", address))
    defer span.End()

    targets, err := c.resolve(ctx, address)
    if err != nil {
        metrics.ResolveErrors.WithLabelValues(string(c.Kind)).Inc()
        span.Fail(err)
        return Verdict{}, err
    }
    logutil.Debugf(c.Logger, "%s check: %q resolved to %d target(s): %v", c.Kind, address, len(targets), targets)

    v := Aggregate(ctx, targets, c.probe(), c.Concurrency)
    if err := ctx.Err(); err != nil {
        span.Fail(err)
        return Verdict{}, fmt.Errorf("%w: %w", ErrInterrupted, err)
    }

    kind := string(c.Kind)
    for _, r := range v.Results {
        metrics.TargetChecks.WithLabelValues(kind, r.Outcome.State.String()).Inc()
        metrics.QueryDuration.WithLabelValues(kind).Observe(r.Duration.Seconds())
        if r.Outcome.Healthy() {
            logutil.Debugf(c.Logger, "%s check: %s %s (%s)", c.Kind, r.Target, r.Outcome.Reason(), r.Duration)
        } else {
            logutil.Infof(c.Logger, "%s check: %s unhealthy: %s", c.Kind, r.Target, r.Outcome.Reason())
        }
    }
    metrics.LastRunHealthy.WithLabelValues(kind).Set(metrics.BoolGauge(v.Healthy))
    metrics.LastRunTargets.WithLabelValues(kind).Set(float64(len(targets)))
    metrics.LastRunFailedTargets.WithLabelValues(kind).Set(float64(len(v.Failed)))
    metrics.LastRunTimestamp.WithLabelValues(kind).SetToCurrentTime()
    span.Set(attribute.Bool("healthy", v.Healthy), attribute.Int("failed", len(v.Failed)))
    return v, nil
}

func (c *Checker) resolve(ctx context.Context, address string) ([]string, error) {
    r := c.Resolver
    if r == nil { r = static.Identity() }
    targets, err := r.Resolve(ctx, address)
    if err != nil {
        return nil, fmt.Errorf("%w: %q: %w", ErrResolve, address, err)
    }
    if len(targets) == 0 {
        return nil, fmt.Errorf("%w: %q resolved to no addresses", ErrResolve, address)
    }
    return targets, nil
}

// probe wraps the kind's probe with the per-query timeout and a tracing span.
func (c *Checker) probe() ProbeFunc {
    base := c.Kind.Probe(c.Client)
    timeout := c.Timeout
    if timeout <= 0 { timeout = DefaultTimeout }
    return func(ctx context.Context, target string) Outcome {
        ctx, cancel := context.WithTimeout(ctx, timeout)
        defer cancel()
        ctx, span := tracing.StartSpan(ctx, "check.target", attribute.String("target", target))
        defer span.End()
        out := base(ctx, target)
        span.Set(attribute.String("state", out.State.String()))
        if out.Err != nil { span.Fail(out.Err) }
        return out
    }
}

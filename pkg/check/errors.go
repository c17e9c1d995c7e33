package check

import "errors"

var (
    // ErrConfig marks invalid or missing configuration. Fatal, reported
    // before any network activity.
    ErrConfig = errors.New("check: invalid configuration")
    // ErrResolve marks a failure to expand the cluster address into targets.
    // Fatal for the whole run; no target is queried.
    ErrResolve = errors.New("check: resolution failed")
    // ErrQuery wraps a per-target query failure. It never aborts a run and
    // only appears inside Outcome.Err.
    ErrQuery = errors.New("check: query failed")
    // ErrInterrupted marks a run whose context ended before every target
    // answered. The partial verdict is discarded.
    ErrInterrupted = errors.New("check: run interrupted")
)

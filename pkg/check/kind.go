package check

import (
    "context"
    "errors"
    "fmt"

    "github.com/amirimatin/vault-check/pkg/transport"
)

// Kind selects which status field a check interprets.
type Kind string

const (
    // KindLeader: a target is healthy when it reports a non-empty leader address.
    KindLeader Kind = "leader"
    // KindSeal: a target is healthy when it reports sealed == false.
    KindSeal Kind = "seal"
)

// Valid reports whether k is a known check kind.
func (k Kind) Valid() bool { return k == KindLeader || k == KindSeal }

// OKMessage is the summary line used when every target is healthy.
func (k Kind) OKMessage() string {
    if k == KindSeal {
        return "All vault servers ok"
    }
    return "Vault has a leader"
}

// ProbeFunc queries one target and normalizes the result. It must not panic
// or block past ctx; failures are reported as QueryFailed outcomes.
type ProbeFunc func(ctx context.Context, target string) Outcome

// Probe returns the probe for k backed by cli.
func (k Kind) Probe(cli transport.StatusClient) ProbeFunc {
    switch k {
    case KindSeal:
        return func(ctx context.Context, target string) Outcome {
            return SealOutcome(cli.GetSealStatus(ctx, target))
        }
    case KindLeader:
        return func(ctx context.Context, target string) Outcome {
            return LeaderOutcome(cli.GetLeader(ctx, target))
        }
    default:
        return func(context.Context, string) Outcome {
            return Failed(fmt.Errorf("unknown check kind %q", string(k)))
        }
    }
}

// LeaderOutcome normalizes a /v1/sys/leader query.
func LeaderOutcome(resp transport.LeaderResponse, err error) Outcome {
    if err != nil {
        return Failed(err)
    }
    if resp.LeaderAddress == "" {
        return Outcome{State: Unhealthy, Detail: "no leader"}
    }
    return Outcome{State: Healthy, Detail: "leader " + resp.LeaderAddress}
}

// SealOutcome normalizes a /v1/sys/seal-status query. A document without
// the sealed field cannot confirm the node is unsealed.
func SealOutcome(resp transport.SealStatusResponse, err error) Outcome {
    if err != nil {
        return Failed(err)
    }
    if resp.Sealed == nil {
        return Failed(errors.New("malformed seal status: missing sealed field"))
    }
    if *resp.Sealed {
        return Outcome{State: Unhealthy, Detail: "sealed"}
    }
    return Outcome{State: Healthy, Detail: "unsealed"}
}

package transport

import (
    "context"
    "errors"
)

// Vault system endpoints used by the checks and served by the simulator.
const (
    PathLeader     = "/v1/sys/leader"
    PathSealStatus = "/v1/sys/seal-status"
    PathSeal       = "/v1/sys/seal"
    PathUnseal     = "/v1/sys/unseal"

    // TokenHeader carries the auth token on every request.
    TokenHeader = "X-Vault-Token"
)

// LeaderResponse is the body of GET /v1/sys/leader. An empty LeaderAddress
// means the node does not know of an elected leader.
type LeaderResponse struct {
    HAEnabled            bool   `json:"ha_enabled"`
    IsSelf               bool   `json:"is_self"`
    LeaderAddress        string `json:"leader_address"`
    LeaderClusterAddress string `json:"leader_cluster_address"`
}

// SealStatusResponse is the body of GET /v1/sys/seal-status. Sealed is a
// pointer so a document missing the field can be told apart from an
// unsealed node.
type SealStatusResponse struct {
    Type        string `json:"type"`
    Initialized bool   `json:"initialized"`
    Sealed      *bool  `json:"sealed"`
    Threshold   int    `json:"t"`
    Shares      int    `json:"n"`
    Progress    int    `json:"progress"`
    Version     string `json:"version,omitempty"`
    ClusterName string `json:"cluster_name,omitempty"`
    ClusterID   string `json:"cluster_id,omitempty"`
}

// ErrorResponse is the body Vault returns with non-2xx status codes.
type ErrorResponse struct {
    Errors []string `json:"errors"`
}

var (
    // ErrSealed is returned by handlers of a sealed node; servers map it to 503.
    ErrSealed = errors.New("Vault is sealed")
    // ErrPermissionDenied is returned when the request token is rejected; servers map it to 403.
    ErrPermissionDenied = errors.New("permission denied")
)

// StatusClient queries the status endpoints of one target. target is a
// host name or IP without a port; the client owns scheme, port and TLS.
type StatusClient interface {
    GetLeader(ctx context.Context, target string) (LeaderResponse, error)
    GetSealStatus(ctx context.Context, target string) (SealStatusResponse, error)
}

// Handlers back the endpoints of a StatusServer.
type Handlers struct {
    Leader     func(ctx context.Context) (LeaderResponse, error)
    SealStatus func(ctx context.Context) (SealStatusResponse, error)
    Seal       func(ctx context.Context) error
    Unseal     func(ctx context.Context) error
    // Token, when non-empty, must match the TokenHeader of every request.
    Token string
}

// StatusServer exposes Vault-compatible status endpoints.
type StatusServer interface {
    Start(ctx context.Context, h Handlers) error
    Addr() string
    Stop(ctx context.Context) error
}

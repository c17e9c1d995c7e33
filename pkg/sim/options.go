package sim

import (
    "crypto/tls"
    "errors"
    "log"
    "time"
)

// DefaultHosts are the loopback addresses the simulator binds when none are
// given. All nodes share one port, so each node needs its own host.
var DefaultHosts = []string{"127.0.0.1", "127.0.0.2", "127.0.0.3"}

// Options configure a simulated Vault cluster.
type Options struct {
    // Hosts assigns bind addresses to scenario nodes by position.
    Hosts []string
    // Port shared by every node. Zero picks a free port on the first host.
    Port int
    // Scenario is the initial cluster state; nil means one unsealed node per host.
    Scenario *Scenario
    // DataDir enables persistent raft stores, one sub-directory per node.
    DataDir string
    // TLS, when set, serves https with this config.
    TLS *tls.Config
    // Token, when non-empty, is required on every status request.
    Token string
    // ElectionTimeout bounds the initial leader election (default 10s).
    ElectionTimeout time.Duration
    Logger          *log.Logger
}

// Validate performs a minimal validation of Options without touching the network.
func (o Options) Validate() error {
    if o.Port < 0 || o.Port > 65535 {
        return errors.New("sim: port out of range")
    }
    if len(o.Hosts) == 0 && (o.Scenario == nil || len(o.Scenario.Nodes) == 0) {
        return errors.New("sim: no hosts")
    }
    if o.ElectionTimeout < 0 {
        return errors.New("sim: negative election timeout")
    }
    return nil
}

package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    TargetChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "vault_check",
        Name:      "target_checks_total",
        Help:      "Total target status queries by check kind and normalized result",
    }, []string{"check", "result"})

    QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
        Namespace: "vault_check",
        Name:      "query_duration_seconds",
        Help:      "Duration of a single target status query",
        Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
    }, []string{"check"})

    ResolveErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "vault_check",
        Name:      "resolve_errors_total",
        Help:      "Total runs aborted because the cluster address could not be resolved",
    }, []string{"check"})

    LastRunHealthy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: "vault_check",
        Name:      "last_run_healthy",
        Help:      "1 if the last run of the check was healthy, else 0",
    }, []string{"check"})

    LastRunTargets = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: "vault_check",
        Name:      "last_run_targets",
        Help:      "Number of targets resolved in the last run",
    }, []string{"check"})

    LastRunFailedTargets = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: "vault_check",
        Name:      "last_run_failed_targets",
        Help:      "Number of unhealthy targets in the last run",
    }, []string{"check"})

    LastRunTimestamp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: "vault_check",
        Name:      "last_run_timestamp_seconds",
        Help:      "Unix time the last run of the check finished",
    }, []string{"check"})

    // Simulator metrics
    SimRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "vault_check",
        Subsystem: "sim",
        Name:      "requests_total",
        Help:      "Requests served by simulated Vault nodes",
    }, []string{"node", "endpoint", "code"})
    SimIsLeader = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: "vault_check",
        Subsystem: "sim",
        Name:      "is_leader",
        Help:      "1 if the simulated node is the raft leader, else 0",
    }, []string{"node"})
    SimSealed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: "vault_check",
        Subsystem: "sim",
        Name:      "sealed",
        Help:      "1 if the simulated node is sealed, else 0",
    }, []string{"node"})
    SimLeaderChanges = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "vault_check",
        Subsystem: "sim",
        Name:      "leader_changes_total",
        Help:      "Total number of observed leader change events in the simulator",
    })
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(TargetChecks)
        prometheus.MustRegister(QueryDuration)
        prometheus.MustRegister(ResolveErrors)
        prometheus.MustRegister(LastRunHealthy)
        prometheus.MustRegister(LastRunTargets)
        prometheus.MustRegister(LastRunFailedTargets)
        prometheus.MustRegister(LastRunTimestamp)
        // simulator
        prometheus.MustRegister(SimRequests)
        prometheus.MustRegister(SimIsLeader)
        prometheus.MustRegister(SimSealed)
        prometheus.MustRegister(SimLeaderChanges)
    })
}

// WriteTextfile registers the metrics and writes the default registry to
// path in the text exposition format, for node_exporter's textfile collector.
// The file is replaced atomically.
func WriteTextfile(path string) error {
    Register()
    return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// BoolGauge converts b to 1 or 0.
func BoolGauge(b bool) float64 {
    if b { return 1 }
    return 0
}

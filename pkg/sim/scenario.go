package sim

import (
    "bytes"
    "errors"
    "fmt"
    "io"
    "os"

    "gopkg.in/yaml.v3"
)

// DefaultVersion is reported by seal-status when a scenario names none.
const DefaultVersion = "1.15.0"

// Scenario describes the simulated cluster. It is usually loaded from YAML:
//
//    cluster_name: vault-sim
//    nodes:
//      - host: 127.0.0.1
//      - host: 127.0.0.2
//        sealed: true
type Scenario struct {
    ClusterName string     `yaml:"cluster_name"`
    Version     string     `yaml:"version"`
    Nodes       []NodeSpec `yaml:"nodes"`
}

// NodeSpec is the initial state of one node. An empty Host takes the host
// at the same position in Options.Hosts.
type NodeSpec struct {
    Host    string `yaml:"host"`
    Sealed  bool   `yaml:"sealed"`
    Version string `yaml:"version"`
}

// LoadScenario reads and parses a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
    data, err := os.ReadFile(path)
    if err != nil { return nil, fmt.Errorf("%w: %v", ErrBadScenario, err) }
    return ParseScenario(data)
}

// ParseScenario parses a YAML scenario document. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
    var sc Scenario
    dec := yaml.NewDecoder(bytes.NewReader(data))
    dec.KnownFields(true)
    if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
        return nil, fmt.Errorf("%w: %v", ErrBadScenario, err)
    }
    return &sc, nil
}

// resolve fills defaults and assigns hosts. One node is created per host
// when the scenario lists no nodes.
func (sc Scenario) resolve(hosts []string) (Scenario, error) {
    out := Scenario{ClusterName: sc.ClusterName, Version: sc.Version}
    if out.ClusterName == "" { out.ClusterName = "vault-sim" }
    if out.Version == "" { out.Version = DefaultVersion }
    nodes := sc.Nodes
    if len(nodes) == 0 {
        nodes = make([]NodeSpec, len(hosts))
    }
    seen := make(map[string]bool, len(nodes))
    for i, n := range nodes {
        if n.Host == "" {
            if i >= len(hosts) {
                return Scenario{}, fmt.Errorf("%w: node %d has no host", ErrBadScenario, i+1)
            }
            n.Host = hosts[i]
        }
        if seen[n.Host] {
            return Scenario{}, fmt.Errorf("%w: host %s used twice", ErrBadScenario, n.Host)
        }
        seen[n.Host] = true
        if n.Version == "" { n.Version = out.Version }
        out.Nodes = append(out.Nodes, n)
    }
    if len(out.Nodes) == 0 {
        return Scenario{}, fmt.Errorf("%w: no nodes", ErrBadScenario)
    }
    return out, nil
}

package cli

import (
    "bytes"
    "net"
    "net/http"
    "net/http/httptest"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/amirimatin/vault-check/pkg/transport"
)

func fakeVault(t *testing.T, leader, seal string) string {
    t.Helper()
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        switch r.URL.Path {
        case transport.PathLeader:
            _, _ = w.Write([]byte(leader))
        case transport.PathSealStatus:
            _, _ = w.Write([]byte(seal))
        default:
            http.NotFound(w, r)
        }
    }))
    t.Cleanup(srv.Close)
    _, port, _ := net.SplitHostPort(srv.Listener.Addr().String())
    return port
}

func run(t *testing.T, args ...string) (string, int) {
    t.Helper()
    out, _, code := runStreams(t, args...)
    return out, code
}

func runStreams(t *testing.T, args ...string) (string, string, int) {
    t.Helper()
    root := NewRootCommand()
    var out, errOut bytes.Buffer
    root.SetOut(&out)
    root.SetErr(&errOut)
    root.SetArgs(args)
    code := Execute(root)
    return strings.TrimSpace(out.String()), errOut.String(), code
}

func TestChecks(t *testing.T) {
    port := fakeVault(t, `{"ha_enabled":true,"leader_address":"http://127.0.0.1:8200"}`, `{"initialized":true,"sealed":true}`)
    cases := []struct{
        name string
        args []string
        out  string
        code int
    }{
        {"leader ok", []string{"leader", "-a", "127.0.0.1", "-p", port}, "CheckVaultLeader OK: Vault has a leader", 0},
        {"seal critical", []string{"seal", "-a", "127.0.0.1", "-p", port}, "CheckVaultSeal CRITICAL: Problems found with vault server(s) [127.0.0.1]", 2},
        {"zero port", []string{"seal", "-a", "127.0.0.1", "-p", "0"}, "CheckVaultSeal UNKNOWN: check: invalid configuration: port 0 out of range", 3},
        {"missing address", []string{"leader"}, "CheckVaultLeader UNKNOWN: check: invalid configuration: missing required vault address", 3},
        {"bad log level", []string{"seal", "-a", "127.0.0.1", "--log-level", "loud"}, "CheckVaultSeal UNKNOWN: check: invalid configuration: unknown log level \"loud\"", 3},
        {"use-hostname is seal only", []string{"leader", "-a", "vault", "--use-hostname"}, "CheckVaultLeader UNKNOWN: unknown flag: --use-hostname", 3},
        {"unknown subcommand", []string{"quorum"}, "UNKNOWN: unknown command \"quorum\" for \"check-vault\"", 3},
    }
    for _, tc := range cases {
        out, code := run(t, tc.args...)
        if out != tc.out || code != tc.code {
            t.Fatalf("%s: got %q (exit %d), want %q (exit %d)", tc.name, out, code, tc.out, tc.code)
        }
    }
}

func TestCheckUnreachableIsCritical(t *testing.T) {
    ln, err := net.Listen("tcp", "127.0.0.1:0")
    if err != nil { t.Fatalf("listen: %v", err) }
    _, port, _ := net.SplitHostPort(ln.Addr().String())
    _ = ln.Close()
    out, errOut, code := runStreams(t, "seal", "-a", "127.0.0.1", "-p", port, "--timeout", "500ms")
    if code != 2 || out != "CheckVaultSeal CRITICAL: Problems found with vault server(s) [127.0.0.1]" {
        t.Fatalf("got %q (exit %d)", out, code)
    }
    // The summary is the only output by default; causes need --log-level info.
    if errOut != "" {
        t.Fatalf("default run wrote to stderr: %q", errOut)
    }
    _, errOut, _ = runStreams(t, "seal", "-a", "127.0.0.1", "-p", port, "--timeout", "500ms", "--log-level", "info")
    if !strings.Contains(errOut, "127.0.0.1 unhealthy") {
        t.Fatalf("info level should name the failing target, stderr = %q", errOut)
    }
}

func TestMetricsFile(t *testing.T) {
    port := fakeVault(t, `{"leader_address":"http://127.0.0.1:8200"}`, `{"sealed":false}`)
    path := filepath.Join(t.TempDir(), "vault.prom")
    if _, code := run(t, "seal", "-a", "127.0.0.1", "-p", port, "--metrics-file", path); code != 0 {
        t.Fatalf("exit %d", code)
    }
    data, err := os.ReadFile(path)
    if err != nil { t.Fatalf("read metrics: %v", err) }
    if !bytes.Contains(data, []byte(`vault_check_last_run_healthy{check="seal"} 1`)) {
        t.Fatalf("metrics file lacks last run gauge:\n%s", data)
    }
}

func TestTokenFromEnv(t *testing.T) {
    t.Setenv("VAULT_TOKEN", "s.env")
    cmd := NewLeaderCmd()
    if got, _ := cmd.Flags().GetString("token"); got != "s.env" {
        t.Fatalf("token default = %q, want s.env", got)
    }
}

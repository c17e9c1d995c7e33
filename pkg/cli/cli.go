package cli

import (
    "context"
    "errors"
    "fmt"
    "io"
    "log"
    "os"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/spf13/cobra"

    "github.com/amirimatin/vault-check/pkg/bootstrap"
    "github.com/amirimatin/vault-check/pkg/check"
    "github.com/amirimatin/vault-check/pkg/internal/logutil"
    "github.com/amirimatin/vault-check/pkg/observability/metrics"
    tracing "github.com/amirimatin/vault-check/pkg/observability/tracing"
    "github.com/amirimatin/vault-check/pkg/report"
    tlsx "github.com/amirimatin/vault-check/pkg/security/tlsconfig"
    "github.com/amirimatin/vault-check/pkg/sim"
    httpjson "github.com/amirimatin/vault-check/pkg/transport/httpjson"
)

// Check names printed in front of every result line.
const (
    LeaderCheckName = "CheckVaultLeader"
    SealCheckName   = "CheckVaultSeal"
)

// checkNameKey annotates check commands with their result line name.
const checkNameKey = "vault-check/name"

// AddAll attaches the leader, seal and sim subcommands to the provided root command.
func AddAll(root *cobra.Command) {
    root.AddCommand(NewLeaderCmd())
    root.AddCommand(NewSealCmd())
    root.AddCommand(NewSimCmd())
}

// NewRootCommand returns the "check-vault" command with every subcommand attached.
func NewRootCommand() *cobra.Command {
    root := &cobra.Command{
        Use:           "check-vault",
        Short:         "Vault leader and seal health checks",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    AddAll(root)
    return root
}

// Execute runs cmd with a context cancelled on SIGINT/SIGTERM and returns
// the process exit code. Errors not already reported by a check (flag
// parsing, sim failures) are printed as an UNKNOWN result.
func Execute(cmd *cobra.Command) int {
    cmd.SilenceUsage = true
    cmd.SilenceErrors = true
    ctx, cancel := signalContext()
    defer cancel()
    failed, err := cmd.ExecuteContextC(ctx)
    var exit *report.ExitError
    switch {
    case err == nil:
        return int(report.OK)
    case errors.As(err, &exit):
        return exit.Code
    default:
        name := ""
        if failed != nil { name = failed.Annotations[checkNameKey] }
        return report.New(name, cmd.OutOrStdout()).Report(report.Unknown, err.Error())
    }
}

// NewLeaderCmd returns the "leader" check: healthy when every queried
// server reports an elected leader.
func NewLeaderCmd() *cobra.Command {
    return newCheckCmd(check.KindLeader, "leader", LeaderCheckName, "Check that the Vault cluster has an elected leader")
}

// NewSealCmd returns the "seal" check: healthy when no queried server is sealed.
func NewSealCmd() *cobra.Command {
    return newCheckCmd(check.KindSeal, "seal", SealCheckName, "Check that no Vault server is sealed")
}

type checkFlags struct {
    token, address, targetsFile, ca  string
    verify, ssl, insecure, hostnames bool
    port, concurrency                int
    timeout                          time.Duration
    metricsFile, logLevel            string
    logJSON, trace                   bool
}

func newCheckCmd(kind check.Kind, use, name, short string) *cobra.Command {
    var f checkFlags
    cmd := &cobra.Command{
        Use:         use,
        Short:       short,
        Args:        cobra.NoArgs,
        Annotations: map[string]string{checkNameKey: name},
        RunE: func(cmd *cobra.Command, args []string) error {
            rep := report.New(name, cmd.OutOrStdout())
            if code := runCheck(cmd.Context(), kind, f, rep, cmd.ErrOrStderr()); code != int(report.OK) {
                return &report.ExitError{Code: code}
            }
            return nil
        },
    }
    cmd.Flags().StringVarP(&f.token, "token", "t", os.Getenv("VAULT_TOKEN"), "Vault token (default $VAULT_TOKEN)")
    cmd.Flags().StringVarP(&f.address, "address", "a", "", "Vault cluster address: host name or IP (required unless --targets-file)")
    cmd.Flags().BoolVarP(&f.verify, "verify", "v", false, "query every address the cluster address resolves to")
    cmd.Flags().IntVarP(&f.port, "port", "p", httpjson.DefaultPort, "Vault API port")
    cmd.Flags().BoolVar(&f.ssl, "ssl", false, "use https")
    cmd.Flags().StringVar(&f.ca, "ca", "", "path to CA cert (PEM), used with --ssl")
    cmd.Flags().BoolVar(&f.insecure, "insecure", false, "skip server cert verification (DEV ONLY)")
    cmd.Flags().StringVar(&f.targetsFile, "targets-file", "", "path or glob to a file listing targets (one per line or CSV)")
    cmd.Flags().DurationVar(&f.timeout, "timeout", check.DefaultTimeout, "timeout of each status query")
    cmd.Flags().IntVar(&f.concurrency, "concurrency", check.DefaultConcurrency, "maximum queries in flight")
    cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics (textfile format) to this path after the run")
    cmd.Flags().BoolVar(&f.trace, "trace", false, "enable OpenTelemetry stdout tracing on stderr")
    cmd.Flags().StringVar(&f.logLevel, "log-level", "error", "log level: debug|info|warn|error (logs go to stderr)")
    cmd.Flags().BoolVar(&f.logJSON, "log-json", false, "emit JSON log lines")
    if kind == check.KindSeal {
        cmd.Flags().BoolVar(&f.hostnames, "use-hostname", false, "with --verify, treat --address as a CSV of host names and skip DNS")
    }
    return cmd
}

func setupLogging(level string, json bool, w io.Writer) (*log.Logger, error) {
    lvl, err := logutil.ParseLevel(level)
    if err != nil { return nil, fmt.Errorf("%w: %v", check.ErrConfig, err) }
    logutil.SetLevel(lvl)
    if json { logutil.SetJSON(true) }
    return logutil.New(w), nil
}

func runCheck(ctx context.Context, kind check.Kind, f checkFlags, rep report.Reporter, errw io.Writer) int {
    logger, err := setupLogging(f.logLevel, f.logJSON, errw)
    if err != nil { return rep.Report(report.Unknown, err.Error()) }

    if f.trace {
        shutdown, err := tracing.Setup(true, errw)
        if err != nil {
            logutil.Errorf(logger, "tracing setup error: %v", err)
        } else {
            defer func() { _ = shutdown(context.Background()) }()
        }
    }

    cfg := bootstrap.Config{
        Kind:          kind,
        Address:       f.address,
        VerifyAll:     f.verify,
        UseHostname:   f.hostnames,
        TargetsFile:   f.targetsFile,
        Token:         f.token,
        Port:          f.port,
        Timeout:       f.timeout,
        TLSEnable:     f.ssl,
        TLSCA:         f.ca,
        TLSSkipVerify: f.insecure,
        Concurrency:   f.concurrency,
        Logger:        logger,
    }
    v, err := bootstrap.Run(ctx, cfg)

    var code int
    switch {
    case err != nil:
        code = rep.Report(report.Unknown, err.Error())
    case v.Healthy:
        code = rep.Report(report.OK, v.Summary(kind))
    default:
        code = rep.Report(report.Critical, v.Summary(kind))
    }

    if f.metricsFile != "" {
        if err := metrics.WriteTextfile(f.metricsFile); err != nil {
            logutil.Errorf(logger, "write metrics file %s: %v", f.metricsFile, err)
        }
    }
    return code
}

// NewSimCmd returns the "sim" command which runs a local Vault-compatible
// cluster for exercising the checks.
func NewSimCmd() *cobra.Command {
    var (
        hostsCSV, scenarioPath, dataDir, token string
        tlsCert, tlsKey, logLevel              string
        port                                   int
        logJSON, traceEnable                   bool
    )
    cmd := &cobra.Command{
        Use:   "sim",
        Short: "Run a simulated Vault cluster on loopback addresses",
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            logger, err := setupLogging(logLevel, logJSON, cmd.ErrOrStderr())
            if err != nil { return err }
            if traceEnable {
                shutdown, err := tracing.Setup(true, cmd.ErrOrStderr())
                if err != nil {
                    logutil.Errorf(logger, "tracing setup error: %v", err)
                } else {
                    defer func() { _ = shutdown(context.Background()) }()
                }
            }

            opts := sim.Options{Port: port, DataDir: dataDir, Token: token, Logger: logger}
            for _, h := range strings.Split(hostsCSV, ",") {
                if h = strings.TrimSpace(h); h != "" { opts.Hosts = append(opts.Hosts, h) }
            }
            if scenarioPath != "" {
                sc, err := sim.LoadScenario(scenarioPath)
                if err != nil { return err }
                opts.Scenario = sc
            }
            topts := tlsx.Options{Enable: tlsCert != "" || tlsKey != "", CertFile: tlsCert, KeyFile: tlsKey}
            if opts.TLS, err = topts.Server(); err != nil { return fmt.Errorf("tls server config: %w", err) }

            ctx := cmd.Context()
            c, err := sim.Start(ctx, opts)
            if err != nil { return err }
            defer c.Close()

            out := cmd.OutOrStdout()
            for _, n := range c.Nodes() {
                fmt.Fprintf(out, "%s %s sealed=%t\n", n.ID(), n.APIAddr(), n.Sealed())
            }
            fmt.Fprintln(out, "vault simulator running. Press Ctrl+C to exit.")
            <-ctx.Done()
            return nil
        },
    }
    cmd.Flags().StringVar(&hostsCSV, "hosts", strings.Join(sim.DefaultHosts, ","), "comma-separated loopback hosts, one node per host")
    cmd.Flags().IntVarP(&port, "port", "p", httpjson.DefaultPort, "API port shared by all nodes (0 picks a free port)")
    cmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML scenario file (cluster_name, nodes[].host/sealed/version)")
    cmd.Flags().StringVar(&dataDir, "data", "", "raft data dir (per-node bolt stores and snapshots)")
    cmd.Flags().StringVarP(&token, "token", "t", "", "require this X-Vault-Token on every request")
    cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "path to server certificate (PEM); enables https")
    cmd.Flags().StringVar(&tlsKey, "tls-key", "", "path to server private key (PEM)")
    cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
    cmd.Flags().BoolVar(&logJSON, "log-json", false, "emit JSON log lines")
    cmd.Flags().BoolVar(&traceEnable, "trace", false, "enable OpenTelemetry stdout tracing on stderr")
    return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
    return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

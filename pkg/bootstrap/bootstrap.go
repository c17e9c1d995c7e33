package bootstrap

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/amirimatin/vault-check/pkg/check"
    "github.com/amirimatin/vault-check/pkg/discovery"
    dDNS "github.com/amirimatin/vault-check/pkg/discovery/dns"
    dFile "github.com/amirimatin/vault-check/pkg/discovery/file"
    dStatic "github.com/amirimatin/vault-check/pkg/discovery/static"
    tlsx "github.com/amirimatin/vault-check/pkg/security/tlsconfig"
    httpjson "github.com/amirimatin/vault-check/pkg/transport/httpjson"
)

// Config enumerates every option of a check run. It is built once from
// flags, validated, and then only read.
type Config struct {
    Kind check.Kind

    // Target selection
    Address     string // cluster address: host, IP or DNS name
    VerifyAll   bool   // expand Address to every address behind it
    UseHostname bool   // with VerifyAll: Address is a CSV of host names, no DNS
    TargetsFile string // read targets from a file instead of Address

    // Transport
    Token   string
    Port    int           // required, 1..65535 (the CLI defaults it to 8200)
    Timeout time.Duration // per query, default 5s

    // TLS (only used when TLSEnable)
    TLSEnable     bool
    TLSCA         string
    TLSSkipVerify bool

    Concurrency int // default 8

    // Logger (optional). If nil, log.Default() is used.
    Logger *log.Logger

    // Resolver optionally overrides the resolver chosen from the fields above.
    Resolver discovery.Resolver
}

// Validate checks the configuration before any network activity. Errors
// wrap check.ErrConfig.
func (c Config) Validate() error {
    if !c.Kind.Valid() {
        return fmt.Errorf("%w: unknown check kind %q", check.ErrConfig, string(c.Kind))
    }
    if c.Address == "" && c.TargetsFile == "" {
        return fmt.Errorf("%w: missing required vault address", check.ErrConfig)
    }
    if c.Port < 1 || c.Port > 65535 {
        return fmt.Errorf("%w: port %d out of range", check.ErrConfig, c.Port)
    }
    if c.Timeout < 0 {
        return fmt.Errorf("%w: negative timeout %s", check.ErrConfig, c.Timeout)
    }
    if c.Concurrency < 0 {
        return fmt.Errorf("%w: negative concurrency %d", check.ErrConfig, c.Concurrency)
    }
    if c.UseHostname && c.Kind != check.KindSeal {
        return fmt.Errorf("%w: use-hostname is only supported by the seal check", check.ErrConfig)
    }
    return nil
}

// resolver picks the target resolver for the configuration.
func (c Config) resolver() discovery.Resolver {
    switch {
    case c.Resolver != nil:
        return c.Resolver
    case c.TargetsFile != "":
        return dFile.New(dFile.Options{Path: c.TargetsFile})
    case !c.VerifyAll:
        return dStatic.Identity()
    case c.UseHostname:
        return dStatic.List()
    default:
        return dDNS.New(dDNS.Options{})
    }
}

// Build assembles a check.Checker and its HTTP client from Config without
// issuing any request. The caller must Close the client.
func Build(cfg Config) (*check.Checker, *httpjson.Client, error) {
    if err := cfg.Validate(); err != nil { return nil, nil, err }
    if cfg.Logger == nil { cfg.Logger = log.Default() }
    if cfg.Timeout == 0 { cfg.Timeout = check.DefaultTimeout }
    if cfg.Concurrency == 0 { cfg.Concurrency = check.DefaultConcurrency }

    topts := tlsx.Options{Enable: cfg.TLSEnable, CAFile: cfg.TLSCA, InsecureSkipVerify: cfg.TLSSkipVerify}
    cliTLS, err := topts.Client()
    if err != nil { return nil, nil, fmt.Errorf("%w: %w", check.ErrConfig, err) }

    cli := httpjson.NewClient(cfg.Timeout).UseTLS(cliTLS).UsePort(cfg.Port).UseToken(cfg.Token)
    c := &check.Checker{
        Kind:        cfg.Kind,
        Resolver:    cfg.resolver(),
        Client:      cli,
        Timeout:     cfg.Timeout,
        Concurrency: cfg.Concurrency,
        Logger:      cfg.Logger,
    }
    return c, cli, nil
}

// Run builds the checker, runs it once against cfg.Address and releases
// every connection before returning.
func Run(ctx context.Context, cfg Config) (check.Verdict, error) {
    c, cli, err := Build(cfg)
    if err != nil { return check.Verdict{}, err }
    defer cli.Close()
    return c.Run(ctx, cfg.Address)
}

package httpjson

import (
    "context"
    "crypto/tls"
    "encoding/json"
    "errors"
    "log"
    "net"
    "net/http"
    "strconv"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/amirimatin/vault-check/pkg/internal/logutil"
    "github.com/amirimatin/vault-check/pkg/observability/metrics"
    "github.com/amirimatin/vault-check/pkg/observability/tracing"
    "github.com/amirimatin/vault-check/pkg/transport"
)

// Server is a minimal HTTP server exposing Vault-compatible status
// endpoints plus /metrics and /healthz. It backs the local simulator.
type Server struct {
    bind   string
    name   string
    srv    *http.Server
    logger *log.Logger
    tlsCfg *tls.Config

    mu   sync.Mutex
    addr string
}

// NewServer binds to the given TCP address (e.g., "127.0.0.1:8200"). name
// labels metrics and log lines.
func NewServer(bind, name string, logger *log.Logger) *Server {
    if logger == nil { logger = log.Default() }
    return &Server{bind: bind, name: name, logger: logger}
}

// UseTLS enables TLS for the HTTP server using the provided config.
func (s *Server) UseTLS(cfg *tls.Config) *Server { s.tlsCfg = cfg; return s }

// Start listens and serves the endpoints backed by h. The server is shut
// down when the context is canceled.
func (s *Server) Start(ctx context.Context, h transport.Handlers) error {
    ln, err := net.Listen("tcp", s.bind)
    if err != nil { return err }
    if s.tlsCfg != nil { ln = tls.NewListener(ln, s.tlsCfg) }
    s.mu.Lock()
    s.addr = ln.Addr().String()
    s.srv = &http.Server{Handler: s.routes(h), ReadHeaderTimeout: 5 * time.Second}
    srv := s.srv
    s.mu.Unlock()

    go func() {
        if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logutil.Errorf(s.logger, "sim %s: serve: %v", s.name, err)
        }
    }()
    go func() {
        <-ctx.Done()
        sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
        defer cancel()
        _ = s.Stop(sctx)
    }()
    return nil
}

// Addr returns the bound listen address once started.
func (s *Server) Addr() string {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.addr != "" { return s.addr }
    return s.bind
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
    s.mu.Lock()
    srv := s.srv
    s.mu.Unlock()
    if srv == nil { return nil }
    return srv.Shutdown(ctx)
}

var _ transport.StatusServer = (*Server)(nil)

func (s *Server) routes(h transport.Handlers) http.Handler {
    mux := http.NewServeMux()
    mux.HandleFunc(transport.PathLeader, s.handle(h.Token, "leader", http.MethodGet, func(r *http.Request) (any, error) {
        if h.Leader == nil { return nil, errNotSupported }
        return h.Leader(r.Context())
    }))
    mux.HandleFunc(transport.PathSealStatus, s.handle(h.Token, "seal-status", http.MethodGet, func(r *http.Request) (any, error) {
        if h.SealStatus == nil { return nil, errNotSupported }
        return h.SealStatus(r.Context())
    }))
    mux.HandleFunc(transport.PathSeal, s.handle(h.Token, "seal", http.MethodPut, func(r *http.Request) (any, error) {
        if h.Seal == nil { return nil, errNotSupported }
        return nil, h.Seal(r.Context())
    }))
    mux.HandleFunc(transport.PathUnseal, s.handle(h.Token, "unseal", http.MethodPut, func(r *http.Request) (any, error) {
        if h.Unseal == nil { return nil, errNotSupported }
        if err := h.Unseal(r.Context()); err != nil { return nil, err }
        if h.SealStatus == nil { return nil, nil }
        return h.SealStatus(r.Context())
    }))
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet { http.Error(w, "method not allowed", http.StatusMethodNotAllowed); return }
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    // Prometheus metrics
    mux.Handle("/metrics", promhttp.Handler())
    return mux
}

var errNotSupported = errors.New("unsupported path")

func (s *Server) handle(token, endpoint, method string, fn func(r *http.Request) (any, error)) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        code := http.StatusOK
        defer func() {
            metrics.SimRequests.WithLabelValues(s.name, endpoint, strconv.Itoa(code)).Inc()
        }()
        if r.Method != method && !(method == http.MethodPut && r.Method == http.MethodPost) {
            code = http.StatusMethodNotAllowed
            writeErrors(w, code, "method not allowed")
            return
        }
        if token != "" && r.Header.Get(transport.TokenHeader) != token {
            code = http.StatusForbidden
            writeErrors(w, code, transport.ErrPermissionDenied.Error())
            return
        }
        ctx, span := tracing.StartSpan(r.Context(), "sim."+endpoint)
        defer span.End()
        body, err := fn(r.WithContext(ctx))
        if err != nil {
            span.Fail(err)
            code = errorCode(err)
            writeErrors(w, code, err.Error())
            return
        }
        if body == nil {
            code = http.StatusNoContent
            w.WriteHeader(code)
            return
        }
        w.Header().Set("Content-Type", "application/json")
        _ = json.NewEncoder(w).Encode(body)
    }
}

func errorCode(err error) int {
    switch {
    case errors.Is(err, transport.ErrSealed):
        return http.StatusServiceUnavailable
    case errors.Is(err, transport.ErrPermissionDenied):
        return http.StatusForbidden
    case errors.Is(err, errNotSupported):
        return http.StatusNotFound
    default:
        return http.StatusInternalServerError
    }
}

func writeErrors(w http.ResponseWriter, code int, msgs ...string) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(transport.ErrorResponse{Errors: msgs})
}

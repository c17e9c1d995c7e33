package httpjson

import (
    "context"
    "crypto/tls"
    "encoding/json"
    "fmt"
    "io"
    "net"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/amirimatin/vault-check/pkg/transport"
)

// DefaultPort is the Vault API port.
const DefaultPort = 8200

const maxBody = 1 << 20

// Client is a thin HTTP client for the Vault status endpoints. One Client is
// built per run from the transport configuration and shared read-only by
// all target queries.
type Client struct {
    httpc     *http.Client
    transport *http.Transport
    isTLS     bool
    port      int
    token     string
}

// NewClient constructs a new Client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = 5 * time.Second }
    // No Proxy: targets are always dialed directly.
    tr := &http.Transport{
        TLSHandshakeTimeout: timeout,
        DisableKeepAlives:   true,
    }
    return &Client{httpc: &http.Client{Timeout: timeout, Transport: tr}, transport: tr, port: DefaultPort}
}

// UseTLS sets the TLS config for the underlying HTTP client and switches the
// request scheme to https. A nil config keeps plain http.
func (c *Client) UseTLS(cfg *tls.Config) *Client {
    if c.transport != nil { c.transport.TLSClientConfig = cfg }
    c.isTLS = cfg != nil
    return c
}

// UsePort sets the port used for every target.
func (c *Client) UsePort(port int) *Client {
    if port > 0 { c.port = port }
    return c
}

// UseToken sets the auth token sent with every request.
func (c *Client) UseToken(token string) *Client { c.token = token; return c }

// Close releases idle connections held by the client.
func (c *Client) Close() {
    if c.transport != nil { c.transport.CloseIdleConnections() }
}

// BaseURL returns scheme://target:port for target.
func (c *Client) BaseURL(target string) string {
    scheme := "http"
    if c.isTLS { scheme = "https" }
    return scheme + "://" + net.JoinHostPort(target, strconv.Itoa(c.port))
}

func (c *Client) GetLeader(ctx context.Context, target string) (transport.LeaderResponse, error) {
    var out transport.LeaderResponse
    err := c.getJSON(ctx, target, transport.PathLeader, &out)
    return out, err
}

func (c *Client) GetSealStatus(ctx context.Context, target string) (transport.SealStatusResponse, error) {
    var out transport.SealStatusResponse
    err := c.getJSON(ctx, target, transport.PathSealStatus, &out)
    return out, err
}

var _ transport.StatusClient = (*Client)(nil)

func (c *Client) getJSON(ctx context.Context, target, path string, out any) error {
    url := c.BaseURL(target) + path
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
    if err != nil { return err }
    req.Header.Set("Accept", "application/json")
    if c.token != "" { req.Header.Set(transport.TokenHeader, c.token) }
    resp, err := c.httpc.Do(req)
    if err != nil { return err }
    defer resp.Body.Close()
    body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
    if err != nil { return fmt.Errorf("GET %s: read body: %w", url, err) }
    if resp.StatusCode != http.StatusOK {
        return statusError(url, resp.StatusCode, body)
    }
    if err := json.Unmarshal(body, out); err != nil {
        return fmt.Errorf("GET %s: malformed response: %w", url, err)
    }
    return nil
}

func statusError(url string, code int, body []byte) error {
    var er transport.ErrorResponse
    if json.Unmarshal(body, &er) == nil && len(er.Errors) > 0 {
        return fmt.Errorf("GET %s: status %d: %s", url, code, strings.Join(er.Errors, "; "))
    }
    msg := strings.TrimSpace(string(body))
    if len(msg) > 200 { msg = msg[:200] }
    if msg == "" { msg = http.StatusText(code) }
    return fmt.Errorf("GET %s: status %d: %s", url, code, msg)
}

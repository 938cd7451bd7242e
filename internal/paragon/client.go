package paragon

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// maxErrorBody caps how much of a failed response is kept in an APIError.
const maxErrorBody = 4 << 10

// Endpoints are the path prefixes of the four simulator APIs.
type Endpoints struct {
	Agent          string
	VirtualMachine string
	ATM            string
	Connection     string
}

// Client posts JSON to the simulator host. The session token obtained by
// the agent is shared by every API client built on the same Client.
type Client struct {
	http   *http.Client
	host   *url.URL
	logger *zap.Logger

	mu    sync.RWMutex
	token string
}

// NewClient builds a Client for host, e.g. "https://10.0.0.5:8443".
func NewClient(host string, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(host))
	if err != nil {
		return nil, fmt.Errorf("invalid terminal host %q: %w", host, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid terminal host %q: scheme and host are required", host)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: httpClient, host: u, logger: logger.Named("paragon")}, nil
}

// SetSessionToken sets the bearer token sent with every request. An empty
// token removes the header.
func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// SessionToken returns the current bearer token.
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// post sends in as JSON to prefix/endpoint and decodes the answer into out.
// A nil in sends an empty body, a nil out discards the answer and a *[]byte
// out receives it undecoded.
func (c *Client) post(ctx context.Context, prefix, endpoint string, in, out any) error {
	target := c.host.JoinPath(prefix, endpoint).String()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.SessionToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST /%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Request completed.",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read /%s response: %w", endpoint, err)
	}
	if dst, ok := out.(*[]byte); ok {
		*dst = raw
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode /%s response: %w", endpoint, err)
	}
	return nil
}

// Clients groups the four API clients sharing one Client.
type Clients struct {
	Agent          *AgentClient
	VirtualMachine *VirtualMachineClient
	Devices        *DeviceClient
	Connection     *ConnectionClient
}

// NewClients binds every API of e onto c.
func NewClients(c *Client, e Endpoints) *Clients {
	return &Clients{
		Agent:          NewAgentClient(c, e.Agent),
		VirtualMachine: NewVirtualMachineClient(c, e.VirtualMachine),
		Devices:        NewDeviceClient(c, e.ATM),
		Connection:     NewConnectionClient(c, e.Connection),
	}
}

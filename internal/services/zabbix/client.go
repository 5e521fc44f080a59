// Package zabbix provides a JSON-RPC client for the Zabbix API.
package zabbix

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fgeck/zabbix-maintenance/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// API methods used by the client.
const (
	MethodLogin             = "user.login"
	MethodLogout            = "user.logout"
	MethodHostGet           = "host.get"
	MethodMaintenanceGet    = "maintenance.get"
	MethodMaintenanceCreate = "maintenance.create"
	MethodMaintenanceDelete = "maintenance.delete"
)

// DefaultTimeout bounds a single API request.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTransport is returned when a request fails before a JSON-RPC answer is decoded.
	ErrTransport = errors.New("transport error")
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
)

// APIError is the error object of a JSON-RPC response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
	Method  string `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("zabbix API error %d: %s", e.Code, e.Message)
	if e.Method != "" {
		msg = e.Method + ": " + msg
	}
	if e.Data != "" {
		msg += ": " + e.Data
	}
	return msg
}

// Session carries the auth token of a logged in user.
// The token is unexported so it cannot end up in logs or output.
type Session struct {
	token string
}

// NewSession wraps an auth token.
func NewSession(token string) *Session {
	return &Session{token: token}
}

// String implements fmt.Stringer without revealing the token.
func (s *Session) String() string {
	return "zabbix.Session(redacted)"
}

// Client defines the Zabbix API operations used for maintenance handling.
type Client interface {
	Login(ctx context.Context) (*Session, error)
	Logout(ctx context.Context, s *Session) error
	GetHost(ctx context.Context, s *Session, name string) (*models.Host, error)
	GetMaintenances(ctx context.Context, s *Session, hostID string, filter models.MaintenanceFilter) ([]models.Maintenance, error)
	CreateMaintenance(ctx context.Context, s *Session, m models.Maintenance) (string, error)
	DeleteMaintenance(ctx context.Context, s *Session, ids ...string) error
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Client interface.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	cfg        models.ZabbixConfig
	newID      func() string
}

// New creates a new Zabbix API client.
func New(logger zerolog.Logger, cfg models.ZabbixConfig) *Impl {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Impl{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: cfg.Insecure, //nolint:gosec // opt-in via config
				},
			},
		},
		logger: logger,
		cfg:    cfg,
		newID:  uuid.NewString,
	}
}

// NewWithClient creates a new Zabbix API client with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, cfg models.ZabbixConfig) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		cfg:        cfg,
		newID:      uuid.NewString,
	}
}

// request is the JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	Auth    string `json:"auth,omitempty"`
	ID      string `json:"id"`
}

// response is the JSON-RPC 2.0 response envelope.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *APIError       `json:"error"`
	ID      json.RawMessage `json:"id"`
}

// call performs a single JSON-RPC request and decodes its result into out.
//
//nolint:cyclop // every failure mode of a request is handled here
func (c *Impl) call(ctx context.Context, method string, s *Session, params any, out any) error {
	reqBody := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.newID(),
	}
	if s != nil && !c.cfg.AuthHeader {
		reqBody.Auth = s.token
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL(), bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("%w: %s: failed to create request: %w", ErrTransport, method, err)
	}
	req.Header.Set("Content-Type", "application/json-rpc")
	if s != nil && c.cfg.AuthHeader {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	c.logger.Debug().
		Str("method", method).
		Str("id", reqBody.ID).
		Str("url", c.cfg.URL()).
		Msg("calling zabbix API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: server returned status %d", ErrTransport, method, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: failed to read response: %w", ErrTransport, method, err)
	}

	var rpcResp response
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("%w: %s: failed to decode response: %w", ErrTransport, method, err)
	}

	if rpcResp.Error != nil {
		rpcResp.Error.Method = method
		return rpcResp.Error
	}

	if !sameID(rpcResp.ID, reqBody.ID) {
		return fmt.Errorf("%w: %s: response id %s does not match request id %q", ErrTransport, method, rpcResp.ID, reqBody.ID)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%w: %s: unexpected result: %w", ErrTransport, method, err)
	}

	return nil
}

// sameID reports whether a raw response id echoes the request id.
func sameID(raw json.RawMessage, id string) bool {
	var got string
	if err := json.Unmarshal(raw, &got); err != nil {
		return false
	}
	return got == id
}

// Package api is the JSON client for the remote banking API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/till/internal/common"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is used when no api.url is configured.
const DefaultBaseURL = "http://localhost:5000/api"

// Config configures a Client.
type Config struct {
	// HTTPClient supplies the base transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	BaseURL    string
	// Token is the bearer token sent on authenticated calls.
	Token   string
	Timeout time.Duration
	// BreakerMaxFailures trips the circuit after this many consecutive
	// transport or 5xx failures.
	BreakerMaxFailures uint32
	BreakerCooldown    time.Duration
}

// Client calls the banking API. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	base       *http.Client
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	timeout    time.Duration
}

// NewClient creates a banking API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("%w: api url %q: %v", common.ErrInvalidConfig, cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: api url %q must be http or https", common.ErrInvalidConfig, cfg.BaseURL)
	}

	maxFailures := cfg.BreakerMaxFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "banking-api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var remote *RemoteError
			return errors.As(err, &remote) && !remote.Temporary()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	c := &Client{
		baseURL: u,
		base:    cfg.HTTPClient,
		breaker: breaker,
		timeout: cfg.Timeout,
	}
	c.httpClient = c.authorizedClient(cfg.Token)

	return c, nil
}

// WithToken returns a client that sends token as its bearer credential. The
// circuit breaker is shared with c.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.httpClient = c.authorizedClient(token)
	return &clone
}

func (c *Client) authorizedClient(token string) *http.Client {
	if token == "" {
		return &http.Client{Transport: c.base.Transport, Timeout: c.timeout}
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	client := oauth2.NewClient(ctx, src)
	client.Timeout = c.timeout
	return client
}

// request describes one API call.
type request struct {
	body           any
	out            any
	method         string
	path           string
	op             string
	idempotencyKey string
}

// errorEnvelope is the shape of every failure body and of successful bodies
// that still carry a business error.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, r request) error {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(r.path, "/")})

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return &TransportError{Op: r.op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint.String(), body)
	if err != nil {
		return &TransportError{Op: r.op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", r.idempotencyKey)
	}

	slog.Debug("Calling banking API", "op", r.op, "method", r.method, "path", endpoint.Path)

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(req, r)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &TransportError{Op: r.op, Err: fmt.Errorf("%w: %v", common.ErrAPIUnavailable, err)}
	}
	return err
}

func (c *Client) roundTrip(req *http.Request, r request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: r.op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: r.op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if len(bytes.TrimSpace(data)) == 0 && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if r.out != nil {
			return &TransportError{Op: r.op, Err: errors.New("empty response body")}
		}
		return nil
	}

	var envelope errorEnvelope
	envErr := json.Unmarshal(data, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := envelope.Error
		if envErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &RemoteError{Op: r.op, StatusCode: resp.StatusCode, Message: msg}
	}

	if envErr != nil {
		return &TransportError{Op: r.op, Err: fmt.Errorf("failed to decode response: %w", envErr)}
	}
	if envelope.Error != "" {
		return &RemoteError{Op: r.op, StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	if r.out != nil {
		if err := json.Unmarshal(data, r.out); err != nil {
			return &TransportError{Op: r.op, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}

	return nil
}

// Health checks the API liveness endpoint.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "health", op: "health", out: &out}); err != nil {
		return "", err
	}
	return out.Status, nil
}

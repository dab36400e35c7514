// Package api is the HTTP client for the backend order, auth and product API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	applog "storefront/internal/log"
)

const maxResponseBytes = 1 << 20

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Errors  []FieldError    `json:"errors,omitempty"`
}

type Client struct {
	base     string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker[struct{}]
	products singleflight.Group
}

type Option func(*clientOptions)

type clientOptions struct {
	transport   http.RoundTripper
	maxFailures uint32
	cooldown    time.Duration
}

// WithTransport replaces the base transport (still wrapped for tracing).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open.
func WithBreaker(maxFailures uint32, cooldown time.Duration) Option {
	return func(o *clientOptions) { o.maxFailures, o.cooldown = maxFailures, cooldown }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	o := clientOptions{transport: http.DefaultTransport, maxFailures: 5, cooldown: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(o.transport),
		},
	}
	c.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "backend-api",
		Timeout: o.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.maxFailures
		},
		// Client mistakes (4xx, success=false) say nothing about backend health.
		IsSuccessful: func(err error) bool {
			var ae *Error
			return err == nil || (errors.As(err, &ae) && ae.Status < 500)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			applog.Warn(nil, "api.breaker", nil, map[string]any{"name": name, "from": from.String(), "to": to.String()})
		},
	})
	return c
}

// do sends body as JSON and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}
	_, err := c.cb.Execute(func() (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, method, path, token, payload, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, payload []byte, out any) error {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok || (decodeErr == nil && !env.Success) {
		// A non-JSON error body still yields a usable *Error, only without text.
		return &Error{Status: resp.StatusCode, Message: env.Message, Errors: env.Errors}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, decodeErr)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

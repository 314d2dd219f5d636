package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

const maxBodySize = 4 << 20 // 4MB

// Observer is notified once per backend request. Status is 0 when no response
// was received.
type Observer func(method, path string, status int)

type BreakerConfig struct {
	Failures    uint32
	OpenTimeout time.Duration
}

type Client struct {
	baseURL      string
	plain        *http.Client
	credentialed *http.Client
	breaker      *gobreaker.CircuitBreaker[*response]
	timeout      time.Duration
	observer     Observer
	log          *zap.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithBreaker makes the client fail fast after cfg.Failures consecutive
// transport or 5xx failures. Requests are never retried.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
			Name:        "storefront-backend",
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.Failures
			},
			// a caller walking away is not a backend failure
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.log.Warn("circuit breaker state changed",
					zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
			},
		})
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", baseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := otelhttp.NewTransport(http.DefaultTransport)
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		plain:        &http.Client{Transport: transport},
		credentialed: &http.Client{Transport: transport, Jar: jar},
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type requestConfig struct {
	credentials bool
}

type RequestOption func(*requestConfig)

// WithCredentials sends and stores cookies for the request.
func WithCredentials() RequestOption {
	return func(rc *requestConfig) { rc.credentials = true }
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, in, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, in, out, opts...)
}

type response struct {
	status int
	body   []byte
}

var errServer = errors.New("server error")

func (c *Client) do(ctx context.Context, method, path string, in, out any, opts ...RequestOption) error {
	var rc requestConfig
	for _, opt := range opts {
		opt(&rc)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.plain
	if rc.credentials {
		hc = c.credentialed
	}

	send := func() (*response, error) {
		resp, err := hc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, err
		}
		r := &response{status: resp.StatusCode, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			return r, errServer
		}
		return r, nil
	}

	var resp *response
	if c.breaker != nil {
		resp, err = c.breaker.Execute(send)
	} else {
		resp, err = send()
	}

	status := 0
	if resp != nil {
		status = resp.status
	}
	if c.observer != nil {
		c.observer(method, path, status)
	}

	if err != nil && !errors.Is(err, errServer) {
		c.log.Debug("backend request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
		}
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}

	c.log.Debug("backend request",
		zap.String("method", method), zap.String("path", path), zap.Int("status", resp.status))

	if resp.status < 200 || resp.status >= 300 {
		return &Error{StatusCode: resp.status, Detail: parseDetail(resp.body)}
	}

	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrTransport, method, path, err)
	}
	return nil
}

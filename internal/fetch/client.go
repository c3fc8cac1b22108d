// Package fetch provides the shared HTTP client used by every source
// adapter: per-host rate limiting, bounded retries on retryable upstream
// failures, per-host circuit breaking, and body size caps.
package fetch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Aman-CERP/rabbithole/internal/config"
	"github.com/Aman-CERP/rabbithole/internal/errors"
	"github.com/Aman-CERP/rabbithole/internal/logging"
)

// Client wraps net/http with the cross-cutting policies every adapter
// needs. One Client is shared by all sources and is safe for concurrent
// use; limiters and breakers are created lazily per host.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	userAgent        string
	browserUserAgent string
	maxBodyBytes     int64
	retry            errors.RetryConfig

	rateLimit rate.Limit
	rateBurst int

	breakerMaxFailures  int
	breakerResetTimeout time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*errors.CircuitBreaker
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient substitutes the underlying http.Client (tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClientLogger sets the client's logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient builds the shared fetch client from HTTP configuration.
func NewClient(cfg config.HTTPConfig, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:              logging.Discard(),
		userAgent:           cfg.UserAgent,
		browserUserAgent:    cfg.BrowserUserAgent,
		maxBodyBytes:        cfg.MaxBodyBytes,
		rateLimit:           rate.Limit(cfg.RateLimit),
		rateBurst:           cfg.RateBurst,
		breakerMaxFailures:  cfg.BreakerMaxFailures,
		breakerResetTimeout: cfg.BreakerResetTimeout,
		retry: errors.RetryConfig{
			MaxRetries:   cfg.RetryMax,
			InitialDelay: cfg.RetryInitialDelay,
			MaxDelay:     cfg.Timeout,
			Multiplier:   2.0,
			Jitter:       true,
			RetryIf:      errors.IsRetryable,
		},
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*errors.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "fetch"))
	return c
}

// RequestOption mutates an outgoing request before it is sent.
type RequestOption func(*http.Request)

// WithBrowserUA sends the browser user agent instead of the default one.
// Some endpoints serve structured markup only to browser agents.
func WithBrowserUA() RequestOption {
	return func(req *http.Request) {
		req.Header.Set("User-Agent", userAgentMarker)
	}
}

// WithHeader sets an arbitrary request header.
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// userAgentMarker is replaced with the configured browser UA at send time,
// so option construction stays independent of the Client.
const userAgentMarker = "\x00browser"

// Get fetches rawURL and returns the response body. Rate limiting,
// retries, and circuit breaking all apply; bodies larger than the
// configured cap fail rather than truncate silently.
func (c *Client) Get(ctx context.Context, rawURL string, opts ...RequestOption) ([]byte, error) {
	host, err := hostOf(rawURL)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("invalid url %q", rawURL), err)
	}

	if err := c.limiter(host).Wait(ctx); err != nil {
		return nil, errors.NetworkError("rate limiter wait interrupted", err)
	}

	return errors.CircuitExecuteWithResult(c.breaker(host),
		func() ([]byte, error) {
			return errors.RetryWithResult(ctx, c.retry, func() ([]byte, error) {
				return c.doGet(ctx, rawURL, opts)
			})
		},
		func() ([]byte, error) {
			return nil, errors.New(errors.ErrCodeCircuitOpen,
				fmt.Sprintf("circuit open for host %s", host), errors.ErrCircuitOpen).
				WithSuggestion("Wait for the host to recover before retrying")
		})
}

// GetJSON fetches rawURL and decodes the JSON response body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any, opts ...RequestOption) error {
	body, err := c.Get(ctx, rawURL, opts...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.New(errors.ErrCodeMalformedPayload,
			fmt.Sprintf("decoding JSON from %s", rawURL), err)
	}
	return nil
}

// doGet performs one HTTP attempt.
func (c *Client) doGet(ctx context.Context, rawURL string, opts []RequestOption) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("building request for %q", rawURL), err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	for _, opt := range opts {
		opt(req)
	}
	if req.Header.Get("User-Agent") == userAgentMarker {
		req.Header.Set("User-Agent", c.browserUserAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.logger.Debug("upstream_status",
			slog.String("url", rawURL),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", time.Since(start)))
		return nil, errors.UpstreamError(resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, errors.NetworkError(fmt.Sprintf("reading body from %s", rawURL), err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, errors.New(errors.ErrCodeBodyTooLarge,
			fmt.Sprintf("response from %s exceeds %d bytes", rawURL, c.maxBodyBytes), nil)
	}

	c.logger.Debug("fetch_complete",
		slog.String("url", rawURL),
		slog.Int("bytes", len(body)),
		slog.Duration("duration", time.Since(start)))
	return body, nil
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(c.rateLimit, c.rateBurst)
		c.limiters[host] = lim
	}
	return lim
}

func (c *Client) breaker(host string) *errors.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.breakers[host]
	if !ok {
		cb = errors.NewCircuitBreaker(host,
			errors.WithMaxFailures(c.breakerMaxFailures),
			errors.WithResetTimeout(c.breakerResetTimeout))
		c.breakers[host] = cb
	}
	return cb
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return u.Host, nil
}

// classifyTransportError maps transport failures onto structured codes so
// the retry policy can tell timeouts from hard connection failures.
func classifyTransportError(rawURL string, err error) error {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.New(errors.ErrCodeNetworkTimeout,
			fmt.Sprintf("request to %s timed out", rawURL), err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.New(errors.ErrCodeNetworkTimeout,
			fmt.Sprintf("request to %s timed out", rawURL), err)
	}
	return errors.New(errors.ErrCodeNetworkUnavailable,
		fmt.Sprintf("request to %s failed", rawURL), err)
}

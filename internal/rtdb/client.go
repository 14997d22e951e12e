package rtdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/forecast-crud/internal/observability"
)

var (
	// ErrBreakerOpen is returned without contacting the database while the
	// circuit breaker is open.
	ErrBreakerOpen = errors.New("rtdb: circuit breaker open")

	errNoHTTPClient = errors.New("rtdb: http client not configured")
	errServerStatus = errors.New("rtdb: server error status")
)

// BreakerConfig controls the circuit breaker around the transport. Requests
// are never retried; the breaker only stops hammering a failing database.
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// Config bundles the HTTP client and resilience settings.
type Config struct {
	HTTPClient *http.Client

	// RateLimit is the maximum requests per second; 0 disables limiting.
	RateLimit float64
	RateBurst int

	Breaker BreakerConfig
	Metrics *observability.Metrics
}

// Response is the raw result of one round trip. Any HTTP status is a
// Response; only transport failures are errors.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the database accepted the request.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Client talks to the Realtime Database REST API.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	circuit *gobreaker.CircuitBreaker
	metrics *observability.Metrics
}

// NewClient builds a Client. A zero Config yields http.DefaultClient, no
// rate limit and a breaker that trips after 5 consecutive failures.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	trips := cfg.Breaker.ConsecutiveFailures
	if trips == 0 {
		trips = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rtdb",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
	})

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	m := cfg.Metrics
	if m == nil {
		m = observability.NewMetrics(nil)
	}

	return &Client{
		http:    hc,
		limiter: limiter,
		circuit: cb,
		metrics: m,
	}
}

// Get reads the JSON at url.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// Post pushes body as a new child of url. The database answers with the
// generated key.
func (c *Client) Post(ctx context.Context, url string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, url, body)
}

// Put overwrites the value at url with body.
func (c *Client) Put(ctx context.Context, url string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPut, url, body)
}

// Delete removes the value at url.
func (c *Client) Delete(ctx context.Context, url string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, url, nil)
}

func (c *Client) do(ctx context.Context, method, url string, body any) (*Response, error) {
	if c == nil || c.http == nil {
		return nil, errNoHTTPClient
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", method, err)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait canceled: %w", err)
		}
	}

	start := time.Now()
	var out *Response
	_, err := c.circuit.Execute(func() (interface{}, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		out = &Response{StatusCode: resp.StatusCode, Body: data}

		// 5xx counts against the breaker but is still handed to the caller.
		if resp.StatusCode >= 500 {
			return nil, errServerStatus
		}
		return nil, nil
	})
	c.metrics.StoreRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.StoreRequests.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrBreakerOpen, err)
	}
	if out == nil {
		c.metrics.StoreRequests.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("%s request: %w", method, err)
	}

	outcome := "ok"
	if !out.OK() {
		outcome = "status"
	}
	c.metrics.StoreRequests.WithLabelValues(method, outcome).Inc()
	return out, nil
}

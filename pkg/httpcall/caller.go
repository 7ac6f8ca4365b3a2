package httpcall

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Request describes one outbound HTTP call. The struct doubles as the
// JSON payload format of HTTP tasks, so field names are part of the
// queue's wire contract.
type Request struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// Result captures the outcome of a call for logging and metrics.
type Result struct {
	StatusCode int
	Duration   time.Duration
	Success    bool
}

// Caller performs exactly one delivery attempt per Do. It never retries
// internally; rescheduling a failed call is the queue's job, and the
// error classification (permanent vs temporary) tells the worker which
// failures are worth rescheduling.
type Caller struct {
	client *http.Client
}

// NewCaller creates a caller with a pooled HTTP client. The client
// timeout is a backstop; per-call deadlines come from the context.
func NewCaller(opts ...Option) *Caller {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	client := cfg.httpClient
	if client == nil {
		client = &http.Client{
			Timeout: cfg.timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Caller{client: client}
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
	http.MethodHead:   true,
}

// Validate checks the request before any network activity.
func (r Request) Validate() error {
	method := strings.ToUpper(r.Method)
	if method == "" {
		return fmt.Errorf("%w: method is required", ErrInvalidMethod)
	}
	if !allowedMethods[method] {
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidMethod, r.Method)
	}

	if r.URL == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	// http/https only, other schemes open the door to SSRF
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return nil
}

// Do performs the call. A validation failure or a 4xx response (except
// 408, 425 and 429) wraps ErrPermanentFailure; network errors, timeouts
// and 5xx responses wrap ErrTemporaryFailure. 2xx is success.
func (c *Caller) Do(ctx context.Context, req Request, opts ...Option) (Result, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := req.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrPermanentFailure, err)
	}

	if cfg.circuitBreaker != nil && !cfg.circuitBreaker.Allow() {
		return Result{}, fmt.Errorf("%w: %w", ErrTemporaryFailure, ErrCircuitOpen)
	}

	result, err := c.attempt(ctx, req, cfg)

	if cfg.circuitBreaker != nil {
		if err == nil {
			cfg.circuitBreaker.RecordSuccess()
		} else {
			cfg.circuitBreaker.RecordFailure()
		}
	}

	return result, err
}

func (c *Caller) attempt(ctx context.Context, req Request, cfg *config) (Result, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var body io.Reader
	if req.Body != "" {
		body = bytes.NewReader([]byte(req.Body))
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, strings.ToUpper(req.Method), req.URL, body)
	if err != nil {
		return Result{Duration: time.Since(start)}, fmt.Errorf("%w: failed to create request: %w", ErrPermanentFailure, err)
	}

	httpReq.Header.Set("User-Agent", cfg.userAgent)
	if req.Body != "" && req.Headers["Content-Type"] == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(httpReq)
	result := Result{Duration: time.Since(start)}
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return result, fmt.Errorf("%w: %w: %w", ErrTemporaryFailure, ErrTimeout, err)
		}
		return result, fmt.Errorf("%w: %w", ErrTemporaryFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	if result.Success {
		return result, nil
	}

	// 64KB cap keeps hostile responses from blowing up memory
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	errMsg := fmt.Sprintf("endpoint returned status %d", resp.StatusCode)
	if len(respBody) > 0 {
		bodyStr := strings.ReplaceAll(string(respBody), "\n", " ")
		if len(bodyStr) > 200 {
			bodyStr = bodyStr[:200] + "..."
		}
		errMsg += ": " + bodyStr
	}

	if isPermanentStatus(resp.StatusCode) {
		return result, fmt.Errorf("%w: %w: %s", ErrPermanentFailure, ErrDeliveryFailed, errMsg)
	}
	return result, fmt.Errorf("%w: %w: %s", ErrTemporaryFailure, ErrDeliveryFailed, errMsg)
}

// isPermanentStatus reports whether a status code will not change on
// retry. Most 4xx codes are client mistakes; 408, 425 and 429 are
// timing or rate-limit conditions that can clear.
func isPermanentStatus(statusCode int) bool {
	if statusCode < 400 || statusCode >= 500 {
		return false
	}
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return true
}

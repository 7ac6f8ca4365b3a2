package httpcall

import (
	"net/http"
	"time"
)

type config struct {
	timeout        time.Duration
	userAgent      string
	httpClient     *http.Client
	circuitBreaker *CircuitBreaker
}

func defaultConfig() *config {
	return &config{
		timeout:   10 * time.Second,
		userAgent: "queuekit/1.0",
	}
}

// Option configures a Caller or a single Do call.
type Option func(*config)

// WithTimeout sets the per-attempt timeout. Default is 10 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *config) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient sets a custom HTTP client, useful for tests and
// custom transports.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCircuitBreaker guards calls with a circuit breaker. Reuse the
// same instance per endpoint so failure state accumulates across tasks.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(c *config) {
		c.circuitBreaker = cb
	}
}

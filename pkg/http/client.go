package http

import (
	"net"
	"net/http"
	"time"
)

// TransportFunc wraps a RoundTripper. Wrappers are applied in order, so the
// last one registered sees the request first.
type TransportFunc func(http.RoundTripper) http.RoundTripper

type HttpOpts func(*clientConfig)

type clientConfig struct {
	connTimeout           time.Duration
	requestTimeout        time.Duration
	keepAlive             time.Duration
	responseHeaderTimeout time.Duration
	idleConnTimeout       time.Duration
	maxIdleConnsPerHost   int
	transports            []TransportFunc
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		connTimeout:           10 * time.Second,
		requestTimeout:        30 * time.Second,
		keepAlive:             90 * time.Second,
		responseHeaderTimeout: 30 * time.Second,
		idleConnTimeout:       90 * time.Second,
		maxIdleConnsPerHost:   10,
	}
}

func WithConnClientTimeout(timeout time.Duration) HttpOpts {
	return func(c *clientConfig) {
		c.connTimeout = timeout
	}
}

// WithRequestTimeout bounds a whole exchange, body included. Zero means no
// client-side limit; callers then rely on the request context.
func WithRequestTimeout(timeout time.Duration) HttpOpts {
	return func(c *clientConfig) {
		c.requestTimeout = timeout
	}
}

func WithClientKeepAlive(keepAlive time.Duration) HttpOpts {
	return func(c *clientConfig) {
		c.keepAlive = keepAlive
	}
}

func WithResponseHeaderTimeout(timeout time.Duration) HttpOpts {
	return func(c *clientConfig) {
		c.responseHeaderTimeout = timeout
	}
}

func WithIdleConnTimeout(timeout time.Duration) HttpOpts {
	return func(c *clientConfig) {
		c.idleConnTimeout = timeout
	}
}

func WithMaxIdleConnsPerHost(n int) HttpOpts {
	return func(c *clientConfig) {
		if n > 0 {
			c.maxIdleConnsPerHost = n
		}
	}
}

func WithTransport(transport TransportFunc) HttpOpts {
	return func(c *clientConfig) {
		c.transports = append(c.transports, transport)
	}
}

func newClient(opts ...HttpOpts) *http.Client {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	dialer := &net.Dialer{
		Timeout:   cfg.connTimeout,
		KeepAlive: cfg.keepAlive,
	}

	// Start from the default transport to keep proxy-from-environment and
	// HTTP/2 support.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.MaxIdleConnsPerHost = cfg.maxIdleConnsPerHost
	transport.ResponseHeaderTimeout = cfg.responseHeaderTimeout
	transport.IdleConnTimeout = cfg.idleConnTimeout

	var rt http.RoundTripper = transport
	for _, wrap := range cfg.transports {
		rt = wrap(rt)
	}

	return &http.Client{
		Timeout:   cfg.requestTimeout,
		Transport: rt,
	}
}

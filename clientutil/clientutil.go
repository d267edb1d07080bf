package clientutil

import (
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"
)

type Middleware func(http.RoundTripper) http.RoundTripper

func Chain(middlewares ...Middleware) Middleware {
	if len(middlewares) == 1 {
		return middlewares[0]
	}
	return func(final http.RoundTripper) http.RoundTripper {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// WithCache keeps responses the server allows caching in memory, up to maxBytes of
// response bodies.
func WithCache(maxBytes int) Middleware {
	cache := NewMemoryCache(maxBytes)
	return func(next http.RoundTripper) http.RoundTripper {
		transport := httpcache.NewTransport(cache)
		transport.Transport = next
		return transport
	}
}

func WithRateLimit(interval time.Duration) Middleware {
	if interval == 0 {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		limiter := rate.NewLimiter(rate.Every(interval), 1)
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(r)
		})
	}
}

func WithLogging(logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			if err != nil {
				logger.DebugContext(r.Context(), "http request", "url", r.URL, "err", err)
				return nil, err
			}
			logger.DebugContext(r.Context(), "http response", "url", r.URL, "status", resp.StatusCode, "took", time.Since(start).Truncate(time.Millisecond))
			return resp, nil
		})
	}
}

// WithHeader sets a request header, replacing any value already set.
func WithHeader(key, value string) Middleware {
	if value == "" {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			r = r.Clone(r.Context())
			r.Header.Set(key, value)
			return next.RoundTrip(r)
		})
	}
}

func WithUserAgent(userAgent string) Middleware {
	return WithHeader("User-Agent", userAgent)
}

func Passthrough(next http.RoundTripper) http.RoundTripper {
	return next
}

// NewTransport returns a clone of [http.DefaultTransport] with the given dial and
// response header timeouts. Zero durations keep the defaults.
func NewTransport(connectTimeout, readTimeout time.Duration) http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport
	}
	t := base.Clone()
	if connectTimeout > 0 {
		dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}
		t.DialContext = dialer.DialContext
		t.TLSHandshakeTimeout = connectTimeout
	}
	if readTimeout > 0 {
		t.ResponseHeaderTimeout = readTimeout
	}
	return t
}

type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func WrapClient(c *http.Client, mw Middleware) *http.Client {
	if c == nil {
		c = &http.Client{}
	}
	// don't mutate a shared client such as http.DefaultClient
	wrapped := *c
	if wrapped.Transport == nil {
		wrapped.Transport = http.DefaultTransport
	}
	wrapped.Transport = mw(wrapped.Transport)
	return &wrapped
}

// MemoryCache is an [httpcache.Cache] bounded by the total size of its values. The
// oldest entries are evicted first.
type MemoryCache struct {
	mu       sync.Mutex
	maxBytes int
	size     int
	items    map[string][]byte
	order    []string
}

func NewMemoryCache(maxBytes int) *MemoryCache {
	return &MemoryCache{maxBytes: maxBytes, items: map[string][]byte{}}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, ok := c.items[key]
	return resp, ok
}

func (c *MemoryCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(data) > c.maxBytes {
		return
	}
	c.delete(key)
	for c.size+len(data) > c.maxBytes && len(c.order) > 0 {
		c.delete(c.order[0])
	}
	c.items[key] = data
	c.order = append(c.order, key)
	c.size += len(data)
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delete(key)
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) delete(key string) {
	data, ok := c.items[key]
	if !ok {
		return
	}
	delete(c.items, key)
	c.size -= len(data)
	if i := slices.Index(c.order, key); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
}

package middleware_test

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"mime/multipart"
	"net/url"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/shadow-links/internal/middleware"
	"github.com/serroba/shadow-links/internal/ratelimit"
	"github.com/serroba/shadow-links/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testRemoteAddr = "192.168.1.1:12345"
	testUserAgent  = "TestAgent/1.0"
)

var errMultipartNotSupported = errors.New("multipart not supported in mock")

func newTestAPI() huma.API {
	return humachi.New(chi.NewMux(), huma.DefaultConfig("Test", "1.0.0"))
}

// mockHumaContext implements huma.Context for testing.
type mockHumaContext struct {
	headers    map[string]string
	host       string
	remoteAddr string
	method     string
	operation  *huma.Operation
	statusCode int
	written    []byte
}

func newMockHumaContext() *mockHumaContext {
	return &mockHumaContext{
		headers:    map[string]string{"User-Agent": testUserAgent},
		remoteAddr: testRemoteAddr,
		method:     "GET",
	}
}

func (m *mockHumaContext) Operation() *huma.Operation        { return m.operation }
func (m *mockHumaContext) Context() context.Context          { return context.Background() }
func (m *mockHumaContext) TLS() *tls.ConnectionState         { return nil }
func (m *mockHumaContext) Version() huma.ProtoVersion        { return huma.ProtoVersion{} }
func (m *mockHumaContext) Method() string                    { return m.method }
func (m *mockHumaContext) Host() string                      { return m.host }
func (m *mockHumaContext) RemoteAddr() string                { return m.remoteAddr }
func (m *mockHumaContext) URL() url.URL                      { return url.URL{Path: "/raw"} }
func (m *mockHumaContext) Param(_ string) string             { return "" }
func (m *mockHumaContext) Query(_ string) string             { return "" }
func (m *mockHumaContext) Header(name string) string         { return m.headers[name] }
func (m *mockHumaContext) EachHeader(_ func(string, string)) {}
func (m *mockHumaContext) BodyReader() io.Reader             { return nil }
func (m *mockHumaContext) SetReadDeadline(_ time.Time) error { return nil }
func (m *mockHumaContext) SetStatus(code int)                { m.statusCode = code }
func (m *mockHumaContext) Status() int                       { return m.statusCode }
func (m *mockHumaContext) AppendHeader(_, _ string)          {}
func (m *mockHumaContext) SetHeader(_, _ string)             {}
func (m *mockHumaContext) BodyWriter() io.Writer             { return m }
func (m *mockHumaContext) GetMultipartForm() (*multipart.Form, error) {
	return nil, errMultipartNotSupported
}

func (m *mockHumaContext) Write(p []byte) (int, error) {
	m.written = append(m.written, p...)

	return len(p), nil
}

type capturingLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (c *capturingLimiter) Allow(_ context.Context, key string) (bool, error) {
	c.keys = append(c.keys, key)

	return c.allowed, c.err
}

type failingStore struct{}

func (failingStore) Record(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 0, errors.New("store down")
}

type fixedResolver struct {
	scopes []ratelimit.Scope
}

func (r fixedResolver) Resolve(_ huma.Context) []ratelimit.Scope {
	return r.scopes
}

func run(mw func(huma.Context, func(huma.Context)), ctx huma.Context) bool {
	called := false

	mw(ctx, func(_ huma.Context) { called = true })

	return called
}

func TestRateLimiter(t *testing.T) {
	t.Run("passes allowed requests through", func(t *testing.T) {
		mw := middleware.RateLimiter(newTestAPI(), &capturingLimiter{allowed: true})

		assert.True(t, run(mw, newMockHumaContext()))
	})

	t.Run("returns 429 when denied", func(t *testing.T) {
		mw := middleware.RateLimiter(newTestAPI(), &capturingLimiter{allowed: false})
		ctx := newMockHumaContext()

		assert.False(t, run(mw, ctx))
		assert.Equal(t, 429, ctx.statusCode)
		assert.Contains(t, string(ctx.written), "rate limit")
	})

	t.Run("returns 500 when the limiter fails", func(t *testing.T) {
		mw := middleware.RateLimiter(newTestAPI(), &capturingLimiter{err: errors.New("boom")})
		ctx := newMockHumaContext()

		assert.False(t, run(mw, ctx))
		assert.Equal(t, 500, ctx.statusCode)
	})

	t.Run("keys clients by IP and User-Agent", func(t *testing.T) {
		limiter := &capturingLimiter{allowed: true}
		mw := middleware.RateLimiter(newTestAPI(), limiter)

		run(mw, newMockHumaContext())
		run(mw, newMockHumaContext())

		other := newMockHumaContext()
		other.headers["User-Agent"] = "Other/2.0"
		run(mw, other)

		forwarded := newMockHumaContext()
		forwarded.headers["X-Forwarded-For"] = "203.0.113.195, 70.41.3.18"
		run(mw, forwarded)

		require.Len(t, limiter.keys, 4)
		assert.Equal(t, limiter.keys[0], limiter.keys[1])
		assert.NotEqual(t, limiter.keys[0], limiter.keys[2])
		assert.NotEqual(t, limiter.keys[0], limiter.keys[3])
	})

	t.Run("works with a token bucket", func(t *testing.T) {
		mw := middleware.RateLimiter(newTestAPI(), ratelimit.NewTokenBucketLimiter(0.001, 2))

		assert.True(t, run(mw, newMockHumaContext()))
		assert.True(t, run(mw, newMockHumaContext()))
		assert.False(t, run(mw, newMockHumaContext()))
	})
}

func TestPolicyRateLimiter(t *testing.T) {
	newLimiter := func(policy *ratelimit.Policy) *ratelimit.PolicyLimiter {
		return ratelimit.NewPolicyLimiter(store.NewRateLimitMemoryStore(), policy)
	}

	t.Run("enforces scope limits", func(t *testing.T) {
		policy := ratelimit.NewPolicyBuilder().AddLimit(ratelimit.ScopeGlobal, 1, time.Minute).Build()
		mw := middleware.PolicyRateLimiter(newTestAPI(), newLimiter(policy),
			fixedResolver{scopes: []ratelimit.Scope{ratelimit.ScopeGlobal}}, zap.NewNop())

		assert.True(t, run(mw, newMockHumaContext()))

		ctx := newMockHumaContext()
		assert.False(t, run(mw, ctx))
		assert.Equal(t, 429, ctx.statusCode)
		assert.Contains(t, string(ctx.written), "2/1 requests")
	})

	t.Run("uses the operation scope", func(t *testing.T) {
		policy := ratelimit.NewPolicyBuilder().
			AddLimit(ratelimit.ScopeRead, 100, time.Minute).
			AddLimit(ratelimit.ScopeCreate, 1, time.Minute).
			Build()
		mw := middleware.PolicyRateLimiter(newTestAPI(), newLimiter(policy),
			ratelimit.NewOperationScopeResolver(), zap.NewNop())

		create := func() *mockHumaContext {
			ctx := newMockHumaContext()
			ctx.method = "POST"
			ctx.operation = &huma.Operation{
				Path:     "/create",
				Metadata: map[string]any{ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeCreate}},
			}

			return ctx
		}

		assert.True(t, run(mw, create()))
		assert.False(t, run(mw, create()))
		assert.True(t, run(mw, newMockHumaContext()), "reads are limited separately")
	})

	t.Run("skips disabled endpoints", func(t *testing.T) {
		mw := middleware.PolicyRateLimiter(newTestAPI(),
			ratelimit.NewPolicyLimiter(failingStore{}, ratelimit.DefaultPolicy()),
			ratelimit.NewOperationScopeResolver(), zap.NewNop())

		ctx := newMockHumaContext()
		ctx.operation = &huma.Operation{
			Path:     "/health",
			Metadata: map[string]any{ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true}},
		}

		assert.True(t, run(mw, ctx))
	})

	t.Run("applies custom endpoint limits", func(t *testing.T) {
		mw := middleware.PolicyRateLimiter(newTestAPI(), newLimiter(ratelimit.NewPolicyBuilder().Build()),
			ratelimit.NewOperationScopeResolver(), zap.NewNop())

		custom := func() *mockHumaContext {
			ctx := newMockHumaContext()
			ctx.operation = &huma.Operation{
				Path: "/{shortId}",
				Metadata: map[string]any{ratelimit.MetadataKey: ratelimit.EndpointConfig{
					Limits: []ratelimit.LimitConfig{{Window: time.Minute, Max: 2}},
				}},
			}

			return ctx
		}

		assert.True(t, run(mw, custom()))
		assert.True(t, run(mw, custom()))

		ctx := custom()
		assert.False(t, run(mw, ctx))
		assert.Equal(t, 429, ctx.statusCode)
	})

	t.Run("returns 500 when the store fails", func(t *testing.T) {
		mw := middleware.PolicyRateLimiter(newTestAPI(),
			ratelimit.NewPolicyLimiter(failingStore{}, ratelimit.DefaultPolicy()),
			ratelimit.NewOperationScopeResolver(), zap.NewNop())

		ctx := newMockHumaContext()

		assert.False(t, run(mw, ctx))
		assert.Equal(t, 500, ctx.statusCode)
	})
}

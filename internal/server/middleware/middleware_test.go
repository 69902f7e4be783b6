package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
})

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestAuth(t *testing.T) {
	h := Auth("secret", "/api/health")(ok)

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
	}{
		{"missing key", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/report", nil) }, http.StatusUnauthorized},
		{"bearer", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/report", nil)
			r.Header.Set("Authorization", "Bearer secret")
			return r
		}, http.StatusOK},
		{"wrong bearer", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/report", nil)
			r.Header.Set("Authorization", "Bearer nope")
			return r
		}, http.StatusUnauthorized},
		{"header key", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/report", nil)
			r.Header.Set("X-API-Key", "secret")
			return r
		}, http.StatusOK},
		{"query key", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/ws?api_key=secret", nil) }, http.StatusOK},
		{"public path", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/health", nil) }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, serve(h, tt.req()).Code)
		})
	}

	open := Auth("")(ok)
	assert.Equal(t, http.StatusOK, serve(open, httptest.NewRequest(http.MethodGet, "/api/report", nil)).Code)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://dash.example.com"})(ok)

	r := httptest.NewRequest(http.MethodGet, "/api/report", nil)
	r.Header.Set("Origin", "https://dash.example.com")
	rec := serve(h, r)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/api/report", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	rec = serve(h, r)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodOptions, "/api/scan", nil)
	r.Header.Set("Origin", "https://dash.example.com")
	rec = serve(h, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", serve(CORS(nil)(ok), r).Header().Get("Access-Control-Allow-Origin"))
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	serve(h, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/api/report"`)

	buf.Reset()
	serve(Logging(logger)(ok), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Empty(t, buf.String(), "health checks log at debug")
}

type fakeLimiter struct {
	allowed map[string]int
	limit   int
	err     error
}

func (f *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.allowed[key]++
	return f.allowed[key] <= limit, nil
}

func (f *fakeLimiter) Wait(ctx context.Context, key string, limit int, window time.Duration) error {
	return nil
}

func TestRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	lim := &fakeLimiter{allowed: map[string]int{}}
	h := RateLimit(lim, 2, time.Minute, logger)(ok)

	req := func(ip string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/report", nil)
		r.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		return r
	}
	assert.Equal(t, http.StatusOK, serve(h, req("1.1.1.1")).Code)
	assert.Equal(t, http.StatusOK, serve(h, req("1.1.1.1")).Code)
	rec := serve(h, req("1.1.1.1"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, serve(h, req("2.2.2.2")).Code)
	assert.Equal(t, 3, lim.allowed["ratelimit:api:1.1.1.1"])

	down := RateLimit(&fakeLimiter{err: errors.New("redis down")}, 1, time.Minute, logger)(ok)
	assert.Equal(t, http.StatusOK, serve(down, req("1.1.1.1")).Code)

	assert.Equal(t, http.StatusOK, serve(RateLimit(nil, 1, time.Minute, logger)(ok), req("1.1.1.1")).Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, "192.0.2.7", ClientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.2")
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}

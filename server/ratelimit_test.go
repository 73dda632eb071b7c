package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/bunkercoin/dashboard_api/config"
)

func newTestLimiter(cfg config.RateLimitConfig, now *time.Time) *ipRateLimiter {
	l := newIPRateLimiter(cfg)
	l.now = func() time.Time { return *now }
	return l
}

func TestLimiterBurstPerIP(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newTestLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 2}, &now)

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	// other clients keep their own bucket
	assert.True(t, l.allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
}

func TestLimiterCleanup(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newTestLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 1, IdleTimeout: time.Minute}, &now)

	l.allow("10.0.0.1")
	now = now.Add(30 * time.Second)
	l.allow("10.0.0.2")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, l.cleanup())
	assert.Len(t, l.visitors, 1)
	_, ok := l.visitors["10.0.0.2"]
	assert.True(t, ok)
}

func TestLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name  string
		cfg   config.RateLimitConfig
		codes []int
		retry string
	}{
		{
			name:  "enabled",
			cfg:   config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.2, Burst: 1},
			codes: []int{http.StatusOK, http.StatusTooManyRequests},
			retry: "5",
		},
		{
			name:  "disabled",
			cfg:   config.RateLimitConfig{Enabled: false, RequestsPerSecond: 0.2, Burst: 1},
			codes: []int{http.StatusOK, http.StatusOK, http.StatusOK},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLimiter(tt.cfg, &now)
			r := gin.New()
			r.GET("/locks", l.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

			var last *httptest.ResponseRecorder
			for i, code := range tt.codes {
				last = httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodGet, "/locks", nil)
				req.RemoteAddr = "192.0.2.10:4000"
				r.ServeHTTP(last, req)
				require.Equal(t, code, last.Code, "request %d", i)
			}
			assert.Equal(t, tt.retry, last.Header().Get("Retry-After"))
		})
	}
}

func TestRouterHealthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &server{limiter: newIPRateLimiter(config.RateLimitConfig{})}
	srv.config.Server.Debug.AllowedIPs = "127.0.0.1/32"
	r := srv.Router()

	for path, code := range map[string]int{
		"/ping":       http.StatusOK,
		"/probe/live": http.StatusOK,
		"/unknown":    http.StatusNotFound,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, code, w.Code, path)
	}
}

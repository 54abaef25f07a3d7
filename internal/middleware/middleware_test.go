package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(ClientFromContext(r.Context())))
})

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"reviewer": "secret-1"})(okHandler)

	tests := []struct {
		name   string
		path   string
		header map[string]string
		status int
		body   string
	}{
		{"bearer", "/api/analyze", map[string]string{"Authorization": "Bearer secret-1"}, 200, "reviewer"},
		{"bare key", "/api/analyze", map[string]string{"Authorization": "secret-1"}, 200, "reviewer"},
		{"x-api-key", "/api/analyze", map[string]string{"X-API-Key": "secret-1"}, 200, "reviewer"},
		{"missing", "/api/analyze", nil, 401, ""},
		{"wrong", "/api/analyze", map[string]string{"Authorization": "Bearer nope"}, 401, ""},
		{"public health", "/health", nil, 200, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == 200 {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				var body ErrorBody
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.NotEmpty(t, body.Detail)
			}
		})
	}
}

func TestAPIKeyAuth_DisabledWithoutKeys(t *testing.T) {
	h := APIKeyAuth(nil)(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := rl.Middleware(okHandler)

	do := func(addr, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, 200, do("10.0.0.1:1111", "/api/checklist").Code)
	assert.Equal(t, 200, do("10.0.0.1:2222", "/api/checklist").Code)
	limited := do("10.0.0.1:3333", "/api/checklist")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	// Other clients and public paths are unaffected.
	assert.Equal(t, 200, do("10.0.0.2:1111", "/api/checklist").Code)
	assert.Equal(t, 200, do("10.0.0.1:4444", "/health").Code)
}

func TestRateLimiter_KeyedByClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := APIKeyAuth(map[string]string{"a": "ka", "b": "kb"})(rl.Middleware(okHandler))

	do := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		req.RemoteAddr = "10.0.0.9:1"
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, 200, do("ka"))
	assert.Equal(t, 200, do("kb"))
	assert.Equal(t, http.StatusTooManyRequests, do("ka"))
}

func TestRateLimiter_DisabledAndSweep(t *testing.T) {
	h := NewRateLimiter(0, 1).Middleware(okHandler)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
		assert.Equal(t, 200, rec.Code)
	}

	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("old")
	now = now.Add(time.Hour)
	rl.Allow("fresh")
	assert.Equal(t, 1, rl.Sweep(10*time.Minute))
}

func TestHTTPMetrics(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))

	var nilMetrics *HTTPMetrics
	rec := httptest.NewRecorder()
	nilMetrics.Middleware(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 200, rec.Code)
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/analyze", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.ErrorLevel, entry.Level)
	assert.Equal(t, int64(502), entry.ContextMap()["status"])
	assert.Equal(t, "/api/analyze", entry.ContextMap()["path"])
}

func TestReadinessHandler(t *testing.T) {
	healthy := CheckFunc(func(context.Context) error { return nil })
	broken := CheckFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"store": healthy})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"store": healthy, "archive": broken})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "unavailable", status.Status)
	assert.Equal(t, "connection refused", status.Checks["archive"].Message)
	assert.Equal(t, "healthy", status.Checks["store"].Status)
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	return f.err
}

func TestPingChecker(t *testing.T) {
	assert.NoError(t, PingChecker{Target: fakePinger{}}.Check(context.Background()))
	assert.Error(t, PingChecker{Target: fakePinger{err: errors.New("down")}, Timeout: time.Second}.Check(context.Background()))
}

func TestValidators(t *testing.T) {
	name, err := ValidateIssuerName("  Acme\x00 Corp ")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", name)

	for _, bad := range []string{"", "   ", "Acme\nCorp", stringOf('a', MaxIssuerNameLength+1)} {
		_, err := ValidateIssuerName(bad)
		assert.True(t, errors.Is(err, compliance.ErrInvalidInput), "input %q", bad)
	}

	assert.NoError(t, ValidatePDFFileName("FormC.PDF"))
	assert.True(t, errors.Is(ValidatePDFFileName("form.docx"), compliance.ErrInvalidInput))
	assert.True(t, errors.Is(ValidatePDFFileName(""), compliance.ErrInvalidInput))

	assert.NoError(t, ValidateReportID("2f1d7c4e-8a55-4c1e-9c39-0c4f5a8f6b10"))
	assert.Error(t, ValidateReportID("../etc/passwd"))

	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(500))
	assert.Equal(t, 1, ValidatePage(-3))
}

func stringOf(r rune, n int) string {
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return string(out)
}

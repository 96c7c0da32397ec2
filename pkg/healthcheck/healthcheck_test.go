package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubChecker returns a fixed result after an optional delay.
type stubChecker struct {
	status  Status
	message string
	delay   time.Duration
}

func (s *stubChecker) Check(ctx context.Context) Check {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Check{Status: StatusUnhealthy, Message: ctx.Err().Error(), LastChecked: time.Now()}
		}
	}
	return Check{
		Status:      s.status,
		Message:     s.message,
		LastChecked: time.Now(),
	}
}

func TestNew(t *testing.T) {
	hc := New("3.1.0", zap.NewNop())

	assert.NotNil(t, hc)
	assert.Equal(t, "3.1.0", hc.version)
	assert.NotNil(t, hc.checkers)
	assert.Equal(t, 5*time.Second, hc.cacheTTL)
}

func TestCheck_NoCheckers(t *testing.T) {
	hc := New("3.1.0", zap.NewNop())

	response := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "3.1.0", response.Version)
	assert.Empty(t, response.Checks)
}

func TestCheck_AggregatesWorstStatus(t *testing.T) {
	hc := New("3.1.0", zap.NewNop())
	hc.Register("facts", &stubChecker{status: StatusHealthy})
	hc.Register("cache", &stubChecker{status: StatusDegraded, message: "slow ping"})

	response := hc.Check(context.Background())
	assert.Equal(t, StatusDegraded, response.Status)
	assert.Len(t, response.Checks, 2)

	// Any unhealthy check takes the whole response down
	hc2 := New("3.1.0", zap.NewNop())
	hc2.Register("facts", &stubChecker{status: StatusUnhealthy, message: "connection refused"})
	hc2.Register("cache", &stubChecker{status: StatusDegraded})

	response = hc2.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, response.Status)
}

func TestCheck_NamesComeFromRegistration(t *testing.T) {
	hc := New("3.1.0", zap.NewNop())
	hc.Register("catalog", &stubChecker{status: StatusHealthy})

	response := hc.Check(context.Background())

	require.Len(t, response.Checks, 1)
	assert.Equal(t, "catalog", response.Checks[0].Name)
}

func TestCheck_CachesWithinTTL(t *testing.T) {
	hc := New("3.1.0", zap.NewNop())
	hc.Register("facts", &stubChecker{status: StatusHealthy})

	first := hc.Check(context.Background())
	second := hc.Check(context.Background())

	assert.Equal(t, first.Timestamp, second.Timestamp)

	// A zero TTL forces a fresh run every time
	hc.SetCacheTTL(0)
	third := hc.Check(context.Background())
	assert.NotEqual(t, first.Timestamp, third.Timestamp)
}

func TestCheck_RunsCheckersConcurrently(t *testing.T) {
	hc := New("3.1.0", zap.NewNop())
	for _, name := range []string{"facts", "cache", "catalog"} {
		hc.Register(name, &stubChecker{status: StatusHealthy, delay: 50 * time.Millisecond})
	}

	start := time.Now()
	response := hc.Check(context.Background())
	elapsed := time.Since(start)

	assert.Len(t, response.Checks, 3)
	// Three 50ms checks run in parallel, not back to back
	assert.Less(t, elapsed, 140*time.Millisecond)
}

func TestHTTPHandler_StatusCodes(t *testing.T) {
	hc := New("3.1.0", zap.NewNop())
	hc.Register("facts", &stubChecker{status: StatusHealthy})

	rec := httptest.NewRecorder()
	hc.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "3.1.0", response.Version)

	hc2 := New("3.1.0", zap.NewNop())
	hc2.Register("facts", &stubChecker{status: StatusUnhealthy, message: "connection refused"})

	rec = httptest.NewRecorder()
	hc2.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTPReadinessHandler_DegradedIsNotReady(t *testing.T) {
	hc := New("3.1.0", zap.NewNop())
	hc.Register("cache", &stubChecker{status: StatusDegraded, message: "slow ping"})

	rec := httptest.NewRecorder()
	hc.HTTPReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestHTTPLivenessHandler_AlwaysAlive(t *testing.T) {
	hc := New("3.1.0", zap.NewNop())
	hc.Register("facts", &stubChecker{status: StatusUnhealthy})

	rec := httptest.NewRecorder()
	hc.HTTPLivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestGinHandler_StatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hc := New("3.1.0", zap.NewNop())
	hc.Register("facts", &stubChecker{status: StatusUnhealthy, message: "connection refused"})

	router := gin.New()
	router.GET("/health", hc.Handler())
	router.GET("/ready", hc.ReadinessHandler())
	router.GET("/live", hc.LivenessHandler())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCustomChecker(t *testing.T) {
	checker := NewCustomChecker("catalog", func(ctx context.Context) (Status, string, interface{}) {
		return StatusHealthy, "", map[string]interface{}{"products": 128, "stores": 3}
	})

	check := checker.Check(context.Background())

	assert.Equal(t, "catalog", check.Name)
	assert.Equal(t, StatusHealthy, check.Status)
	metadata, ok := check.Metadata.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 128, metadata["products"])
}

func TestExternalServiceChecker(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	checker := NewExternalServiceChecker("upstream", healthy.URL, 2*time.Second)
	check := checker.Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	checker = NewExternalServiceChecker("upstream", failing.URL, 2*time.Second)
	check = checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
}

func TestCheckMarshalJSON_DurationInMilliseconds(t *testing.T) {
	check := Check{
		Name:        "facts",
		Status:      StatusHealthy,
		LastChecked: time.Now(),
		Duration:    250 * time.Millisecond,
	}

	data, err := json.Marshal(check)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(250), decoded["duration_ms"])
}

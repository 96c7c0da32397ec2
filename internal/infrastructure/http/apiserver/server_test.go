package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cartwise/v3/internal/domain/planning"
	"github.com/cartwise/v3/internal/infrastructure/config"
	"github.com/cartwise/v3/internal/infrastructure/monitoring"
	"github.com/cartwise/v3/internal/ports/inbound"
	"github.com/cartwise/v3/pkg/errors"
	"github.com/cartwise/v3/pkg/healthcheck"
)

// stubPlanningService returns canned answers so route tests never touch
// the engine.
type stubPlanningService struct {
	envelope *inbound.PlanEnvelope
	err      error
	stores   []inbound.StoreView
	report   *inbound.CoverageReport
}

func (s *stubPlanningService) CreatePlan(ctx context.Context, cmd inbound.CreatePlanCommand) (*inbound.PlanEnvelope, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.envelope, nil
}

func (s *stubPlanningService) GetPlan(ctx context.Context, id uuid.UUID) (*inbound.PlanEnvelope, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.envelope, nil
}

func (s *stubPlanningService) ListStores(ctx context.Context) ([]inbound.StoreView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stores, nil
}

func (s *stubPlanningService) IngredientCoverage(ctx context.Context, name string) (*inbound.CoverageReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func testServerConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "cartwise"
	cfg.App.Version = "3.0.0"
	cfg.App.Environment = "production"
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.IdleTimeout = 60 * time.Second
	cfg.Monitoring.EnableMetrics = true
	cfg.Monitoring.HealthCheckPath = "/health"
	cfg.Monitoring.ReadinessPath = "/ready"
	cfg.RateLimit.Enable = false
	return cfg
}

func newTestServer(t *testing.T, svc inbound.PlanningService) *APIServer {
	t.Helper()

	logger := zap.NewNop()
	health := healthcheck.New("3.0.0", logger)
	health.Register("catalog", healthcheck.NewCustomChecker("catalog", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		return healthcheck.StatusHealthy, "", nil
	}))

	server := NewAPIServer(testServerConfig(), logger, svc, monitoring.NewMetricsCollector(logger), nil, health)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})
	return server
}

func freshEnvelope(cached bool) *inbound.PlanEnvelope {
	return &inbound.PlanEnvelope{
		PlanID:      uuid.New(),
		GeneratedAt: time.Now().UTC(),
		Cached:      cached,
		CatalogHash: "3f7a1c90",
		Plan: planning.CartPlan{
			Servings: 4,
			StorePlan: planning.StorePlan{
				Unavailable: []string{"saffron"},
			},
		},
	}
}

func TestCreatePlan_FreshPlanReturns201(t *testing.T) {
	svc := &stubPlanningService{envelope: freshEnvelope(false)}
	server := newTestServer(t, svc)

	body, _ := json.Marshal(inbound.CreatePlanCommand{
		Ingredients: []inbound.IngredientInput{{Name: "turmeric", Form: "powder"}},
		Servings:    4,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plans", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Plan created successfully", resp.Message)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, svc.envelope.PlanID.String(), data["plan_id"])
	assert.Equal(t, false, data["cached"])
}

func TestCreatePlan_CachedPlanReturns200(t *testing.T) {
	server := newTestServer(t, &stubPlanningService{envelope: freshEnvelope(true)})

	body, _ := json.Marshal(inbound.CreatePlanCommand{
		Ingredients: []inbound.IngredientInput{{Name: "onion"}},
		Servings:    2,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plans", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Plan served from cache")
}

func TestCreatePlan_RejectsNonJSONContentType(t *testing.T) {
	server := newTestServer(t, &stubPlanningService{envelope: freshEnvelope(false)})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plans", bytes.NewReader([]byte("servings=4")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCreatePlan_RejectsInvalidCommands(t *testing.T) {
	server := newTestServer(t, &stubPlanningService{envelope: freshEnvelope(false)})

	cases := []struct {
		name string
		body string
	}{
		{"EmptyIngredients", `{"ingredients":[],"servings":2}`},
		{"NegativeServings", `{"ingredients":[{"name":"onion"}],"servings":-1}`},
		{"BlankName", `{"ingredients":[{"name":"   "}],"servings":2}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/plans", bytes.NewReader([]byte(tc.body)))
			req.Header.Set("Content-Type", "application/json")

			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestCreatePlan_ServiceErrorsKeepTheEnvelope(t *testing.T) {
	server := newTestServer(t, &stubPlanningService{err: errors.NewCatalogUnavailableError(fmt.Errorf("no catalog loaded"))})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plans", bytes.NewReader([]byte(`{"ingredients":[{"name":"onion"}],"servings":4}`)))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestGetPlan_InvalidUUIDReturns400(t *testing.T) {
	server := newTestServer(t, &stubPlanningService{envelope: freshEnvelope(false)})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPlan_UnknownPlanReturns404(t *testing.T) {
	id := uuid.New()
	server := newTestServer(t, &stubPlanningService{err: errors.NewPlanNotFoundError(id.String())})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans/"+id.String(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestListStores_ReturnsRoster(t *testing.T) {
	server := newTestServer(t, &stubPlanningService{stores: []inbound.StoreView{
		{ID: "store-a", Name: "Greenfield Market", Kind: "general", DeliveryDays: 2},
		{ID: "store-s", Name: "Spice Bazaar", Kind: "specialty", DeliveryDays: 9},
	}})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stores", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Greenfield Market")
	assert.Contains(t, rec.Body.String(), "Spice Bazaar")
}

func TestIngredientCoverage_DecodesPathName(t *testing.T) {
	svc := &stubPlanningService{report: &inbound.CoverageReport{
		Ingredient: "bell pepper",
		Key:        "bell pepper",
		Total:      6,
		PerStore: []inbound.StoreCoverage{
			{StoreID: "store-a", StoreName: "Greenfield Market", Candidates: 6},
		},
	}}
	server := newTestServer(t, svc)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ingredients/bell%20pepper/coverage", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bell pepper")
}

func TestVersion_ReportsBuildIdentity(t *testing.T) {
	server := newTestServer(t, &stubPlanningService{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/version", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "cartwise", data["name"])
	assert.Equal(t, "3.0.0", data["version"])
}

func TestProbeEndpoints(t *testing.T) {
	server := newTestServer(t, &stubPlanningService{})

	for _, path := range []string{"/health", "/ready", "/live"} {
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, "expected 200 from %s", path)
	}
}

func TestMetricsEndpoint_ServesScrape(t *testing.T) {
	server := newTestServer(t, &stubPlanningService{})

	// Drive one request through the router so HTTP counters exist
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/version", nil))

	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestOpenAPISpec_Served(t *testing.T) {
	server := newTestServer(t, &stubPlanningService{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.yaml", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cartwise Planning API")
}

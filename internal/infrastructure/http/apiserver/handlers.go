package apiserver

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartwise/v3/internal/domain/planning"
	"github.com/cartwise/v3/internal/infrastructure/config"
	"github.com/cartwise/v3/internal/infrastructure/monitoring"
	"github.com/cartwise/v3/internal/infrastructure/security"
	"github.com/cartwise/v3/internal/ports/inbound"
	"github.com/cartwise/v3/pkg/errors"
)

// PlanHandlers handles the public planning REST endpoints.
type PlanHandlers struct {
	config     *config.Config
	planning   inbound.PlanningService
	metrics    *monitoring.MetricsCollector
	validation *security.ValidationService
	logger     *zap.Logger
}

// NewPlanHandlers creates a new plan handlers instance
func NewPlanHandlers(
	cfg *config.Config,
	planningService inbound.PlanningService,
	metrics *monitoring.MetricsCollector,
	logger *zap.Logger,
) *PlanHandlers {
	return &PlanHandlers{
		config:     cfg,
		planning:   planningService,
		metrics:    metrics,
		validation: security.NewValidationService(logger),
		logger:     logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// CreatePlan handles POST /api/v1/plans
func (h *PlanHandlers) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.CreatePlanCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.metrics.PlanCompleted(monitoring.PlanOutcomeRejected, 0)
		h.writeError(w, r, errors.NewInvalidRequestError("request body is not valid JSON"))
		return
	}
	if err := h.validation.ValidateStruct(cmd); err != nil {
		h.metrics.PlanCompleted(monitoring.PlanOutcomeRejected, 0)
		h.writeError(w, r, errors.NewInvalidRequestError(h.validation.Summarize(err)))
		return
	}

	start := time.Now()
	envelope, err := h.planning.CreatePlan(r.Context(), cmd)
	if err != nil {
		h.metrics.PlanCompleted(monitoring.PlanOutcomeRejected, 0)
		h.writeError(w, r, err)
		return
	}
	duration := time.Since(start)

	if envelope.Cached {
		h.metrics.CacheHit(monitoring.CacheSpaceFingerprint)
		h.metrics.PlanCompleted(monitoring.PlanOutcomeCached, duration)
		h.writeJSON(w, http.StatusOK, APIResponse{
			Success: true,
			Data:    envelope,
			Message: "Plan served from cache",
		})
		return
	}

	h.metrics.CacheMiss(monitoring.CacheSpaceFingerprint)
	h.metrics.PlanCompleted(monitoring.PlanOutcomeCreated, duration)
	h.recordPlanFacts(&envelope.Plan)

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    envelope,
		Message: "Plan created successfully",
	})
}

// GetPlan handles GET /api/v1/plans/{id}
func (h *PlanHandlers) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, errors.NewInvalidRequestError("plan id must be a UUID"))
		return
	}

	envelope, err := h.planning.GetPlan(r.Context(), id)
	if err != nil {
		if errors.Is(err, errors.CodePlanNotFound) {
			h.metrics.CacheMiss(monitoring.CacheSpaceID)
		}
		h.writeError(w, r, err)
		return
	}

	h.metrics.CacheHit(monitoring.CacheSpaceID)
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    envelope,
		Message: "Plan retrieved successfully",
	})
}

// ListStores handles GET /api/v1/stores
func (h *PlanHandlers) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.planning.ListStores(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    stores,
		Message: "Stores retrieved successfully",
	})
}

// IngredientCoverage handles GET /api/v1/ingredients/{name}/coverage
func (h *PlanHandlers) IngredientCoverage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "" {
		h.writeError(w, r, errors.NewInvalidRequestError("ingredient name is required"))
		return
	}

	report, err := h.planning.IngredientCoverage(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    report,
		Message: "Coverage retrieved successfully",
	})
}

// Version handles GET /api/v1/version
func (h *PlanHandlers) Version(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"name":        h.config.App.Name,
			"version":     h.config.App.Version,
			"environment": h.config.App.Environment,
		},
	})
}

// recordPlanFacts feeds the planning gauges from a freshly built plan.
// Cached plans are skipped so a popular request does not inflate the
// elimination counters.
func (h *PlanHandlers) recordPlanFacts(plan *planning.CartPlan) {
	h.metrics.UnavailableItems(len(plan.StorePlan.Unavailable))

	counts := make(map[string]int)
	for _, item := range plan.Items {
		for _, note := range item.Trace.Eliminated {
			counts[string(note.Reason)]++
		}
	}
	for reason, count := range counts {
		h.metrics.Eliminations(reason, count)
	}

	for _, store := range plan.StorePlan.Stores {
		if store.Role == planning.StoreRoleSpecialty {
			h.metrics.SpecialtyPlan()
			break
		}
	}
}

// writeJSON writes a JSON response
func (h *PlanHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeError maps an error onto the response envelope
func (h *PlanHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		h.logger.Error("Unhandled error",
			zap.Error(err),
			zap.String("path", r.URL.Path),
		)
		appErr = errors.NewInternalError("An unexpected error occurred")
	}

	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("code", string(appErr.Code)),
			zap.String("message", appErr.Message),
			zap.String("details", appErr.Details),
		)
	}

	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   appErr.Message,
	})
}

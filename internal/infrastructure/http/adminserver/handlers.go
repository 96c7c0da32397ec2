package adminserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartwise/v3/internal/infrastructure/monitoring"
	"github.com/cartwise/v3/internal/infrastructure/security"
	"github.com/cartwise/v3/internal/ports/inbound"
	"github.com/cartwise/v3/pkg/errors"
)

// AdminHandlers handles the operator REST endpoints. Errors are pushed
// onto the gin context and rendered by the error handler middleware.
type AdminHandlers struct {
	admin      inbound.CatalogAdminService
	planning   inbound.PlanningService
	auth       *security.AuthService
	validation *security.ValidationService
	metrics    *monitoring.MetricsCollector
	logger     *zap.Logger
}

// NewAdminHandlers creates a new admin handlers instance
func NewAdminHandlers(
	adminService inbound.CatalogAdminService,
	planningService inbound.PlanningService,
	authService *security.AuthService,
	validation *security.ValidationService,
	metrics *monitoring.MetricsCollector,
	logger *zap.Logger,
) *AdminHandlers {
	return &AdminHandlers{
		admin:      adminService,
		planning:   planningService,
		auth:       authService,
		validation: validation,
		metrics:    metrics,
		logger:     logger,
	}
}

// IssueToken handles POST /admin/v1/auth/token
func (h *AdminHandlers) IssueToken(c *gin.Context) {
	var req security.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewInvalidRequestError("request body is not valid JSON"))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		c.Error(errors.NewInvalidRequestError(h.validation.Summarize(err)))
		return
	}

	if err := h.auth.VerifyOperatorKey(req.Key); err != nil {
		h.logger.Warn("Operator key rejected",
			zap.String("operator", req.Operator),
		)
		c.Error(errors.NewInvalidCredentialsError())
		return
	}

	token, err := h.auth.IssueToken(req.Operator)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    token,
	})
}

// ReloadCatalog handles POST /admin/v1/catalog/reload
func (h *AdminHandlers) ReloadCatalog(c *gin.Context) {
	stats, err := h.admin.ReloadCatalog(c.Request.Context())
	if err != nil {
		h.metrics.CatalogReloadFailed()
		c.Error(err)
		return
	}

	h.metrics.CatalogReloaded(stats.Products, stats.Stores, stats.RowsSkipped)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
		"message": "Catalog reloaded",
	})
}

// CatalogStatus handles GET /admin/v1/catalog/status
func (h *AdminHandlers) CatalogStatus(c *gin.Context) {
	stats, err := h.admin.CatalogStatus(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// ListStores handles GET /admin/v1/stores
func (h *AdminHandlers) ListStores(c *gin.Context) {
	stores, err := h.planning.ListStores(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stores,
	})
}

// ActiveRecalls handles GET /admin/v1/recalls
func (h *AdminHandlers) ActiveRecalls(c *gin.Context) {
	records, err := h.admin.ActiveRecalls(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
	})
}

// RecordRecall handles POST /admin/v1/recalls
func (h *AdminHandlers) RecordRecall(c *gin.Context) {
	var cmd inbound.RecordRecallCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.Error(errors.NewInvalidRequestError("request body is not valid JSON"))
		return
	}
	if err := h.validation.ValidateStruct(cmd); err != nil {
		c.Error(errors.NewInvalidRequestError(h.validation.Summarize(err)))
		return
	}

	if err := h.admin.RecordRecall(c.Request.Context(), cmd); err != nil {
		c.Error(err)
		return
	}

	h.logger.Info("Recall recorded by operator",
		zap.String("operator", c.GetString("operator")),
		zap.String("subject", cmd.Subject),
		zap.String("status", cmd.Status),
	)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Recall fact recorded",
	})
}

// SetResidue handles POST /admin/v1/residues
func (h *AdminHandlers) SetResidue(c *gin.Context) {
	var cmd inbound.SetResidueCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.Error(errors.NewInvalidRequestError("request body is not valid JSON"))
		return
	}
	if err := h.validation.ValidateStruct(cmd); err != nil {
		c.Error(errors.NewInvalidRequestError(h.validation.Summarize(err)))
		return
	}

	if err := h.admin.SetResidueCategory(c.Request.Context(), cmd); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Residue category set",
	})
}

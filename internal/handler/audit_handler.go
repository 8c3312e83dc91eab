package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/associacao-ensino/inscricoes-backend/internal/middleware"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/response"
	"github.com/associacao-ensino/inscricoes-backend/internal/service"
	"github.com/associacao-ensino/inscricoes-backend/internal/validator"
)

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// ListAuditLogs godoc
// GET /api/v1/admin/audit?page=1&per_page=50&tabela=&acao=&user_id=
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	var filter model.AuditFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		filter.UserID = &userID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 50
	}

	logs, total, err := h.auditService.List(c.Request.Context(), filter)
	if err != nil {
		failService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"logs": logs},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetAuditStats godoc
// GET /api/v1/admin/audit/stats
// Aggregates audit activity by user.
func (h *AuditHandler) GetAuditStats(c *gin.Context) {
	stats, err := h.auditService.Stats(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// LogView godoc
// POST /api/v1/admin/audit/views
func (h *AuditHandler) LogView(c *gin.Context) {
	var req model.LogViewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.auditService.LogView(c.Request.Context(), middleware.GetCaller(c), req); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"message": "Visualização registada."})
}

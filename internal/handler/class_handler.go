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

// ClassHandler handles direct edits of single classes. Classes are created
// and deleted through their pair.
type ClassHandler struct {
	classService *service.ClassService
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(classService *service.ClassService) *ClassHandler {
	return &ClassHandler{classService: classService}
}

// ListClasses godoc
// GET /api/v1/admin/classes?turma_pair_id=&variante=
func (h *ClassHandler) ListClasses(c *gin.Context) {
	var filter model.ClassFilter
	if raw := c.Query("turma_pair_id"); raw != "" {
		pairID, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		filter.PairID = &pairID
	}
	if raw := c.Query("variante"); raw != "" {
		filter.Variant = model.Variant(raw)
		if !filter.Variant.Valid() {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"variante": "variante deve ser A ou B"})
			return
		}
	}

	classes, err := h.classService.List(c.Request.Context(), filter)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"classes": classes})
}

// GetClass godoc
// GET /api/v1/admin/classes/:id
func (h *ClassHandler) GetClass(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	class, err := h.classService.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// UpdateClass godoc
// PUT /api/v1/admin/classes/:id
// Changes the room (created on demand from its code) or the capacity.
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.Update(c.Request.Context(), middleware.GetCaller(c), id, req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// RecountClass godoc
// POST /api/v1/admin/classes/:id/recount
// Recomputes the cached enrolled count from the student table.
func (h *ClassHandler) RecountClass(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	class, err := h.classService.Recount(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

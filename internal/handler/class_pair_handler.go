package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/associacao-ensino/inscricoes-backend/internal/middleware"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/response"
	"github.com/associacao-ensino/inscricoes-backend/internal/service"
	"github.com/associacao-ensino/inscricoes-backend/internal/validator"
)

// PairSnapshotter is the read side of the realtime class pair view.
type PairSnapshotter interface {
	Loaded() bool
	Snapshot() []model.ClassPairAggregate
}

// ClassPairHandler handles the class pair lifecycle.
type ClassPairHandler struct {
	workflow     *service.ClassPairWorkflow
	classService *service.ClassService
	view         PairSnapshotter
}

// NewClassPairHandler creates a new ClassPairHandler. view may be nil when
// realtime sync is disabled.
func NewClassPairHandler(workflow *service.ClassPairWorkflow, classService *service.ClassService, view PairSnapshotter) *ClassPairHandler {
	return &ClassPairHandler{workflow: workflow, classService: classService, view: view}
}

// ListClassPairs godoc
// GET /api/v1/admin/class-pairs
// Returns every pair with its classes, rooms and students. Served from the
// realtime view once it is loaded.
func (h *ClassPairHandler) ListClassPairs(c *gin.Context) {
	if h.view != nil && h.view.Loaded() {
		response.Success(c, http.StatusOK, gin.H{"class_pairs": h.view.Snapshot()})
		return
	}

	pairs, err := h.workflow.List(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class_pairs": pairs})
}

// GetClassPair godoc
// GET /api/v1/admin/class-pairs/:id
func (h *ClassPairHandler) GetClassPair(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	pair, err := h.workflow.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class_pair": pair})
}

// ListPairClasses godoc
// GET /api/v1/admin/class-pairs/:id/classes
func (h *ClassPairHandler) ListPairClasses(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	classes, err := h.classService.List(c.Request.Context(), model.ClassFilter{PairID: &id})
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"classes": classes})
}

// CreateClassPair godoc
// POST /api/v1/admin/class-pairs
// Creates the pair and both classes. Rooms are created on demand.
func (h *ClassPairHandler) CreateClassPair(c *gin.Context) {
	var req model.CreateClassPairRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	pair, err := h.workflow.Create(c.Request.Context(), middleware.GetCaller(c), req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"class_pair": pair})
}

// DuplicateClassPair godoc
// POST /api/v1/admin/class-pairs/duplicate
// Creates an empty pair in a period with generated room codes.
func (h *ClassPairHandler) DuplicateClassPair(c *gin.Context) {
	var req model.DuplicateClassPairRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	pair, err := h.workflow.Duplicate(c.Request.Context(), middleware.GetCaller(c), req.Period)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"class_pair": pair})
}

// UpdateClassPair godoc
// PUT /api/v1/admin/class-pairs/:id
func (h *ClassPairHandler) UpdateClassPair(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateClassPairRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	pair, err := h.workflow.Update(c.Request.Context(), middleware.GetCaller(c), id, req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class_pair": pair})
}

// DeleteClassPair godoc
// DELETE /api/v1/admin/class-pairs/:id?confirm=true
// Deletes the pair with its classes and students. A pair with students is
// only deleted when confirm=true; otherwise the response carries the
// number of students that would be removed.
func (h *ClassPairHandler) DeleteClassPair(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	confirmed, _ := strconv.ParseBool(c.Query("confirm"))

	report, err := h.workflow.Delete(c.Request.Context(), middleware.GetCaller(c), id, service.ConfirmWith(confirmed))
	if err != nil {
		if service.KindOf(err) == service.KindCancelled && report != nil {
			response.FailWithData(c, http.StatusConflict, response.ErrConfirmationRequired, service.MessageOf(err), gin.H{"report": report})
			return
		}
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report})
}

// ToggleClassPair godoc
// POST /api/v1/admin/class-pairs/:id/toggle-active
func (h *ClassPairHandler) ToggleClassPair(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	pair, err := h.workflow.ToggleActive(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class_pair": pair})
}

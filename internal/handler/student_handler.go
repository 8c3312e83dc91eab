package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/associacao-ensino/inscricoes-backend/internal/middleware"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/response"
	"github.com/associacao-ensino/inscricoes-backend/internal/service"
	"github.com/associacao-ensino/inscricoes-backend/internal/validator"
)

// StudentHandler handles student records after enrollment.
type StudentHandler struct {
	studentService *service.StudentService
	invoiceService *service.InvoiceService
	auditService   *service.AuditService
	log            zerolog.Logger
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(
	studentService *service.StudentService,
	invoiceService *service.InvoiceService,
	auditService *service.AuditService,
	log zerolog.Logger,
) *StudentHandler {
	return &StudentHandler{
		studentService: studentService,
		invoiceService: invoiceService,
		auditService:   auditService,
		log:            log.With().Str("component", "student_handler").Logger(),
	}
}

// bindStudentFilter reads the listing filters, including the uuid filters
// that the binder cannot parse.
func bindStudentFilter(c *gin.Context) (model.StudentFilter, bool) {
	var filter model.StudentFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return filter, false
	}
	for param, dst := range map[string]**uuid.UUID{
		"turma_pair_id": &filter.PairID,
		"turma_id":      &filter.ClassID,
	} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return filter, false
		}
		*dst = &id
	}
	return filter, true
}

// ListStudents godoc
// GET /api/v1/admin/students?page=1&per_page=20&status=&curso_codigo=&q=&turma_pair_id=&turma_id=
func (h *StudentHandler) ListStudents(c *gin.Context) {
	filter, ok := bindStudentFilter(c)
	if !ok {
		return
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 20
	}

	students, total, err := h.studentService.List(c.Request.Context(), filter)
	if err != nil {
		failService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": students},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetStudent godoc
// GET /api/v1/admin/students/:id
// Also records a view event for the audit trail.
func (h *StudentHandler) GetStudent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	student, err := h.studentService.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}

	if caller := middleware.GetCaller(c); h.auditService != nil && !caller.Anonymous() {
		view := model.LogViewRequest{Table: model.TableStudents, RecordID: id.String()}
		if err := h.auditService.LogView(c.Request.Context(), caller, view); err != nil {
			h.log.Warn().Err(err).Str("student_id", id.String()).Msg("failed to log student view")
		}
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// CheckIDNumber godoc
// GET /api/v1/admin/students/check-bi?numero_bi=
// Reports whether a national ID number is already enrolled.
func (h *StudentHandler) CheckIDNumber(c *gin.Context) {
	idNumber := strings.TrimSpace(c.Query("numero_bi"))
	if idNumber == "" {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"numero_bi": "numero_bi é um campo obrigatório"})
		return
	}

	taken, err := h.studentService.IDNumberTaken(c.Request.Context(), idNumber)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"numero_bi": idNumber, "disponivel": !taken})
}

// UpdateStudent godoc
// PUT /api/v1/admin/students/:id
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Update(c.Request.Context(), middleware.GetCaller(c), id, req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// UpdatePayment godoc
// PATCH /api/v1/admin/students/:id/payment
func (h *StudentHandler) UpdatePayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdatePaymentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.UpdatePayment(c.Request.Context(), middleware.GetCaller(c), id, req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// DeleteStudent godoc
// DELETE /api/v1/admin/students/:id
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.studentService.Delete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Aluno eliminado."})
}

// CheckConsistency godoc
// GET /api/v1/admin/students/:id/consistency
// Cross-checks the student's course against the catalog and its pair.
func (h *StudentHandler) CheckConsistency(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	_, result, err := h.studentService.CheckConsistency(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// DownloadInvoice godoc
// GET /api/v1/admin/students/:id/invoice
// Returns the student's invoice as an XLSX attachment.
func (h *StudentHandler) DownloadInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	doc, err := h.invoiceService.Invoice(c.Request.Context(), id)
	if err != nil {
		if service.KindOf(err) == service.KindConflict {
			response.FailWithMessage(c, http.StatusConflict, response.ErrInconsistentData, service.MessageOf(err), nil)
			return
		}
		failService(c, err)
		return
	}

	writeDocument(c, doc)
}

// ExportStudents godoc
// GET /api/v1/admin/students/export
// Returns every student matching the listing filters as an XLSX attachment.
func (h *StudentHandler) ExportStudents(c *gin.Context) {
	filter, ok := bindStudentFilter(c)
	if !ok {
		return
	}

	doc, err := h.invoiceService.Export(c.Request.Context(), filter)
	if err != nil {
		failService(c, err)
		return
	}

	writeDocument(c, doc)
}

func writeDocument(c *gin.Context, doc *service.Document) {
	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

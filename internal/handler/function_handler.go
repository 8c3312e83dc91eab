package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/associacao-ensino/inscricoes-backend/internal/middleware"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/service"
)

// FunctionHandler serves the /functions/v1 endpoints. They answer with bare
// JSON bodies ({success, ...} or {error}) instead of the API envelope, as
// the web client expects.
type FunctionHandler struct {
	userService         *service.UserService
	notificationService *service.NotificationService
}

// NewFunctionHandler creates a new FunctionHandler.
func NewFunctionHandler(userService *service.UserService, notificationService *service.NotificationService) *FunctionHandler {
	return &FunctionHandler{userService: userService, notificationService: notificationService}
}

// functionError writes {error} with the status of the service error kind.
// Validation failures are 400, everything else keeps its mapped status.
func functionError(c *gin.Context, err error) {
	status, _ := statusOf(service.KindOf(err))
	c.JSON(status, gin.H{"error": service.MessageOf(err)})
}

// AssignUserRoles godoc
// POST /functions/v1/assign-user-roles
// Body {userId, roles[]}. Returns {success: true}.
func (h *FunctionHandler) AssignUserRoles(c *gin.Context) {
	var req model.AssignRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId e roles são obrigatórios."})
		return
	}

	if err := h.userService.AssignRoles(c.Request.Context(), middleware.GetCaller(c), req); err != nil {
		functionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResetUserPassword godoc
// POST /functions/v1/reset-user-password
// Body {userId, newPassword}. The caller must hold the admin role.
func (h *FunctionHandler) ResetUserPassword(c *gin.Context) {
	caller := middleware.GetCaller(c)
	if !caller.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Apenas administradores podem redefinir palavras-passe."})
		return
	}

	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId e newPassword (mínimo 6 caracteres) são obrigatórios."})
		return
	}

	if err := h.userService.ResetPassword(c.Request.Context(), caller, req); err != nil {
		functionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Palavra-passe redefinida com sucesso."})
}

// SendFilesEmail godoc
// POST /functions/v1/send-files-email
// Body {studentName, studentInfo, files[{name, content, type}]}.
func (h *FunctionHandler) SendFilesEmail(c *gin.Context) {
	var req model.SendFilesEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pedido inválido: " + err.Error()})
		return
	}

	receipt, err := h.notificationService.SendFilesEmail(c.Request.Context(), req)
	if err != nil {
		functionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "emailResponse": receipt})
}

// SendStudentDocuments godoc
// POST /functions/v1/send-student-documents
// Body {studentData, files: {foto?, copiaBI?, declaracaoCertificado?, comprovativoPagamento?}}
// where every file is a storage path.
func (h *FunctionHandler) SendStudentDocuments(c *gin.Context) {
	var req model.StudentDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pedido inválido: " + err.Error()})
		return
	}

	receipt, err := h.notificationService.SendStudentDocuments(c.Request.Context(), req)
	if err != nil {
		functionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"emailId":          receipt.EmailID,
		"attachmentsCount": receipt.AttachmentsCount,
	})
}

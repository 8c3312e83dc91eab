package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/associacao-ensino/inscricoes-backend/internal/middleware"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/response"
	"github.com/associacao-ensino/inscricoes-backend/internal/service"
	"github.com/associacao-ensino/inscricoes-backend/internal/validator"
)

// UserHandler handles staff account management.
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers godoc
// GET /api/v1/admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"users": users})
}

// CreateUser godoc
// POST /api/v1/admin/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), middleware.GetCaller(c), req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

// RevokeRole godoc
// DELETE /api/v1/admin/users/:id/roles/:role
func (h *UserHandler) RevokeRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	role := model.Role(c.Param("role"))
	if !role.Valid() {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"role": "role não é uma função válida"})
		return
	}

	if err := h.userService.RevokeRole(c.Request.Context(), middleware.GetCaller(c), id, role); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Função removida."})
}

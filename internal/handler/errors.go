package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/associacao-ensino/inscricoes-backend/internal/response"
	"github.com/associacao-ensino/inscricoes-backend/internal/service"
)

// statusOf maps a service error kind to its HTTP status and error code.
func statusOf(kind service.Kind) (int, response.ErrCode) {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest, response.ErrValidation
	case service.KindNotFound:
		return http.StatusNotFound, response.ErrNotFound
	case service.KindInactive:
		return http.StatusUnprocessableEntity, response.ErrInactiveReference
	case service.KindConflict:
		return http.StatusConflict, response.ErrConflict
	case service.KindDependency:
		return http.StatusConflict, response.ErrDependencyExists
	case service.KindPartial:
		return http.StatusInternalServerError, response.ErrPartialUpdate
	case service.KindCancelled:
		return http.StatusConflict, response.ErrConfirmationRequired
	case service.KindForbidden:
		return http.StatusForbidden, response.ErrForbidden
	default:
		return http.StatusInternalServerError, response.ErrBackend
	}
}

// failService writes the envelope for an error returned by a service.
func failService(c *gin.Context, err error) {
	status, code := statusOf(service.KindOf(err))
	response.FailWithMessage(c, status, code, service.MessageOf(err), service.FieldsOf(err))
}

// parseID reads a uuid path parameter, writing the error response itself.
func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

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

// RoomHandler handles room management.
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler creates a new RoomHandler.
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// ListRooms godoc
// GET /api/v1/admin/rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	var filter model.RoomFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rooms, err := h.roomService.List(c.Request.Context(), filter)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom godoc
// GET /api/v1/admin/rooms/:id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	room, err := h.roomService.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// GetRoomByCode godoc
// GET /api/v1/admin/rooms/code/:code
func (h *RoomHandler) GetRoomByCode(c *gin.Context) {
	room, err := h.roomService.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// CreateRoom godoc
// POST /api/v1/admin/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req model.CreateRoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), middleware.GetCaller(c), req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"room": room})
}

// UpdateRoom godoc
// PUT /api/v1/admin/rooms/:id
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateRoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room, err := h.roomService.Update(c.Request.Context(), middleware.GetCaller(c), id, req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// DeleteRoom godoc
// DELETE /api/v1/admin/rooms/:id
// Fails with DEPENDENCY_EXISTS while a class uses the room.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.roomService.Delete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Sala eliminada."})
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultRoomType is stored when a room is created without a type.
const DefaultRoomType = "sala"

// Room is a physical room. Its code is the natural key.
type Room struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"codigo"`
	Capacity  int       `json:"capacidade"`
	Type      string    `json:"tipo"`
	Active    bool      `json:"ativo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoomRef is the room projection embedded in class reads.
type RoomRef struct {
	Code     string `json:"codigo"`
	Capacity int    `json:"capacidade"`
	Type     string `json:"tipo"`
}

// RoomFilter narrows room listings.
type RoomFilter struct {
	Type   string `form:"tipo" binding:"omitempty,max=50"`
	Active *bool  `form:"ativo"`
}

// CreateRoomRequest is the payload for creating a room.
type CreateRoomRequest struct {
	Code     string `json:"codigo" binding:"required,min=1,max=32"`
	Capacity int    `json:"capacidade" binding:"required,min=1,max=1000"`
	Type     string `json:"tipo" binding:"omitempty,max=50"`
	Active   *bool  `json:"ativo"`
}

// UpdateRoomRequest carries a partial room update.
type UpdateRoomRequest struct {
	Code     *string `json:"codigo" binding:"omitempty,min=1,max=32"`
	Capacity *int    `json:"capacidade" binding:"omitempty,min=1,max=1000"`
	Type     *string `json:"tipo" binding:"omitempty,max=50"`
	Active   *bool   `json:"ativo"`
}

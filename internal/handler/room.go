package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"realtime-canvas/internal/auth"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/service"
)

// RoomHandler 방 핸들러
type RoomHandler struct {
	rooms *service.RoomService
	log   *zap.Logger
}

// NewRoomHandler RoomHandler 생성
func NewRoomHandler(rooms *service.RoomService, log *zap.Logger) *RoomHandler {
	return &RoomHandler{rooms: rooms, log: log}
}

// List 최근 활동 방 목록
// GET /api/rooms
func (h *RoomHandler) List(c *fiber.Ctx) error {
	rooms, err := h.rooms.Recent(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"rooms": rooms})
}

// Create 방 생성
// POST /api/rooms
func (h *RoomHandler) Create(c *fiber.Ctx) error {
	token, ok := auth.TokenFrom(c)
	if !ok {
		return respondError(c, h.log, model.ErrTokenInvalid)
	}

	var req service.CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.log, fmt.Errorf("%w: %v", model.ErrMalformedRequest, err))
	}

	room, err := h.rooms.Create(c.UserContext(), token.ID, req)
	if err != nil {
		return respondError(c, h.log, err)
	}

	h.log.Info("room created", zap.Int64("room_id", room.ID), zap.String("name", room.Name))
	return c.JSON(fiber.Map{"room": room})
}

// Get 방 상세 조회 (모든 획 + 시청자 수)
// GET /api/rooms/:id
func (h *RoomHandler) Get(c *fiber.Ctx) error {
	id, err := roomID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	room, err := h.rooms.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"room": room})
}

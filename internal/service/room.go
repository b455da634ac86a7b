package service

import (
	"context"
	"fmt"
	"strings"

	"realtime-canvas/internal/model"
	"realtime-canvas/internal/presence"
	"realtime-canvas/internal/store"
)

// CreateRoomRequest 방 생성 요청
type CreateRoomRequest struct {
	Name         string `json:"name"`
	CanvasWidth  int    `json:"canvas_width"`
	CanvasHeight int    `json:"canvas_height"`
}

// RoomService 방 생성/조회
type RoomService struct {
	store     *store.Store
	presence  presence.Tracker
	listLimit int
}

// NewRoomService RoomService 생성
func NewRoomService(st *store.Store, tracker presence.Tracker, listLimit int) *RoomService {
	return &RoomService{store: st, presence: tracker, listLimit: listLimit}
}

// Create 방 생성 (생성자 토큰이 소유자가 됨)
func (s *RoomService) Create(ctx context.Context, tokenID int64, req CreateRoomRequest) (*model.Room, error) {
	if strings.TrimSpace(req.Name) == "" || req.CanvasWidth <= 0 || req.CanvasHeight <= 0 {
		return nil, fmt.Errorf("%w: name, canvas_width and canvas_height are required", model.ErrMalformedRequest)
	}
	return s.store.CreateRoom(ctx, req.Name, req.CanvasWidth, req.CanvasHeight, tokenID)
}

// Get 방 전체 상태 조회 (모든 획 + 현재 시청자 수)
func (s *RoomService) Get(ctx context.Context, roomID int64) (*model.Room, error) {
	room, err := s.store.RoomWithStrokes(ctx, roomID)
	if err != nil {
		return nil, err
	}
	count, err := s.presence.ActiveCount(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("watcher count: %w", err)
	}
	room.WatcherCount = count
	return room, nil
}

// Recent 최근 활동 순 방 목록
func (s *RoomService) Recent(ctx context.Context) ([]model.Room, error) {
	return s.store.RecentRooms(ctx, s.listLimit)
}

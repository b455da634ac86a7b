package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"realtime-canvas/internal/model"
)

// CreateRoom inserts a room together with its owner row.
func (s *Store) CreateRoom(ctx context.Context, name string, width, height int, ownerTokenID int64) (*model.Room, error) {
	room := model.Room{
		Name:         name,
		CanvasWidth:  width,
		CanvasHeight: height,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return fmt.Errorf("insert room: %w", err)
		}
		owner := model.RoomOwner{RoomID: room.ID, TokenID: ownerTokenID}
		if err := tx.Create(&owner).Error; err != nil {
			return fmt.Errorf("insert room owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrWriteFailure, err)
	}

	room.Strokes = []model.Stroke{}
	return &room, nil
}

// Room loads a room row without its strokes.
func (s *Store) Room(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", model.ErrRoomNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// RoomWithStrokes loads a room and its complete stroke history.
func (s *Store) RoomWithStrokes(ctx context.Context, id int64) (*model.Room, error) {
	room, err := s.Room(ctx, id)
	if err != nil {
		return nil, err
	}
	strokes, err := s.StrokesSince(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	room.Strokes = strokes
	room.StrokeCount = len(strokes)
	return room, nil
}

// IsRoomOwner reports whether tokenID created the room.
func (s *Store) IsRoomOwner(ctx context.Context, roomID, tokenID int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&model.RoomOwner{}).
		Where("room_id = ? AND token_id = ?", roomID, tokenID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

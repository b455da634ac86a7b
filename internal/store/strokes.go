package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"realtime-canvas/internal/model"
)

// AppendStroke commits a stroke and all of its points in one transaction and
// returns it with the generated ids. Any failure rolls the whole write back;
// once committed the call does not fail.
func (s *Store) AppendStroke(ctx context.Context, roomID int64, width int, color model.Color, coords []model.Coord) (*model.Stroke, error) {
	stroke := model.Stroke{
		RoomID: roomID,
		Width:  width,
		Red:    color.Red,
		Green:  color.Green,
		Blue:   color.Blue,
		Alpha:  color.Alpha,
	}

	points := make([]model.Point, 0, len(coords))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&stroke).Error; err != nil {
			return fmt.Errorf("insert stroke: %w", err)
		}
		if len(coords) == 0 {
			return nil
		}
		for _, c := range coords {
			points = append(points, model.Point{StrokeID: stroke.ID, X: c.X, Y: c.Y})
		}
		if err := tx.Create(&points).Error; err != nil {
			return fmt.Errorf("insert points: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrWriteFailure, err)
	}

	// committed; the rows gorm filled in are the durable state
	stroke.Points = points
	return &stroke, nil
}

// Stroke loads one stroke with its points.
func (s *Store) Stroke(ctx context.Context, id int64) (*model.Stroke, error) {
	var stroke model.Stroke
	err := s.db.WithContext(ctx).
		Preload("Points", orderPoints).
		Where("id = ?", id).
		First(&stroke).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: stroke %d", model.ErrTransientEmpty, id)
	}
	if err != nil {
		return nil, err
	}
	if stroke.Points == nil {
		stroke.Points = []model.Point{}
	}
	return &stroke, nil
}

// StrokesSince returns the room's strokes with id > cursor, ascending, each
// with its points in insertion order.
func (s *Store) StrokesSince(ctx context.Context, roomID, cursor int64) ([]model.Stroke, error) {
	var strokes []model.Stroke
	err := s.db.WithContext(ctx).
		Preload("Points", orderPoints).
		Where("room_id = ? AND id > ?", roomID, cursor).
		Order("id ASC").
		Find(&strokes).Error
	if err != nil {
		return nil, err
	}
	return normalize(strokes), nil
}

// CountStrokes returns how many strokes a room has.
func (s *Store) CountStrokes(ctx context.Context, roomID int64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Stroke{}).Where("room_id = ?", roomID).Count(&n).Error
	return n, err
}

type roomActivity struct {
	RoomID int64
	MaxID  int64
}

// RecentRooms returns up to limit rooms ordered by their newest stroke,
// newest first, each with its full stroke history. Rooms without strokes are
// not listed.
func (s *Store) RecentRooms(ctx context.Context, limit int) ([]model.Room, error) {
	var acts []roomActivity
	err := s.db.WithContext(ctx).
		Model(&model.Stroke{}).
		Select("room_id, MAX(id) AS max_id").
		Group("room_id").
		Order("max_id DESC").
		Limit(limit).
		Scan(&acts).Error
	if err != nil {
		return nil, err
	}
	if len(acts) == 0 {
		return []model.Room{}, nil
	}

	ids := make([]int64, len(acts))
	rank := make(map[int64]int, len(acts))
	for i, a := range acts {
		ids[i] = a.RoomID
		rank[a.RoomID] = i
	}

	var found []model.Room
	err = s.db.WithContext(ctx).
		Preload("Strokes", func(db *gorm.DB) *gorm.DB { return db.Order("strokes.id ASC") }).
		Preload("Strokes.Points", orderPoints).
		Where("id IN ?", ids).
		Find(&found).Error
	if err != nil {
		return nil, err
	}

	rooms := make([]model.Room, len(acts))
	for _, r := range found {
		r.Strokes = normalize(r.Strokes)
		r.StrokeCount = len(r.Strokes)
		rooms[rank[r.ID]] = r
	}
	// a room row missing for a stroke's room_id leaves a zero entry; drop it
	out := rooms[:0]
	for _, r := range rooms {
		if r.ID != 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

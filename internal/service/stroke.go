package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"realtime-canvas/internal/fanout"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/store"
)

// SubmitStrokeRequest 획 제출 요청
type SubmitStrokeRequest struct {
	Width  int           `json:"width"`
	Red    int           `json:"red"`
	Green  int           `json:"green"`
	Blue   int           `json:"blue"`
	Alpha  int           `json:"alpha"`
	Points []model.Coord `json:"points"`
}

// Color returns the request's RGBA channels.
func (r SubmitStrokeRequest) Color() model.Color {
	return model.Color{Red: r.Red, Green: r.Green, Blue: r.Blue, Alpha: r.Alpha}
}

// StrokeService validates and commits strokes, then wakes the room's
// streams. Writers never wait on the streams themselves.
type StrokeService struct {
	store *store.Store
	bus   fanout.Bus
	log   *zap.Logger
}

// NewStrokeService StrokeService 생성
func NewStrokeService(st *store.Store, bus fanout.Bus, log *zap.Logger) *StrokeService {
	return &StrokeService{store: st, bus: bus, log: log.Named("ingest")}
}

// Submit validates, commits and announces a stroke, returning it with its
// points. Only the room's first stroke is restricted to the owner token.
func (s *StrokeService) Submit(ctx context.Context, roomID, tokenID int64, req SubmitStrokeRequest) (*model.Stroke, error) {
	if req.Width <= 0 || len(req.Points) == 0 {
		return nil, fmt.Errorf("%w: width and points are required", model.ErrMalformedRequest)
	}
	if !req.Color().Valid() {
		return nil, fmt.Errorf("%w: color channels must be within 0-255", model.ErrMalformedRequest)
	}

	if _, err := s.store.Room(ctx, roomID); err != nil {
		return nil, err
	}

	count, err := s.store.CountStrokes(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		owner, err := s.store.IsRoomOwner(ctx, roomID, tokenID)
		if err != nil {
			return nil, err
		}
		if !owner {
			return nil, model.ErrOwnershipViolation
		}
	}

	stroke, err := s.store.AppendStroke(ctx, roomID, req.Width, req.Color(), req.Points)
	if err != nil {
		s.log.Error("append stroke", zap.Int64("room_id", roomID), zap.Error(err))
		return nil, err
	}

	// payload is advisory; subscribers re-read the log from their cursor
	payload, err := json.Marshal(stroke)
	if err != nil {
		s.log.Warn("encode stroke notification", zap.Int64("stroke_id", stroke.ID), zap.Error(err))
		payload = nil
	}
	if err := s.bus.Publish(ctx, roomID, payload); err != nil {
		s.log.Warn("publish stroke notification",
			zap.Int64("room_id", roomID),
			zap.Int64("stroke_id", stroke.ID),
			zap.Error(err),
		)
	}

	return stroke, nil
}

// Package store is the relational side of the canvas: the durable stroke
// log plus the rooms, tokens and ownership tables it is scoped by.
package store

import (
	"gorm.io/gorm"

	"realtime-canvas/internal/model"
)

// Store wraps a gorm handle. All reads order by primary key ascending.
type Store struct {
	db *gorm.DB
}

// New creates a Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func orderPoints(db *gorm.DB) *gorm.DB {
	return db.Order("points.id ASC")
}

// normalize makes nil point slices encode as [] rather than null.
func normalize(strokes []model.Stroke) []model.Stroke {
	if strokes == nil {
		return []model.Stroke{}
	}
	for i := range strokes {
		if strokes[i].Points == nil {
			strokes[i].Points = []model.Point{}
		}
	}
	return strokes
}

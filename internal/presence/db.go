package presence

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"realtime-canvas/internal/model"
)

// DBTracker keeps leases in the room_watchers table.
type DBTracker struct {
	db    *gorm.DB
	clock clock.Clock
	ttl   time.Duration
}

var _ Tracker = (*DBTracker)(nil)

// NewDBTracker 생성자
func NewDBTracker(db *gorm.DB, clk clock.Clock) *DBTracker {
	return &DBTracker{db: db, clock: clk, ttl: LeaseTTL}
}

// Heartbeat upserts room_watchers.updated_at = now.
func (t *DBTracker) Heartbeat(ctx context.Context, roomID, tokenID int64) error {
	now := t.clock.Now().UTC()
	lease := model.RoomWatcher{
		RoomID:    roomID,
		TokenID:   tokenID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "token_id"}},
			DoUpdates: clause.Assignments(map[string]any{"updated_at": now}),
		}).
		Create(&lease).Error
}

// ActiveCount counts leases with updated_at inside the TTL window.
func (t *DBTracker) ActiveCount(ctx context.Context, roomID int64) (int, error) {
	since := t.clock.Now().UTC().Add(-t.ttl)
	var n int64
	err := t.db.WithContext(ctx).
		Model(&model.RoomWatcher{}).
		Where("room_id = ? AND updated_at > ?", roomID, since).
		Count(&n).Error
	return int(n), err
}

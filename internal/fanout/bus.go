// Package fanout is the per-room wake-up channel between stroke ingest and
// stream sessions. Notifications carry no authoritative data: subscribers
// only learn that something changed and re-read the stroke log themselves,
// so lost, duplicated or coalesced notifications are harmless.
package fanout

import (
	"context"
	"fmt"
)

// Bus publishes and subscribes to room topics.
type Bus interface {
	Publish(ctx context.Context, roomID int64, payload []byte) error
	Subscribe(ctx context.Context, roomID int64) (Subscription, error)
}

// Subscription delivers wake-ups until closed. Bursts are coalesced into a
// single pending wake-up. C is closed once the subscription ends.
type Subscription interface {
	C() <-chan struct{}
	Close() error
}

// Topic returns the channel name for a room.
func Topic(roomID int64) string {
	return fmt.Sprintf("/rooms/%d", roomID)
}

// notify performs a non-blocking send so a slow subscriber never stalls the
// publisher; one pending wake-up is enough to trigger a full re-sync.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

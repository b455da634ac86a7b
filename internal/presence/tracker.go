// Package presence tracks who is watching a room with heartbeat leases.
// There is no leave operation: a viewer stops counting once its lease is
// older than LeaseTTL, and stale leases are left in place.
package presence

import (
	"context"
	"time"
)

// LeaseTTL is how long a heartbeat keeps a viewer counted.
const LeaseTTL = 3 * time.Second

// Tracker records heartbeats and counts active leases.
type Tracker interface {
	// Heartbeat upserts the (room, token) lease with the current time.
	Heartbeat(ctx context.Context, roomID, tokenID int64) error
	// ActiveCount counts the room's leases refreshed within LeaseTTL.
	ActiveCount(ctx context.Context, roomID int64) (int, error)
}

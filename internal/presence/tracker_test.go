package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"

	"realtime-canvas/internal/database/dbtest"
)

func newMockClock() *clock.Mock {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	return mock
}

type trackerFactory func(t *testing.T, clk clock.Clock) Tracker

func trackers() map[string]trackerFactory {
	return map[string]trackerFactory{
		"db": func(t *testing.T, clk clock.Clock) Tracker {
			return NewDBTracker(dbtest.Open(t), clk)
		},
		"redis": func(t *testing.T, clk clock.Clock) Tracker {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewRedisTracker(client, clk)
		},
	}
}

func mustCount(t *testing.T, tr Tracker, roomID int64) int {
	t.Helper()
	n, err := tr.ActiveCount(context.Background(), roomID)
	if err != nil {
		t.Fatalf("active count: %v", err)
	}
	return n
}

func TestLeaseExpiresAfterTTL(t *testing.T) {
	for name, factory := range trackers() {
		t.Run(name, func(t *testing.T) {
			clk := newMockClock()
			tr := factory(t, clk)
			ctx := context.Background()

			if err := tr.Heartbeat(ctx, 1, 10); err != nil {
				t.Fatalf("heartbeat: %v", err)
			}
			clk.Add(2900 * time.Millisecond)
			if n := mustCount(t, tr, 1); n != 1 {
				t.Fatalf("at T+2.9s: want 1, got %d", n)
			}
			clk.Add(200 * time.Millisecond)
			if n := mustCount(t, tr, 1); n != 0 {
				t.Fatalf("at T+3.1s: want 0, got %d", n)
			}
		})
	}
}

func TestHeartbeatIsIdempotentPerToken(t *testing.T) {
	for name, factory := range trackers() {
		t.Run(name, func(t *testing.T) {
			clk := newMockClock()
			tr := factory(t, clk)
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				if err := tr.Heartbeat(ctx, 1, 10); err != nil {
					t.Fatalf("heartbeat: %v", err)
				}
				clk.Add(time.Second)
			}
			if err := tr.Heartbeat(ctx, 1, 11); err != nil {
				t.Fatalf("heartbeat: %v", err)
			}
			if err := tr.Heartbeat(ctx, 2, 12); err != nil {
				t.Fatalf("heartbeat: %v", err)
			}

			if n := mustCount(t, tr, 1); n != 2 {
				t.Fatalf("room 1: want 2 distinct watchers, got %d", n)
			}
			if n := mustCount(t, tr, 2); n != 1 {
				t.Fatalf("room 2: want 1 watcher, got %d", n)
			}
		})
	}
}

func TestRefreshKeepsLeaseAlive(t *testing.T) {
	for name, factory := range trackers() {
		t.Run(name, func(t *testing.T) {
			clk := newMockClock()
			tr := factory(t, clk)
			ctx := context.Background()

			if err := tr.Heartbeat(ctx, 1, 10); err != nil {
				t.Fatalf("heartbeat: %v", err)
			}
			clk.Add(2 * time.Second)
			if err := tr.Heartbeat(ctx, 1, 10); err != nil {
				t.Fatalf("heartbeat: %v", err)
			}
			clk.Add(2 * time.Second)
			if n := mustCount(t, tr, 1); n != 1 {
				t.Fatalf("refreshed lease should count, got %d", n)
			}
		})
	}
}

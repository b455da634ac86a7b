package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newBuses(t *testing.T) map[string]Bus {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]Bus{
		"local": NewLocalBus(),
		"redis": NewRedisBus(client),
	}
}

func expectWake(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case _, ok := <-sub.C():
		if !ok {
			t.Fatalf("subscription closed unexpectedly")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for wake-up")
	}
}

func expectQuiet(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case <-sub.C():
		t.Fatalf("unexpected wake-up")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishWakesRoomSubscribers(t *testing.T) {
	for name, bus := range newBuses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a1, err := bus.Subscribe(ctx, 1)
			if err != nil {
				t.Fatalf("subscribe: %v", err)
			}
			defer a1.Close()
			a2, err := bus.Subscribe(ctx, 1)
			if err != nil {
				t.Fatalf("subscribe: %v", err)
			}
			defer a2.Close()
			other, err := bus.Subscribe(ctx, 2)
			if err != nil {
				t.Fatalf("subscribe: %v", err)
			}
			defer other.Close()

			if err := bus.Publish(ctx, 1, []byte(`{"ignored":true}`)); err != nil {
				t.Fatalf("publish: %v", err)
			}
			expectWake(t, a1)
			expectWake(t, a2)
			expectQuiet(t, other)
		})
	}
}

func TestBurstCoalesces(t *testing.T) {
	for name, bus := range newBuses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sub, err := bus.Subscribe(ctx, 7)
			if err != nil {
				t.Fatalf("subscribe: %v", err)
			}
			defer sub.Close()

			for i := 0; i < 10; i++ {
				if err := bus.Publish(ctx, 7, nil); err != nil {
					t.Fatalf("publish: %v", err)
				}
			}
			expectWake(t, sub)
			// at most one more pending wake-up can remain after draining one
			time.Sleep(200 * time.Millisecond)
			select {
			case <-sub.C():
			default:
			}
			expectQuiet(t, sub)
		})
	}
}

func TestCloseEndsSubscription(t *testing.T) {
	for name, bus := range newBuses(t) {
		t.Run(name, func(t *testing.T) {
			sub, err := bus.Subscribe(context.Background(), 3)
			if err != nil {
				t.Fatalf("subscribe: %v", err)
			}
			if err := sub.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
			if err := sub.Close(); err != nil {
				t.Fatalf("second close: %v", err)
			}
			select {
			case _, ok := <-sub.C():
				if ok {
					t.Fatalf("expected closed channel")
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("channel not closed")
			}
		})
	}
}

func TestLocalBusReleasesSubscribers(t *testing.T) {
	bus := NewLocalBus()
	sub, _ := bus.Subscribe(context.Background(), 9)
	if n := bus.Subscribers(9); n != 1 {
		t.Fatalf("want 1 subscriber, got %d", n)
	}
	_ = sub.Close()
	if n := bus.Subscribers(9); n != 0 {
		t.Fatalf("want 0 subscribers, got %d", n)
	}
	if err := bus.Publish(context.Background(), 9, nil); err != nil {
		t.Fatalf("publish to empty topic: %v", err)
	}
}

func TestTopic(t *testing.T) {
	if got := Topic(42); got != "/rooms/42" {
		t.Fatalf("topic: %s", got)
	}
}

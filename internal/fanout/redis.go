package fanout

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBus fans notifications out through Redis Pub/Sub so every server
// process sees writes made by any other.
type RedisBus struct {
	client *redis.Client
}

type redisSub struct {
	ps   *redis.PubSub
	ch   chan struct{}
	done chan struct{}
	once sync.Once
}

var _ Bus = (*RedisBus)(nil)

// NewRedisBus 생성자
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

// Publish 룸 토픽에 알림 발행
func (b *RedisBus) Publish(ctx context.Context, roomID int64, payload []byte) error {
	return b.client.Publish(ctx, Topic(roomID), payload).Err()
}

// Subscribe returns once Redis has confirmed the subscription, so a publish
// issued after Subscribe returns is never missed.
func (b *RedisBus) Subscribe(ctx context.Context, roomID int64) (Subscription, error) {
	ps := b.client.Subscribe(ctx, Topic(roomID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", Topic(roomID), err)
	}

	s := &redisSub{
		ps:   ps,
		ch:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.pump(ps.Channel())
	return s, nil
}

func (s *redisSub) pump(msgs <-chan *redis.Message) {
	defer close(s.ch)
	for {
		select {
		case <-s.done:
			return
		case _, ok := <-msgs:
			if !ok {
				return
			}
			notify(s.ch)
		}
	}
}

func (s *redisSub) C() <-chan struct{} {
	return s.ch
}

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

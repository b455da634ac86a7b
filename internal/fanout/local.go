package fanout

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// LocalBus is an in-process Bus for single-node deployments and tests.
type LocalBus struct {
	topics *xsync.MapOf[string, *localTopic]
}

type localTopic struct {
	mu   sync.RWMutex
	subs map[*localSub]struct{}
}

type localSub struct {
	topic *localTopic
	ch    chan struct{}
	once  sync.Once
}

var _ Bus = (*LocalBus)(nil)

// NewLocalBus 생성자
func NewLocalBus() *LocalBus {
	return &LocalBus{topics: xsync.NewMapOf[string, *localTopic]()}
}

func (b *LocalBus) topic(roomID int64) *localTopic {
	t, _ := b.topics.LoadOrCompute(Topic(roomID), func() *localTopic {
		return &localTopic{subs: make(map[*localSub]struct{})}
	})
	return t
}

// Publish wakes every current subscriber of the room. The payload is dropped.
func (b *LocalBus) Publish(_ context.Context, roomID int64, _ []byte) error {
	t, ok := b.topics.Load(Topic(roomID))
	if !ok {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for s := range t.subs {
		notify(s.ch)
	}
	return nil
}

// Subscribe registers a new subscriber on the room topic.
func (b *LocalBus) Subscribe(_ context.Context, roomID int64) (Subscription, error) {
	t := b.topic(roomID)
	s := &localSub{topic: t, ch: make(chan struct{}, 1)}
	t.mu.Lock()
	t.subs[s] = struct{}{}
	t.mu.Unlock()
	return s, nil
}

// Subscribers reports how many subscriptions are open on a room.
func (b *LocalBus) Subscribers(roomID int64) int {
	t, ok := b.topics.Load(Topic(roomID))
	if !ok {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

func (s *localSub) C() <-chan struct{} {
	return s.ch
}

func (s *localSub) Close() error {
	s.once.Do(func() {
		s.topic.mu.Lock()
		delete(s.topic.subs, s)
		s.topic.mu.Unlock()
		close(s.ch)
	})
	return nil
}

package stream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"realtime-canvas/internal/fanout"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/presence"
)

// TokenChecker validates anti-forgery tokens.
type TokenChecker interface {
	Check(ctx context.Context, value string) (*model.Token, error)
}

// StrokeLog is the read side of the durable stroke log.
type StrokeLog interface {
	Room(ctx context.Context, id int64) (*model.Room, error)
	StrokesSince(ctx context.Context, roomID, cursor int64) ([]model.Stroke, error)
}

// Options 세션 타이밍 설정
type Options struct {
	Lifetime       time.Duration // 0 = 무제한
	ResyncInterval time.Duration // 0 = 알림에만 의존
	Retry          time.Duration
}

// Request 스트림 요청 파라미터
type Request struct {
	RoomID int64
	Token  string
	Cursor int64
}

// Streamer runs viewer sessions: authenticate, replay past the cursor, then
// re-sync on every bus wake-up until the lifetime ends or the viewer leaves.
type Streamer struct {
	tokens   TokenChecker
	strokes  StrokeLog
	presence presence.Tracker
	bus      fanout.Bus
	clock    clock.Clock
	opts     Options
	log      *zap.Logger

	active atomic.Int64

	// closed is called with every finished session (tests)
	closed func(*Session)
}

// NewStreamer 생성자
func NewStreamer(tokens TokenChecker, strokes StrokeLog, tracker presence.Tracker, bus fanout.Bus, clk clock.Clock, opts Options, log *zap.Logger) *Streamer {
	return &Streamer{
		tokens:   tokens,
		strokes:  strokes,
		presence: tracker,
		bus:      bus,
		clock:    clk,
		opts:     opts,
		log:      log.Named("stream"),
	}
}

// Active 현재 열려 있는 세션 수
func (s *Streamer) Active() int64 {
	return s.active.Load()
}

// Run serves one session to completion. Bad tokens and unknown rooms end
// with a single bad_request event and a nil error. Otherwise a non-nil
// error is either ErrViewerGone or a backing store failure.
func (s *Streamer) Run(ctx context.Context, req Request, sink Sink) error {
	sess := newSession(req.RoomID, req.Cursor, s.clock.Now())
	log := s.log.With(zap.String("session_id", sess.ID), zap.Int64("room_id", req.RoomID))

	s.active.Add(1)
	defer s.active.Add(-1)
	defer func() {
		log.Debug("session finished", zap.Stringer("state", sess.State()))
		if s.closed != nil {
			s.closed(sess)
		}
	}()
	defer sess.transition(StateClosed)

	sink = viewerSink{sink}

	token, err := s.authenticate(ctx, req)
	if err != nil {
		if msg, ok := rejection(err); ok {
			sess.transition(StateRejected)
			log.Debug("stream rejected", zap.Error(err))
			return sink.Send(badRequestEvent(msg))
		}
		return err
	}
	sess.setToken(token.ID)

	// subscribe before replay so a stroke committed during replay still wakes us
	sub, err := s.bus.Subscribe(ctx, req.RoomID)
	if err != nil {
		return fmt.Errorf("subscribe room %d: %w", req.RoomID, err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Warn("close subscription", zap.Error(err))
		}
		log.Debug("stream closed",
			zap.Int64("cursor", sess.Cursor()),
			zap.Int("strokes_sent", sess.StrokesSent()),
			zap.Duration("duration", s.clock.Since(sess.ConnectedAt)),
		)
	}()

	var expired <-chan time.Time
	if s.opts.Lifetime > 0 {
		timer := s.clock.Timer(s.opts.Lifetime)
		defer timer.Stop()
		expired = timer.C
	}
	var resync <-chan time.Time
	if s.opts.ResyncInterval > 0 {
		ticker := s.clock.Ticker(s.opts.ResyncInterval)
		defer ticker.Stop()
		resync = ticker.C
	}

	sess.transition(StateReplaying)
	if err := s.replay(ctx, sess, sink); err != nil {
		return ignoreCancel(ctx, err)
	}

	sess.transition(StateTailing)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-expired:
			return nil
		case _, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := s.sync(ctx, sess, sink); err != nil {
				return ignoreCancel(ctx, err)
			}
		case <-resync:
			if err := s.sync(ctx, sess, sink); err != nil {
				return ignoreCancel(ctx, err)
			}
			if err := sink.Keepalive(); err != nil {
				return err
			}
		}
	}
}

func (s *Streamer) authenticate(ctx context.Context, req Request) (*model.Token, error) {
	token, err := s.tokens.Check(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if _, err := s.strokes.Room(ctx, req.RoomID); err != nil {
		return nil, err
	}
	return token, nil
}

// replay sends the retry hint and current watcher count, then everything
// past the cursor.
func (s *Streamer) replay(ctx context.Context, sess *Session, sink Sink) error {
	if err := sink.Retry(s.opts.Retry); err != nil {
		return err
	}
	if err := s.presence.Heartbeat(ctx, sess.RoomID, sess.TokenID()); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	count, err := s.presence.ActiveCount(ctx, sess.RoomID)
	if err != nil {
		return fmt.Errorf("watcher count: %w", err)
	}
	sess.watchersChanged(count)
	if err := sink.Send(watcherCountEvent(count)); err != nil {
		return err
	}
	return s.emitStrokes(ctx, sess, sink)
}

// sync is the per-wake-up step: strokes first, then the lease refresh and
// a watcher_count only when it moved.
func (s *Streamer) sync(ctx context.Context, sess *Session, sink Sink) error {
	if err := s.emitStrokes(ctx, sess, sink); err != nil {
		return err
	}
	if err := s.presence.Heartbeat(ctx, sess.RoomID, sess.TokenID()); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	count, err := s.presence.ActiveCount(ctx, sess.RoomID)
	if err != nil {
		return fmt.Errorf("watcher count: %w", err)
	}
	if sess.watchersChanged(count) {
		return sink.Send(watcherCountEvent(count))
	}
	return nil
}

func (s *Streamer) emitStrokes(ctx context.Context, sess *Session, sink Sink) error {
	strokes, err := s.strokes.StrokesSince(ctx, sess.RoomID, sess.Cursor())
	if err != nil {
		return fmt.Errorf("strokes since %d: %w", sess.Cursor(), err)
	}
	for _, st := range strokes {
		if err := sink.Send(strokeEvent(st)); err != nil {
			return err
		}
		sess.advance(st.ID)
	}
	return nil
}

// ErrViewerGone wraps sink write failures: the client disconnected.
var ErrViewerGone = errors.New("viewer gone")

type viewerSink struct {
	Sink
}

func (v viewerSink) Retry(d time.Duration) error {
	return viewerGone(v.Sink.Retry(d))
}

func (v viewerSink) Send(ev Event) error {
	return viewerGone(v.Sink.Send(ev))
}

func (v viewerSink) Keepalive() error {
	return viewerGone(v.Sink.Keepalive())
}

func viewerGone(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrViewerGone, err)
}

// rejection maps authentication failures to the bad_request message.
func rejection(err error) (string, bool) {
	switch {
	case errors.Is(err, model.ErrTokenInvalid):
		return "bad token", true
	case errors.Is(err, model.ErrRoomNotFound):
		return "bad room", true
	default:
		return "", false
	}
}

func ignoreCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

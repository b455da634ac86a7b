package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"realtime-canvas/internal/database/dbtest"
	"realtime-canvas/internal/fanout"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/presence"
	"realtime-canvas/internal/store"
)

type fixture struct {
	store   *store.Store
	clock   *clock.Mock
	bus     *fanout.LocalBus
	tokens  *TokenService
	rooms   *RoomService
	strokes *StrokeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	st := store.New(db)
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	bus := fanout.NewLocalBus()
	return &fixture{
		store:   st,
		clock:   clk,
		bus:     bus,
		tokens:  NewTokenService(st, clk, 24*time.Hour),
		rooms:   NewRoomService(st, presence.NewDBTracker(db, clk), 100),
		strokes: NewStrokeService(st, bus, zap.NewNop()),
	}
}

func (f *fixture) issue(t *testing.T) *model.Token {
	t.Helper()
	tok, err := f.tokens.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func (f *fixture) room(t *testing.T, owner *model.Token) *model.Room {
	t.Helper()
	room, err := f.rooms.Create(context.Background(), owner.ID, CreateRoomRequest{Name: "R", CanvasWidth: 640, CanvasHeight: 480})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func line() SubmitStrokeRequest {
	return SubmitStrokeRequest{
		Width:  4,
		Red:    10,
		Green:  20,
		Blue:   30,
		Alpha:  255,
		Points: []model.Coord{{X: 1, Y: 1}, {X: 2, Y: 3}},
	}
}

func TestTokenIssueAndCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tok := f.issue(t)
	if len(tok.CSRFToken) != 64 {
		t.Fatalf("token should be 64 hex chars, got %q", tok.CSRFToken)
	}
	if other := f.issue(t); other.CSRFToken == tok.CSRFToken {
		t.Fatalf("tokens should be unique")
	}

	got, err := f.tokens.Check(ctx, tok.CSRFToken)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if got.ID != tok.ID {
		t.Fatalf("check returned token %d, want %d", got.ID, tok.ID)
	}

	if _, err := f.tokens.Check(ctx, ""); !errors.Is(err, model.ErrTokenInvalid) {
		t.Fatalf("empty token: %v", err)
	}
	if _, err := f.tokens.Check(ctx, "nope"); !errors.Is(err, model.ErrTokenInvalid) {
		t.Fatalf("unknown token: %v", err)
	}

	f.clock.Add(24*time.Hour + time.Second)
	if _, err := f.tokens.Check(ctx, tok.CSRFToken); !errors.Is(err, model.ErrTokenInvalid) {
		t.Fatalf("expired token: %v", err)
	}
}

func TestRoomCreateValidates(t *testing.T) {
	f := newFixture(t)
	owner := f.issue(t)

	bad := []CreateRoomRequest{
		{Name: "", CanvasWidth: 10, CanvasHeight: 10},
		{Name: "  ", CanvasWidth: 10, CanvasHeight: 10},
		{Name: "x", CanvasWidth: 0, CanvasHeight: 10},
		{Name: "x", CanvasWidth: 10, CanvasHeight: -1},
	}
	for _, req := range bad {
		if _, err := f.rooms.Create(context.Background(), owner.ID, req); !errors.Is(err, model.ErrMalformedRequest) {
			t.Fatalf("%+v: want malformed, got %v", req, err)
		}
	}
}

func TestRoomCreateKeepsName(t *testing.T) {
	f := newFixture(t)
	owner := f.issue(t)

	room, err := f.rooms.Create(context.Background(), owner.ID, CreateRoomRequest{Name: "  sketch ", CanvasWidth: 10, CanvasHeight: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stored, err := f.store.Room(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if room.Name != "  sketch " || stored.Name != "  sketch " {
		t.Fatalf("name changed: %q / %q", room.Name, stored.Name)
	}
}

func TestRoomGetIncludesWatchers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.issue(t)
	room := f.room(t, owner)

	tracker := presence.NewDBTracker(f.store.DB(), f.clock)
	if err := tracker.Heartbeat(ctx, room.ID, owner.ID); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	got, err := f.rooms.Get(ctx, room.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.WatcherCount != 1 {
		t.Fatalf("watcher_count = %d, want 1", got.WatcherCount)
	}
	if got.Strokes == nil {
		t.Fatalf("strokes should be an empty list, not nil")
	}

	if _, err := f.rooms.Get(ctx, room.ID+100); !errors.Is(err, model.ErrRoomNotFound) {
		t.Fatalf("missing room: %v", err)
	}
}

func TestSubmitFirstStrokeOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.issue(t)
	guest := f.issue(t)
	room := f.room(t, owner)

	if _, err := f.strokes.Submit(ctx, room.ID, guest.ID, line()); !errors.Is(err, model.ErrOwnershipViolation) {
		t.Fatalf("guest first stroke: %v", err)
	}
	if n, _ := f.store.CountStrokes(ctx, room.ID); n != 0 {
		t.Fatalf("rejected stroke was stored")
	}

	first, err := f.strokes.Submit(ctx, room.ID, owner.ID, line())
	if err != nil {
		t.Fatalf("owner first stroke: %v", err)
	}
	if len(first.Points) != 2 {
		t.Fatalf("points not returned: %+v", first)
	}

	second, err := f.strokes.Submit(ctx, room.ID, guest.ID, line())
	if err != nil {
		t.Fatalf("guest second stroke: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("ids not increasing: %d then %d", first.ID, second.ID)
	}
}

func TestSubmitRejectsMalformed(t *testing.T) {
	f := newFixture(t)
	owner := f.issue(t)
	room := f.room(t, owner)

	cases := map[string]func(r *SubmitStrokeRequest){
		"zero width":  func(r *SubmitStrokeRequest) { r.Width = 0 },
		"no points":   func(r *SubmitStrokeRequest) { r.Points = nil },
		"bad channel": func(r *SubmitStrokeRequest) { r.Red = 256 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := line()
			mutate(&req)
			if _, err := f.strokes.Submit(context.Background(), room.ID, owner.ID, req); !errors.Is(err, model.ErrMalformedRequest) {
				t.Fatalf("want malformed, got %v", err)
			}
		})
	}
}

func TestSubmitUnknownRoom(t *testing.T) {
	f := newFixture(t)
	owner := f.issue(t)
	if _, err := f.strokes.Submit(context.Background(), 999, owner.ID, line()); !errors.Is(err, model.ErrRoomNotFound) {
		t.Fatalf("want room not found, got %v", err)
	}
}

func TestSubmitWakesSubscribers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.issue(t)
	room := f.room(t, owner)
	other := f.room(t, owner)

	sub, err := f.bus.Subscribe(ctx, room.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(func() { _ = sub.Close() })
	quiet, err := f.bus.Subscribe(ctx, other.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(func() { _ = quiet.Close() })

	if _, err := f.strokes.Submit(ctx, room.ID, owner.ID, line()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case <-sub.C():
	case <-time.After(time.Second):
		t.Fatalf("subscriber was not woken")
	}
	select {
	case <-quiet.C():
		t.Fatalf("other room should not be woken")
	default:
	}
}

type failingBus struct {
	fanout.Bus
	published int
}

func (b *failingBus) Publish(context.Context, int64, []byte) error {
	b.published++
	return errors.New("bus down")
}

func TestSubmitSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.issue(t)
	room := f.room(t, owner)

	bus := &failingBus{}
	svc := NewStrokeService(f.store, bus, zap.NewNop())
	stroke, err := svc.Submit(ctx, room.ID, owner.ID, line())
	if err != nil {
		t.Fatalf("publish failure should not fail the write: %v", err)
	}
	if bus.published != 1 {
		t.Fatalf("published %d times", bus.published)
	}
	if _, err := f.store.Stroke(ctx, stroke.ID); err != nil {
		t.Fatalf("stroke not committed: %v", err)
	}
}

func TestSubmitWriteFailureDoesNotPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.issue(t)
	room := f.room(t, owner)

	if err := f.store.DB().Migrator().DropTable(&model.Point{}); err != nil {
		t.Fatalf("drop points: %v", err)
	}

	bus := &failingBus{}
	svc := NewStrokeService(f.store, bus, zap.NewNop())
	if _, err := svc.Submit(ctx, room.ID, owner.ID, line()); !errors.Is(err, model.ErrWriteFailure) {
		t.Fatalf("want write failure, got %v", err)
	}
	if bus.published != 0 {
		t.Fatalf("failed write must not publish")
	}
	if n, _ := f.store.CountStrokes(ctx, room.ID); n != 0 {
		t.Fatalf("partial stroke left behind: %d", n)
	}
}

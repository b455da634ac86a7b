package stream

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"realtime-canvas/internal/model"
)

func TestWriteEventStroke(t *testing.T) {
	st := model.Stroke{ID: 42, RoomID: 7, Width: 3, Alpha: 255, Points: []model.Point{{ID: 1, StrokeID: 42, X: 10, Y: 10}}}

	var buf bytes.Buffer
	if err := WriteEvent(&buf, strokeEvent(st)); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "id:42\nevent:stroke\ndata:{") {
		t.Fatalf("unexpected framing: %q", out)
	}
	if !strings.HasSuffix(out, "}\n\n") {
		t.Fatalf("message must end with a blank line: %q", out)
	}

	data := strings.TrimSuffix(strings.TrimPrefix(out, "id:42\nevent:stroke\ndata:"), "\n\n")
	var got model.Stroke
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("data is not a stroke: %v", err)
	}
	if got.ID != 42 || got.Width != 3 || len(got.Points) != 1 {
		t.Fatalf("decoded %+v", got)
	}
}

func TestWriteEventWithoutID(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{watcherCountEvent(3), "event:watcher_count\ndata:3\n\n"},
		{badRequestEvent("bad token"), "event:bad_request\ndata:bad token\n\n"},
		{badRequestEvent("two\nlines"), "event:bad_request\ndata:two lines\n\n"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		if err := WriteEvent(&buf, tc.ev); err != nil {
			t.Fatalf("write: %v", err)
		}
		if buf.String() != tc.want {
			t.Fatalf("got %q want %q", buf.String(), tc.want)
		}
	}
}

func TestWriteRetry(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRetry(&buf, 1500*time.Millisecond); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "retry:1500\n\n" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestEncodeFrame(t *testing.T) {
	b, err := EncodeFrame(watcherCountEvent(2))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(b) != `{"event":"watcher_count","data":2}` {
		t.Fatalf("got %s", b)
	}

	b, err = EncodeFrame(strokeEvent(model.Stroke{ID: 9, Points: []model.Point{}}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var frame struct {
		Event string       `json:"event"`
		ID    int64        `json:"id"`
		Data  model.Stroke `json:"data"`
	}
	if err := json.Unmarshal(b, &frame); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Event != "stroke" || frame.ID != 9 || frame.Data.ID != 9 {
		t.Fatalf("frame %+v", frame)
	}
}

func TestStateTerminal(t *testing.T) {
	sess := newSession(1, 0, time.Now())
	sess.transition(StateRejected)
	sess.transition(StateTailing)
	if sess.State() != StateRejected {
		t.Fatalf("terminal state was left: %s", sess.State())
	}
}

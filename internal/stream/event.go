package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"realtime-canvas/internal/model"
)

// Event one message sent to a viewer
type Event struct {
	Name model.StreamEvent
	ID   int64 // stroke 이벤트에만 설정 (resume cursor)
	Data any
}

// Sink is the transport a session writes to. Every call must reach the
// client before it returns; an error means the viewer is gone.
type Sink interface {
	Retry(d time.Duration) error
	Send(ev Event) error
	Keepalive() error
}

func watcherCountEvent(n int) Event {
	return Event{Name: model.StreamEventWatcherCount, Data: n}
}

func strokeEvent(s model.Stroke) Event {
	return Event{Name: model.StreamEventStroke, ID: s.ID, Data: s}
}

func badRequestEvent(msg string) Event {
	return Event{Name: model.StreamEventBadRequest, Data: msg}
}

// payload renders event data as a single line: integers and strings as
// text, everything else as JSON.
func payload(data any) (string, error) {
	switch v := data.(type) {
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case string:
		return strings.ReplaceAll(v, "\n", " "), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode %T: %w", data, err)
		}
		return string(b), nil
	}
}

// WriteRetry writes the reconnect delay hint in milliseconds.
func WriteRetry(w io.Writer, d time.Duration) error {
	_, err := fmt.Fprintf(w, "retry:%d\n\n", d.Milliseconds())
	return err
}

// WriteEvent writes one text/event-stream message.
func WriteEvent(w io.Writer, ev Event) error {
	data, err := payload(ev.Data)
	if err != nil {
		return err
	}
	var b strings.Builder
	if ev.ID > 0 {
		b.WriteString("id:")
		b.WriteString(strconv.FormatInt(ev.ID, 10))
		b.WriteByte('\n')
	}
	b.WriteString("event:")
	b.WriteString(ev.Name.String())
	b.WriteString("\ndata:")
	b.WriteString(data)
	b.WriteString("\n\n")
	_, err = io.WriteString(w, b.String())
	return err
}

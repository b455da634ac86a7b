package stream

import (
	"bufio"
	"time"
)

// SSESink writes text/event-stream messages to a fasthttp body stream.
type SSESink struct {
	w *bufio.Writer
}

var _ Sink = (*SSESink)(nil)

// NewSSESink 생성자
func NewSSESink(w *bufio.Writer) *SSESink {
	return &SSESink{w: w}
}

func (s *SSESink) Retry(d time.Duration) error {
	if err := WriteRetry(s.w, d); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *SSESink) Send(ev Event) error {
	if err := WriteEvent(s.w, ev); err != nil {
		return err
	}
	return s.w.Flush()
}

// Keepalive writes an SSE comment line. Flushing it is the only way to
// notice a viewer that went away without closing.
func (s *SSESink) Keepalive() error {
	if _, err := s.w.WriteString(":\n\n"); err != nil {
		return err
	}
	return s.w.Flush()
}

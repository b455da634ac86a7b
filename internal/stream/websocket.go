package stream

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// wsFrame WebSocket 전송 프레임
type wsFrame struct {
	Event string          `json:"event"`
	ID    int64           `json:"id,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// WSSink sends events as JSON text frames.
type WSSink struct {
	conn *websocket.Conn
	mu   sync.Mutex // WebSocket 쓰기 동기화
}

var _ Sink = (*WSSink)(nil)

// NewWSSink 생성자
func NewWSSink(conn *websocket.Conn) *WSSink {
	return &WSSink{conn: conn}
}

// EncodeFrame renders an event as a WebSocket JSON frame.
func EncodeFrame(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wsFrame{Event: ev.Name.String(), ID: ev.ID, Data: data})
}

func (s *WSSink) write(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *WSSink) Retry(d time.Duration) error {
	msg, err := json.Marshal(map[string]any{"event": "retry", "data": d.Milliseconds()})
	if err != nil {
		return err
	}
	return s.write(msg)
}

func (s *WSSink) Send(ev Event) error {
	msg, err := EncodeFrame(ev)
	if err != nil {
		return err
	}
	return s.write(msg)
}

func (s *WSSink) Keepalive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

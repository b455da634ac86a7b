package stream

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State 스트림 세션 상태
type State int

const (
	StateAuthenticating State = iota // 토큰/방 확인 중
	StateReplaying                   // cursor 이후 획 재전송
	StateTailing                     // 알림 대기
	StateClosed                      // 정상 종료
	StateRejected                    // 인증 실패로 종료
)

// String 상태를 문자열로 반환
func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateReplaying:
		return "replaying"
	case StateTailing:
		return "tailing"
	case StateClosed:
		return "closed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateRejected
}

// Session 한 시청자 연결의 상태 (Thread-Safe)
type Session struct {
	ID          string
	RoomID      int64
	ConnectedAt time.Time

	mu           sync.RWMutex
	state        State
	tokenID      int64
	cursor       int64
	lastWatchers int // -1 = 아직 전송 안 함
	strokesSent  int
}

func newSession(roomID, cursor int64, now time.Time) *Session {
	return &Session{
		ID:           uuid.New().String(),
		RoomID:       roomID,
		ConnectedAt:  now,
		state:        StateAuthenticating,
		cursor:       cursor,
		lastWatchers: -1,
	}
}

// transition moves to next unless the session already terminated.
func (s *Session) transition(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return
	}
	s.state = next
}

// State 현재 상태 조회
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *Session) setToken(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokenID = id
}

// TokenID 인증된 토큰 ID
func (s *Session) TokenID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tokenID
}

// Cursor highest stroke id delivered so far
func (s *Session) Cursor() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cursor
}

func (s *Session) advance(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id > s.cursor {
		s.cursor = id
	}
	s.strokesSent++
}

// watchersChanged records n and reports whether it differs from the last
// value sent.
func (s *Session) watchersChanged(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n == s.lastWatchers {
		return false
	}
	s.lastWatchers = n
	return true
}

// StrokesSent 전송한 획 수
func (s *Session) StrokesSent() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.strokesSent
}

package model

// StreamEvent 스트림 이벤트 이름
type StreamEvent string

const (
	StreamEventWatcherCount StreamEvent = "watcher_count"
	StreamEventStroke       StreamEvent = "stroke"
	StreamEventBadRequest   StreamEvent = "bad_request"
)

func (e StreamEvent) String() string {
	return string(e)
}

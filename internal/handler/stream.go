package handler

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"realtime-canvas/internal/stream"
)

const localsStreamRequest = "streamRequest"

// StreamHandler 실시간 스트림 핸들러 (SSE / WebSocket)
type StreamHandler struct {
	streamer *stream.Streamer
	baseCtx  context.Context // 서버 종료 시 취소됨
	log      *zap.Logger
}

// NewStreamHandler StreamHandler 생성
func NewStreamHandler(baseCtx context.Context, streamer *stream.Streamer, log *zap.Logger) *StreamHandler {
	return &StreamHandler{streamer: streamer, baseCtx: baseCtx, log: log}
}

// streamRequest reads everything the session needs from the request. The
// fiber context must not be touched once the handler returns.
func streamRequest(c *fiber.Ctx) stream.Request {
	id, _ := roomID(c)

	last := strings.TrimSpace(c.Get("Last-Event-ID"))
	if last == "" {
		last = c.Query("last_event_id")
	}
	cursor, err := strconv.ParseInt(last, 10, 64)
	if err != nil || cursor < 0 {
		cursor = 0
	}

	return stream.Request{
		RoomID: id,
		Token:  c.Query("csrf_token"),
		Cursor: cursor,
	}
}

// SSE text/event-stream 세션
// GET /api/stream/rooms/:id
func (h *StreamHandler) SSE(c *fiber.Ctx) error {
	req := streamRequest(c)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := h.baseCtx
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		h.finish(req, h.streamer.Run(ctx, req, stream.NewSSESink(w)))
	})
	return nil
}

// Upgrade WebSocket 업그레이드 확인 및 요청 파라미터 저장
func (h *StreamHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(localsStreamRequest, streamRequest(c))
	return c.Next()
}

// WebSocket 같은 세션을 JSON 프레임으로 전송
// GET /ws/stream/rooms/:id
func (h *StreamHandler) WebSocket(conn *websocket.Conn) {
	req, _ := conn.Locals(localsStreamRequest).(stream.Request)

	ctx, cancel := context.WithCancel(h.baseCtx)
	defer cancel()
	defer func() {
		if err := conn.Close(); err != nil {
			h.log.Debug("close websocket", zap.Error(err))
		}
	}()

	// 클라이언트 메시지는 무시, 연결 종료 감지용
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.finish(req, h.streamer.Run(ctx, req, stream.NewWSSink(conn)))
}

func (h *StreamHandler) finish(req stream.Request, err error) {
	switch {
	case err == nil:
	case errors.Is(err, stream.ErrViewerGone):
		h.log.Debug("viewer disconnected", zap.Int64("room_id", req.RoomID), zap.Error(err))
	default:
		h.log.Warn("stream ended with error", zap.Int64("room_id", req.RoomID), zap.Error(err))
	}
}

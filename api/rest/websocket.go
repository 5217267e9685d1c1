package rest

import (
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"yqhp/calc-engine/pkg/logger"
)

// Stream message types.
const (
	StreamResult = "result"
	StreamError  = "error"
)

// StreamMessage is sent for every frame a client submits on the evaluation
// stream. Seq counts frames per connection starting at 1.
type StreamMessage struct {
	Type      string                   `json:"type"`
	Seq       int64                    `json:"seq"`
	Timestamp string                   `json:"timestamp"`
	Result    *EvaluateResponse        `json:"result,omitempty"`
	Error     *ExpressionErrorResponse `json:"error,omitempty"`
}

// EvaluationStreamer evaluates expressions sent over WebSocket connections.
// A frame is either a JSON EvaluateRequest or a bare expression.
type EvaluationStreamer struct {
	server *Server

	connections map[*websocket.Conn]struct{}
	mu          sync.RWMutex
}

// NewEvaluationStreamer creates a new evaluation streamer.
func NewEvaluationStreamer(server *Server) *EvaluationStreamer {
	return &EvaluationStreamer{
		server:      server,
		connections: make(map[*websocket.Conn]struct{}),
	}
}

// setupWebSocketRoutes sets up WebSocket routes.
func (s *Server) setupWebSocketRoutes() {
	if !s.config.EnableWebSocket {
		return
	}

	s.streamer = NewEvaluationStreamer(s)
	s.app.Use("/api/v1/stream", requireUpgrade)
	s.app.Get("/api/v1/stream", websocket.New(s.streamer.handleStream))
}

// requireUpgrade rejects plain HTTP requests to the stream endpoint.
func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// ActiveConnections returns the number of open streams.
func (es *EvaluationStreamer) ActiveConnections() int {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return len(es.connections)
}

func (es *EvaluationStreamer) handleStream(ws *websocket.Conn) {
	es.register(ws)
	defer es.unregister(ws)

	var seq int64
	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("stream closed", zap.Error(err))
			}
			return
		}

		seq++
		msg := es.evaluate(seq, string(frame))
		data, err := sonic.Marshal(msg)
		if err != nil {
			logger.Error("failed to encode stream message", zap.Error(err))
			return
		}
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (es *EvaluationStreamer) evaluate(seq int64, frame string) StreamMessage {
	msg := StreamMessage{
		Seq:       seq,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	req := EvaluateRequest{Expression: frame}
	if trimmed := strings.TrimSpace(frame); strings.HasPrefix(trimmed, "{") {
		if err := sonic.UnmarshalString(trimmed, &req); err != nil {
			msg.Type = StreamError
			msg.Error = &ExpressionErrorResponse{Error: "invalid_request", Message: err.Error(), Position: -1}
			return msg
		}
	}

	s := es.server
	if n := len(req.Expression); s.tooLong(n) {
		msg.Type = StreamError
		msg.Error = &ExpressionErrorResponse{Error: "expression_too_long", Message: "expression exceeds the size limit", Position: -1}
		return msg
	}
	precision, err := s.precision(req.Precision)
	if err != nil {
		msg.Type = StreamError
		msg.Error = &ExpressionErrorResponse{Error: "invalid_request", Message: err.Error(), Position: -1}
		return msg
	}

	postfix, result, err := s.solve(req.Expression)
	if err != nil {
		resp, _, ok := toExpressionError(err)
		if !ok {
			resp = ExpressionErrorResponse{Error: "internal_error", Message: err.Error(), Position: -1}
		}
		msg.Type = StreamError
		msg.Error = &resp
		return msg
	}

	resp := newEvaluateResponse(req.Expression, postfix, result, precision)
	msg.Type = StreamResult
	msg.Result = &resp
	return msg
}

func (es *EvaluationStreamer) register(ws *websocket.Conn) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.connections[ws] = struct{}{}
}

func (es *EvaluationStreamer) unregister(ws *websocket.Conn) {
	es.mu.Lock()
	defer es.mu.Unlock()
	delete(es.connections, ws)
}

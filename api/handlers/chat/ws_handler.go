package chat

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"shopassist/internal/agent/runtime"
	"shopassist/internal/logger"
	"shopassist/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsReadLimit    = 16 * 1024
	wsIdleTimeout  = 5 * time.Minute
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// WebSocketHandler 长连接对话，一个连接绑定一个会话
type WebSocketHandler struct {
	assistant         Assistant
	upgrader          websocket.Upgrader
	keepAliveInterval time.Duration
}

// NewWebSocketHandler 创建处理器
func NewWebSocketHandler(assistant Assistant) *WebSocketHandler {
	return &WebSocketHandler{
		assistant:         assistant,
		keepAliveInterval: wsPingInterval,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

type wsFrame struct {
	Message string `json:"message"`
}

type wsReply struct {
	Response  string `json:"response,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Connect 升级连接；可通过 ?session_id= 续接已有会话
// @Summary WebSocket 对话
// @Tags Chat
// @Param session_id query string false "会话 ID"
// @Router /chat/ws [get]
func (h *WebSocketHandler) Connect(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID != "" {
		if _, err := uuid.Parse(sessionID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": runtime.ErrInvalidSession.Error()})
			return
		}
	}
	userID := currentUserID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	metrics.ChatSessionsActive.Inc()
	defer func() {
		metrics.ChatSessionsActive.Dec()
		_ = conn.Close()
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	})

	// 心跳与回复共用连接，写操作需加锁
	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(v)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(h.keepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	// 请求上下文在连接期间保持有效，同一连接内逐条处理
	ctx := c.Request.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithContext(ctx).Warn("WebSocket 异常断开", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			if writeErr := writeJSON(wsReply{Error: "invalid frame: expected {\"message\": ...}"}); writeErr != nil {
				return
			}
			continue
		}

		result, err := h.assistant.Chat(ctx, runtime.ChatRequest{
			SessionID: sessionID,
			Message:   frame.Message,
			UserID:    userID,
		})
		reply := wsReply{SessionID: sessionID}
		if err != nil {
			status, msg := mapError(err)
			if status == http.StatusInternalServerError {
				logger.WithContext(ctx).Error("对话处理失败", zap.Error(err))
			}
			reply.Error = msg
		} else {
			sessionID = result.SessionID
			reply = wsReply{Response: result.Response, SessionID: result.SessionID}
		}

		if err := writeJSON(reply); err != nil {
			return
		}
	}
}

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"shopassist/internal/agent/runtime"
	"shopassist/internal/ai"
	"shopassist/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoAssistant 回显用户消息并记录会话
type echoAssistant struct {
	mu       sync.Mutex
	sessions map[string][]ai.Message
	users    []uint
	chatErr  error
}

func newEchoAssistant() *echoAssistant {
	return &echoAssistant{sessions: map[string][]ai.Message{}}
}

func (e *echoAssistant) Chat(_ context.Context, req runtime.ChatRequest) (*runtime.ChatResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, runtime.ErrEmptyMessage
	}
	if e.chatErr != nil {
		return nil, e.chatErr
	}
	id := req.SessionID
	if id == "" {
		id = uuid.New().String()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, runtime.ErrInvalidSession
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	reply := "echo: " + req.Message
	e.sessions[id] = append(e.sessions[id],
		ai.Message{Role: ai.RoleUser, Content: req.Message},
		ai.Message{Role: ai.RoleAssistant, Content: reply},
	)
	e.users = append(e.users, req.UserID)
	return &runtime.ChatResult{SessionID: id, Response: reply, Outcome: runtime.OutcomeAnswered, Rounds: 1}, nil
}

func (e *echoAssistant) History(_ context.Context, id string) ([]ai.Message, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, runtime.ErrInvalidSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	msgs, ok := e.sessions[id]
	if !ok {
		return nil, runtime.ErrSessionNotFound
	}
	return msgs, nil
}

func setupChatRouter(assistant Assistant) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(assistant)
	ws := NewWebSocketHandler(assistant)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-User") != "" {
			c.Set(string(auth.UserContextKey), &auth.UserContext{UserID: 7, Roles: []string{auth.RoleCustomer}})
		}
		c.Next()
	})
	r.POST("/chat", h.Chat)
	r.GET("/chat/sessions/:id", h.History)
	r.GET("/chat/ws", ws.Connect)
	return r
}

func postChat(r http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChatContinuesSession(t *testing.T) {
	assistant := newEchoAssistant()
	r := setupChatRouter(assistant)

	w := postChat(r, `{"message": "hi"}`, map[string]string{"X-Test-User": "1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, "echo: hi", first.Response)
	require.NotEmpty(t, first.SessionID)

	w = postChat(r, `{"message": "again", "session_id": "`+first.SessionID+`"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var second Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, []uint{7, 0}, assistant.users)

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions/"+first.SessionID, nil)
	hw := httptest.NewRecorder()
	r.ServeHTTP(hw, req)
	require.Equal(t, http.StatusOK, hw.Code)
	var history HistoryResponse
	require.NoError(t, json.Unmarshal(hw.Body.Bytes(), &history))
	assert.Len(t, history.Messages, 4)
}

func TestChatErrors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		chatErr error
		status  int
		message string
	}{
		{"空消息", `{"message": "   "}`, nil, http.StatusBadRequest, "Message is required"},
		{"缺少消息", `{}`, nil, http.StatusBadRequest, "Message is required"},
		{"非法 JSON", `{`, nil, http.StatusBadRequest, "Message is required"},
		{"非法会话", `{"message": "x", "session_id": "abc"}`, nil, http.StatusBadRequest, runtime.ErrInvalidSession.Error()},
		{"存储故障", `{"message": "x"}`, errors.New("redis: connection refused"), http.StatusInternalServerError, "redis: connection refused"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assistant := newEchoAssistant()
			assistant.chatErr = tc.chatErr
			w := postChat(setupChatRouter(assistant), tc.body, nil)
			assert.Equal(t, tc.status, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.message, body["error"])
		})
	}
}

func TestHistoryErrors(t *testing.T) {
	r := setupChatRouter(newEchoAssistant())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/sessions/"+uuid.New().String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/sessions/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebSocketBindsSession(t *testing.T) {
	server := httptest.NewServer(setupChatRouter(newEchoAssistant()))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "first"}))
	var reply wsReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "echo: first", reply.Response)
	sessionID := reply.SessionID
	require.NotEmpty(t, sessionID)

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "second"}))
	reply = wsReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, sessionID, reply.SessionID)

	require.NoError(t, conn.WriteJSON(map[string]string{"message": ""}))
	reply = wsReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "Message is required", reply.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	reply = wsReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Contains(t, reply.Error, "invalid frame")
}

func TestWebSocketSendsKeepAlivePings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ws := NewWebSocketHandler(newEchoAssistant())
	ws.keepAliveInterval = 20 * time.Millisecond
	r := gin.New()
	r.GET("/chat/ws", ws.Connect)
	server := httptest.NewServer(r)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/chat/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	pings := make(chan struct{}, 8)
	conn.SetPingHandler(func(appData string) error {
		select {
		case pings <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})
	// 控制帧只在读取时处理
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-pings:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected keep-alive ping #%d", i+1)
		}
	}
}

func TestWebSocketRejectsBadSession(t *testing.T) {
	r := setupChatRouter(newEchoAssistant())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/ws?session_id=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

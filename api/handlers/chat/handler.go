package chat

import (
	"context"
	"errors"
	"net/http"

	"shopassist/internal/agent/runtime"
	"shopassist/internal/ai"
	"shopassist/internal/auth"
	"shopassist/internal/common"
	"shopassist/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Assistant 对话能力
type Assistant interface {
	Chat(ctx context.Context, req runtime.ChatRequest) (*runtime.ChatResult, error)
	History(ctx context.Context, sessionID string) ([]ai.Message, error)
}

// Handler 购物助手对话接口
type Handler struct {
	assistant Assistant
}

// NewHandler 创建对话处理器
func NewHandler(assistant Assistant) *Handler {
	return &Handler{assistant: assistant}
}

// Request 对话请求
type Request struct {
	Message   string `json:"message" example:"What categories do you have?"`
	SessionID string `json:"session_id,omitempty" example:"2f1c7a2e-8d1b-4b3e-9c55-0b6f8c1f4e21"`
}

// Response 对话响应
type Response struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// HistoryResponse 会话历史
type HistoryResponse struct {
	SessionID string       `json:"session_id"`
	Messages  []ai.Message `json:"messages"`
}

// Chat 发送一条消息
// @Summary 与购物助手对话
// @Description 不带 session_id 时新建会话，响应中返回会话 ID
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body Request true "用户消息"
// @Success 200 {object} Response
// @Failure 400 {object} common.ErrorBody
// @Failure 500 {object} common.ErrorBody
// @Router /chat [post]
func (h *Handler) Chat(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseError(c, http.StatusBadRequest, "Message is required")
		return
	}

	result, err := h.assistant.Chat(c.Request.Context(), runtime.ChatRequest{
		SessionID: req.SessionID,
		Message:   req.Message,
		UserID:    currentUserID(c),
	})
	if err != nil {
		status, msg := mapError(err)
		if status == http.StatusInternalServerError {
			logger.WithContext(c.Request.Context()).Error("对话处理失败", zap.Error(err))
		}
		common.ResponseError(c, status, msg)
		return
	}

	c.JSON(http.StatusOK, Response{Response: result.Response, SessionID: result.SessionID})
}

// History 查询会话历史
// @Summary 会话历史
// @Tags Chat
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} HistoryResponse
// @Failure 400 {object} common.ErrorBody
// @Failure 404 {object} common.ErrorBody
// @Router /chat/sessions/{id} [get]
func (h *Handler) History(c *gin.Context) {
	sessionID := c.Param("id")
	messages, err := h.assistant.History(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, runtime.ErrSessionNotFound):
			common.ResponseError(c, http.StatusNotFound, "session not found")
		case errors.Is(err, runtime.ErrInvalidSession):
			common.ResponseError(c, http.StatusBadRequest, err.Error())
		default:
			logger.WithContext(c.Request.Context()).Error("读取会话失败",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			common.ResponseError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{SessionID: sessionID, Messages: messages})
}

// mapError 用户输入错误原样返回 400，其余为 500
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, runtime.ErrEmptyMessage):
		return http.StatusBadRequest, "Message is required"
	case errors.Is(err, runtime.ErrInvalidSession):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func currentUserID(c *gin.Context) uint {
	if userCtx, ok := auth.GetUserContext(c); ok {
		return userCtx.UserID
	}
	return 0
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"shopassist/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// DocumentIngester 文档入库能力（由 knowledge.Service 实现）
type DocumentIngester interface {
	IngestDocument(ctx context.Context, documentID uint) error
}

type KnowledgeHandler struct {
	ingester DocumentIngester
	logger   *zap.Logger
}

func NewKnowledgeHandler(ingester DocumentIngester, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		ingester: ingester,
		logger:   logger,
	}
}

func (h *KnowledgeHandler) HandleIngestDocument(ctx context.Context, t *asynq.Task) error {
	var p tasks.IngestDocumentPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// 载荷损坏重试也无意义
		return fmt.Errorf("json unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	h.logger.Info("开始处理文档入库任务", zap.Uint("document_id", p.DocumentID))

	if err := h.ingester.IngestDocument(ctx, p.DocumentID); err != nil {
		h.logger.Error("文档入库失败", zap.Uint("document_id", p.DocumentID), zap.Error(err))
		return err
	}

	h.logger.Info("文档入库完成", zap.Uint("document_id", p.DocumentID))
	return nil
}

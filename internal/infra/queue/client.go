package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopassist/internal/config"
	"shopassist/internal/worker/tasks"

	"github.com/hibiken/asynq"
)

// Client 任务队列客户端接口
type Client interface {
	EnqueueIngestDocument(ctx context.Context, documentID uint) error
	Close() error
}

type asynqClient struct {
	client *asynq.Client
}

// NewClient 创建任务队列客户端
func NewClient(cfg config.RedisConfig) Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &asynqClient{client: client}
}

func (c *asynqClient) EnqueueIngestDocument(ctx context.Context, documentID uint) error {
	payload, err := json.Marshal(tasks.IngestDocumentPayload{DocumentID: documentID})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(tasks.TypeIngestDocument, payload)

	// 嵌入接口偶发失败，重试 3 次，超时 10 分钟
	if _, err := c.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue(tasks.QueueKnowledge),
	); err != nil {
		return fmt.Errorf("enqueue task failed: %w", err)
	}
	return nil
}

func (c *asynqClient) Close() error {
	return c.client.Close()
}

// InlineClient 无 Redis 时在后台 goroutine 中直接执行入库
type InlineClient struct {
	Ingest  func(ctx context.Context, documentID uint) error
	OnError func(documentID uint, err error)
	Timeout time.Duration
}

func (c *InlineClient) EnqueueIngestDocument(_ context.Context, documentID uint) error {
	if c.Ingest == nil {
		return fmt.Errorf("inline ingest not configured")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	go func() {
		// 请求上下文随响应结束，这里使用独立上下文
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := c.Ingest(ctx, documentID); err != nil && c.OnError != nil {
			c.OnError(documentID, err)
		}
	}()
	return nil
}

func (c *InlineClient) Close() error { return nil }

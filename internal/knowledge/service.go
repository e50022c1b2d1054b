// Package knowledge 门店知识库：文档上传、异步入库与向量检索
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shopassist/internal/ai"
	"shopassist/internal/logger"
	"shopassist/internal/metrics"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 文档不存在
	ErrNotFound = errors.New("document not found")
	// ErrFileTooLarge 文件超过上限
	ErrFileTooLarge = errors.New("file is too large")
	// ErrEmptyQuery 检索词为空
	ErrEmptyQuery = errors.New("query is required")
)

const embeddingBatchSize = 100

// Enqueuer 入库任务投递
type Enqueuer interface {
	EnqueueIngestDocument(ctx context.Context, documentID uint) error
}

// Options 知识库配置
type Options struct {
	UploadDir      string
	ChunkSize      int
	ChunkOverlap   int
	TopK           int
	MaxFileSize    int64
	EmbeddingModel string
}

// Service 知识库服务
type Service struct {
	db       *gorm.DB
	store    VectorStore
	embedder ai.Embedder
	chunker  *Chunker
	queue    Enqueuer
	opts     Options
}

// NewService 创建知识库服务
func NewService(db *gorm.DB, store VectorStore, embedder ai.Embedder, opts Options) *Service {
	if opts.UploadDir == "" {
		opts.UploadDir = "./uploads/knowledge"
	}
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 20 << 20
	}
	return &Service{
		db:       db,
		store:    store,
		embedder: embedder,
		chunker:  NewChunker(opts.ChunkSize, opts.ChunkOverlap),
		opts:     opts,
	}
}

// SetQueue 设置入库任务队列；队列可能依赖服务本身，因此在构造后注入
func (s *Service) SetQueue(q Enqueuer) {
	s.queue = q
}

// Upload 保存文件、创建文档记录并投递入库任务
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader, uploadedBy uint) (*Document, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	_, ext, err := ParserFor(filename)
	if err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, fmt.Errorf("knowledge queue not configured")
	}

	if err := os.MkdirAll(s.opts.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	path := filepath.Join(s.opts.UploadDir, uuid.New().String()+ext)

	size, err := writeLimited(path, r, s.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Filename:   filename,
		FileType:   strings.TrimPrefix(ext, "."),
		FileSize:   size,
		Path:       path,
		Status:     StatusPending,
		UploadedBy: uploadedBy,
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("创建文档记录失败: %w", err)
	}

	if err := s.queue.EnqueueIngestDocument(ctx, doc.ID); err != nil {
		s.markFailed(ctx, doc, err)
		return nil, fmt.Errorf("投递入库任务失败: %w", err)
	}

	logger.WithContext(ctx).Info("知识库文档已上传",
		zap.Uint("document_id", doc.ID),
		zap.String("filename", filename),
		zap.Int64("size", size),
	)
	return doc, nil
}

// writeLimited 写入文件，超过上限时删除并返回 ErrFileTooLarge
func writeLimited(path string, r io.Reader, limit int64) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("创建文件失败: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(path)
		return 0, fmt.Errorf("保存文件失败: %w", err)
	case closeErr != nil:
		_ = os.Remove(path)
		return 0, fmt.Errorf("保存文件失败: %w", closeErr)
	case n > limit:
		_ = os.Remove(path)
		return 0, ErrFileTooLarge
	}
	return n, nil
}

// IngestDocument 解析、分块、向量化并写入向量存储
func (s *Service) IngestDocument(ctx context.Context, documentID uint) error {
	var doc Document
	if err := s.db.WithContext(ctx).First(&doc, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("查询文档失败: %w", err)
	}

	started := time.Now()
	if err := s.db.WithContext(ctx).Model(&doc).Update("status", StatusProcessing).Error; err != nil {
		return fmt.Errorf("更新文档状态失败: %w", err)
	}

	count, err := s.ingest(ctx, &doc)
	if err != nil {
		metrics.KnowledgeIngestionsTotal.WithLabelValues("failed").Inc()
		s.markFailed(ctx, &doc, err)
		return err
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Model(&doc).Updates(map[string]any{
		"status":        StatusReady,
		"chunk_count":   count,
		"error_message": "",
		"processed_at":  &now,
	}).Error
	if err != nil {
		return fmt.Errorf("更新文档状态失败: %w", err)
	}

	metrics.KnowledgeIngestionsTotal.WithLabelValues("success").Inc()
	metrics.KnowledgeChunksTotal.Add(float64(count))
	logger.WithContext(ctx).Info("知识库文档入库完成",
		zap.Uint("document_id", doc.ID),
		zap.Int("chunks", count),
		zap.Duration("duration", time.Since(started)),
	)
	return nil
}

func (s *Service) ingest(ctx context.Context, doc *Document) (int, error) {
	parser, _, err := ParserFor(doc.Filename)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(doc.Path)
	if err != nil {
		return 0, fmt.Errorf("打开文件失败: %w", err)
	}
	defer f.Close()

	text, err := parser.Parse(f)
	if err != nil {
		return 0, fmt.Errorf("解析文档失败: %w", err)
	}
	results, err := s.chunker.Split(text)
	if err != nil {
		return 0, err
	}

	chunks := make([]Chunk, len(results))
	for start := 0; start < len(results); start += embeddingBatchSize {
		end := min(start+embeddingBatchSize, len(results))
		texts := make([]string, 0, end-start)
		for _, r := range results[start:end] {
			texts = append(texts, r.Content)
		}

		vectors, err := s.embed(ctx, texts)
		if err != nil {
			return 0, err
		}
		for i, r := range results[start:end] {
			chunks[start+i] = Chunk{
				ChunkIndex:  r.ChunkIndex,
				Content:     r.Content,
				ContentHash: r.ContentHash,
				TokenCount:  r.TokenCount,
				Embedding:   pgvector.NewVector(vectors[i]),
			}
		}
	}

	if err := s.store.Replace(ctx, doc.ID, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (s *Service) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := s.embedder.Embedding(ctx, &ai.EmbeddingRequest{Texts: texts, Model: s.opts.EmbeddingModel})
	if err != nil {
		return nil, fmt.Errorf("向量化失败: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("向量化结果数量不匹配: 期望 %d, 实际 %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

func (s *Service) markFailed(ctx context.Context, doc *Document, cause error) {
	// 请求可能已取消，状态仍需落库
	ctx = context.WithoutCancel(ctx)
	err := s.db.WithContext(ctx).Model(doc).Updates(map[string]any{
		"status":        StatusFailed,
		"error_message": cause.Error(),
	}).Error
	if err != nil {
		logger.WithContext(ctx).Error("更新文档失败状态失败", zap.Uint("document_id", doc.ID), zap.Error(err))
	}
	logger.WithContext(ctx).Warn("知识库文档入库失败", zap.Uint("document_id", doc.ID), zap.Error(cause))
}

// Search 返回与查询最相似的分块
func (s *Service) Search(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.opts.TopK
	}

	started := time.Now()
	hits, err := s.search(ctx, query, topK)
	metrics.KnowledgeSearchDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.KnowledgeSearchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.KnowledgeSearchesTotal.WithLabelValues("success").Inc()
	return hits, nil
}

func (s *Service) search(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	vectors, err := s.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return s.store.Search(ctx, vectors[0], topK)
}

// ListDocuments 按上传时间倒序列出文档
func (s *Service) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("查询文档失败: %w", err)
	}
	return docs, nil
}

// GetDocument 查询单个文档
func (s *Service) GetDocument(ctx context.Context, id uint) (*Document, error) {
	var doc Document
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("查询文档失败: %w", err)
	}
	return &doc, nil
}

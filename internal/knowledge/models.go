package knowledge

import (
	"time"

	"shopassist/internal/common"

	"github.com/pgvector/pgvector-go"
)

// DocumentStatus 文档处理状态
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// EmbeddingDimensions text-embedding-3-small 向量维度
const EmbeddingDimensions = 1536

// Document 知识库文档
type Document struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Filename     string         `json:"filename" gorm:"size:255;not null"`
	FileType     string         `json:"file_type" gorm:"size:16;not null"`
	FileSize     int64          `json:"file_size"`
	Path         string         `json:"-" gorm:"size:512;not null"`
	Status       DocumentStatus `json:"status" gorm:"size:20;not null;default:pending;index"`
	ChunkCount   int            `json:"chunk_count" gorm:"default:0"`
	ErrorMessage string         `json:"error,omitempty" gorm:"type:text"`
	UploadedBy   uint           `json:"uploaded_by"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
	common.TimestampModel
}

func (Document) TableName() string { return "knowledge_documents" }

// Chunk 文档分块及其向量
type Chunk struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	DocumentID  uint            `json:"document_id" gorm:"not null;index"`
	ChunkIndex  int             `json:"chunk_index" gorm:"not null"`
	Content     string          `json:"content" gorm:"type:text;not null"`
	ContentHash string          `json:"-" gorm:"size:64;index"`
	TokenCount  int             `json:"token_count" gorm:"default:0"`
	Embedding   pgvector.Vector `json:"-" gorm:"type:vector(1536)"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null;autoCreateTime"`
}

func (Chunk) TableName() string { return "knowledge_chunks" }

// SearchHit 检索结果
type SearchHit struct {
	DocumentID uint    `json:"document_id"`
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// Models 需要迁移的模型
func Models() []any {
	return []any{&Document{}, &Chunk{}}
}

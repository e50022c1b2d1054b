package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// VectorStore 分块向量的写入与相似度检索
type VectorStore interface {
	// Replace 用新的分块替换文档已有分块
	Replace(ctx context.Context, documentID uint, chunks []Chunk) error
	Search(ctx context.Context, query []float32, topK int) ([]SearchHit, error)
}

// NewVectorStore PostgreSQL 使用 pgvector，其余驱动在应用内计算相似度
func NewVectorStore(db *gorm.DB) (VectorStore, error) {
	if db.Dialector.Name() == "postgres" {
		return NewPGVectorStore(db)
	}
	return &ScanVectorStore{chunkWriter{db: db}}, nil
}

type chunkWriter struct {
	db *gorm.DB
}

func (w chunkWriter) Replace(ctx context.Context, documentID uint, chunks []Chunk) error {
	return w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&Chunk{}).Error; err != nil {
			return fmt.Errorf("删除旧分块失败: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}
		for i := range chunks {
			chunks[i].DocumentID = documentID
		}
		if err := tx.CreateInBatches(chunks, 100).Error; err != nil {
			return fmt.Errorf("写入分块失败: %w", err)
		}
		return nil
	})
}

// PGVectorStore pgvector 余弦距离检索
type PGVectorStore struct {
	chunkWriter
}

// NewPGVectorStore 创建 pgvector 存储并确保扩展已安装
func NewPGVectorStore(db *gorm.DB) (*PGVectorStore, error) {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("创建 vector 扩展失败: %w", err)
	}
	return &PGVectorStore{chunkWriter{db: db}}, nil
}

func (s *PGVectorStore) Search(ctx context.Context, query []float32, topK int) ([]SearchHit, error) {
	vec := pgvector.NewVector(query)

	// <=> 是 pgvector 的余弦距离操作符
	sql := `
		SELECT c.document_id, d.filename AS source, c.content,
			1 - (c.embedding <=> ?) AS score
		FROM knowledge_chunks c
		JOIN knowledge_documents d ON d.id = c.document_id
		WHERE d.status = ?
		ORDER BY c.embedding <=> ?
		LIMIT ?`

	hits := make([]SearchHit, 0, topK)
	if err := s.db.WithContext(ctx).Raw(sql, vec, StatusReady, vec, topK).Scan(&hits).Error; err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}
	return hits, nil
}

// ScanVectorStore 读取全部就绪分块并在内存中计算余弦相似度，用于 SQLite 与测试
type ScanVectorStore struct {
	chunkWriter
}

func (s *ScanVectorStore) Search(ctx context.Context, query []float32, topK int) ([]SearchHit, error) {
	var rows []struct {
		DocumentID uint
		Source     string
		Content    string
		Embedding  pgvector.Vector
	}
	err := s.db.WithContext(ctx).
		Table("knowledge_chunks AS c").
		Select("c.document_id, d.filename AS source, c.content, c.embedding").
		Joins("JOIN knowledge_documents d ON d.id = c.document_id").
		Where("d.status = ?", StatusReady).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("读取分块失败: %w", err)
	}

	hits := make([]SearchHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, SearchHit{
			DocumentID: row.DocumentID,
			Source:     row.Source,
			Content:    row.Content,
			Score:      cosineSimilarity(query, row.Embedding.Slice()),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

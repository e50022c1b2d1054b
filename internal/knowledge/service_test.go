package knowledge

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"shopassist/internal/ai"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupKnowledgeTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:knowledge_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(Models()...))
	return db
}

// hashEmbedder 词袋哈希向量，相同词汇的文本相似度更高
type hashEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *hashEmbedder) Embedding(_ context.Context, req *ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(req.Texts))
	for i, text := range req.Texts {
		vec := make([]float32, 64)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(strings.Trim(word, ".,!?")))
			vec[h.Sum32()%64]++
		}
		out[i] = vec
	}
	return &ai.EmbeddingResponse{Embeddings: out}, nil
}

type recordingQueue struct {
	ids []uint
	err error
}

func (q *recordingQueue) EnqueueIngestDocument(_ context.Context, documentID uint) error {
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, documentID)
	return nil
}

func newTestService(t *testing.T, embedder ai.Embedder) (*Service, *recordingQueue, *gorm.DB) {
	t.Helper()
	db := setupKnowledgeTestDB(t)
	store, err := NewVectorStore(db)
	require.NoError(t, err)
	svc := NewService(db, store, embedder, Options{
		UploadDir:    t.TempDir(),
		ChunkSize:    120,
		ChunkOverlap: 20,
		TopK:         2,
		MaxFileSize:  4096,
	})
	q := &recordingQueue{}
	svc.SetQueue(q)
	return svc, q, db
}

const policyText = `Shipping: standard shipping takes three to five business days.
Express shipping arrives the next day for orders placed before noon.

Returns: unworn shoes can be returned within thirty days for a full refund.
Sizing: our sneakers run small, so order half a size up.`

func TestUploadAndIngest(t *testing.T) {
	ctx := context.Background()
	svc, q, db := newTestService(t, &hashEmbedder{})

	doc, err := svc.Upload(ctx, "policies.md", strings.NewReader(policyText), 7)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, doc.Status)
	assert.Equal(t, "md", doc.FileType)
	assert.Equal(t, int64(len(policyText)), doc.FileSize)
	assert.Equal(t, []uint{doc.ID}, q.ids)
	_, err = os.Stat(doc.Path)
	require.NoError(t, err)

	// 未入库前检索不到
	hits, err := svc.Search(ctx, "shipping", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, svc.IngestDocument(ctx, doc.ID))

	stored, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, stored.Status)
	assert.Greater(t, stored.ChunkCount, 1)
	assert.NotNil(t, stored.ProcessedAt)

	var count int64
	require.NoError(t, db.Model(&Chunk{}).Where("document_id = ?", doc.ID).Count(&count).Error)
	assert.Equal(t, int64(stored.ChunkCount), count)

	hits, err = svc.Search(ctx, "how long does express shipping take", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "policies.md", hits[0].Source)
	assert.Equal(t, doc.ID, hits[0].DocumentID)
	assert.Contains(t, hits[0].Content, "shipping")
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)

	// 重复入库替换旧分块
	require.NoError(t, svc.IngestDocument(ctx, doc.ID))
	require.NoError(t, db.Model(&Chunk{}).Where("document_id = ?", doc.ID).Count(&count).Error)
	assert.Equal(t, int64(stored.ChunkCount), count)
}

func TestUploadValidation(t *testing.T) {
	ctx := context.Background()
	svc, q, _ := newTestService(t, &hashEmbedder{})

	_, err := svc.Upload(ctx, "photo.png", strings.NewReader("data"), 1)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.Upload(ctx, "big.txt", strings.NewReader(strings.Repeat("x", 5000)), 1)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	entries, _ := os.ReadDir(svc.opts.UploadDir)
	assert.Empty(t, entries)
	assert.Empty(t, q.ids)
}

func TestUploadEnqueueFailure(t *testing.T) {
	ctx := context.Background()
	svc, q, _ := newTestService(t, &hashEmbedder{})
	q.err = errors.New("redis down")

	_, err := svc.Upload(ctx, "faq.txt", strings.NewReader("Hello there."), 1)
	require.Error(t, err)

	docs, err := svc.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, StatusFailed, docs[0].Status)
	assert.Contains(t, docs[0].ErrorMessage, "redis down")
}

func TestIngestFailureMarksDocument(t *testing.T) {
	ctx := context.Background()
	embedder := &hashEmbedder{err: errors.New("embedding quota exceeded")}
	svc, _, _ := newTestService(t, embedder)

	doc, err := svc.Upload(ctx, "faq.txt", strings.NewReader("Gift cards never expire."), 1)
	require.NoError(t, err)

	err = svc.IngestDocument(ctx, doc.ID)
	require.Error(t, err)

	stored, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "embedding quota exceeded")

	assert.ErrorIs(t, svc.IngestDocument(ctx, 9999), ErrNotFound)
}

func TestIngestUnreadablePDF(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, &hashEmbedder{})

	doc, err := svc.Upload(ctx, "manual.pdf", strings.NewReader("not really a pdf"), 1)
	require.NoError(t, err)
	require.Error(t, svc.IngestDocument(ctx, doc.ID))

	stored, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
}

func TestSearchRequiresQuery(t *testing.T) {
	svc, _, _ := newTestService(t, &hashEmbedder{})
	_, err := svc.Search(context.Background(), "   ", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestListDocumentsNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, &hashEmbedder{})

	first, err := svc.Upload(ctx, "a.txt", strings.NewReader("A."), 1)
	require.NoError(t, err)
	second, err := svc.Upload(ctx, "b.txt", strings.NewReader("B."), 1)
	require.NoError(t, err)

	docs, err := svc.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, second.ID, docs[0].ID)
	assert.Equal(t, first.ID, docs[1].ID)
}

func TestParserFor(t *testing.T) {
	cases := map[string]struct {
		name string
		ext  string
		err  error
	}{
		"pdf":      {"Manual.PDF", ".pdf", nil},
		"text":     {"notes.txt", ".txt", nil},
		"markdown": {"faq.md", ".md", nil},
		"image":    {"logo.png", ".png", ErrUnsupportedType},
		"no ext":   {"README", "", ErrUnsupportedType},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, ext, err := ParserFor(tc.name)
			assert.Equal(t, tc.ext, ext)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

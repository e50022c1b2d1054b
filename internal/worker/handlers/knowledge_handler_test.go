package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"shopassist/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingIngester struct {
	ids []uint
	err error
}

func (r *recordingIngester) IngestDocument(_ context.Context, documentID uint) error {
	r.ids = append(r.ids, documentID)
	return r.err
}

func ingestTask(t *testing.T, id uint) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(tasks.IngestDocumentPayload{DocumentID: id})
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypeIngestDocument, payload)
}

func TestHandleIngestDocument(t *testing.T) {
	ingester := &recordingIngester{}
	h := NewKnowledgeHandler(ingester, zap.NewNop())

	require.NoError(t, h.HandleIngestDocument(context.Background(), ingestTask(t, 42)))
	assert.Equal(t, []uint{42}, ingester.ids)
}

func TestHandleIngestDocumentPropagatesFailure(t *testing.T) {
	boom := errors.New("embedding backend down")
	h := NewKnowledgeHandler(&recordingIngester{err: boom}, zap.NewNop())

	err := h.HandleIngestDocument(context.Background(), ingestTask(t, 7))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleIngestDocumentSkipsRetryOnBadPayload(t *testing.T) {
	ingester := &recordingIngester{}
	h := NewKnowledgeHandler(ingester, zap.NewNop())

	err := h.HandleIngestDocument(context.Background(), asynq.NewTask(tasks.TypeIngestDocument, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, ingester.ids)
}

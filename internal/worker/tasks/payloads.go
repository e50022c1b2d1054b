package tasks

// Task Types
const (
	TypeIngestDocument = "knowledge:ingest"
)

// 队列名
const (
	QueueKnowledge = "knowledge"
	QueueDefault   = "default"
)

// IngestDocumentPayload 知识库文档入库任务载荷
type IngestDocumentPayload struct {
	DocumentID uint `json:"document_id"`
}

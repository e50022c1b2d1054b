package tools

import (
	"time"

	"gorm.io/datatypes"
)

// 执行状态，同时作为指标 status 标签
const (
	StatusSuccess = "success"
	StatusError   = "error"   // 工具返回错误，以 {error} 回传模型
	StatusInvalid = "invalid" // 调用无法解析（未知工具或参数不是 JSON 对象）
	StatusPanic   = "panic"
)

// ToolExecution 工具执行审计记录
type ToolExecution struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	SessionID string `json:"session_id" gorm:"size:64;index"`
	CallID    string `json:"call_id" gorm:"size:100"`
	ToolName  string `json:"tool_name" gorm:"size:100;not null;index"`

	// 输入输出
	Input        datatypes.JSONMap `json:"input"`
	Output       datatypes.JSONMap `json:"output"`
	ErrorMessage *string           `json:"error_message,omitempty" gorm:"type:text"`

	Status      string     `json:"status" gorm:"size:20;not null"`
	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Duration    int64      `json:"duration_ms"` // 毫秒

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ToolExecution) TableName() string { return "tool_executions" }

// Models 需要迁移的模型
func Models() []interface{} {
	return []interface{}{&ToolExecution{}}
}

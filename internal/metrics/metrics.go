package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopassist_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// APIResponseSize API 响应体大小（字节）
	APIResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopassist_api_response_size_bytes",
			Help:    "API 响应体大小分布",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)
)

// 对话指标
var (
	// ChatTurnsTotal 对话轮次总数
	// outcome: answered, apology, max_rounds, error
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_chat_turns_total",
			Help: "助手对话轮次总数",
		},
		[]string{"outcome"},
	)

	// ChatTurnDuration 单轮对话耗时（秒）
	ChatTurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopassist_chat_turn_duration_seconds",
			Help:    "单轮对话耗时分布",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	// ChatModelRounds 单轮对话内的模型调用次数
	ChatModelRounds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopassist_chat_model_rounds",
			Help:    "单轮对话模型调用次数分布",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		},
	)

	// ChatSessionsActive WebSocket 在线会话数
	ChatSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopassist_chat_ws_connections",
			Help: "WebSocket 在线连接数",
		},
	)
)

// 工具调用指标
var (
	// ToolCallsTotal 工具调用总数
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_tool_calls_total",
			Help: "工具调用总数",
		},
		[]string{"tool", "status"}, // status: success, error, invalid, panic
	)

	// ToolCallDuration 工具调用耗时（秒）
	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopassist_tool_call_duration_seconds",
			Help:    "工具调用耗时分布",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)
)

// AI 模型调用指标
var (
	// ModelCallsTotal 模型调用总数
	ModelCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_model_calls_total",
			Help: "AI 模型调用总数",
		},
		[]string{"provider", "model", "status"},
	)

	// ModelCallDuration 模型调用耗时（秒）
	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopassist_model_call_duration_seconds",
			Help:    "AI 模型调用耗时分布",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "model"},
	)

	// ModelCallTokens 模型调用 Token 数量
	ModelCallTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_model_call_tokens_total",
			Help: "AI 模型调用 Token 总数",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)
)

// 知识库指标
var (
	// KnowledgeSearchesTotal 知识库检索总数
	KnowledgeSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_knowledge_searches_total",
			Help: "知识库检索总数",
		},
		[]string{"status"},
	)

	// KnowledgeSearchDuration 知识库检索耗时（秒）
	KnowledgeSearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopassist_knowledge_search_duration_seconds",
			Help:    "知识库检索耗时分布",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 2},
		},
	)

	// KnowledgeIngestionsTotal 文档入库总数
	KnowledgeIngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_knowledge_ingestions_total",
			Help: "知识库文档入库总数",
		},
		[]string{"status"},
	)

	// KnowledgeChunksTotal 已入库文档块数
	KnowledgeChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopassist_knowledge_chunks_total",
			Help: "知识库文档块总数",
		},
	)
)

// 订单指标
var (
	// OrdersTotal 订单操作次数
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_orders_total",
			Help: "订单创建与状态变更次数",
		},
		[]string{"event"}, // event: created, processing, completed, canceled, deleted
	)
)

// 缓存指标
var (
	// CacheHitsTotal 缓存命中数
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_cache_hits_total",
			Help: "缓存命中总数",
		},
		[]string{"cache_type"},
	)

	// CacheMissesTotal 缓存未命中数
	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_cache_misses_total",
			Help: "缓存未命中总数",
		},
		[]string{"cache_type"},
	)
)

// 系统指标
var (
	// BuildInfo 构建信息
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shopassist_build_info",
			Help: "构建信息",
		},
		[]string{"version", "go_version"},
	)
)

// RecordBuildInfo 记录构建信息
func RecordBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

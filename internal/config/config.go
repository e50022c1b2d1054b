package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	AI        AIConfig        `mapstructure:"ai"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres, sqlite
	Path            string `mapstructure:"path"`   // sqlite 文件路径，":memory:" 为内存库
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 连接模式: standalone(单节点), sentinel(哨兵), cluster(集群)
	Mode string `mapstructure:"mode"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	MasterName       string   `mapstructure:"master_name"`
	SentinelAddrs    []string `mapstructure:"sentinel_addrs"`
	SentinelPassword string   `mapstructure:"sentinel_password"`

	ClusterAddrs []string `mapstructure:"cluster_addrs"`

	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
}

// Addr 单节点地址
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// AIConfig 模型提供方配置
type AIConfig struct {
	Provider  string          `mapstructure:"provider"` // openai, anthropic
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// OpenAIConfig OpenAI 配置
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	OrgID          string `mapstructure:"org_id"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// AnthropicConfig Anthropic 配置
type AnthropicConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// AssistantConfig 导购助手配置
type AssistantConfig struct {
	Temperature      float64         `mapstructure:"temperature"`
	MaxTokens        int             `mapstructure:"max_tokens"`
	MaxRounds        int             `mapstructure:"max_rounds"`
	ModelTimeout     time.Duration   `mapstructure:"model_timeout"`
	ToolTimeout      time.Duration   `mapstructure:"tool_timeout"`
	Retry            RetryConfig     `mapstructure:"retry"`
	HistoryMaxTokens int             `mapstructure:"history_max_tokens"`
	SessionTTL       time.Duration   `mapstructure:"session_ttl"`
	CatalogBaseURL   string          `mapstructure:"catalog_base_url"`
	CatalogCacheTTL  time.Duration   `mapstructure:"catalog_cache_ttl"`
	RateLimit        RateLimitConfig `mapstructure:"rate_limit"`
}

// RetryConfig 单次调用的重试策略
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// RateLimitConfig 令牌桶限流配置
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`  // 每秒补充令牌数
	Burst   int     `mapstructure:"burst"` // 桶容量
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	Issuer        string        `mapstructure:"issuer"`
	AccessExpiry  time.Duration `mapstructure:"access_expiry"`
	RefreshExpiry time.Duration `mapstructure:"refresh_expiry"`
}

// KnowledgeConfig 知识库配置
type KnowledgeConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	UploadDir    string `mapstructure:"upload_dir"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	TopK         int    `mapstructure:"top_k"`
	MaxFileSize  int64  `mapstructure:"max_file_size"`
}

// WorkerConfig 异步任务配置
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")
	setDefaults(v)

	// 读取环境变量（优先级高于配置文件）
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // APP_DATABASE_HOST

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// setDefaults 默认值，配置文件缺省时生效
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 120)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.path", "shopassist.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 3600)

	v.SetDefault("redis.mode", "standalone")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("ai.anthropic.model", "claude-3-5-haiku-latest")

	v.SetDefault("assistant.temperature", 0)
	v.SetDefault("assistant.max_tokens", 1024)
	v.SetDefault("assistant.max_rounds", 5)
	v.SetDefault("assistant.model_timeout", "60s")
	v.SetDefault("assistant.tool_timeout", "10s")
	v.SetDefault("assistant.retry.max_attempts", 2)
	v.SetDefault("assistant.retry.initial_delay", "500ms")
	v.SetDefault("assistant.retry.max_delay", "5s")
	v.SetDefault("assistant.history_max_tokens", 6000)
	v.SetDefault("assistant.session_ttl", "24h")
	v.SetDefault("assistant.catalog_base_url", "http://127.0.0.1:8000/api")
	v.SetDefault("assistant.catalog_cache_ttl", "30s")
	v.SetDefault("assistant.rate_limit.enabled", true)
	v.SetDefault("assistant.rate_limit.rate", 2)
	v.SetDefault("assistant.rate_limit.burst", 10)

	v.SetDefault("auth.issuer", "shopassist")
	v.SetDefault("auth.access_expiry", "2h")
	v.SetDefault("auth.refresh_expiry", "168h")

	v.SetDefault("knowledge.upload_dir", "./data/knowledge")
	v.SetDefault("knowledge.chunk_size", 1000)
	v.SetDefault("knowledge.chunk_overlap", 200)
	v.SetDefault("knowledge.top_k", 4)
	v.SetDefault("knowledge.max_file_size", 20<<20)

	v.SetDefault("worker.concurrency", 4)
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

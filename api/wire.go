package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	authHandlers "shopassist/api/handlers/auth"
	catalogHandlers "shopassist/api/handlers/catalog"
	chatHandlers "shopassist/api/handlers/chat"
	knowledgeHandlers "shopassist/api/handlers/knowledge"
	orderHandlers "shopassist/api/handlers/orders"

	"shopassist/internal/agent/runtime"
	"shopassist/internal/ai"
	"shopassist/internal/auth"
	"shopassist/internal/catalog"
	"shopassist/internal/catalogapi"
	"shopassist/internal/config"
	"shopassist/internal/infra"
	"shopassist/internal/infra/queue"
	"shopassist/internal/knowledge"
	"shopassist/internal/logger"
	"shopassist/internal/middleware"
	"shopassist/internal/orders"
	"shopassist/internal/tools"
	"shopassist/internal/user"
	"shopassist/internal/worker"
	"shopassist/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const devJWTSecret = "dev_jwt_secret_change_in_production"

// AppContainer 应用容器，集中管理所有服务依赖
type AppContainer struct {
	// 基础设施
	DB          *gorm.DB
	Config      *config.Config
	RedisClient redis.UniversalClient
	QueueClient queue.Client

	// 认证
	JWTService  *auth.JWTService
	UserService *user.Service

	// 业务服务
	CatalogService   *catalog.Service
	OrderService     *orders.Service
	KnowledgeService *knowledge.Service // 未启用知识库时为 nil

	// 助手运行时
	CatalogAPI   *catalogapi.Client
	ToolRegistry *tools.Registry
	ToolExecutor *tools.Executor
	Assistant    *runtime.Assistant
	ChatLimiter  *middleware.RateLimiter // 未启用限流时为 nil

	// Worker，无 Redis 时为 nil
	WorkerServer *worker.Server
}

// Handlers 路由处理器集合
type Handlers struct {
	Auth      *authHandlers.AuthHandler
	Catalog   *catalogHandlers.Handler
	Orders    *orderHandlers.Handler
	Chat      *chatHandlers.Handler
	ChatWS    *chatHandlers.WebSocketHandler
	Knowledge *knowledgeHandlers.Handler // 未启用知识库时为 nil
}

// shouldAutoMigrate 检查是否应该执行自动迁移
func (c *AppContainer) shouldAutoMigrate() bool {
	return c.Config != nil && c.Config.Database.AutoMigrate
}

// autoMigrateDB 条件执行 GORM 自动迁移
func (c *AppContainer) autoMigrateDB(name string, models ...interface{}) error {
	if !c.shouldAutoMigrate() {
		return nil
	}
	if err := infra.AutoMigrate(c.DB, models...); err != nil {
		return fmt.Errorf("%s表迁移失败: %w", name, err)
	}
	return nil
}

// InitContainer 初始化应用容器
func InitContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*AppContainer, error) {
	container := &AppContainer{
		DB:     db,
		Config: cfg,
	}

	// Redis 可选，不可用时各组件退回内存实现
	container.initRedis(ctx, cfg)

	if err := container.initAuth(cfg); err != nil {
		return nil, err
	}

	if err := container.initServices(); err != nil {
		return nil, err
	}

	if err := container.initKnowledge(cfg); err != nil {
		return nil, err
	}

	if err := container.initAssistant(cfg); err != nil {
		return nil, err
	}

	return container, nil
}

// InitHandlers 初始化所有 Handlers
func (c *AppContainer) InitHandlers() *Handlers {
	h := &Handlers{
		Auth: authHandlers.NewAuthHandler(c.JWTService, c.UserService),
		// 目录变更后清空助手侧列表缓存
		Catalog: catalogHandlers.NewHandler(c.CatalogService, c.CatalogAPI.Invalidate),
		Orders:  orderHandlers.NewHandler(c.OrderService),
		Chat:    chatHandlers.NewHandler(c.Assistant),
		ChatWS:  chatHandlers.NewWebSocketHandler(c.Assistant),
	}
	if c.KnowledgeService != nil {
		h.Knowledge = knowledgeHandlers.NewHandler(c.KnowledgeService)
	}
	return h
}

func (c *AppContainer) initRedis(ctx context.Context, cfg *config.Config) {
	client, err := infra.InitRedis(ctx, &cfg.Redis)
	switch {
	case errors.Is(err, infra.ErrRedisDisabled):
		logger.Info("未配置 Redis，会话、锁与入库队列使用内存实现")
	case err != nil:
		logger.Warn("Redis 不可用，会话、锁与入库队列退回内存实现", zap.Error(err))
	default:
		c.RedisClient = client
	}
}

func (c *AppContainer) initAuth(cfg *config.Config) error {
	authCfg := cfg.Auth
	if strings.TrimSpace(authCfg.JWTSecret) == "" {
		appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
		// 生产模式必须显式配置密钥
		if strings.EqualFold(cfg.Server.Mode, "release") || strings.EqualFold(appEnv, "prod") || strings.EqualFold(appEnv, "production") {
			return fmt.Errorf("auth.jwt_secret 未配置，生产环境禁止使用默认密钥")
		}
		authCfg.JWTSecret = devJWTSecret
		logger.Warn("auth.jwt_secret 未配置，已回退为开发默认值，请在生产环境设置强随机密钥")
	}

	c.JWTService = auth.NewJWTService(authCfg, c.RedisClient)
	c.UserService = user.NewService(c.DB, &auth.BcryptHasher{Cost: bcrypt.DefaultCost})
	return c.autoMigrateDB("用户", &user.User{})
}

func (c *AppContainer) initServices() error {
	c.CatalogService = catalog.NewService(c.DB)
	c.OrderService = orders.NewService(c.DB)

	if err := c.autoMigrateDB("目录", catalog.Models()...); err != nil {
		return err
	}
	return c.autoMigrateDB("订单", orders.Models()...)
}

func (c *AppContainer) initKnowledge(cfg *config.Config) error {
	if !cfg.Knowledge.Enabled {
		return nil
	}

	embedder, err := ai.NewEmbedder(cfg.AI)
	if err != nil {
		return err
	}
	// postgres 下会先创建 vector 扩展，需在迁移之前
	store, err := knowledge.NewVectorStore(c.DB)
	if err != nil {
		return err
	}
	if err := c.autoMigrateDB("知识库", knowledge.Models()...); err != nil {
		return err
	}

	svc := knowledge.NewService(c.DB, store, embedder, knowledge.Options{
		UploadDir:      cfg.Knowledge.UploadDir,
		ChunkSize:      cfg.Knowledge.ChunkSize,
		ChunkOverlap:   cfg.Knowledge.ChunkOverlap,
		TopK:           cfg.Knowledge.TopK,
		MaxFileSize:    cfg.Knowledge.MaxFileSize,
		EmbeddingModel: cfg.AI.OpenAI.EmbeddingModel,
	})

	if c.RedisClient != nil {
		c.QueueClient = queue.NewClient(cfg.Redis)
		c.WorkerServer = worker.NewServer(cfg.Redis, cfg.Worker, svc, logger.Get())
	} else {
		c.QueueClient = &queue.InlineClient{
			Ingest: svc.IngestDocument,
			OnError: func(documentID uint, err error) {
				logger.Warn("知识库文档入库失败", zap.Uint("document_id", documentID), zap.Error(err))
			},
		}
	}
	svc.SetQueue(c.QueueClient)

	c.KnowledgeService = svc
	logger.Info("知识库已启用",
		zap.String("upload_dir", cfg.Knowledge.UploadDir),
		zap.Bool("async_worker", c.WorkerServer != nil),
	)
	return nil
}

func (c *AppContainer) initAssistant(cfg *config.Config) error {
	ac := cfg.Assistant
	c.CatalogAPI = catalogapi.New(catalogapi.Options{
		BaseURL:  ac.CatalogBaseURL,
		Timeout:  ac.ToolTimeout,
		CacheTTL: ac.CatalogCacheTTL,
	})

	policy := retry.Policy{
		MaxAttempts:  ac.Retry.MaxAttempts,
		InitialDelay: ac.Retry.InitialDelay,
		MaxDelay:     ac.Retry.MaxDelay,
	}

	registered := tools.CatalogTools(c.CatalogAPI)
	if c.KnowledgeService != nil {
		registered = append(registered, tools.StoreInfoTool(c.CatalogAPI, cfg.Knowledge.TopK))
	}
	registry, err := tools.NewRegistry(registered...)
	if err != nil {
		return fmt.Errorf("注册工具失败: %w", err)
	}
	if err := c.autoMigrateDB("工具审计", tools.Models()...); err != nil {
		return err
	}
	c.ToolRegistry = registry
	c.ToolExecutor = tools.NewExecutor(registry,
		tools.WithTimeout(ac.ToolTimeout),
		tools.WithRetry(policy),
		tools.WithAudit(c.DB),
	)

	client, err := ai.NewModelClient(cfg.AI, int(ac.ModelTimeout.Seconds()))
	if err != nil {
		return err
	}

	opts := runtime.Options{
		Model:            modelName(cfg.AI),
		Temperature:      ac.Temperature,
		MaxTokens:        ac.MaxTokens,
		MaxRounds:        ac.MaxRounds,
		ModelTimeout:     ac.ModelTimeout,
		Retry:            policy,
		HistoryMaxTokens: ac.HistoryMaxTokens,
	}

	var (
		sessions runtime.SessionStore
		locker   runtime.SessionLocker
	)
	if c.RedisClient != nil {
		sessions = runtime.NewRedisSessionStore(c.RedisClient, ac.SessionTTL)
		locker = runtime.NewRedisLocker(c.RedisClient, lockTTL(ac))
	} else {
		sessions = runtime.NewMemorySessionStore(ac.SessionTTL)
		locker = runtime.NewMemoryLocker()
	}
	c.Assistant = runtime.NewAssistant(client, c.ToolExecutor, sessions, locker, opts)

	if ac.RateLimit.Enabled {
		limiterCfg := middleware.DefaultRateLimiterConfig()
		if ac.RateLimit.Rate > 0 {
			limiterCfg.RequestsPerSecond = ac.RateLimit.Rate
		}
		if ac.RateLimit.Burst > 0 {
			limiterCfg.BurstSize = ac.RateLimit.Burst
		}
		c.ChatLimiter = middleware.NewRateLimiter(limiterCfg)
	}

	logger.Info("导购助手已初始化",
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", opts.Model),
		zap.Any("tools", registry.Names()),
		zap.Bool("redis_sessions", c.RedisClient != nil),
	)
	return nil
}

// Close 释放容器持有的连接
func (c *AppContainer) Close() {
	if c.ChatLimiter != nil {
		c.ChatLimiter.Stop()
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warn("关闭队列客户端失败", zap.Error(err))
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			logger.Warn("关闭 Redis 失败", zap.Error(err))
		}
	}
}

func modelName(cfg config.AIConfig) string {
	if strings.EqualFold(cfg.Provider, "anthropic") || strings.EqualFold(cfg.Provider, "claude") {
		return cfg.Anthropic.Model
	}
	return cfg.OpenAI.Model
}

// lockTTL 覆盖单轮对话最坏耗时：每轮模型调用及其重试
func lockTTL(ac config.AssistantConfig) time.Duration {
	rounds := ac.MaxRounds
	if rounds <= 0 {
		rounds = 5
	}
	attempts := ac.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	timeout := ac.ModelTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return time.Duration(rounds*attempts)*timeout + ac.ToolTimeout*time.Duration(rounds)
}

package api

import (
	"context"

	_ "shopassist/api/docs"
	"shopassist/internal/config"
	"shopassist/internal/metrics"
	"shopassist/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// SetupRouter 设置并返回 Gin 路由和应用容器
// 容器中的 WorkerServer 在无 Redis 时为 nil
func SetupRouter(ctx context.Context, db *gorm.DB, cfg *config.Config) (*gin.Engine, *AppContainer, error) {
	container, err := InitContainer(ctx, db, cfg)
	if err != nil {
		return nil, nil, err
	}

	router := gin.New()

	// 全局中间件
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(RequestLogger())
	router.Use(CORS())

	// Prometheus 指标收集中间件
	router.Use(metrics.PrometheusMiddleware())

	// 公开端点（不需要认证）
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(container))

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	RegisterRoutes(router, container, container.InitHandlers())

	return router, container, nil
}

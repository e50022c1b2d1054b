package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"shopassist/internal/auth"
	"shopassist/internal/catalog"
	"shopassist/internal/config"
	"shopassist/internal/infra"
	"shopassist/internal/logger"
	"shopassist/internal/seed"
	"shopassist/internal/user"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	fixturePath := flag.String("fixtures", "config/fixtures.yaml", "YAML 夹具文件路径")
	configPath := flag.String("config", "", "配置文件路径，缺省按 APP_ENV 查找")
	flag.Parse()

	_ = godotenv.Load()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := config.Load(env, *configPath)
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := infra.InitDatabase(ctx, &cfg.Database, false)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer infra.CloseDatabase(db)

	if err := infra.AutoMigrate(db, append(catalog.Models(), &user.User{})...); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	fixtures, err := seed.Load(*fixturePath)
	if err != nil {
		logger.Fatal("加载夹具失败", zap.String("path", *fixturePath), zap.Error(err))
	}

	seeder := seed.NewSeeder(db,
		catalog.NewService(db),
		user.NewService(db, &auth.BcryptHasher{Cost: bcrypt.DefaultCost}),
	)
	if _, err := seeder.Apply(ctx, fixtures); err != nil {
		logger.Fatal("导入演示数据失败", zap.Error(err))
	}
}

package commands

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/user/festmap/internal/config"
	"github.com/user/festmap/internal/repository"
	"github.com/user/festmap/internal/service"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "festmap",
	Short:         "抓取电影节节目单，生成带语义坐标的电影地图数据集",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.Println("未找到 .env 文件，使用系统环境变量")
		}
	},
}

// ExecuteContext 执行命令，出错时以非零状态退出
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("执行失败: %v", err)
	}
}

// newPipeline 按环境配置组装流水线；needEmbedding 为 true 时要求向量服务凭证齐全
func newPipeline(needEmbedding bool) (*service.Pipeline, func(), error) {
	cfg := config.Load()
	validate := cfg.Validate
	if needEmbedding {
		validate = cfg.ValidateEmbedding
	}
	if err := validate(); err != nil {
		return nil, nil, err
	}

	var db *gorm.DB
	if needEmbedding && cfg.DatabaseURL != "" {
		var err error
		if db, err = repository.InitDB(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
	}

	repos := repository.NewRepositories(db, cfg.DataDir)
	cleanup := func() {
		if err := repos.Close(); err != nil {
			log.Printf("关闭数据库失败: %v", err)
		}
	}
	return service.NewPipeline(cfg, repos), cleanup, nil
}

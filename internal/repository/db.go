package repository

import (
	"fmt"

	"github.com/user/festmap/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化向量库连接并完成建表
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 启用 pgvector 扩展并同步表结构
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("启用 pgvector 失败: %w", err)
	}
	if err := db.AutoMigrate(&model.MovieRow{}); err != nil {
		return fmt.Errorf("同步表结构失败: %w", err)
	}
	return nil
}

// Repositories 仓库集合
type Repositories struct {
	DB      *gorm.DB
	Dataset *Dataset
	Movie   *MovieRepository // 未配置 DATABASE_URL 时为 nil
}

// NewRepositories 创建仓库集合；db 可以为 nil（只使用 JSON 数据集）
func NewRepositories(db *gorm.DB, dataDir string) *Repositories {
	repos := &Repositories{
		DB:      db,
		Dataset: NewDataset(dataDir),
	}
	if db != nil {
		repos.Movie = NewMovieRepository(db)
	}
	return repos
}

// Close 关闭数据库连接
func (r *Repositories) Close() error {
	if r.DB == nil {
		return nil
	}
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

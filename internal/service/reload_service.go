package service

import (
	"context"
	"log"
	"time"
)

// Reloader 可以重新加载数据的组件
type Reloader interface {
	Reload() error
}

// ReloadService 定时重新加载数据集，使抓取/向量阶段的新结果无需重启即可生效
type ReloadService struct {
	target   Reloader
	interval time.Duration
}

// NewReloadService 创建重载服务
func NewReloadService(target Reloader, interval time.Duration) *ReloadService {
	return &ReloadService{target: target, interval: interval}
}

// Start 启动定时重载任务，ctx 结束时退出；interval <= 0 时只在启动时加载一次
func (s *ReloadService) Start(ctx context.Context) {
	// 启动时先运行一次
	go s.runReload()

	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runReload()
			}
		}
	}()
}

func (s *ReloadService) runReload() {
	if err := s.target.Reload(); err != nil {
		log.Printf("[ReloadService] 重新加载数据集失败: %v", err)
		return
	}
	log.Println("[ReloadService] 数据集已重新加载")
}

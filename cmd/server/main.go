package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/festmap/internal/config"
	"github.com/user/festmap/internal/handler"
	"github.com/user/festmap/internal/middleware"
	"github.com/user/festmap/internal/repository"
	"github.com/user/festmap/internal/router"
	"github.com/user/festmap/internal/service"
	"gorm.io/gorm"
)

func main() {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	// 向量库是可选的：未配置时相似推荐走内存计算
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = repository.InitDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("数据库连接失败: %v", err)
		}
	}

	// 初始化仓库
	repos := repository.NewRepositories(db, cfg.DataDir)
	defer repos.Close()

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 加载模板（使用 multitemplate 解决继承问题）
	renderer, err := router.LoadTemplates(cfg.TemplatesDir)
	if err != nil {
		log.Fatalf("加载模板失败: %v", err)
	}
	r.HTMLRender = renderer

	// 静态文件
	r.Static("/static", cfg.StaticDir)

	// 中间件
	r.Use(middleware.Logger())
	r.Use(middleware.Security())
	r.Use(middleware.CORS())

	// 初始化 Handler
	h := handler.NewHandler(repos, cfg)

	// 启动定时重载任务
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	service.NewReloadService(h, cfg.ReloadEvery).Start(ctx)

	// 注册路由
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		log.Printf("服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务器...")

	// 5 秒超时上下文用于关闭过程
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("服务器强制关闭:", err)
	}

	log.Println("服务器已退出")
}

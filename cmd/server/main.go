// Package main 是搜索服务的入口点：HTTP 查询接口、Kafka 增量同步和管理员重建。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"problem-search-go/internal/backend"
	"problem-search-go/internal/config"
	"problem-search-go/internal/handler"
	"problem-search-go/internal/metrics"
	"problem-search-go/internal/middleware"
	"problem-search-go/internal/pipeline"
	"problem-search-go/internal/repository"
	"problem-search-go/internal/service"
	"problem-search-go/pkg/database"
	"problem-search-go/pkg/kafka"
	"problem-search-go/pkg/log"
	"problem-search-go/pkg/storage"
	"problem-search-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. 初始化配置，路径可通过 PSEARCH_CONFIG 覆盖
	config.Init(config.ConfigPath())
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 收到 SIGINT/SIGTERM 时取消 ctx，Kafka 消费者和后端调用随之结束
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化数据库、Redis 和搜索后端
	db, err := database.InitMySQL(cfg.Database.MySQL)
	if err != nil {
		log.Fatal("failed to connect database", err)
	}
	rdb, err := database.InitRedis(cfg.Database.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", err)
	}
	searchBackend, closeBackend, err := backend.Open(ctx, &cfg)
	if err != nil {
		log.Fatal("搜索后端初始化失败", err)
	}
	defer func() {
		if err := closeBackend(); err != nil {
			log.Errorf("关闭搜索后端失败: %v", err)
		}
	}()
	var (
		archiver    service.ReportArchiver
		reportStore *storage.ReportStore
	)
	if cfg.MinIO.Endpoint != "" {
		reportStore, err = storage.NewReportStore(ctx, cfg.MinIO)
		if err != nil {
			log.Fatal("MinIO 初始化失败", err)
		}
		archiver = reportStore
	}

	// 4. 初始化 Repository
	problemRepo := repository.NewProblemRepository(db, cfg.Reindex.BatchSize)
	domainRepo := repository.NewDomainRepository(db)
	unionCache := repository.NewUnionCache(rdb, cfg.Cache.UnionTTL)

	// 5. 初始化同步管道和 Service (依赖注入)
	normalizer, err := pipeline.NewNormalizer(cfg.Elasticsearch.IndexOmit)
	if err != nil {
		log.Fatal("index_omit 配置无效", err)
	}
	syncer := pipeline.NewSyncer(searchBackend, normalizer)
	reindexer := pipeline.NewReindexer(problemRepo, searchBackend, normalizer, pipeline.ReindexOptions{
		ReportEvery: cfg.Reindex.ReportEvery,
		Workers:     cfg.Reindex.Workers,
	})
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	unionService := service.NewUnionService(domainRepo, unionCache)
	searchService := service.NewSearchService(searchBackend, unionService, cfg.Elasticsearch.IndexSize, cfg.Pagination.Problem)
	reindexService := service.NewReindexService(reindexer, archiver)
	publisher := kafka.NewPublisher(cfg.Kafka)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}()
	resyncService := service.NewResyncService(problemRepo, publisher)

	// 6. 启动后台 Kafka 消费者
	deadLetter := kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.DeadLetterTopic)
	defer deadLetter.Close()
	consumer := kafka.NewConsumer(cfg.Kafka, syncer, kafka.NewRedisAttemptCounter(rdb), deadLetter)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil {
			log.Error("Kafka 消费者异常退出", err)
		}
	}()

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), metrics.Middleware(), gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/problems/search", handler.NewSearchHandler(searchService).SearchProblems)

		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin := apiV1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtManager), middleware.AdminAuthMiddleware())
		{
			admin.GET("/reindex", handler.NewReindexHandler(reindexService).Stream)
			indexHandler := handler.NewIndexHandler(searchBackend, resyncService)
			admin.GET("/index/:domainId/:docId", indexHandler.GetDocument)
			admin.POST("/index/:domainId/:docId/resync", indexHandler.Resync)
			if reportStore != nil {
				admin.GET("/reports/*object", handler.NewReportHandler(reportStore).GetReportURL)
			}
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	<-ctx.Done()
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warnf("等待 Kafka 消费者退出超时")
	}
	log.Info("服务已优雅关闭")
}

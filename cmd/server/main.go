// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doc-vector-go/internal/config"
	"doc-vector-go/internal/enrich"
	"doc-vector-go/internal/handler"
	"doc-vector-go/internal/middleware"
	"doc-vector-go/internal/pipeline"
	"doc-vector-go/internal/repository"
	"doc-vector-go/internal/service"
	"doc-vector-go/pkg/database"
	"doc-vector-go/pkg/embedding"
	"doc-vector-go/pkg/es"
	"doc-vector-go/pkg/kafka"
	"doc-vector-go/pkg/llm"
	"doc-vector-go/pkg/log"
	"doc-vector-go/pkg/storage"
	"doc-vector-go/pkg/tika"
	"doc-vector-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、MinIO、Elasticsearch 与 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	docRepo := repository.NewDocumentRepository(database.DB)
	projectRepo := repository.NewProjectRepository(database.DB)
	statusRepo := repository.NewVectorStatusRepository(database.DB)
	collectionRepo := repository.NewCollectionRepository(database.DB)
	textCache := repository.NewTextCacheRepository(database.RDB)

	// 5. 初始化客户端与 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TokenExpireHours)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	enricher := enrich.NewEnricher(llmClient)
	store := es.NewStore(es.ESClient, cfg.Embedding.Dimensions)

	searchService := service.NewSearchService(store, embeddingClient, collectionRepo)
	documentService := service.NewDocumentService(store, statusRepo, collectionRepo, textCache)
	ingestService := service.NewIngestService(docRepo, projectRepo, statusRepo, textCache)

	// 6. 初始化文档处理管道
	credentialsOK := cfg.Embedding.APIKey != "" && cfg.LLM.APIKey != ""
	processor := pipeline.NewProcessor(
		tikaClient,
		embeddingClient,
		enricher,
		store,
		textCache,
		statusRepo,
		cfg.MinIO,
		cfg.Embedding,
		cfg.Chunking,
	)
	controller := pipeline.NewController(
		processor,
		store,
		docRepo,
		projectRepo,
		statusRepo,
		collectionRepo,
		credentialsOK,
	)

	// 7. 启动后台 Kafka 消费者，登记上传层发布的文档事件
	go kafka.StartConsumer(cfg.Kafka, ingestService)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(jwtManager))
	{
		// Pipeline 路由组
		pipelineGroup := apiV1.Group("/pipeline")
		{
			pipelineHandler := handler.NewPipelineHandler(controller, searchService)
			pipelineGroup.POST("/start", pipelineHandler.Start)
			pipelineGroup.POST("/stop", pipelineHandler.Stop)
			pipelineGroup.GET("/status", pipelineHandler.Status)
			pipelineGroup.GET("/status/stream", pipelineHandler.StatusStream)
			pipelineGroup.GET("/stats", pipelineHandler.Stats)
		}

		// Search 路由
		apiV1.GET("/search", handler.NewSearchHandler(searchService).Search)

		// Document 路由组
		documents := apiV1.Group("/documents")
		{
			documentHandler := handler.NewDocumentHandler(documentService)
			documents.GET("/:documentId", documentHandler.Status)
			documents.GET("/:documentId/content", documentHandler.FullContent)
			documents.DELETE("/:documentId", documentHandler.Delete)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 先请求取消所有活动运行，让 worker 在检查点干净退出
	for _, projectID := range controller.ActiveRuns() {
		_ = controller.StopRun(projectID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

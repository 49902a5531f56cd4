package http

import (
	"context"
	"strings"
	"time"

	"ProdHub/internal/config"
	"ProdHub/internal/initial"
	jwtMiddleware "ProdHub/internal/middleware/jwt"
	aiService "ProdHub/internal/modules/ai/application/service"
	"ProdHub/internal/modules/ai/domain/repository"
	"ProdHub/internal/modules/ai/infrastructure/assistant"
	"ProdHub/internal/modules/ai/infrastructure/embedding"
	"ProdHub/internal/modules/ai/infrastructure/llm"
	"ProdHub/internal/modules/ai/infrastructure/mq"
	"ProdHub/internal/modules/ai/infrastructure/mq/kafka"
	aiPersistence "ProdHub/internal/modules/ai/infrastructure/persistence"
	"ProdHub/internal/modules/ai/infrastructure/pipeline"
	aiQueue "ProdHub/internal/modules/ai/infrastructure/queue"
	"ProdHub/internal/modules/ai/infrastructure/vectordb"
	aiHandler "ProdHub/internal/modules/ai/interface/http"
	"ProdHub/internal/modules/ai/interface/scheduler"
	productService "ProdHub/internal/modules/product/application/service"
	productPersistence "ProdHub/internal/modules/product/infrastructure/persistence"
	userService "ProdHub/internal/modules/user/application/service"
	userPersistence "ProdHub/internal/modules/user/infrastructure/persistence"
	userHandler "ProdHub/internal/modules/user/interface/http"
	"ProdHub/pkg/ssl"
	"ProdHub/pkg/zlog"

	"github.com/cloudwego/eino/components/model"
	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"
)

var GE *gin.Engine

// 后台组件由 main 启动/关闭
var (
	Worker         *aiQueue.EmbedWorker
	ChangeConsumer mq.Consumer
	ChangeHandler  mq.Handler
	Scheduler      *scheduler.SchedulerManager
	ChangeTrigger  *productService.ChangeTriggerService
)

func init() {
	conf := config.GetConfig()

	GE = gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	GE.Use(cors.New(corsConfig))
	GE.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))

	ctx := context.Background()

	// 仓储
	reader := productPersistence.NewRecordReader(initial.GormDB)
	jobQueue := aiPersistence.NewJobQueue(initial.GormDB)
	embeddingRecords := aiPersistence.NewEmbeddingRecordRepository(initial.GormDB)
	assistantRecords := aiPersistence.NewAssistantRecordRepository(initial.GormDB)
	threadRecords := aiPersistence.NewThreadRecordRepository(initial.GormDB)
	syncedFiles := aiPersistence.NewSyncedFileRepository(initial.GormDB)

	// 向量库：配置了 Milvus 用 Milvus，否则内存实现兜底
	vectorDim := conf.MilvusConfig.VectorDim
	if vectorDim <= 0 {
		vectorDim = 1536
	}
	var vectorStore repository.VectorStore
	if initial.MilvusClient != nil {
		collection := strings.TrimSpace(conf.MilvusConfig.CollectionName)
		if collection == "" {
			collection = "prodhub_knowledge"
		}
		ms, err := vectordb.NewMilvusStore(initial.MilvusClient, collection, vectorDim, entity.COSINE)
		if err != nil {
			zlog.Fatal("milvus store init failed: " + err.Error())
		}
		vectorStore = ms
	} else {
		zlog.Warn("milvus not configured, using in-memory vector store")
		vectorStore = vectordb.NewMemoryStore(vectorDim)
	}

	// 嵌入与对话模型
	embedder, embedderMeta, err := embedding.NewEmbedderFromConfig(ctx, conf)
	if err != nil {
		zlog.Fatal("embedder init failed: " + err.Error())
	}
	var chatModel model.BaseChatModel
	if strings.TrimSpace(conf.AIConfig.ChatModel.Provider) != "" {
		cm, _, err := llm.NewChatModelFromConfig(ctx, conf)
		if err != nil {
			zlog.Warn("chat model init failed, retrieval-only answers disabled", zap.Error(err))
		} else {
			chatModel = cm
		}
	}

	// 托管助手客户端；缺少凭据时线程路径不可用
	var hosted repository.HostedAIClient
	if hc, err := assistant.NewOpenAIClientFromConfig(conf); err != nil {
		zlog.Warn("hosted assistant client unavailable", zap.Error(err))
	} else {
		hosted = hc
	}

	// 检索流水线
	retrievePipe, err := pipeline.NewRetrievePipeline(embedder, vectorStore, vectorDim)
	if err != nil {
		zlog.Fatal("retrieve pipeline init failed: " + err.Error())
	}

	// 嵌入 worker
	Worker = aiQueue.NewEmbedWorker(jobQueue, reader, embedder, embedderMeta, vectorStore, embeddingRecords, aiQueue.WorkerConfig{
		VisibilityTimeout: time.Duration(conf.QueueConfig.VisibilityTimeoutSeconds) * time.Second,
		MaxAttempts:       conf.QueueConfig.MaxAttempts,
		BatchSize:         conf.QueueConfig.BatchSize,
		PollInterval:      time.Duration(conf.QueueConfig.WorkerIntervalMs) * time.Millisecond,
		IdleBackoff:       time.Duration(conf.QueueConfig.WorkerIdleBackoffMs) * time.Millisecond,
	})

	// Kafka 变更链路；没有 broker 时触发器直接写队列
	var publisher mq.Publisher
	if len(conf.KafkaConfig.Brokers) > 0 {
		adminCfg := kafka.TopicAdminConfig{Brokers: conf.KafkaConfig.Brokers, ClientID: conf.KafkaConfig.ClientID}
		if err := kafka.EnsureTopic(adminCfg, conf.KafkaConfig.ChangeTopic, conf.KafkaConfig.Partitions, conf.KafkaConfig.Replication); err != nil {
			zlog.Warn("kafka topic ensure failed", zap.Error(err))
		}
		pub, err := kafka.NewPublisher(conf.KafkaConfig.Brokers, conf.KafkaConfig.ClientID)
		if err != nil {
			zlog.Warn("kafka publisher init failed, falling back to direct enqueue", zap.Error(err))
		} else {
			publisher = pub
		}
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:  conf.KafkaConfig.Brokers,
			GroupID:  conf.KafkaConfig.ConsumerGroupID,
			Topics:   []string{conf.KafkaConfig.ChangeTopic},
			ClientID: conf.KafkaConfig.ClientID,
		})
		if err != nil {
			zlog.Warn("kafka consumer init failed", zap.Error(err))
		} else {
			ChangeConsumer = consumer
			ChangeHandler = aiQueue.NewChangeConsumerWorker(jobQueue)
		}
	}
	ChangeTrigger = productService.NewChangeTriggerService(
		reader, publisher, jobQueue, conf.KafkaConfig.ChangeTopic, conf.AIConfig.Embedding.Enabled)

	// 应用服务
	exportSvc := aiService.NewExportService(reader, hosted, assistantRecords, syncedFiles, aiService.ExportConfig{
		Model:        conf.AIConfig.Assistant.Model,
		Instructions: conf.AIConfig.Assistant.Instructions,
	})
	threadSvc := aiService.NewThreadService(threadRecords, hosted, aiService.ThreadConfig{
		PollBase:   time.Duration(conf.AIConfig.Assistant.PollBaseMs) * time.Millisecond,
		PollMax:    time.Duration(conf.AIConfig.Assistant.PollMaxMs) * time.Millisecond,
		RunTimeout: time.Duration(conf.AIConfig.Assistant.RunTimeoutSeconds) * time.Second,
	})
	retrieveSvc := aiService.NewRetrieveService(retrievePipe)
	chatSvc := aiService.NewChatService(
		threadSvc, exportSvc, retrieveSvc, hosted, chatModel,
		jobQueue, Worker, conf.AIConfig.Embedding.Enabled)

	Scheduler = scheduler.NewSchedulerManager(
		conf.SchedulerConfig, exportSvc, reader, embeddingRecords, jobQueue, Worker)

	// Handler 与路由
	userSvc := userService.NewUserAccountService(userPersistence.NewUserAccountRepository(initial.GormDB))
	userH := userHandler.NewUserHandler(userSvc)
	chatH := aiHandler.NewChatHandler(chatSvc)
	queryH := aiHandler.NewQueryHandler(retrieveSvc)
	adminH := aiHandler.NewAdminHandler(exportSvc, chatSvc)

	GE.POST("/user/register", userH.Register)
	GE.POST("/user/login", userH.Login)

	authed := GE.Group("/")
	authed.Use(jwtMiddleware.Auth())
	authed.GET("/auth/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"tenant_id": c.GetString("tenant_id"),
			"user_id":   c.GetString("user_id"),
			"username":  c.GetString("username"),
		})
	})
	authed.GET("/user/info", userH.Info)
	authed.POST("/ai/chat", chatH.Chat)
	authed.POST("/ai/chat/stream", chatH.ChatStream)
	authed.POST("/ai/rag/query", queryH.Query)
	authed.POST("/ai/admin/sync", adminH.Sync)
	authed.POST("/ai/admin/index", adminH.Index)
	authed.GET("/ai/admin/queueStats", adminH.QueueStats)
}

package bootstrap

import (
	"context"
	"log"
	"time"

	"support-chat-be/internal/config"
	"support-chat-be/internal/controller"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/repository/implementation"
	"support-chat-be/internal/repository/memory"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/internal/service"
	"support-chat-be/pkg/budget"
	"support-chat-be/pkg/embedding"
	"support-chat-be/pkg/llm/factory"
	"support-chat-be/pkg/orchestrator"
	"support-chat-be/pkg/ratelimit"
	"support-chat-be/pkg/retrieval"
	"support-chat-be/pkg/retrieval/cache"
	"support-chat-be/pkg/synthesis"

	pktNats "support-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	QueryController    controller.IQueryController
	DocumentController controller.IDocumentController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Shared infrastructure main.go may need on shutdown
	Logger  logger.ILogger
	NatsPub *pktNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus (in-process queue for the indexing worker)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.HuggingFace,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// 5. Admission + retrieval + synthesis pipeline
	sessionRepo := memory.NewSessionRepository(time.Duration(cfg.Limits.SessionTTLHours) * time.Hour)
	limiter := ratelimit.NewLimiter(rdb, sysLogger)

	// Repositories used outside a transaction boundary
	messageRepo := implementation.NewChatMessageRepository(db)
	chunkRepo := implementation.NewDocumentChunkRepository(db)

	budgetTracker := budget.NewTracker(rdb, messageRepo, sysLogger)

	resultCache := cache.NewRedisCache(rdb, sysLogger)
	engine := retrieval.NewEngine(
		embeddingProvider,
		chunkRepo,
		resultCache,
		sysLogger,
		time.Duration(cfg.Limits.SearchCacheTTLSec)*time.Second,
	)

	generator := synthesis.NewGenerator(llmProvider, sysLogger)
	recorder := service.NewMessageRecorder(uowFactory, sysLogger)
	limitResolver := service.NewLimitResolver(uowFactory, cfg.Limits, sysLogger)

	orch := orchestrator.New(
		limiter,
		budgetTracker,
		sessionRepo,
		engine,
		generator,
		recorder,
		limitResolver,
		sysLogger,
	)

	// 6. Services
	queryService := service.NewQueryService(orch, sessionRepo, uowFactory, sysLogger, cfg.Limits.DefaultTopK)

	publisherService := service.NewPublisherService(cfg.Keys.DocumentTopic, pubSub)
	documentService := service.NewDocumentService(uowFactory, publisherService, eventPublisherOrNil(natsPub), engine, sysLogger)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.DocumentTopic,
		uowFactory,
		embeddingProvider,
		engine,
		eventPublisherOrNil(natsPub),
		sysLogger,
	)

	// Cross-instance cache invalidation (other instances index documents too)
	if natsSub != nil {
		invalidationService := service.NewInvalidationService(natsSub, engine, sysLogger)
		go invalidationService.Start()
	}

	// 7. Controllers
	return &Container{
		QueryController:    controller.NewQueryController(queryService),
		DocumentController: controller.NewDocumentController(documentService),
		ConsumerService:    consumerService,
		Logger:             sysLogger,
		NatsPub:            natsPub,
	}
}

// eventPublisherOrNil keeps a typed-nil *Publisher out of the EventPublisher
// interface so nil checks at the call sites stay meaningful.
func eventPublisherOrNil(p *pktNats.Publisher) service.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

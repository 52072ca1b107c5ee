package bootstrap

import (
	"context"
	"fmt"
	"time"

	"move-quote-be/internal/config"
	"move-quote-be/internal/controller"
	"move-quote-be/internal/handler"
	"move-quote-be/internal/pkg/logger"
	"move-quote-be/internal/pkg/mailer"
	"move-quote-be/internal/repository/cache"
	"move-quote-be/internal/repository/contract"
	"move-quote-be/internal/repository/memory"
	"move-quote-be/internal/repository/unitofwork"
	"move-quote-be/internal/service"
	"move-quote-be/internal/websocket"
	"move-quote-be/pkg/intake/options"
	"move-quote-be/pkg/intake/session"
	"move-quote-be/pkg/llm/factory"

	pktNats "move-quote-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const sessionPersistTopic = "session.persist"

type Container struct {
	// Controllers
	QuoteController   controller.IQuoteController
	ItemController    controller.IItemController
	AddressController controller.IAddressController
	HealthController  controller.IHealthController

	// Background services, run by main.go
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService

	// WebSockets
	IntakeHandler *handler.IntakeHandler
	WebSocketHub  *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// Close releases the broker and cache connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	c := &Container{}

	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c.Logger = sysLogger

	// 2. Sessions
	sessionRepo := memory.NewSessionRepository(cfg.Session.IdleTTL, cfg.Session.CleanupInterval, sysLogger)
	sessions := session.NewManager(sessionRepo, session.NewTokens(cfg.Session.Secret), sysLogger)

	// 3. Redis (history + hub fan-out); without it both stay process-local
	rdb := connectRedis(ctx, cfg.App.RedisURL, sysLogger)
	var history contract.HistoryRepository
	if rdb != nil {
		history = cache.NewRedisHistoryRepository(rdb, cfg.Session.MaxMessages, cfg.Session.IdleTTL)
		c.closers = append(c.closers, func() { rdb.Close() })
	} else {
		history = cache.NewMemoryHistoryRepository(cfg.Session.MaxMessages, cfg.Session.IdleTTL)
	}

	// 4. NATS
	var eventPublisher service.EventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOT", "NATS publisher unavailable, domain events disabled", map[string]interface{}{"error": err.Error()})
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOT", "NATS subscriber unavailable, confirmation emails disabled", map[string]interface{}{"error": err.Error()})
	} else {
		c.closers = append(c.closers, natsSub.Close)
	}

	// 5. Collaborators
	llmProvider, err := factory.NewLLMProvider(ctx, factory.Config{
		Provider:    cfg.Ai.LLMProvider,
		Model:       cfg.Ai.LLMModel,
		BaseURL:     cfg.Ai.LLMBaseURL,
		APIKey:      cfg.Keys.OpenAI,
		MaxTokens:   cfg.Ai.LLMMaxTokens,
		Temperature: float32(cfg.Ai.LLMTemperature),
		Timeout:     cfg.Intake.CollaboratorTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}
	sysLogger.Info("BOOT", "Using LLM provider", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "model": cfg.Ai.LLMModel})
	conversationEngine := service.NewConversationEngine(llmProvider, sysLogger)

	extractor, err := service.NewGeminiExtractor(ctx, cfg.Keys.GoogleGemini, cfg.Ai.VisionModel, sysLogger)
	if err != nil {
		return nil, fmt.Errorf("initialize vision extractor: %w", err)
	}
	resolver := service.NewGeoapifyResolver(cfg.Keys.Geoapify, sysLogger)

	quickOptions := options.Default()
	if cfg.Intake.QuickOptionsFile != "" {
		quickOptions, err = options.Load(cfg.Intake.QuickOptionsFile)
		if err != nil {
			return nil, fmt.Errorf("load quick option rules: %w", err)
		}
	}

	// 6. Session persistence queue
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { pubSub.Close() })
	publisherService := service.NewPublisherService(sessionPersistTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, sessionPersistTopic, uowFactory, sysLogger)

	// 7. Hub
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	// 8. Domain services
	quoteService := service.NewQuoteService(sessions, uowFactory, eventPublisher, c.WebSocketHub, sysLogger)
	itemService := service.NewItemService(sessions, uowFactory, extractor, cfg, sysLogger)
	addressService := service.NewAddressService(resolver, cfg.Intake.CollaboratorTimeout)
	intakeService := service.NewIntakeService(
		sessions,
		conversationEngine,
		resolver,
		quickOptions,
		history,
		itemService,
		quoteService,
		publisherService,
		cfg,
		sysLogger,
	)

	// 9. Confirmation mail
	if natsSub != nil {
		emailService := mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
			cfg.App.ClientURL,
		)
		c.NotificationService = service.NewNotificationService(natsSub, emailService, sysLogger)
	}

	// 10. Transport
	c.IntakeHandler = handler.NewIntakeHandler(ctx, c.WebSocketHub, websocket.NewDispatcher(intakeService, wsLogger), wsLogger)
	c.QuoteController = controller.NewQuoteController(quoteService)
	c.ItemController = controller.NewItemController(itemService, sessions)
	c.AddressController = controller.NewAddressController(addressService)
	c.HealthController = controller.NewHealthController(sessionRepo)

	return c, nil
}

// connectRedis returns nil when Redis is unreachable.
func connectRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOT", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("BOOT", "Redis unavailable, history and hub stay process-local", map[string]interface{}{"error": err.Error()})
		rdb.Close()
		return nil
	}
	return rdb
}

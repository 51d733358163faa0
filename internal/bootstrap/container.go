package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"swimcoach-be/internal/config"
	"swimcoach-be/internal/controller"
	"swimcoach-be/internal/pkg/logger"
	"swimcoach-be/internal/repository/memory"
	"swimcoach-be/internal/service"
	"swimcoach-be/pkg/events"
	"swimcoach-be/pkg/llm"
	"swimcoach-be/pkg/llm/factory"
	pktNats "swimcoach-be/pkg/nats"
	"swimcoach-be/pkg/rag/prompt"
	"swimcoach-be/pkg/rag/response"
	"swimcoach-be/pkg/rag/session"
	"swimcoach-be/pkg/rag/situation"
	"swimcoach-be/pkg/weather"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	LocationController controller.ILocationController
	IngestController   controller.IIngestController
	ChatController     controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	RAG    *RAG
	Logger logger.ILogger

	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
}

// Overrides swaps external providers, mainly for tests.
type Overrides struct {
	LLM     llm.LLMProvider
	Weather weather.Provider
	Events  events.Publisher
}

func NewContainer(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger, ov Overrides) (*Container, error) {
	// 1. Retrieval core
	rag, err := NewRAG(ctx, cfg, sysLogger)
	if err != nil {
		return nil, err
	}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		logger.NewWatermillAdapter(sysLogger.Named("watermill")),
	)

	c := &Container{RAG: rag, Logger: sysLogger, pubSub: pubSub}

	eventPublisher := ov.Events
	if eventPublisher == nil {
		eventPublisher = c.connectEvents(cfg)
	}

	// 3. Providers
	llmProvider := ov.LLM
	if llmProvider == nil {
		baseURL := cfg.Ai.LLMBaseURL
		if baseURL == "" && cfg.Ai.LLMProvider == "ollama" {
			baseURL = cfg.Ai.OllamaBaseURL
		}
		llmProvider, err = factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, baseURL, cfg.Keys.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
		}
	}
	sysLogger.Info("Bootstrap", "Using LLM Provider", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	weatherProvider := ov.Weather
	if weatherProvider == nil {
		weatherProvider = weather.NewOpenWeather(cfg.Keys.OpenWeather, cfg.Rag.WeatherCacheTTL, sysLogger.Named("weather"))
	}

	// 4. Conversation state
	sessionRepo := memory.NewSessionRepository(cfg.Rag.SessionTTL)
	sessions := session.NewManager(sessionRepo, cfg.Rag.SessionLimit)
	holder := situation.NewHolder()

	assembler := prompt.NewAssembler(rag.Search, cfg.Rag.TopK, prompt.DefaultPersona, sysLogger.Named("prompt"))
	genOpts := []llm.Option{llm.WithTemperature(cfg.Ai.Temperature)}
	if cfg.Ai.MaxTokens > 0 {
		genOpts = append(genOpts, llm.WithMaxTokens(cfg.Ai.MaxTokens))
	}
	generator := response.NewGenerator(assembler, llmProvider, cfg.Timeouts.Generate, sysLogger.Named("generator"), genOpts...)

	// 5. Services
	publisherService := service.NewPublisherService(cfg.App.IngestTopic, pubSub)
	ingestService := service.NewIngestService(rag.Pipeline, publisherService, eventPublisher, cfg.App.DocumentsDir, sysLogger)
	consumerService := service.NewConsumerService(pubSub, cfg.App.IngestTopic, ingestService, sysLogger)
	locationService := service.NewLocationService(weatherProvider, holder, eventPublisher, cfg.Timeouts.Weather, sysLogger)
	chatService := service.NewChatService(generator, sessions, holder, eventPublisher, cfg.Rag.SessionLimit, sysLogger)

	// 6. Controllers
	c.LocationController = controller.NewLocationController(locationService)
	c.IngestController = controller.NewIngestController(ingestService, cfg.App.UploadDir)
	c.ChatController = controller.NewChatController(chatService)
	c.ConsumerService = consumerService

	return c, nil
}

// connectEvents dials NATS when configured. The service runs without a bus
// when NATS is absent or unreachable.
func (c *Container) connectEvents(cfg *config.Config) events.Publisher {
	if cfg.App.NatsURL == "" {
		return events.NopPublisher{}
	}
	pub, err := pktNats.NewPublisher(cfg.App.NatsURL, c.Logger.Named("nats"))
	if err != nil {
		c.Logger.Warn("Bootstrap", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		return events.NopPublisher{}
	}
	c.natsPub = pub
	return pub
}

func (c *Container) Close() error {
	var errs []error
	if err := c.pubSub.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if err := c.RAG.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

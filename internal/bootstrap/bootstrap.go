package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/order-status-assistant/internal/config"
	"github.com/kirillkom/order-status-assistant/internal/core/ports"
	"github.com/kirillkom/order-status-assistant/internal/core/usecase"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/openai"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/records"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/storage/redisaudio"
	"github.com/kirillkom/order-status-assistant/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Metrics   *metrics.Metrics
	Store     *records.Store
	Audio     ports.AudioStore
	Bus       *nats.Bus
	Assistant *usecase.AssistantUseCase

	closers []func()
}

// New wires the assistant and its collaborators. Optional capabilities
// (language model, speech, NATS) are left out when not configured.
func New(ctx context.Context, cfg config.Config, service string) (_ *App, err error) {
	app := &App{
		Config:  cfg,
		Metrics: metrics.New(service),
	}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	exec := resilience.NewExecutor(resilienceConfig(cfg), app.Metrics.ObserveBreakerState)

	source, err := app.recordSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = records.NewStore(source, app.Metrics)
	if err := app.Store.Reload(ctx); err != nil {
		slog.Warn("records_initial_load_failed", "error", err.Error())
	}
	if spec := strings.TrimSpace(cfg.RecordsRefreshSchedule); spec != "" {
		stop, err := app.Store.StartSchedule(ctx, spec)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, stop)
	}

	completer, err := newCompleter(cfg, exec)
	if err != nil {
		return nil, err
	}

	if app.Audio, err = app.audioStore(ctx, cfg); err != nil {
		return nil, err
	}

	deps := usecase.AssistantDeps{
		Extractor:        usecase.NewFieldExtractor(completer, cfg.ExtractionTimeout),
		Store:            app.Store,
		Audio:            app.Audio,
		Metrics:          app.Metrics,
		RefreshOnRequest: cfg.RecordsRefreshOnRequest,
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		client := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIHTTPTimeout, exec)
		deps.Transcriber = openai.NewTranscriber(client, cfg.OpenAISTTModel, cfg.OpenAISTTLanguage)
		deps.Synthesizer = openai.NewSpeechSynthesizer(client, cfg.OpenAITTSModel, cfg.OpenAITTSVoice)
	} else {
		slog.Warn("openai_not_configured", "detail", "speech-to-text and text-to-speech are disabled")
	}

	if strings.TrimSpace(cfg.NATSURL) != "" {
		bus, err := nats.Connect(cfg.NATSURL, nats.Options{
			LookupSubject:         cfg.NATSLookupSubject,
			RecordsChangedSubject: cfg.NATSRecordsSubject,
			ResilienceExecutor:    exec,
		})
		if err != nil {
			return nil, fmt.Errorf("init message bus: %w", err)
		}
		app.Bus = bus
		app.closers = append(app.closers, bus.Close)
		deps.Events = bus
		app.listenRecordsChanged(ctx)
	}

	app.Assistant = usecase.NewAssistantUseCase(deps)
	return app, nil
}

func (a *App) recordSource(ctx context.Context, cfg config.Config) (ports.RecordSource, error) {
	if dsn := strings.TrimSpace(cfg.RecordsPostgresDSN); dsn != "" {
		repo, err := a.OpenOrderRepository(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}

	columns, err := ColumnMap(cfg)
	if err != nil {
		return nil, err
	}
	source, err := records.NewFileSource(cfg.RecordsPath, cfg.RecordsSheet, columns)
	if err != nil {
		return nil, fmt.Errorf("init record source: %w", err)
	}
	return source, nil
}

// OpenOrderRepository connects to Postgres and makes sure the orders table exists.
func (a *App) OpenOrderRepository(ctx context.Context, dsn string) (*postgres.OrderRepository, error) {
	db, err := postgres.OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.closers = append(a.closers, func() { _ = db.Close() })

	repo := postgres.NewOrderRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}

// ColumnMap returns the configured header mapping or the built-in default.
func ColumnMap(cfg config.Config) (records.ColumnMap, error) {
	path := strings.TrimSpace(cfg.RecordsColumnMap)
	if path == "" {
		return records.DefaultColumnMap(), nil
	}
	columns, err := records.LoadColumnMap(path)
	if err != nil {
		return records.ColumnMap{}, fmt.Errorf("load column map: %w", err)
	}
	return columns, nil
}

func (a *App) audioStore(ctx context.Context, cfg config.Config) (ports.AudioStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.AudioStore)) {
	case "", "localfs":
		storage, err := localfs.New(cfg.AudioStoragePath, cfg.AudioTTL)
		if err != nil {
			return nil, fmt.Errorf("init audio storage: %w", err)
		}
		a.closers = append(a.closers, storage.StartSweep(cfg.AudioTTL/2))
		return storage, nil
	case "redis":
		client, err := redisaudio.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("init audio storage: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return redisaudio.New(client, cfg.AudioTTL), nil
	default:
		return nil, fmt.Errorf("unknown AUDIO_STORE %q", cfg.AudioStore)
	}
}

func (a *App) listenRecordsChanged(ctx context.Context) {
	go func() {
		err := a.Bus.SubscribeRecordsChanged(ctx, func(handlerCtx context.Context) error {
			slog.Info("records_changed_received")
			return a.Store.Reload(handlerCtx)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("records_changed_subscription_failed", "error", err.Error())
		}
	}()
}

// newCompleter picks the language model behind the AI extraction tier.
// A nil completer leaves only the regex tier.
func newCompleter(cfg config.Config, exec *resilience.Executor) (ports.Completer, error) {
	switch provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider)); provider {
	case "", "none":
		return nil, nil
	case "ollama":
		return ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.LLMHTTPTimeout, exec), nil
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, errors.New("LLM_PROVIDER=gemini requires GEMINI_API_KEY")
		}
		return gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.LLMHTTPTimeout, exec), nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, errors.New("LLM_PROVIDER=openai requires OPENAI_API_KEY")
		}
		client := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLMHTTPTimeout, exec)
		return openai.NewChatCompleter(client, cfg.OpenAIChatModel), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", provider)
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	if cfg.RetryMaxAttempts > 0 {
		out.RetryMaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialBackoff > 0 {
		out.RetryInitialBackoff = cfg.RetryInitialBackoff
	}
	if cfg.RetryMaxBackoff > 0 {
		out.RetryMaxBackoff = cfg.RetryMaxBackoff
	}
	if cfg.BreakerOpenTimeout > 0 {
		out.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	}
	out.BreakerEnabled = cfg.BreakerEnabled
	return out
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

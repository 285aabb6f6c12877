package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/sme-health/internal/config"
	"github.com/kirillkom/sme-health/internal/core/catalog"
	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/core/engine"
	"github.com/kirillkom/sme-health/internal/core/narrative"
	"github.com/kirillkom/sme-health/internal/core/ports"
	"github.com/kirillkom/sme-health/internal/core/reconcile"
	"github.com/kirillkom/sme-health/internal/core/usecase"
	"github.com/kirillkom/sme-health/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/sme-health/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/sme-health/internal/infrastructure/loader/tabular"
	"github.com/kirillkom/sme-health/internal/infrastructure/queue/nats"
	"github.com/kirillkom/sme-health/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/sme-health/internal/infrastructure/resilience"
	"github.com/kirillkom/sme-health/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/sme-health/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.AssessmentRepository
	AssessUC  *usecase.AssessUseCase
	ProcessUC ports.AssessmentProcessor

	closeFn func()
}

// New wires the service graph used by the api and worker binaries.
// oracleMetrics may be nil.
func New(ctx context.Context, cfg config.Config, oracleMetrics *metrics.OracleMetrics) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewAssessmentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilienceConfig(cfg, oracleMetrics)),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	pipeline, err := NewPipeline(ctx, cfg, oracleMetrics)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	loader := tabular.New()
	processUC := usecase.NewProcessAssessmentUseCase(repo, storage, loader, pipeline)
	assessUC := usecase.NewAssessUseCase(repo, storage, queue, processUC, loader, cfg.AsyncMode)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		AssessUC:  assessUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// NewPipeline builds the compute path without any persistence so the
// command line tool can share it with the services.
func NewPipeline(ctx context.Context, cfg config.Config, oracleMetrics *metrics.OracleMetrics) (*usecase.Pipeline, error) {
	model, err := NewLanguageModel(ctx, cfg, resilience.NewExecutor(resilienceConfig(cfg, oracleMetrics)))
	if err != nil {
		return nil, err
	}

	var (
		onMapping   reconcile.FallbackHook
		onNarrative narrative.FallbackHook
	)
	if oracleMetrics != nil {
		onMapping = func(kind domain.DatasetKind, reason string) {
			oracleMetrics.MappingFallback(string(kind), reason)
		}
		onNarrative = oracleMetrics.NarrativeFallback
	}

	cat := catalog.Default()
	eng := engine.New(cat, reconcile.NewOracle(model, cat, onMapping))
	narrator := narrative.NewNarrator(model, onNarrative)
	return usecase.NewPipeline(eng, narrator, cfg.ForecastHorizon), nil
}

// NewLanguageModel returns the configured provider, or nil when none is set
// or the selected provider has no credentials. A nil model sends mapping and
// narrative down their rule-based paths.
func NewLanguageModel(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.LanguageModel, error) {
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		slog.Info("llm_provider_selected", "provider", cfg.LLMProvider, "model", cfg.OllamaGenModel)
		return ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, ollama.Options{
			Timeout:            cfg.LLMTimeout,
			ResilienceExecutor: executor,
		}), nil
	case config.ProviderGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			slog.Warn("llm_provider_unconfigured",
				"provider", cfg.LLMProvider,
				"reason", "GEMINI_API_KEY is not set",
			)
			return nil, nil
		}
		client, err := gemini.New(ctx, cfg.GeminiAPIKey, gemini.Options{
			Model:              cfg.GeminiModel,
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		slog.Info("llm_provider_selected", "provider", cfg.LLMProvider, "model", cfg.GeminiModel)
		return client, nil
	case config.ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func resilienceConfig(cfg config.Config, oracleMetrics *metrics.OracleMetrics) resilience.Config {
	rc := resilience.DefaultConfig()
	if cfg.LLMRetryMaxAttempts > 0 {
		rc.RetryMaxAttempts = cfg.LLMRetryMaxAttempts
	}
	rc.BreakerEnabled = cfg.LLMBreakerEnabled
	if oracleMetrics != nil {
		rc.OnStateChange = oracleMetrics.BreakerStateChange
	}
	return rc
}

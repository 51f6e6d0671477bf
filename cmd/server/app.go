package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/loomkit/loom-api/internal/config"
	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/events"
	"github.com/loomkit/loom-api/internal/llm"
	"github.com/loomkit/loom-api/internal/llm/factory"
	"github.com/loomkit/loom-api/internal/platform/postgres"
	"github.com/loomkit/loom-api/internal/platform/redis"
	"github.com/loomkit/loom-api/internal/rag"
	"github.com/loomkit/loom-api/internal/service/auth"
	"github.com/loomkit/loom-api/internal/store"
	"github.com/loomkit/loom-api/internal/task"
)

// application holds the shared application dependencies so wiring and
// shutdown live in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool

	userStore store.UserStore
	docStore  store.DocumentStore
	convStore store.ConversationStore
	taskStore task.TaskStore

	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	llmClient        llm.Client
	ragService       *rag.Service
	ingestor         *rag.Ingestor
	answerCache      *redis.AnswerCache

	eventEmitter events.EventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication wires all dependencies. The task runner is started
// here so crashed tasks recover before the server accepts requests.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	log *slog.Logger,
	pool *pgxpool.Pool,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: log,
		pool:   pool,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.passwordVerifier = auth.NewBcryptVerifier()

	app.userStore = postgres.NewUserStore(pool, log, bcrypt.DefaultCost)
	app.docStore = postgres.NewDocumentStore(pool, log)
	app.convStore = postgres.NewConversationStore(pool, log)

	app.llmClient, err = factory.New(ctx, log, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	log.Info("LLM client initialized",
		slog.String("provider", cfg.LLM.Provider),
		slog.String("model", app.llmClient.ModelName()))

	prompts, err := rag.LoadPrompts(cfg.RAG.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	// The cache is optional: no Redis URL means answers are generated
	// fresh on every request.
	var cache rag.Cache
	if cfg.Cache.RedisURL != "" {
		app.answerCache, err = redis.NewAnswerCache(ctx, log, cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize answer cache: %w", err)
		}
		cache = app.answerCache
		log.Info("answer cache enabled")
	}

	app.ragService, err = rag.NewService(
		app.llmClient,
		app.docStore,
		app.convStore,
		prompts,
		cache,
		defaultSettings(cfg.LLM),
		cfg.RAG,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create RAG service: %w", err)
	}

	inTx := func(ctx context.Context, fn store.TxFn) error {
		return store.RunInTransaction(ctx, pool, fn)
	}
	app.ingestor, err = rag.NewIngestor(
		app.docStore,
		app.llmClient,
		rag.NewChunker(rag.DefaultChunkSize, rag.DefaultChunkOverlap),
		inTx,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingestor: %w", err)
	}

	taskFactory, err := task.NewIngestionTaskFactory(app.ingestor, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create task factory: %w", err)
	}

	// The factory doubles as the reconstructor so tasks persisted before
	// a crash come back as executable ingestion tasks.
	app.taskStore = postgres.NewTaskStore(pool, log, taskFactory)

	app.taskRunner = task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		QueueSize:    cfg.Task.QueueSize,
		WorkerCount:  cfg.Task.WorkerCount,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, log)
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(task.NewIngestionEventHandler(taskFactory, app.taskRunner, log))
	app.eventEmitter = emitter

	log.Info("application initialized")
	return app, nil
}

// defaultSettings derives the base generation settings from config,
// falling back to the domain defaults for unset values.
func defaultSettings(cfg config.LLMConfig) domain.GenerationSettings {
	settings := domain.DefaultGenerationSettings()
	if cfg.DefaultTemperature > 0 {
		settings.Temperature = cfg.DefaultTemperature
	}
	if cfg.DefaultMaxTokens > 0 {
		settings.MaxTokens = cfg.DefaultMaxTokens
	}
	return settings
}

// Run starts the HTTP server and blocks until shutdown.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup releases application resources in reverse dependency order.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.answerCache != nil {
		if err := app.answerCache.Close(); err != nil {
			app.logger.Error("failed to close answer cache", slog.String("error", err.Error()))
		}
	}

	if app.pool != nil {
		app.pool.Close()
	}

	app.logger.Info("application shutdown completed")
}

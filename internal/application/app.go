package application

import (
	"context"
	"fmt"
	"time"

	"github.com/diarist/server/internal/application/usecase"
	"github.com/diarist/server/internal/domain/repository"
	"github.com/diarist/server/internal/domain/service"
	domaintool "github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/infrastructure/auth"
	"github.com/diarist/server/internal/infrastructure/blobstore"
	"github.com/diarist/server/internal/infrastructure/config"
	"github.com/diarist/server/internal/infrastructure/github"
	"github.com/diarist/server/internal/infrastructure/imagegen"
	"github.com/diarist/server/internal/infrastructure/llm"
	_ "github.com/diarist/server/internal/infrastructure/llm/anthropic" // register anthropic provider factory
	_ "github.com/diarist/server/internal/infrastructure/llm/openai"    // register openai provider factory
	"github.com/diarist/server/internal/infrastructure/monitoring"
	"github.com/diarist/server/internal/infrastructure/persistence"
	toolpkg "github.com/diarist/server/internal/infrastructure/tool"
	httpServer "github.com/diarist/server/internal/interfaces/http"
	"github.com/diarist/server/internal/interfaces/http/handlers"
	"github.com/diarist/server/internal/interfaces/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 应用程序
type App struct {
	// 配置
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB

	// 仓储层
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	journalRepo      repository.JournalRepository
	githubLinkRepo   repository.GitHubLinkRepository

	// 基础设施
	metrics      *monitoring.Metrics
	hooks        *service.HookChain
	resolver     *auth.JWTResolver
	provider     llm.Provider
	blobs        blobstore.Store
	images       imagegen.Generator
	toolRegistry domaintool.Registry
	toolExecutor *toolpkg.Executor

	// 应用服务
	chatUseCase    *usecase.ChatTurnUseCase
	historyUseCase *usecase.HistoryUseCase
	journalUseCase *usecase.JournalUseCase
	draftUseCase   *usecase.DraftUseCase
	githubUseCase  *usecase.GitHubUseCase

	httpServer *httpServer.Server
}

// NewApp 创建应用程序（依赖注入容器）
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := config.Bootstrap(logger); err != nil {
		logger.Warn("Bootstrap failed (non-fatal)", zap.Error(err))
	}

	app := &App{
		config: cfg,
		logger: logger,
	}

	// 初始化各层组件
	if err := app.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}

	if err := app.initApplicationServices(); err != nil {
		return nil, fmt.Errorf("failed to init application services: %w", err)
	}

	if err := app.initInterfaces(); err != nil {
		return nil, fmt.Errorf("failed to init interfaces: %w", err)
	}

	return app, nil
}

// NewHistoryReader 只连接数据库并构建历史回放，供 CLI 使用。
// 不启动服务器，不创建模型供应商。
func NewHistoryReader(cfg *config.Config, logger *zap.Logger) (*usecase.HistoryUseCase, func(), error) {
	db, err := persistence.Open(&cfg.Database, persistence.GormLogLevel("error"))
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	uc := usecase.NewHistoryUseCase(
		persistence.NewGormConversationRepository(db),
		persistence.NewGormMessageRepository(db),
		nil, logger,
	)
	return uc, closeDB, nil
}

// initRepositories 初始化仓储层
func (app *App) initRepositories() error {
	app.logger.Info("Initializing repositories", zap.String("database", app.config.Database.Type))

	db, err := persistence.NewDBConnection(&app.config.Database, persistence.GormLogLevel(app.config.Log.Level))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.db = db

	app.conversationRepo = persistence.NewGormConversationRepository(db)
	app.messageRepo = persistence.NewGormMessageRepository(db)
	app.journalRepo = persistence.NewGormJournalRepository(db)
	app.githubLinkRepo = persistence.NewGormGitHubLinkRepository(db)
	return nil
}

// initInfrastructure 初始化基础设施
func (app *App) initInfrastructure(ctx context.Context) error {
	app.logger.Info("Initializing infrastructure")
	cfg := app.config

	// 指标 + 钩子
	app.metrics = monitoring.NewMetrics()
	app.hooks = service.NewHookChain(monitoring.NewMetricsHook(app.metrics))

	resolver, err := auth.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		return err
	}
	app.resolver = resolver

	// 模型供应商（熔断保护）
	provider, err := llm.CreateProvider(llm.ProviderConfig{
		Type:      cfg.Model.Provider,
		BaseURL:   cfg.Model.BaseURL,
		APIKey:    cfg.Model.APIKey,
		Model:     cfg.Model.Model,
		MaxTokens: cfg.Model.MaxTokens,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("create model provider: %w", err)
	}
	app.provider = llm.WithCircuitBreaker(provider, llm.NewCircuitBreaker(5, 30*time.Second), app.logger)

	if err := app.initImages(ctx); err != nil {
		return err
	}

	// Tool Registry + Executor
	registry, err := domaintool.NewInMemoryRegistry()
	if err != nil {
		return err
	}
	app.toolRegistry = registry
	toolpkg.RegisterAllTools(toolpkg.ToolLayerDeps{
		Registry:       registry,
		Logger:         app.logger,
		Images:         app.images,
		PlaceholderURL: cfg.Image.PlaceholderURL,
	})
	app.toolExecutor = toolpkg.NewExecutor(registry, app.hooks, app.logger)

	app.logger.Info("Infrastructure ready",
		zap.String("provider", app.provider.Name()),
		zap.Strings("providers_available", llm.Registered()),
		zap.Int("tools", len(registry.List())),
	)
	return nil
}

// initImages 图片存储与缩略图生成
func (app *App) initImages(ctx context.Context) error {
	cfg := app.config

	switch cfg.Storage.Type {
	case "gcs":
		store, err := blobstore.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile, cfg.Storage.PublicBaseURL)
		if err != nil {
			return fmt.Errorf("create gcs store: %w", err)
		}
		app.blobs = store
	default:
		store, err := blobstore.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
		if err != nil {
			return fmt.Errorf("create local store: %w", err)
		}
		app.blobs = store
	}

	apiKey := cfg.Image.APIKey
	if apiKey == "" && cfg.Model.Provider == "openai" {
		apiKey = cfg.Model.APIKey
	}
	switch {
	case cfg.Image.Provider == "openai" && apiKey != "":
		app.images = imagegen.Rehost(imagegen.NewOpenAI(apiKey, "", cfg.Image.Model), app.blobs, cfg.Image.FetchTimeout)
	default:
		app.logger.Warn("Image generation disabled, thumbnails use the placeholder")
		app.images = imagegen.Placeholder{URL: cfg.Image.PlaceholderURL}
	}
	return nil
}

// initApplicationServices 初始化应用服务
func (app *App) initApplicationServices() error {
	app.logger.Info("Initializing application services")
	cfg := app.config

	model := valueobject.NewModelConfig(cfg.Model.Provider, cfg.Model.Model, cfg.Model.MaxTokens, config.ResolveSystemPrompt(cfg.Model))
	recorder := usecase.NewTurnRecorder(app.messageRepo, app.hooks, app.logger)
	app.chatUseCase = usecase.NewChatTurnUseCase(
		app.conversationRepo, app.messageRepo, recorder,
		app.provider, app.toolExecutor, model, app.hooks, app.logger,
	)
	app.historyUseCase = usecase.NewHistoryUseCase(app.conversationRepo, app.messageRepo, app.hooks, app.logger)
	app.journalUseCase = usecase.NewJournalUseCase(app.journalRepo, app.conversationRepo, app.messageRepo, app.logger)
	app.draftUseCase = usecase.NewDraftUseCase(app.conversationRepo, app.messageRepo, app.journalRepo, app.logger)

	location, err := time.LoadLocation(cfg.GitHub.Timezone)
	if err != nil {
		app.logger.Warn("Unknown github timezone, using UTC", zap.String("timezone", cfg.GitHub.Timezone), zap.Error(err))
		location = time.UTC
	}
	commits, err := github.NewClient("", cfg.GitHub.RepoLimit, app.logger)
	if err != nil {
		return err
	}
	app.githubUseCase = usecase.NewGitHubUseCase(
		app.githubLinkRepo,
		github.NewOAuth(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.RedirectURL),
		commits,
		auth.NewStateSigner(cfg.Auth.JWTSecret, 10*time.Minute),
		location,
		app.logger,
	)
	return nil
}

// initInterfaces 初始化接口层
func (app *App) initInterfaces() error {
	app.logger.Info("Initializing interfaces")
	cfg := app.config

	hub := websocket.NewHub(app.logger)
	ws := websocket.NewHandler(hub, app.chatUseCase, app.metrics, []string{cfg.Server.PublicBaseURL}, app.logger)

	srvCfg := httpServer.Config{
		Addr: cfg.Server.Addr(),
		Mode: cfg.Server.Mode,
	}
	if cfg.Metrics.Enabled {
		srvCfg.MetricsPath = cfg.Metrics.Path
	}
	if local, ok := app.blobs.(*blobstore.LocalStore); ok {
		srvCfg.UploadsDir = local.Dir()
	}

	app.httpServer = httpServer.NewServer(srvCfg, httpServer.Deps{
		Resolver:       app.resolver,
		Chat:           handlers.NewChatHandler(app.chatUseCase, app.metrics, app.logger),
		Conversations:  handlers.NewConversationHandler(app.historyUseCase, app.logger),
		Journals:       handlers.NewJournalHandler(app.journalUseCase, app.logger),
		Drafts:         handlers.NewDraftHandler(app.draftUseCase, app.logger),
		GitHub:         handlers.NewGitHubHandler(app.githubUseCase, cfg.Server.PublicBaseURL, app.logger),
		ChatWS:         gin.WrapF(ws.ServeWS),
		Registry:       app.metrics.Registry(),
		MetricsHandler: app.metrics.Handler(),
	}, app.logger)
	return nil
}

// Start 启动应用程序
func (app *App) Start(ctx context.Context) error {
	app.logger.Info("Starting application")

	if err := app.httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	app.logger.Info("Application started successfully")
	return nil
}

// Stop 停止应用程序
func (app *App) Stop(ctx context.Context) error {
	app.logger.Info("Stopping application")

	// 停止HTTP服务器
	if err := app.httpServer.Stop(ctx); err != nil {
		app.logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	if closer, ok := app.blobs.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			app.logger.Error("Failed to close blob store", zap.Error(err))
		}
	}

	// 关闭数据库连接
	if app.db != nil {
		sqlDB, err := app.db.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				app.logger.Error("Failed to close database connection", zap.Error(err))
			}
		}
	}

	app.logger.Info("Application stopped successfully")
	return nil
}

// Logger returns the application logger
func (app *App) Logger() *zap.Logger {
	return app.logger
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"vision-relay-go/internal/app/analysis"
	domainauth "vision-relay-go/internal/domain/auth"
	"vision-relay-go/internal/domain/credential"
	"vision-relay-go/internal/domain/eventbus"
	domainimage "vision-relay-go/internal/domain/image"
	"vision-relay-go/internal/domain/provider"
	platformconfig "vision-relay-go/internal/platform/config"
	platformerrors "vision-relay-go/internal/platform/errors"
	"vision-relay-go/internal/platform/httpclient"
	platformlogging "vision-relay-go/internal/platform/logging"
	platformobservability "vision-relay-go/internal/platform/observability"
	platformstorage "vision-relay-go/internal/platform/storage"
	httptransport "vision-relay-go/internal/transport/http"
	httpvision "vision-relay-go/internal/transport/http/vision"
	"vision-relay-go/internal/utils"
)

const shutdownGrace = 15 * time.Second

// Options control how the service starts.
type Options struct {
	// ConfigPath pins the config file; empty falls back to the environment
	// and then config.yaml.
	ConfigPath string
	// SkipDotEnv disables loading .env.
	SkipDotEnv bool
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts                  Options
	config                *platformconfig.Config
	configPath            string
	logProvider           *platformlogging.Logger
	logger                *utils.Logger
	slogger               *slog.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	db                    *gorm.DB
	credentialStore       credential.Store
	resolver              *credential.Resolver
	eventBus              *eventbus.AsyncEventBus
	eventRepo             *platformstorage.EventRepository
	authToken             *domainauth.AuthToken
	orchestrator          *analysis.Orchestrator
}

// Run starts the service and blocks until ctx ends or a signal arrives.
func Run(ctx context.Context, opts Options) error {
	state := &appState{opts: opts}
	defer state.close()

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}
	logger := state.logger
	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(rootCtx)

	// A failed server cancels groupCtx, which ends the wait below.
	signalCtx, stop := signal.NotifyContext(groupCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	return waitForShutdown(signalCtx, cancel, logger, group)
}

// IssueToken signs an API token for clientID with the configured secret.
func IssueToken(opts Options, clientID string) (string, error) {
	state := &appState{opts: opts}
	if err := loadConfigStep(context.Background(), state); err != nil {
		return "", err
	}
	if state.config.Server.Token == "" {
		return "", platformerrors.New(platformerrors.KindConfig, "bootstrap.issue-token",
			"server.token is empty, API authentication is disabled")
	}
	return domainauth.NewAuthToken(state.config.Server.Token).
		WithTTL(state.config.Server.TokenTTL).
		GenerateToken(clientID)
}

func logBootstrapGraph(steps []initStep, logger *utils.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "init graph")
	for _, step := range steps {
		deps := "none"
		if len(step.DependsOn) > 0 {
			deps = strings.Join(step.DependsOn, ", ")
		}
		logger.InfoTag("BOOT", "  %s: %s (after %s)", step.ID, step.Title, deps)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "execute init steps", "nil bootstrap state")
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(platformerrors.KindBootstrap, step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep))
			}
		}
		if step.Execute == nil {
			return platformerrors.New(platformerrors.KindBootstrap, step.ID, "missing execute function")
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Open database and run migrations",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "credentials:init-store",
			Title:     "Initialise credential store",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindStorage,
			Execute:   initCredentialsStep,
		},
		{
			ID:        "events:init-bus",
			Title:     "Start analysis event bus",
			DependsOn: []string{"storage:init-database"},
			Execute:   initEventBusStep,
		},
		{
			ID:        "auth:init-token",
			Title:     "Initialise API token verifier",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindAuth,
			Execute:   initAuthStep,
		},
		{
			ID:        "analysis:init-orchestrator",
			Title:     "Initialise analysis orchestrator",
			DependsOn: []string{"credentials:init-store", "events:init-bus", "observability:setup-hooks"},
			Execute:   initOrchestratorStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	res, err := platformconfig.NewLoader().
		WithDotEnv(!state.opts.SkipDotEnv).
		WithPath(state.opts.ConfigPath).
		Load()
	if err != nil {
		return err
	}
	state.config = res.Config
	state.configPath = res.Path
	if state.configPath == "" {
		state.configPath = "defaults"
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	logProvider, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logProvider = logProvider
	state.logger = logProvider.Legacy()
	state.slogger = logProvider.Slog()
	utils.DefaultLogger = state.logger

	state.logger.InfoTag("BOOT", "logging ready [%s] config from %s", state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}
	shutdown, err := platformobservability.Setup(ctx, cfg, state.slogger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	db, err := platformstorage.Open(platformstorage.Config{DSN: state.config.Storage.DSN})
	if err != nil {
		return err
	}
	state.db = db
	state.logger.InfoTag("STORAGE", "database ready at %s", state.config.Storage.DSN)
	return nil
}

func initCredentialsStep(ctx context.Context, state *appState) error {
	store, err := credential.New(state.config.CredentialStore(), credential.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "credentials:init-store", "failed to create credential store", err)
	}
	state.credentialStore = store

	sets := state.config.SeedSets()
	if err := credential.Seed(ctx, store, sets); err != nil {
		return err
	}
	state.resolver = credential.NewResolver(store, state.logger, state.config.Credentials.Order...)
	state.logger.InfoTag("CREDENTIALS", "%s store ready, %d set(s) seeded, resolution order %s",
		state.config.Credentials.Store.Type, len(sets), strings.Join(state.resolver.Order(), " > "))
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.NewAsyncEventBus(state.config.Events.Workers, state.logger)

	var recorder eventbus.Recorder
	if state.config.Events.Persist {
		state.eventRepo = platformstorage.NewEventRepository(state.db)
		recorder = state.eventRepo
	}
	if err := eventbus.SetupEventHandlers(bus, eventbus.NewEventHandler(state.logger, recorder)); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "events:init-bus", "failed to subscribe event handlers", err)
	}
	bus.Start()
	state.eventBus = bus
	return nil
}

func initAuthStep(_ context.Context, state *appState) error {
	if state.config.Server.Token == "" {
		state.logger.WarnTag("BOOT", "server.token is empty, API routes are unauthenticated")
		return nil
	}
	state.authToken = domainauth.NewAuthToken(state.config.Server.Token).WithTTL(state.config.Server.TokenTTL)
	return nil
}

func initOrchestratorStep(_ context.Context, state *appState) error {
	sender := httpclient.New(httpclient.Options{Logger: state.logger})
	state.orchestrator = analysis.NewOrchestrator(analysis.Options{
		Registry: provider.DefaultRegistry(),
		Resolver: state.resolver,
		Sender:   sender,
		Catalog:  provider.NewCatalog(sender, state.logger),
		Logger:   state.logger,
		Bus:      state.eventBus.Async(),
	})
	return nil
}

func buildRouter(state *appState) (*gin.Engine, error) {
	var authMiddleware gin.HandlerFunc
	if state.authToken != nil {
		authMiddleware = httptransport.BearerAuth(state.authToken)
	}
	router, err := httptransport.Build(httptransport.Options{
		Config:         state.config,
		Logger:         state.logger,
		AuthMiddleware: authMiddleware,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build router", err)
	}

	router.Engine.NoRoute(func(c *gin.Context) {
		httptransport.RespondError(c, http.StatusNotFound, "api not found", gin.H{})
	})

	opts := httpvision.Options{
		Config:       state.config,
		Logger:       state.logger,
		Orchestrator: state.orchestrator,
		Pipeline: domainimage.NewPipeline(domainimage.Options{
			Logger:  state.logger,
			MaxSize: state.config.Vision.MaxUploadBytes,
		}),
		Credentials: state.credentialStore,
	}
	if state.eventRepo != nil {
		opts.Events = state.eventRepo
	}
	visionService, err := httpvision.NewService(opts)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindVision, "vision:new-service", "failed to create vision service", err)
	}
	visionService.Register(router.API, router.Secured)
	return router.Engine, nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	engine, err := buildRouter(state)
	if err != nil {
		return nil, err
	}

	logger := state.logger
	addr := state.config.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on http://%s/api/vision", addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				utils.MinDuration(state.config.Server.ShutdownTimeout, shutdownGrace))
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "graceful shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server stopped")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, logger *utils.Logger, g *errgroup.Group) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "shutting down: %v", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(shutdownGrace):
		logger.ErrorTag("BOOT", "shutdown timed out after %s", shutdownGrace)
		return errors.New("shutdown timed out")
	}
	return nil
}

// close releases resources in reverse init order. Safe on partial state.
func (s *appState) close() {
	if s.eventBus != nil {
		s.eventBus.Stop()
	}
	if s.credentialStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.credentialStore.Close(ctx); err != nil {
			s.logger.WarnTag("CREDENTIALS", "credential store close failed: %v", err)
		}
		cancel()
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil {
			s.logger.WarnTag("STORAGE", "database close failed: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		_ = s.observabilityShutdown(context.Background())
	}
	if s.logProvider != nil {
		_ = s.logProvider.Close()
	}
}

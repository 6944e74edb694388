package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"PublishGate/internal/authors"
	"PublishGate/internal/config"
	"PublishGate/internal/domain"
	"PublishGate/internal/infrastructure/httpapi"
	"PublishGate/internal/infrastructure/memstore"
	"PublishGate/internal/infrastructure/pacer"
	"PublishGate/internal/infrastructure/publisher"
	"PublishGate/internal/infrastructure/registry"
	"PublishGate/internal/infrastructure/storage"
	"PublishGate/internal/linkpolicy"
	"PublishGate/internal/logging"
	"PublishGate/internal/metrics"
	"PublishGate/internal/ports"
	"PublishGate/internal/risk"
	"PublishGate/internal/shortcode"
	"PublishGate/internal/usecase"
	"PublishGate/internal/validator"
	"PublishGate/pkg/logger"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	validator  *validator.Validator
	dispatcher *usecase.Dispatcher
	server     *httpapi.Server

	pool  *pgxpool.Pool
	redis *redis.Client
}

// New connects the configured stores and builds the publish pipeline.
// An empty database DSN runs on the in-memory store.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(a.registry)

	var (
		content ports.ContentRepository
		catalog ports.CatalogRepository
		ids     ports.IdentifierRegistry
	)
	switch {
	case cfg.Database.DSN != "":
		pool, err := storage.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.pool = pool
		pg := storage.NewPostgres(pool)
		content, catalog, ids = pg, pg, pg
	case cfg.Store.SeedFile != "":
		store, err := memstore.LoadSeed(cfg.Store.SeedFile)
		if err != nil {
			return nil, err
		}
		content, catalog, ids = store, store, store
		baseLogger.Info("using in-memory store", "seed", cfg.Store.SeedFile)
	default:
		// An empty store knows no identifiers, so references stay unverified instead of invalid.
		store := memstore.New()
		content, catalog = store, store
		baseLogger.Warn("no database configured, using empty in-memory store")
	}
	if len(cfg.Links.CompetitorDomains) == 0 {
		baseLogger.Warn("links.competitorDomains is empty, competitor links will not be blocked")
	}

	if cfg.Redis.Addr != "" && ids != nil {
		client, err := registry.Connect(ctx, cfg.Redis.Addr)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		ids = registry.NewCached(ids, client, cfg.Redis.CacheTTL, baseLogger.With("component", "registry.cache"), m)
	}

	a.validator = BuildValidator(cfg, ids, baseLogger, m)

	dirs := Authors(cfg)
	endpoint := publisher.NewClient(map[domain.Environment]string{
		domain.EnvStaging:    cfg.Publish.StagingURL,
		domain.EnvProduction: cfg.Publish.ProductionURL,
	}, cfg.Publish.APIKey, cfg.Publish.Timeout)

	a.dispatcher = usecase.NewDispatcher(usecase.DispatcherDeps{
		Validator: a.validator,
		Content:   content,
		Catalog:   catalog,
		Endpoint:  endpoint,
		Pacer:     pacer.New(clockwork.NewRealClock(), cfg.Publish.BulkDelay),
		Authors:   dirs,
		Detached:  usecase.NewDetached(cfg.Publish.SideSyncTimeout, baseLogger.With("component", "side-sync"), m),
		Policy:    cfg.Policy,
		Timeout:   cfg.Publish.Timeout,
		Logger:    baseLogger.With("component", "dispatcher"),
		Metrics:   m,
	})

	a.server = httpapi.New(httpapi.Deps{
		Validator: a.validator,
		Publisher: a.dispatcher,
		Content:   content,
		Policy:    cfg.Policy,
		Gatherer:  a.registry,
		Logger:    baseLogger.With("component", "http"),
	})

	return a, nil
}

// Authors builds the approved-author directory from configuration.
func Authors(cfg config.Config) *authors.Directory {
	list := make([]domain.Author, 0, len(cfg.Authors))
	for _, author := range cfg.Authors {
		list = append(list, domain.Author{ID: author.ID, DisplayName: author.DisplayName})
	}
	return authors.NewDirectory(list)
}

// BuildValidator assembles the evaluators from configuration. ids may be nil.
func BuildValidator(cfg config.Config, ids ports.IdentifierRegistry, baseLogger *slog.Logger, m *metrics.Metrics) *validator.Validator {
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	defs := shortcode.DefaultDefinitions()
	if len(cfg.Shortcodes.Definitions) > 0 {
		defs = make([]shortcode.Definition, 0, len(cfg.Shortcodes.Definitions))
		for _, def := range cfg.Shortcodes.Definitions {
			kind, _ := domain.ParseShortcodeKind(def.Kind)
			defs = append(defs, shortcode.Definition{
				Tag:      def.Tag,
				Kind:     kind,
				Required: def.Required,
				Optional: def.Optional,
			})
		}
	}

	return validator.New(validator.Deps{
		Authors: Authors(cfg),
		Links: linkpolicy.New(linkpolicy.Lists{
			InternalDomains:        cfg.Links.InternalDomains,
			BlockedSuffixes:        cfg.Links.BlockedSuffixes,
			CompetitorDomains:      cfg.Links.CompetitorDomains,
			AllowedExternalDomains: cfg.Links.AllowedExternalDomains,
		}),
		Shortcodes: shortcode.New(
			shortcode.NewRegistry(defs...),
			shortcode.Options{BlockUnknown: cfg.Shortcodes.BlockUnknown},
			ids,
			baseLogger.With("component", "shortcodes"),
		),
		Risk:    risk.New(cfg.Risk.Weights, cfg.Risk.Bands),
		Floors:  cfg.Floors,
		Logger:  baseLogger.With("component", "validator"),
		Metrics: m,
	})
}

// Handler exposes the HTTP routes.
func (a *Application) Handler() http.Handler {
	return a.server.Routes()
}

// Run serves the HTTP API until ctx is cancelled, then shuts down and drains side tasks.
func (a *Application) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.Server.ListenAddr,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		ErrorLog:     logger.New(a.logger, "http"),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		a.dispatcher.Drain()
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		err = errors.Join(err, serveErr)
	}
	a.dispatcher.Drain()
	return err
}

// Close releases database and cache connections.
func (a *Application) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/soccer-registry/internal/config"
	"github.com/riskibarqy/soccer-registry/internal/domain/uow"
	"github.com/riskibarqy/soccer-registry/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/soccer-registry/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/soccer-registry/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/soccer-registry/internal/observability"
	idgen "github.com/riskibarqy/soccer-registry/internal/platform/id"
	"github.com/riskibarqy/soccer-registry/internal/platform/logging"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
	"github.com/riskibarqy/soccer-registry/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

// App is the wired pipeline: one store and the services built on it.
type App struct {
	Config    config.Config
	Logger    *logging.Logger
	Store     uow.Store
	Resolver  *usecase.ResolverService
	Ingestion *usecase.IngestionService
	Dedup     *usecase.DedupService
	Merge     *usecase.MergeService
	Audit     *usecase.AuditService

	closers []func(context.Context) error
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init uptrace: %w", err)
	}
	a.closers = append(a.closers, shutdownUptrace)

	stopPyroscope, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("init pyroscope: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return stopPyroscope() })

	store, err := a.openStore(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if cfg.CacheEnabled {
		store = cache.NewStore(store, cfg.CacheTTL)
	}
	a.Store = store

	ids := idgen.NewUUIDGenerator()
	a.Resolver = usecase.NewResolverService(ids, cfg.IngestSeasonYear, logger)
	a.Ingestion = usecase.NewIngestionService(store, a.Resolver, ids, logger)
	a.Dedup = usecase.NewDedupService(store, cfg.Dedup, cfg.DedupSampleSize, logger)
	a.Merge = usecase.NewMergeService(store, a.Dedup, ids, cfg.MergeWorkers, logger)
	a.Audit = usecase.NewAuditService(store)

	return a, nil
}

// GrantWrite issues the token for one pipeline run under the configured actor.
func (a *App) GrantWrite(runID string) (writeauth.Token, error) {
	return writeauth.Grant(a.Config.PipelineActor, runID)
}

func (a *App) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func (a *App) openStore(ctx context.Context) (uow.Store, error) {
	switch a.Config.StoreDriver {
	case config.StoreDriverMemory:
		a.Logger.Warn("using in-memory store; nothing survives the process")
		return memory.NewStore(), nil
	case config.StoreDriverPostgres:
		db, err := openDB(ctx, a.Config)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		a.Logger.Info("postgres connected", "db_name", dbNameFromURL(a.Config.DBURL), "traced", a.Config.DBTrace)
		return postgres.NewStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", a.Config.StoreDriver)
	}
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := NormalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	var (
		db  *sqlx.DB
		err error
	)
	if cfg.DBTrace {
		db, err = otelsqlx.Open("postgres", dsn,
			otelsql.WithDBSystem("postgresql"),
			otelsql.WithDBName(dbNameFromURL(dsn)),
			otelsql.WithQueryFormatter(formatDBQueryForTrace),
		)
	} else {
		db, err = sqlx.Open("postgres", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Merge workers each hold one transaction; leave room for reads.
	db.SetMaxOpenConns(cfg.MergeWorkers + 4)
	db.SetMaxIdleConns(cfg.MergeWorkers + 1)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

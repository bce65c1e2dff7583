package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/statfuse/statfuse/internal/config"
	"github.com/statfuse/statfuse/internal/domain/team"
	"github.com/statfuse/statfuse/internal/infrastructure/alerting"
	cacherepo "github.com/statfuse/statfuse/internal/infrastructure/repository/cache"
	"github.com/statfuse/statfuse/internal/infrastructure/repository/postgres"
	"github.com/statfuse/statfuse/internal/merger"
	"github.com/statfuse/statfuse/internal/normalizer"
	basecache "github.com/statfuse/statfuse/internal/platform/cache"
	idgen "github.com/statfuse/statfuse/internal/platform/id"
	"github.com/statfuse/statfuse/internal/platform/logging"
	"github.com/statfuse/statfuse/internal/platform/resilience"
	"github.com/statfuse/statfuse/internal/resolver"
	"github.com/statfuse/statfuse/internal/transform"
	"github.com/statfuse/statfuse/internal/usecase"
)

// App wires the ingestion pipeline against postgres.
type App struct {
	Coordinator *usecase.CoordinatorService
	Ingestion   *usecase.IngestionService
	Query       *usecase.QueryService

	db     *sqlx.DB
	logger *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := otelsqlx.Connect("postgres", cfg.DBURL,
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	aliases, err := normalizer.LoadAliasTable(cfg.AliasTablePath)
	if err != nil {
		return nil, fmt.Errorf("load alias table %s: %w", cfg.AliasTablePath, err)
	}
	priorities, err := merger.LoadPriorityTable(cfg.PriorityTablePath)
	if err != nil {
		return nil, fmt.Errorf("load priority table %s: %w", cfg.PriorityTablePath, err)
	}

	var teamRepo team.Repository = postgres.NewTeamRepository(db)
	if cfg.CacheEnabled {
		teamRepo = cacherepo.NewTeamRepository(teamRepo, basecache.NewStore(cfg.CacheTTL))
	}
	playerRepo := postgres.NewPlayerRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	statRepo := postgres.NewGameStatRepository(db)
	provRepo := postgres.NewProvenanceRepository(db)
	archiveRepo := postgres.NewRawArchiveRepository(db)

	norm := normalizer.New(aliases)
	res := resolver.New(norm, teamRepo, playerRepo, eventRepo, provRepo, idgen.NewRandomGenerator(), logger)
	merge := merger.New(statRepo, eventRepo, provRepo, priorities, logger)

	ingestion := usecase.NewIngestionService(
		transform.DefaultRegistry(),
		res,
		merge,
		provRepo,
		archiveRepo,
		logger,
	)

	var alerts usecase.AlertPublisher = usecase.NewNoopAlertPublisher()
	if cfg.AlertWebhookEnabled {
		alerts = alerting.NewWebhookPublisher(alerting.WebhookPublisherConfig{
			URL:       cfg.AlertWebhookURL,
			AuthToken: cfg.AlertWebhookToken,
			Timeout:   cfg.AlertWebhookTimeout,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.AlertWebhookCircuitEnabled,
				FailureThreshold: cfg.AlertWebhookCircuitFailureCount,
				OpenTimeout:      cfg.AlertWebhookCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.AlertWebhookCircuitHalfOpenReq,
			},
		}, logger)
	}

	return &App{
		Coordinator: usecase.NewCoordinatorService(ingestion, alerts, cfg.CoordinatorWorkers, logger),
		Ingestion:   ingestion,
		Query:       usecase.NewQueryService(playerRepo, eventRepo, statRepo, logger),
		db:          db,
		logger:      logger,
	}, nil
}

func (a *App) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

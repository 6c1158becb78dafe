package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/config"
	"github.com/careflow/careflow/internal/domain/analytics"
	"github.com/careflow/careflow/internal/domain/flow"
	"github.com/careflow/careflow/internal/domain/generator"
	"github.com/careflow/careflow/internal/domain/referral"
	"github.com/careflow/careflow/internal/domain/step"
	"github.com/careflow/careflow/internal/domain/stepsync"
	"github.com/careflow/careflow/internal/platform/clinical"
	"github.com/careflow/careflow/internal/platform/db"
	"github.com/careflow/careflow/internal/platform/middleware"
)

const (
	version       = "0.1.0"
	maxBodySize   = "2M"
	clinicalConns = 4
)

// app holds the wired services for one process.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	pool         *pgxpool.Pool
	clinicalPool *pgxpool.Pool

	steps     *step.Service
	flows     *flow.Service
	sync      *stepsync.Synchronizer
	generator *generator.Generator
	analytics *analytics.Engine
	referrals *referral.Service
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(stdout).With().Timestamp().Logger()
}

// buildApp opens the configured stores and wires every service.
func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var (
		stepRepo     step.Repository
		flowRepo     flow.Repository
		referralRepo referral.Repository
	)
	if cfg.UsesPostgres() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		logger.Info().Msg("connected to database")
		stepRepo = step.NewRepoPG(pool)
		flowRepo = flow.NewRepoPG(pool)
		referralRepo = referral.NewRepoPG(pool)
	} else {
		logger.Warn().Msg("using in-memory storage, data is lost on exit")
		stepRepo = step.NewRepoMemory()
		flowRepo = flow.NewRepoMemory()
		referralRepo = referral.NewRepoMemory()
	}

	a.flows = flow.NewService(flowRepo)
	a.steps = step.NewService(stepRepo)
	a.steps.SetReferenceCounter(a.flows)
	a.referrals = referral.NewService(referralRepo)
	a.sync = stepsync.NewSynchronizer(a.steps, a.flows, cfg.SyncMaxRetries, logger)

	var (
		names   clinical.NameLookup
		summary clinical.SummaryProvider
	)
	if cfg.ClinicalDatabaseURL != "" {
		cp, err := db.NewReadOnlyPool(ctx, cfg.ClinicalDatabaseURL, clinicalConns)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("clinical database: %w", err)
		}
		a.clinicalPool = cp
		names = clinical.NewLookupPG(cp)
		summary = clinical.NewSummaryPG(cp, cfg.GeneratorTopN)
	} else {
		logger.Warn().Msg("CLINICAL_DATABASE_URL not set, generator uses an empty clinical summary")
		static := clinical.NewStatic(clinical.Summary{}, nil)
		names, summary = static, static
	}
	names = clinical.NewCachedLookup(names, cfg.LookupCacheTTL)

	a.generator = generator.New(a.flows, names, summary, cfg.GeneratorTopN, logger)
	a.generator.SetCriteriaFinder(a.referrals)

	var agg analytics.Aggregator
	if a.pool != nil {
		agg = analytics.NewAggregatorPG(a.pool)
	} else {
		agg = analytics.NewWalkAggregator(a.flows)
	}
	a.analytics = analytics.NewEngine(agg, analytics.NewSource(cfg.AnalyticsSeed), logger)
	return a, nil
}

func (a *app) Close() {
	if a.clinicalPool != nil {
		a.clinicalPool.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// routes builds the HTTP server.
func (a *app) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"storage": a.cfg.StorageBackend,
		})
	})
	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool))
	}

	api := e.Group("/api/v1")
	api.Use(middleware.RequestTimeout(a.cfg.RequestTimeout))
	if a.pool != nil {
		api.Use(db.SessionMiddleware(a.pool))
	}

	flow.NewHandler(a.flows).RegisterRoutes(api)
	stepsync.NewHandler(a.sync).RegisterRoutes(api)
	step.NewHandler(a.steps).RegisterRoutes(api)
	generator.NewHandler(a.generator).RegisterRoutes(api)
	analytics.NewHandler(a.analytics).RegisterRoutes(api)
	referral.NewHandler(a.referrals).RegisterRoutes(api)
	return e
}

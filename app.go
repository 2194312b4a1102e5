package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"fuel-registry/internal/audit"
	"fuel-registry/internal/config"
	"fuel-registry/internal/eventbus"
	fuelapp "fuel-registry/internal/fuel/application"
	fuel "fuel-registry/internal/fuel/domain"
	"fuel-registry/internal/fuel/infrastructure/memory"
	fuelpostgres "fuel-registry/internal/fuel/infrastructure/postgres"
	"fuel-registry/internal/observability/metrics"
)

// app holds the wired registry components shared by the commands.
type app struct {
	db          *sql.DB
	bus         *eventbus.InMemoryBus
	service     *fuelapp.Service
	dashboard   *fuelapp.Dashboard
	auditLogger audit.Logger
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	if err := cfg.RequireStore(); err != nil {
		return nil, err
	}

	a := &app{bus: eventbus.NewInMemoryBus(logger.Named("eventbus"))}
	var repo fuel.Repository
	switch cfg.Store {
	case config.StorePostgres:
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		if err := fuelpostgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db schema: %w", err)
		}
		a.db = db
		repo = fuelpostgres.NewRecordRepository(db)
		a.auditLogger = audit.NewRepository(db)
	default:
		repo = memory.NewRecordRepository()
		a.auditLogger = audit.NewZapLogger(logger)
	}

	metrics.Init(a.db, logger)

	service, err := fuelapp.NewService(repo, cfg.Variant,
		fuelapp.WithEventBus(a.bus),
		fuelapp.WithAllowedTypes(cfg.FuelTypes),
		fuelapp.WithLogger(logger.Named("fuel")),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	dashboard, err := fuelapp.NewDashboard(service, cfg.Variant,
		fuelapp.WithTrendWindow(cfg.TrendWindowDays),
		fuelapp.WithCurrency(cfg.CurrencyLabel, cfg.PriceUnit),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.service = service
	a.dashboard = dashboard
	return a, nil
}

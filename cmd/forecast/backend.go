package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"menu-forecast/internal/config"
	"menu-forecast/internal/normalization"
	"menu-forecast/internal/storage"
	chstore "menu-forecast/internal/storage/clickhouse"
	"menu-forecast/internal/storage/memory"
	"menu-forecast/internal/storage/migrations"
	"menu-forecast/internal/storage/postgres"
)

// backend is the observation source and forecast store of one storage choice.
type backend struct {
	name   string
	source storage.ObservationSource
	store  storage.ForecastStore
	close  func()
}

func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		return openPostgres(ctx, cfg, log)
	case config.BackendClickhouse:
		return openClickhouse(ctx, cfg, log)
	default:
		return openMemory(ctx, cfg, log)
	}
}

func openMemory(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	obs, err := normalization.LoadObservationsFile(cfg.Storage.Fixture)
	if err != nil {
		return nil, err
	}
	source := memory.NewObservationStore()
	if err := source.InsertBulk(ctx, obs); err != nil {
		return nil, fmt.Errorf("load fixture: %w", err)
	}
	log.Info().Str("fixture", cfg.Storage.Fixture).Int("observations", len(obs)).Msg("memory backend ready")

	return &backend{
		name:   config.BackendMemory,
		source: source,
		store:  memory.NewForecastStore(),
		close:  func() {},
	}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("postgres migrations applied")
	}

	return &backend{
		name:   config.BackendPostgres,
		source: postgres.NewObservationSource(pool, cfg.Series.Timezone),
		store:  postgres.NewForecastStore(pool),
		close:  pool.Close,
	}, nil
}

func openClickhouse(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	var (
		conn *chstore.Conn
		err  error
	)
	if cfg.Storage.Migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err == nil {
			log.Info().Msg("clickhouse migrations applied")
		}
	} else {
		conn, err = chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	}
	if err != nil {
		return nil, err
	}

	return &backend{
		name:   config.BackendClickhouse,
		source: chstore.NewObservationStore(conn),
		store:  chstore.NewForecastStore(conn),
		close: func() {
			if err := conn.Close(); err != nil {
				log.Warn().Err(err).Msg("close clickhouse")
			}
		},
	}, nil
}

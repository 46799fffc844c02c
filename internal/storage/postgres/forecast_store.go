package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"menu-forecast/internal/domain"
	"menu-forecast/internal/storage"
)

// ForecastStore implements storage.ForecastStore using PostgreSQL.
type ForecastStore struct {
	pool *Pool
}

// NewForecastStore creates a new ForecastStore.
func NewForecastStore(pool *Pool) *ForecastStore {
	return &ForecastStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ForecastStore = (*ForecastStore)(nil)

const upsertForecastQuery = `
	INSERT INTO menu_daily_forecast (menu_id, ds, yhat, yhat_lo, yhat_hi, model, trained_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (menu_id, ds, model) DO UPDATE SET
		yhat = EXCLUDED.yhat,
		yhat_lo = EXCLUDED.yhat_lo,
		yhat_hi = EXCLUDED.yhat_hi,
		trained_at = EXCLUDED.trained_at
`

// UpsertBulk writes rows in one transaction. Any invalid row rejects the batch.
func (s *ForecastStore) UpsertBulk(ctx context.Context, forecasts []*domain.Forecast) error {
	if len(forecasts) == 0 {
		return nil
	}
	for _, f := range forecasts {
		if err := storage.ValidateForecast(f); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, f := range forecasts {
		batch.Queue(upsertForecastQuery,
			f.EntityID,
			domain.Day(f.Date),
			f.Point,
			f.Lower,
			f.Upper,
			f.ModelTag,
			f.TrainedAt.UTC(),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert forecasts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByEntity retrieves every row of an entity, ordered by ds, model.
func (s *ForecastStore) GetByEntity(ctx context.Context, entityID int64) ([]*domain.Forecast, error) {
	query := `
		SELECT menu_id, ds, yhat, yhat_lo, yhat_hi, model, trained_at
		FROM menu_daily_forecast
		WHERE menu_id = $1
		ORDER BY ds ASC, model ASC
	`

	rows, err := s.pool.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("get forecasts by entity: %w", err)
	}
	defer rows.Close()

	return scanForecasts(rows)
}

// GetActive retrieves the latest trained row per ds for an entity.
func (s *ForecastStore) GetActive(ctx context.Context, entityID int64) ([]*domain.Forecast, error) {
	query := `
		SELECT DISTINCT ON (ds) menu_id, ds, yhat, yhat_lo, yhat_hi, model, trained_at
		FROM menu_daily_forecast
		WHERE menu_id = $1
		ORDER BY ds ASC, trained_at DESC, model ASC
	`

	rows, err := s.pool.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("get active forecasts: %w", err)
	}
	defer rows.Close()

	return scanForecasts(rows)
}

func scanForecasts(rows pgx.Rows) ([]*domain.Forecast, error) {
	var out []*domain.Forecast
	for rows.Next() {
		var f domain.Forecast
		err := rows.Scan(&f.EntityID, &f.Date, &f.Point, &f.Lower, &f.Upper, &f.ModelTag, &f.TrainedAt)
		if err != nil {
			return nil, fmt.Errorf("scan forecast row: %w", err)
		}
		f.Date = domain.Day(f.Date)
		f.TrainedAt = f.TrainedAt.UTC()
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecast rows: %w", err)
	}
	return out, nil
}

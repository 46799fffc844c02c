package clickhouse

import (
	"context"
	"fmt"

	"menu-forecast/internal/domain"
	"menu-forecast/internal/storage"
)

// ForecastStore implements storage.ForecastStore using ClickHouse.
// The table is a ReplacingMergeTree keyed by (menu_id, ds, model) with
// trained_at as version, so reads go through FINAL.
type ForecastStore struct {
	conn *Conn
}

// NewForecastStore creates a new ForecastStore.
func NewForecastStore(conn *Conn) *ForecastStore {
	return &ForecastStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ForecastStore = (*ForecastStore)(nil)

// UpsertBulk writes all rows as one insert block.
func (s *ForecastStore) UpsertBulk(ctx context.Context, forecasts []*domain.Forecast) error {
	if len(forecasts) == 0 {
		return nil
	}
	for _, f := range forecasts {
		if err := storage.ValidateForecast(f); err != nil {
			return err
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO menu_daily_forecast (
			menu_id, ds, yhat, yhat_lo, yhat_hi, model, trained_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, f := range forecasts {
		err = batch.Append(
			f.EntityID, domain.Day(f.Date),
			f.Point, f.Lower, f.Upper,
			f.ModelTag, f.TrainedAt.UTC(),
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByEntity retrieves every row of an entity, ordered by ds, model.
func (s *ForecastStore) GetByEntity(ctx context.Context, entityID int64) ([]*domain.Forecast, error) {
	query := `
		SELECT menu_id, ds, yhat, yhat_lo, yhat_hi, model, trained_at
		FROM menu_daily_forecast FINAL
		WHERE menu_id = ?
		ORDER BY ds ASC, model ASC
	`

	rows, err := s.conn.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("query forecasts by entity: %w", err)
	}
	defer rows.Close()

	return scanForecasts(rows)
}

// GetActive retrieves the latest trained row per ds for an entity.
func (s *ForecastStore) GetActive(ctx context.Context, entityID int64) ([]*domain.Forecast, error) {
	query := `
		SELECT menu_id, ds, yhat, yhat_lo, yhat_hi, model, trained_at
		FROM menu_daily_forecast FINAL
		WHERE menu_id = ?
		ORDER BY ds ASC, trained_at DESC, model ASC
		LIMIT 1 BY ds
	`

	rows, err := s.conn.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("query active forecasts: %w", err)
	}
	defer rows.Close()

	return scanForecasts(rows)
}

// scanForecasts scans multiple rows.
func scanForecasts(rows chRows) ([]*domain.Forecast, error) {
	var out []*domain.Forecast

	for rows.Next() {
		var f domain.Forecast
		err := rows.Scan(
			&f.EntityID, &f.Date,
			&f.Point, &f.Lower, &f.Upper,
			&f.ModelTag, &f.TrainedAt,
		)
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

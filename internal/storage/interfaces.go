package storage

import (
	"context"
	"math"

	"menu-forecast/internal/domain"
)

// ObservationSource provides read access to daily sales facts.
type ObservationSource interface {
	// GetEntityIDs returns every known entity (the menu catalogue), ascending.
	// Entities without any sales are included.
	GetEntityIDs(ctx context.Context) ([]int64, error)

	// GetObservations returns all (entity, date, quantity) facts.
	// Same-day facts may appear more than once; callers sum them.
	GetObservations(ctx context.Context) ([]*domain.Observation, error)
}

// ForecastStore provides access to menu_daily_forecast storage.
type ForecastStore interface {
	// UpsertBulk writes rows atomically, keyed by (entity_id, date, model_tag).
	// An existing row with the same key has its values and trained_at replaced.
	// Rows under other model tags for the same (entity_id, date) are left untouched.
	UpsertBulk(ctx context.Context, forecasts []*domain.Forecast) error

	// GetByEntity retrieves every row of an entity, ordered by date ASC, model_tag ASC.
	GetByEntity(ctx context.Context, entityID int64) ([]*domain.Forecast, error)

	// GetActive retrieves one row per date for an entity: the row with the latest trained_at.
	// Ties on trained_at resolve to the lexically smallest model_tag. Ordered by date ASC.
	GetActive(ctx context.Context, entityID int64) ([]*domain.Forecast, error)
}

// ValidateForecast checks a row before it is written.
func ValidateForecast(f *domain.Forecast) error {
	if f == nil || f.ModelTag == "" || f.Date.IsZero() || f.TrainedAt.IsZero() {
		return ErrInvalidInput
	}
	for _, v := range []float64{f.Point, f.Lower, f.Upper} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidInput
		}
	}
	return nil
}

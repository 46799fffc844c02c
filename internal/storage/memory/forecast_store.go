package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"menu-forecast/internal/domain"
	"menu-forecast/internal/storage"
)

type forecastKey struct {
	entityID int64
	date     time.Time
	modelTag string
}

// ForecastStore is an in-memory implementation of storage.ForecastStore.
type ForecastStore struct {
	mu   sync.RWMutex
	data map[forecastKey]*domain.Forecast
}

// NewForecastStore creates a new in-memory forecast store.
func NewForecastStore() *ForecastStore {
	return &ForecastStore{
		data: make(map[forecastKey]*domain.Forecast),
	}
}

// Compile-time interface check.
var _ storage.ForecastStore = (*ForecastStore)(nil)

// UpsertBulk writes rows atomically. Any invalid row rejects the whole batch.
func (s *ForecastStore) UpsertBulk(_ context.Context, forecasts []*domain.Forecast) error {
	if len(forecasts) == 0 {
		return nil
	}

	// First pass: validate everything before touching state
	for _, f := range forecasts {
		if err := storage.ValidateForecast(f); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range forecasts {
		cp := *f
		cp.Date = domain.Day(f.Date)
		s.data[forecastKey{f.EntityID, cp.Date, f.ModelTag}] = &cp
	}
	return nil
}

// GetByEntity retrieves every row of an entity, ordered by date, model tag.
func (s *ForecastStore) GetByEntity(_ context.Context, entityID int64) ([]*domain.Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Forecast
	for k, f := range s.data {
		if k.entityID == entityID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sortForecasts(out)
	return out, nil
}

// GetActive retrieves the latest trained row per date for an entity.
func (s *ForecastStore) GetActive(ctx context.Context, entityID int64) ([]*domain.Forecast, error) {
	all, err := s.GetByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return latestPerDate(all), nil
}

// Len returns the number of stored rows.
func (s *ForecastStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func sortForecasts(fs []*domain.Forecast) {
	sort.Slice(fs, func(i, j int) bool {
		if !fs[i].Date.Equal(fs[j].Date) {
			return fs[i].Date.Before(fs[j].Date)
		}
		return fs[i].ModelTag < fs[j].ModelTag
	})
}

// latestPerDate keeps the row with the latest TrainedAt per date.
// Input must be sorted by date, model tag.
func latestPerDate(sorted []*domain.Forecast) []*domain.Forecast {
	var out []*domain.Forecast
	for _, f := range sorted {
		n := len(out)
		if n > 0 && out[n-1].Date.Equal(f.Date) {
			if f.TrainedAt.After(out[n-1].TrainedAt) {
				out[n-1] = f
			}
			continue
		}
		out = append(out, f)
	}
	return out
}

package memory

import (
	"context"
	"sort"
	"sync"

	"menu-forecast/internal/domain"
	"menu-forecast/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationSource.
// It also holds the menu catalogue.
type ObservationStore struct {
	mu           sync.RWMutex
	entities     map[int64]struct{}
	observations []*domain.Observation
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		entities: make(map[int64]struct{}),
	}
}

// Compile-time interface check.
var _ storage.ObservationSource = (*ObservationStore)(nil)

// AddEntities registers catalogue entries, with or without sales.
func (s *ObservationStore) AddEntities(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.entities[id] = struct{}{}
	}
}

// InsertBulk appends observations. Entities are registered implicitly.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []*domain.Observation) error {
	for _, o := range obs {
		if o == nil || o.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range obs {
		cp := *o
		cp.Date = domain.Day(o.Date)
		s.observations = append(s.observations, &cp)
		s.entities[o.EntityID] = struct{}{}
	}
	return nil
}

// GetEntityIDs returns every known entity, ascending.
func (s *ObservationStore) GetEntityIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// GetObservations returns copies of all observations ordered by (entity, date).
func (s *ObservationStore) GetObservations(_ context.Context) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Observation, 0, len(s.observations))
	for _, o := range s.observations {
		cp := *o
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

package clickhouse

import (
	"context"
	"fmt"

	"menu-forecast/internal/domain"
	"menu-forecast/internal/storage"
)

// ObservationStore implements storage.ObservationSource over the menus and
// menu_daily_qty tables. Quantities are already bucketed by business day.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationSource = (*ObservationStore)(nil)

// AddEntities registers menu ids in the catalogue.
func (s *ObservationStore) AddEntities(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO menus (id)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, id := range ids {
		if err := batch.Append(id); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// InsertBulk appends daily quantities. Their menus are registered too.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	seen := make(map[int64]struct{})
	var ids []int64
	for _, o := range obs {
		if o == nil || o.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		if _, ok := seen[o.EntityID]; !ok {
			seen[o.EntityID] = struct{}{}
			ids = append(ids, o.EntityID)
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO menu_daily_qty (menu_id, ds, y)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, o := range obs {
		if err := batch.Append(o.EntityID, domain.Day(o.Date), o.Quantity); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return s.AddEntities(ctx, ids...)
}

// GetEntityIDs returns the menu catalogue, ascending.
func (s *ObservationStore) GetEntityIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT id FROM menus FINAL ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query menu ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan menu id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu ids: %w", err)
	}
	return ids, nil
}

// GetObservations returns daily quantities ordered by (menu_id, ds).
func (s *ObservationStore) GetObservations(ctx context.Context) ([]*domain.Observation, error) {
	query := `
		SELECT menu_id, ds, sum(y) AS y
		FROM menu_daily_qty
		GROUP BY menu_id, ds
		ORDER BY menu_id ASC, ds ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

func scanObservations(rows chRows) ([]*domain.Observation, error) {
	var out []*domain.Observation
	for rows.Next() {
		var o domain.Observation
		if err := rows.Scan(&o.EntityID, &o.Date, &o.Quantity); err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}
		o.Date = domain.Day(o.Date)
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}
	return out, nil
}

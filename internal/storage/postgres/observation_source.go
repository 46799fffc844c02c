package postgres

import (
	"context"
	"fmt"

	"menu-forecast/internal/domain"
	"menu-forecast/internal/storage"
)

// DefaultTimezone buckets order timestamps into business days.
const DefaultTimezone = "Asia/Tokyo"

// ObservationSource implements storage.ObservationSource over the
// menus, orders and order_items tables.
type ObservationSource struct {
	pool     *Pool
	timezone string
}

// NewObservationSource creates a new ObservationSource. Order timestamps are
// converted to timezone before truncation to a date.
func NewObservationSource(pool *Pool, timezone string) *ObservationSource {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	return &ObservationSource{pool: pool, timezone: timezone}
}

// Compile-time interface check.
var _ storage.ObservationSource = (*ObservationSource)(nil)

// GetEntityIDs returns the menu catalogue, ascending.
func (s *ObservationSource) GetEntityIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM menus ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("get menu ids: %w", err)
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

// GetObservations returns daily quantities per menu, ordered by (menu_id, ds).
func (s *ObservationSource) GetObservations(ctx context.Context) ([]*domain.Observation, error) {
	query := `
		SELECT oi.menu_id,
		       (o.created_at AT TIME ZONE $1)::date AS ds,
		       SUM(oi.quantity)::bigint AS y
		FROM order_items AS oi
		JOIN orders AS o ON oi.order_id = o.id
		GROUP BY oi.menu_id, ds
		ORDER BY oi.menu_id ASC, ds ASC
	`

	rows, err := s.pool.Query(ctx, query, s.timezone)
	if err != nil {
		if isInvalidParameterError(err) {
			return nil, fmt.Errorf("%w: time zone %q", storage.ErrInvalidInput, s.timezone)
		}
		return nil, fmt.Errorf("get observations: %w", err)
	}
	defer rows.Close()

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
		if isInvalidParameterError(err) {
			return nil, fmt.Errorf("%w: time zone %q", storage.ErrInvalidInput, s.timezone)
		}
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}
	return out, nil
}

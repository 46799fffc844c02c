package normalization

import (
	"context"
	"fmt"
	"time"

	"menu-forecast/internal/domain"
	"menu-forecast/internal/storage"
)

// Runner loads observations from a source and builds series.
type Runner struct {
	source  storage.ObservationSource
	builder *Builder
}

// NewRunner creates a new normalization runner.
func NewRunner(source storage.ObservationSource, builder *Builder) *Runner {
	return &Runner{
		source:  source,
		builder: builder,
	}
}

// LoadSeries reads the catalogue and observations, then builds dense series.
// Steps:
//  1. Load known entity ids
//  2. Load observations
//  3. Build series over [start, end] (nil bounds are inferred)
func (r *Runner) LoadSeries(ctx context.Context, start, end *time.Time) ([]*domain.Series, error) {
	ids, err := r.source.GetEntityIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entity ids: %w", err)
	}

	obs, err := r.source.GetObservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}

	return r.builder.Build(BuildInput{
		Observations: obs,
		EntityIDs:    ids,
		Start:        start,
		End:          end,
	})
}

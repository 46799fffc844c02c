package normalization

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"menu-forecast/internal/domain"
)

// ErrMissingColumn is returned when an observation file lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// observation column aliases, first match wins
var (
	entityColumns   = []string{"entity_id", "menu_id"}
	dateColumns     = []string{"ds", "date"}
	quantityColumns = []string{"y", "quantity", "qty"}
)

// LoadObservations parses a sales fact CSV with a header row naming
// entity_id (or menu_id), ds (or date) and y (or quantity).
func LoadObservations(r io.Reader) ([]*domain.Observation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read observations header: %w", err)
	}

	idCol, dsCol, yCol := findColumn(header, entityColumns), findColumn(header, dateColumns), findColumn(header, quantityColumns)
	switch {
	case idCol < 0:
		return nil, fmt.Errorf("%w: entity_id", ErrMissingColumn)
	case dsCol < 0:
		return nil, fmt.Errorf("%w: ds", ErrMissingColumn)
	case yCol < 0:
		return nil, fmt.Errorf("%w: y", ErrMissingColumn)
	}

	var out []*domain.Observation
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("observations line %d: %w", line, err)
		}

		id, err := strconv.ParseInt(strings.TrimSpace(rec[idCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("observations line %d: entity id: %w", line, err)
		}
		ds, err := domain.ParseDate(strings.TrimSpace(rec[dsCol]))
		if err != nil {
			return nil, fmt.Errorf("observations line %d: %w", line, err)
		}
		qty, err := strconv.ParseInt(strings.TrimSpace(rec[yCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("observations line %d: quantity: %w", line, err)
		}

		out = append(out, &domain.Observation{EntityID: id, Date: ds, Quantity: qty})
	}
	return out, nil
}

// LoadObservationsFile reads an observation CSV from disk.
func LoadObservationsFile(path string) ([]*domain.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open observations file: %w", err)
	}
	defer f.Close()

	return LoadObservations(f)
}

func findColumn(header []string, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return -1
}

package normalization

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"menu-forecast/internal/domain"
)

// LoadHolidays parses a holiday list.
// Accepted forms: a CSV with a "ds" column (other columns ignored),
// or a single column of ISO dates with an optional header row.
func LoadHolidays(r io.Reader) ([]time.Time, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read holidays csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := 0
	first := 0
	for i, name := range records[0] {
		if strings.EqualFold(strings.TrimSpace(name), "ds") {
			col = i
			first = 1
			break
		}
	}
	// header row without a ds column, e.g. "date,name"
	if first == 0 {
		if _, err := domain.ParseDate(strings.TrimSpace(records[0][0])); err != nil {
			first = 1
		}
	}

	var out []time.Time
	for n, rec := range records[first:] {
		if col >= len(rec) {
			continue
		}
		v := strings.TrimSpace(rec[col])
		if v == "" {
			continue
		}
		d, err := domain.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("holidays line %d: %w", n+first+1, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// LoadCalendar reads a holiday file into a calendar.
// An empty path yields a calendar without holidays.
func LoadCalendar(path string) (*domain.Calendar, error) {
	if path == "" {
		return domain.NewCalendar(nil), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open holidays file: %w", err)
	}
	defer f.Close()

	days, err := LoadHolidays(f)
	if err != nil {
		return nil, err
	}
	return domain.NewCalendar(days), nil
}

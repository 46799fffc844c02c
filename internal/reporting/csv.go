package reporting

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"menu-forecast/internal/domain"
)

// RenderBacktestCSV renders per-entity backtest metrics as CSV string.
// Undefined metrics are written as empty fields.
func RenderBacktestCSV(results []*domain.BacktestResult, selections []domain.Selection) string {
	selected := make(map[int64]string, len(selections))
	for _, s := range selections {
		selected[s.EntityID] = s.ModelTag
	}

	var sb strings.Builder

	// Header
	sb.WriteString("entity_id,mape_baseline,smape_baseline,mape_candidate,smape_candidate,selected_model\n")

	// Rows
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%s\n",
			r.EntityID,
			formatMetric(r.Baseline.MAPE),
			formatMetric(r.Baseline.SMAPE),
			formatMetric(r.Candidate.MAPE),
			formatMetric(r.Candidate.SMAPE),
			selected[r.EntityID],
		))
	}

	return sb.String()
}

// RenderForecastCSV renders forecast rows as CSV string.
func RenderForecastCSV(forecasts []*domain.Forecast) string {
	var sb strings.Builder

	sb.WriteString("entity_id,ds,yhat,yhat_lo,yhat_hi,model,trained_at\n")
	for _, f := range forecasts {
		sb.WriteString(fmt.Sprintf("%d,%s,%.6f,%.6f,%.6f,%s,%s\n",
			f.EntityID,
			domain.FormatDate(f.Date),
			f.Point,
			f.Lower,
			f.Upper,
			f.ModelTag,
			f.TrainedAt.UTC().Format(time.RFC3339),
		))
	}

	return sb.String()
}

// RenderSeriesCSV renders dense series as CSV string, one row per entity day.
func RenderSeriesCSV(series []*domain.Series) string {
	var sb strings.Builder

	sb.WriteString("entity_id,ds,y,dow,is_month_end,is_holiday\n")
	for _, s := range series {
		for _, p := range s.Points {
			sb.WriteString(fmt.Sprintf("%d,%s,%d,%d,%d,%d\n",
				s.EntityID,
				domain.FormatDate(p.Date),
				p.Quantity,
				p.DayOfWeek,
				boolInt(p.IsMonthEnd),
				boolInt(p.IsHoliday),
			))
		}
	}

	return sb.String()
}

func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package dashboard

import (
	"fmt"

	"github.com/hugh/metricdeck/internal/query"
)

const (
	maxBarCategories = 15
	maxPieSlices     = 8
)

// ChartValidation is the outcome of checking explicitly-configured chart
// widgets against their data. An invalid result is a recoverable
// degradation: the caller renders a table and surfaces the message.
type ChartValidation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

func chartInvalid(format string, args ...interface{}) ChartValidation {
	return ChartValidation{Message: fmt.Sprintf(format, args...)}
}

// ValidateChartData decides whether a chart widget can render against the
// rows, or must fall back to a table.
func ValidateChartData(rows []query.Row, xKey, yKey string, chartType ChartType) ChartValidation {
	if len(rows) == 0 {
		return chartInvalid("No data available.")
	}
	if len(rows) < 2 {
		// A single point cannot show a trend.
		return chartInvalid("Not enough data points for a chart.")
	}

	first := rows[0]
	if _, ok := first[xKey]; !ok {
		return chartInvalid("Column %q not found in the data.", xKey)
	}
	yVal, ok := first[yKey]
	if !ok {
		return chartInvalid("Column %q not found in the data.", yKey)
	}
	if _, ok := numericValue(yVal); !ok {
		return chartInvalid("Column %q values are not numeric.", yKey)
	}

	if chartType == ChartBar && len(rows) > maxBarCategories {
		return chartInvalid("Too many categories for a bar chart (%d rows, max %d).", len(rows), maxBarCategories)
	}
	if chartType == ChartPie && len(rows) > maxPieSlices {
		return chartInvalid("Too many slices for a pie chart (%d rows, max %d).", len(rows), maxPieSlices)
	}

	return ChartValidation{Valid: true}
}

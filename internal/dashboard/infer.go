package dashboard

import "github.com/hugh/metricdeck/internal/query"

// InferWidget picks the default visualization for a result set that has no
// explicit widget configuration.
//
// A single row with a single numeric column is a metric; a single row with
// two columns where one is numeric is a metric on the numeric column (the
// other acts as a label). Everything else renders as a table — charts are
// never auto-selected, because a wrong chart is more misleading than a
// table, and a chart needs explicit x/y keys anyway.
func InferWidget(rows []query.Row) Widget {
	if len(rows) == 0 {
		return Widget{Type: WidgetTable}
	}

	cols := query.Columns(rows)

	if len(rows) == 1 {
		switch len(cols) {
		case 1:
			if _, ok := numericValue(rows[0][cols[0]]); ok {
				return Widget{Type: WidgetMetric, ValueKey: cols[0]}
			}
		case 2:
			for _, col := range cols {
				if _, ok := numericValue(rows[0][col]); ok {
					return Widget{Type: WidgetMetric, ValueKey: col}
				}
			}
		}
	}

	return Widget{Type: WidgetTable, Columns: cols}
}

package pipeline

import "github.com/gaurav-prasanna/tablepipe/core"

// numericShare is the fraction of sample cells that must already be
// numbers for a column to qualify as a fallback Y axis.
const numericShare = 0.7

// FallbackCharts builds a deterministic chart spec when the planning
// collaborator returns nothing usable. With a sample of at least five
// rows, the first column that is ≥70% numeric becomes Y (agg mean) and
// the first non-numeric column becomes X. Without a qualifying numeric
// column the fallback is a row count over the first column.
func FallbackCharts(columns []string, sample []core.Row) []core.ChartSpec {
	if len(columns) == 0 {
		return nil
	}

	if len(sample) >= 5 {
		y := ""
		for _, col := range columns {
			numeric := 0
			for _, row := range sample {
				if _, ok := row[col].(float64); ok {
					numeric++
				}
			}
			if float64(numeric) >= numericShare*float64(len(sample)) {
				y = col
				break
			}
		}
		if y != "" {
			if x := fallbackX(columns, sample, y); x != "" {
				return []core.ChartSpec{{
					Title: "Mean " + y + " by " + x,
					Type:  "bar",
					X:     x,
					Y:     y,
					Agg:   "mean",
					Note:  "default chart (planner unavailable)",
				}}
			}
		}
	}

	return []core.ChartSpec{{
		Title: "Row count by " + columns[0],
		Type:  "bar",
		X:     columns[0],
		Agg:   "count",
		Note:  "default chart (planner unavailable)",
	}}
}

// fallbackX picks the category axis: the first mostly non-numeric
// column, or failing that the first column other than y.
func fallbackX(columns []string, sample []core.Row, y string) string {
	for _, col := range columns {
		if col == y {
			continue
		}
		numeric := 0
		for _, row := range sample {
			if _, ok := row[col].(float64); ok {
				numeric++
			}
		}
		if float64(numeric) < numericShare*float64(len(sample)) {
			return col
		}
	}
	for _, col := range columns {
		if col != y {
			return col
		}
	}
	return ""
}

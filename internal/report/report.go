package report

import (
	"fmt"
	"strings"
)

const minScoreWidth = 10

type Row struct {
	Name   string
	Scores []float64
}

// Format renders one line per row with a header of column names, padding
// every cell so the separators line up.
func Format(tableName string, columns []string, rows []Row) string {
	nameWidth := len(tableName)
	for _, r := range rows {
		nameWidth = max(nameWidth, len(r.Name))
	}
	nameWidth += 5

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = max(minScoreWidth, len(c)+3)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%-*s |", nameWidth, tableName)
	for i, c := range columns {
		fmt.Fprintf(&b, " %-*s |", widths[i], c)
	}
	b.WriteString("\n")

	for _, r := range rows {
		fmt.Fprintf(&b, "%-*s |", nameWidth, r.Name)
		for i := range columns {
			cell := "-"
			if i < len(r.Scores) {
				cell = fmt.Sprintf("%0.3f", r.Scores[i])
			}
			fmt.Fprintf(&b, " %-*s |", widths[i], cell)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Package formatter renders chart configurations as aligned markdown tables.
package formatter

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"edudash/internal/models"
	"edudash/pkg/utils"
)

// MaxCellWidth caps the display width of a single preview cell.
const MaxCellWidth = 40

// FormatChart renders one chart as a markdown table: one row per category
// or label, one column per series. Values go through the chart's data
// label formatter when it has one.
func FormatChart(name string, cfg models.ChartConfig) string {
	if cfg.IsEmpty() || cfg.Series == nil {
		return fmt.Sprintf("### %s\n\n_no data_\n", name)
	}

	strs := utils.NewStringHelper()
	cell := func(text string) string {
		return strs.TruncateString(strs.NormalizeWhitespace(escapeCell(text)), MaxCellWidth)
	}

	headers, columns := cfg.SeriesColumns()
	for i, h := range headers {
		headers[i] = cell(h)
	}

	categories := cfg.Categories()

	rows := len(categories)
	for _, col := range columns {
		rows = max(rows, len(col))
	}

	var formatter *models.LabelFormatter
	if cfg.DataLabels != nil && cfg.DataLabels.Formatter != nil {
		formatter = cfg.DataLabels.Formatter
	}

	lines := []string{
		"| " + strings.Join(append([]string{"Category"}, headers...), " | ") + " |",
		"|" + strings.Repeat(" --- |", len(headers)+1),
	}

	for i := range rows {
		cells := []string{cell(models.FormatValue(at(categories, i)))}

		for _, col := range columns {
			v := at(col, i)

			text := models.FormatValue(v)
			if formatter != nil && v != nil {
				text = formatter.Format(v)
			}

			cells = append(cells, cell(text))
		}

		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
	}

	var sb strings.Builder

	chartType := ""
	if cfg.Chart != nil {
		chartType = string(cfg.Chart.Type)
	}

	fmt.Fprintf(&sb, "### %s (%s)\n\n", name, chartType)
	sb.WriteString(FormatMarkdown(strings.Join(lines, "\n")))
	sb.WriteString("\n")

	return sb.String()
}

func at(values []any, i int) any {
	if i < len(values) {
		return values[i]
	}

	return nil
}

// escapeCell keeps cell text from splitting the row.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "/")
}

// FormatMarkdown aligns every markdown table in content by display width.
func FormatMarkdown(content string) string {
	lines := strings.Split(content, "\n")

	var formattedLines []string

	var tableBuffer []string

	for _, line := range lines {
		trimmedLine := strings.TrimSpace(line)

		// Simple heuristic: starts and ends with |
		if strings.HasPrefix(trimmedLine, "|") && strings.HasSuffix(trimmedLine, "|") {
			tableBuffer = append(tableBuffer, line)

			continue
		}

		if len(tableBuffer) > 0 {
			formattedLines = append(formattedLines, processTable(tableBuffer)...)
			tableBuffer = nil
		}

		formattedLines = append(formattedLines, line)
	}

	if len(tableBuffer) > 0 {
		formattedLines = append(formattedLines, processTable(tableBuffer)...)
	}

	return strings.Join(formattedLines, "\n")
}

// processTable pads every cell of a table to its column's display width
// and rebuilds the separator row with matching dashes.
func processTable(rows []string) []string {
	if len(rows) < 2 {
		return rows
	}

	table := make([][]string, 0, len(rows))
	colCount := 0

	for _, row := range rows {
		cells := splitRow(row)
		colCount = max(colCount, len(cells))
		table = append(table, cells)
	}

	separatorRowIdx := -1
	if isSeparatorRow(table[1]) {
		separatorRowIdx = 1
	}

	// Widths use display columns so CJK labels line up.
	colWidths := make([]int, colCount)

	for rIdx, row := range table {
		if rIdx == separatorRowIdx {
			continue
		}

		for i, cell := range row {
			colWidths[i] = max(colWidths[i], runewidth.StringWidth(cell))
		}
	}

	for i := range colWidths {
		colWidths[i] = max(colWidths[i], 3)
	}

	result := make([]string, 0, len(table))

	for i, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for j := range colCount {
			sb.WriteString(" ")

			switch {
			case i == separatorRowIdx:
				sb.WriteString(strings.Repeat("-", colWidths[j]))
			case j < len(row):
				sb.WriteString(runewidth.FillRight(row[j], colWidths[j]))
			default:
				sb.WriteString(strings.Repeat(" ", colWidths[j]))
			}

			sb.WriteString(" |")
		}

		result = append(result, sb.String())
	}

	return result
}

func splitRow(row string) []string {
	parts := strings.Split(strings.TrimSpace(row), "|")

	// Leading and trailing pipes leave empty parts at both ends.
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}

	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}

	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, cell := range cells {
		if strings.Trim(cell, "-: ") != "" {
			return false
		}
	}

	return true
}

// Package export writes built dashboards to JSON files and Excel workbooks.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"edudash/internal/dashboard"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// ErrNoCharts is returned when a workbook would have no sheets.
var ErrNoCharts = errors.New("no charts to export")

// EncodeJSON writes v to w as a single JSON document.
func EncodeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// WriteJSON writes v to path, creating parent directories as needed.
func WriteJSON(path string, v any, pretty bool) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := EncodeJSON(f, v, pretty); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// WriteWorkbook writes one sheet per chart. Each sheet has a Category column
// followed by one column per series; empty charts get the header row only.
func WriteWorkbook(path string, charts []dashboard.Chart) error {
	if len(charts) == 0 {
		return ErrNoCharts
	}

	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	keepDefault := false

	names := sheetNames(charts)

	for i, c := range charts {
		name := names[i]
		keepDefault = keepDefault || name == defaultSheet

		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}

		if err := writeChart(f, name, c); err != nil {
			return fmt.Errorf("failed to write sheet %q: %w", name, err)
		}
	}

	if !keepDefault {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("failed to remove default sheet: %w", err)
		}
	}

	f.SetActiveSheet(0)

	if err := ensureDir(path); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	return nil
}

func writeChart(f *excelize.File, sheet string, c dashboard.Chart) error {
	headers, columns := c.Config.SeriesColumns()

	if err := f.SetSheetRow(sheet, "A1", &[]any{"Category"}); err != nil {
		return err
	}

	for col, h := range headers {
		if err := setCell(f, sheet, col+2, 1, h); err != nil {
			return err
		}
	}

	categories := c.Config.Categories()

	rows := len(categories)
	for _, values := range columns {
		rows = max(rows, len(values))
	}

	for row := range rows {
		if row < len(categories) {
			if err := setCell(f, sheet, 1, row+2, categories[row]); err != nil {
				return err
			}
		}

		for col, values := range columns {
			if row >= len(values) || values[row] == nil {
				continue
			}

			if err := setCell(f, sheet, col+2, row+2, values[row]); err != nil {
				return err
			}
		}
	}

	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}

	switch v.(type) {
	case string, float64, float32, int, int64, bool, nil:
	default:
		// nested objects and json.Number have no cell type of their own
		v = fmt.Sprint(v)
	}

	return f.SetCellValue(sheet, cell, v)
}

// sheetName turns a chart name into a legal sheet name: characters Excel
// rejects are dropped, surrounding apostrophes trimmed and the result cut to
// maxSheetName runes.
func sheetName(name string, i int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return -1
		}

		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")

	if name == "" {
		return fmt.Sprintf("Chart %d", i+1)
	}

	return truncateRunes(name, maxSheetName)
}

// sheetNames returns one sheet name per chart. Excel compares sheet names
// case-insensitively, so clashes get a " (n)" suffix.
func sheetNames(charts []dashboard.Chart) []string {
	names := make([]string, 0, len(charts))
	used := make(map[string]bool, len(charts))

	for i, c := range charts {
		base := sheetName(c.Name, i)

		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			suffix := fmt.Sprintf(" (%d)", n)
			name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
		}

		used[strings.ToLower(name)] = true
		names = append(names, name)
	}

	return names
}

func truncateRunes(s string, n int) string {
	if runes := []rune(s); len(runes) > n {
		return string(runes[:n])
	}

	return s
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return nil
}

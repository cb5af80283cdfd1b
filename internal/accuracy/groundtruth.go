package accuracy

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/logman117/ai-manufacturing-vision/internal/entity"
)

// LoadGroundTruth reads the human-maintained workbook using the configured
// column mapping. The first sheet is used; the first row must be the header.
// Configured columns missing from the file are logged and simply never
// contribute to any statistic. Rows without a part identifier are skipped.
func LoadGroundTruth(path string, cfg *Config, logger *slog.Logger) ([]entity.GroundTruthRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open ground truth: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Warn("groundtruth.close_error", "error", cerr)
		}
	}()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read ground truth rows: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("ground truth sheet %q is empty", sheet)
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[strings.TrimSpace(h)] = i
	}

	idIdx, ok := colIdx[cfg.IDColumn]
	if !ok {
		return nil, fmt.Errorf("ground truth is missing the identifier column %q", cfg.IDColumn)
	}
	for _, m := range cfg.Metadata {
		if _, ok := colIdx[m.Column]; !ok {
			logger.Warn("groundtruth.column_missing", "column", m.Column)
		}
	}
	for _, col := range cfg.FlagColumns() {
		if _, ok := colIdx[col]; !ok {
			logger.Warn("groundtruth.column_missing", "column", col)
		}
	}

	var records []entity.GroundTruthRecord
	for _, row := range rows[1:] {
		id := strings.TrimSpace(cell(row, idIdx))
		if id == "" {
			continue
		}
		rec := entity.GroundTruthRecord{
			PartID:   id,
			Metadata: map[string]string{},
			Flags:    map[string]int{},
		}
		for _, m := range cfg.Metadata {
			idx, ok := colIdx[m.Column]
			if !ok {
				continue
			}
			// A blank cell is recorded as "" so it still gets graded.
			rec.Metadata[m.Column] = strings.TrimSpace(cell(row, idx))
		}
		for _, col := range cfg.FlagColumns() {
			idx, ok := colIdx[col]
			if !ok {
				continue
			}
			rec.Flags[col] = convertCellValue(cell(row, idx))
		}
		records = append(records, rec)
	}

	logger.Info("groundtruth.loaded", "path", path, "rows", len(records))
	return records, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// convertCellValue maps a spreadsheet cell to binary: empty -> 0, booleans
// as written, numerics > 0 -> 1, anything else -> 0.
func convertCellValue(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if b, err := strconv.ParseBool(strings.ToLower(s)); err == nil {
		if b {
			return 1
		}
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f > 0 {
			return 1
		}
		return 0
	}
	return 0
}

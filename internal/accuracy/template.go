package accuracy

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

// templateInstructions is written to a second sheet so the workbook is
// self-describing for the people filling it in.
var templateInstructions = []string{
	"GROUND TRUTH DATA TEMPLATE",
	"",
	"How to use this template:",
	"1. Delete the example rows",
	"2. Add one row per part with your actual data",
	"3. Save the file and run the validate command against your predictions",
	"",
	"Part ID must match the drawing filename in your predictions (e.g. \"bracket_001.pdf\").",
	"Complexity Level is one of: Simple, Moderate, Complex, Very Complex.",
	"Type is the part family (e.g. Bracket, Shaft, Assembly, Weldment).",
	"Material is the material callout (e.g. Steel, Aluminum, Stainless Steel).",
	"Process columns take 0 or 1 only, not True/False or Yes/No.",
}

type templateRow struct {
	id       string
	metadata map[string]string // keyed by record field name
	flags    map[string]int    // keyed by ground-truth column name
}

// Example parts covering a fabricated and a machined workflow, so the filled
// columns hint at what each process flag means.
var templateExamples = []templateRow{
	{
		id: "example_bracket.pdf",
		metadata: map[string]string{
			"complexity_level": "Complex",
			"part_type":        "Bracket",
			"material":         "Steel",
		},
		flags: map[string]int{
			"Saw/Shear": 1, "Break Press": 1, "Fab Weld": 1,
			"Painting": 1, "CNC Machining /Turning": 1,
		},
	},
	{
		id: "example_shaft.pdf",
		metadata: map[string]string{
			"complexity_level": "Moderate",
			"part_type":        "Shaft",
			"material":         "Aluminum",
		},
		flags: map[string]int{
			"Saw/Shear": 1, "Plating": 1, "CNC Machining /Turning": 1,
		},
	},
}

// WriteGroundTruthTemplate creates a starter workbook whose columns follow
// the active mapping config, with example rows and an Instructions sheet.
func WriteGroundTruthTemplate(path string, cfg *Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	f := excelize.NewFile()
	const sheet = "Ground Truth"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{cfg.IDColumn}
	for _, m := range cfg.Metadata {
		headers = append(headers, m.Column)
	}
	headers = append(headers, cfg.FlagColumns()...)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for rowIdx, ex := range templateExamples {
		row := rowIdx + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, ex.id)
		col := 2
		for _, m := range cfg.Metadata {
			write(col, ex.metadata[m.Field])
			col++
		}
		for _, fc := range cfg.FlagColumns() {
			write(col, ex.flags[fc])
			col++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "D", 18)

	const instr = "Instructions"
	if _, err := f.NewSheet(instr); err != nil {
		return err
	}
	for i, line := range templateInstructions {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = f.SetCellValue(instr, cell, line)
	}
	_ = f.SetColWidth(instr, "A", "A", 90)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return err
	}

	logger.Info("template.xlsx.ok", "path", path, "columns", len(headers))
	return nil
}

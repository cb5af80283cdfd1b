package accuracy

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/logman117/ai-manufacturing-vision/internal/entity"
)

// Report is the full validation outcome: per-parameter statistics plus the
// identifier lists a reviewer needs to audit coverage.
type Report struct {
	Stats          ReportStats
	MatchedCount   int
	UnmatchedTruth []string // ground-truth part IDs with no prediction
	UnmatchedPreds []string // prediction source IDs with no ground-truth row
	Duplicates     []string // predictions colliding with an already-claimed row
}

// BuildReport assembles statistics and audit lists from a match result.
func BuildReport(res MatchResult, cfg *Config) Report {
	rep := Report{
		Stats:        Aggregate(res.Pairs, cfg),
		MatchedCount: len(res.Pairs),
	}
	for _, gt := range res.UnmatchedTruth {
		rep.UnmatchedTruth = append(rep.UnmatchedTruth, gt.PartID)
	}
	for _, p := range res.UnmatchedPreds {
		rep.UnmatchedPreds = append(rep.UnmatchedPreds, p.SourceID)
	}
	for _, p := range res.Duplicates {
		rep.Duplicates = append(rep.Duplicates, p.SourceID)
	}
	return rep
}

// RenderText writes the summary table. A parameter that saw no gradeable
// pairs prints "no data" instead of a percentage.
func (r Report) RenderText(w io.Writer) error {
	width := len("OVERALL")
	for _, name := range r.Stats.Order {
		if len(name) > width {
			width = len(name)
		}
	}

	fmt.Fprintf(w, "Matched pairs: %d\n", r.MatchedCount)
	if len(r.UnmatchedPreds) > 0 {
		fmt.Fprintf(w, "Predictions without ground truth: %s\n", strings.Join(r.UnmatchedPreds, ", "))
	}
	if len(r.UnmatchedTruth) > 0 {
		fmt.Fprintf(w, "Ground truth without predictions: %s\n", strings.Join(r.UnmatchedTruth, ", "))
	}
	if len(r.Duplicates) > 0 {
		fmt.Fprintf(w, "Duplicate predictions (not scored): %s\n", strings.Join(r.Duplicates, ", "))
	}
	fmt.Fprintln(w)

	rule := strings.Repeat("-", width+26)
	fmt.Fprintf(w, "%-*s  %10s  %10s\n", width, "Parameter", "Correct", "Accuracy")
	fmt.Fprintln(w, rule)
	for _, name := range r.Stats.Order {
		writeStatRow(w, width, name, r.Stats.Params[name])
	}
	fmt.Fprintln(w, rule)
	writeStatRow(w, width, "OVERALL", r.Stats.Overall)
	return nil
}

func writeStatRow(w io.Writer, width int, name string, s entity.ParameterStat) {
	ratio := fmt.Sprintf("%d/%d", s.Correct, s.Total)
	if pct, ok := s.Accuracy(); ok {
		fmt.Fprintf(w, "%-*s  %10s  %9.1f%%\n", width, name, ratio, pct)
	} else {
		fmt.Fprintf(w, "%-*s  %10s  %10s\n", width, name, ratio, "no data")
	}
}

// WriteXLSX writes the report as a workbook: an Accuracy sheet with one row
// per parameter and an Unmatched sheet listing the audit identifiers.
func (r Report) WriteXLSX(path string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Accuracy"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{"Parameter", "Correct", "Total", "Accuracy %"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	write := func(row, col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
	writeStat := func(row int, name string, s entity.ParameterStat) {
		write(row, 1, name)
		write(row, 2, s.Correct)
		write(row, 3, s.Total)
		if pct, ok := s.Accuracy(); ok {
			write(row, 4, fmt.Sprintf("%.1f", pct))
		} else {
			write(row, 4, "no data")
		}
	}

	row := 2
	for _, name := range r.Stats.Order {
		writeStat(row, name, r.Stats.Params[name])
		row++
	}
	writeStat(row, "OVERALL", r.Stats.Overall)

	_ = f.SetColWidth(sheet, "A", "A", 30)
	_ = f.SetColWidth(sheet, "B", "D", 12)

	const unmatched = "Unmatched"
	if _, err := f.NewSheet(unmatched); err != nil {
		return err
	}
	uHeaders := []string{"Predictions without ground truth", "Ground truth without predictions", "Duplicate predictions"}
	for i, h := range uHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(unmatched, cell, h)
	}
	writeList := func(col int, ids []string) {
		for i, id := range ids {
			cell, _ := excelize.CoordinatesToCellName(col, i+2)
			_ = f.SetCellValue(unmatched, cell, id)
		}
	}
	writeList(1, r.UnmatchedPreds)
	writeList(2, r.UnmatchedTruth)
	writeList(3, r.Duplicates)
	_ = f.SetColWidth(unmatched, "A", "C", 36)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return err
	}

	logger.Info("report.xlsx.ok",
		"path", path,
		"parameters", len(r.Stats.Order),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/logman117/ai-manufacturing-vision/constants"
	"github.com/logman117/ai-manufacturing-vision/internal/common"
)

// Config for the PDF extractor.
type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	DPI       int    // rasterization DPI for page images, default 300
	MaxPages  int    // 0 = no limit
}

// PDFExtractor extracts text via pdftotext and rasterizes pages via pdftoppm.
type PDFExtractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPDFExtractor(cfg Config, logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &PDFExtractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Extract runs both stages. Encrypted, corrupted or zero-page documents fail
// with an ExtractionError; the caller records it and moves on.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (DocumentExtract, error) {
	start := time.Now()

	ext := constants.NormalizeExt(filepath.Ext(path))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return DocumentExtract{}, &common.ExtractionError{Path: path, Err: fmt.Errorf("unsupported extension: %q", ext)}
	}

	text, pages, warns, err := e.pdfToText(ctx, path)
	if err != nil {
		return DocumentExtract{Warnings: warns}, &common.ExtractionError{Path: path, Err: err}
	}

	images, imgWarns, err := e.pdfToImages(ctx, path)
	warns = append(warns, imgWarns...)
	if err != nil {
		return DocumentExtract{Text: text, Pages: pages, Warnings: warns}, &common.ExtractionError{Path: path, Err: err}
	}

	res := DocumentExtract{
		Text:       text,
		Pages:      pages,
		PageImages: images,
		Duration:   time.Since(start),
		Warnings:   warns,
	}
	e.logger.Debug("extract.pdf.ok",
		"path", path,
		"pages", res.Pages,
		"text_bytes", len(res.Text),
		"images", len(res.PageImages),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *PDFExtractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("pdftotext: %w", err)
	}
	text = string(out)
	// A form-feed \f is used as page separator by default.
	pages = 1 + strings.Count(text, "\f")
	return text, pages, nil, nil
}

func (e *PDFExtractor) pdfToImages(ctx context.Context, path string) ([][]byte, []string, error) {
	tmpDir, err := os.MkdirTemp("", "mv-pp-*")
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("extract.tmp.cleanup_failed", "dir", tmpDir, "error", rmErr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var warns []string
	images := make([][]byte, 0, len(matches))
	for _, img := range matches {
		b, err := os.ReadFile(img)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		images = append(images, b)
	}
	if len(images) == 0 {
		return nil, warns, fmt.Errorf("no page images readable")
	}
	return images, warns, nil
}

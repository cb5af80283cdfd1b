package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/logman117/ai-manufacturing-vision/internal/accuracy"
	"github.com/logman117/ai-manufacturing-vision/internal/common"
	"github.com/logman117/ai-manufacturing-vision/internal/entity"
	"github.com/logman117/ai-manufacturing-vision/internal/extract"
	"github.com/logman117/ai-manufacturing-vision/internal/ingest"
	"github.com/logman117/ai-manufacturing-vision/internal/llm/openai"
	"github.com/logman117/ai-manufacturing-vision/internal/pipeline"
	"github.com/logman117/ai-manufacturing-vision/internal/store"
)

const usage = `usage: partscan <command> [flags] [args]

commands:
  analyze        analyze one drawing PDF
  analyze-batch  analyze every drawing under a directory
  validate       score predictions against a ground-truth workbook
  gt-template    write a starter ground-truth workbook
`

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(ctx, logger, os.Args[2:])
	case "analyze-batch":
		err = runAnalyzeBatch(ctx, logger, os.Args[2:])
	case "validate":
		err = runValidate(logger, os.Args[2:])
	case "gt-template":
		err = runTemplate(logger, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "kind", common.Kind(err), "error", err)
		os.Exit(1)
	}
}

// buildProcessor wires extractor, vision client and retry policy from the
// environment configuration shared by both analyze commands.
func buildProcessor(logger *slog.Logger, cfg *common.Config, journal *store.Journal) *pipeline.Processor {
	extractor := extract.NewPDFExtractor(extract.Config{
		Pdftotext: cfg.Extract.Pdftotext,
		Pdftoppm:  cfg.Extract.Pdftoppm,
		DPI:       cfg.Extract.DPI,
		MaxPages:  cfg.Extract.MaxPages,
	}, logger)

	client := openai.NewClient(openai.Config{
		Endpoint:    cfg.Service.Endpoint,
		APIKey:      cfg.Service.APIKey,
		Deployment:  cfg.Service.Deployment,
		APIVersion:  cfg.Service.APIVersion,
		Temperature: cfg.Service.Temperature,
		MaxTokens:   cfg.Service.MaxTokens,
		Timeout:     cfg.Service.Timeout,
	}, logger)

	retry := pipeline.RetryPolicy{
		MaxAttempts: cfg.Batch.MaxAttempts,
		BaseDelay:   cfg.Batch.BaseDelay,
		Multiplier:  cfg.Batch.Multiplier,
	}
	return pipeline.NewProcessor(logger, extractor, client, retry, journal, cfg.Batch.Concurrency)
}

func runAnalyze(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	out := fs.String("out", "analysis_results.json", "output predictions file")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("analyze: exactly one drawing path is required")
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx = common.WithBatchID(ctx, uuid.NewString())
	proc := buildProcessor(logger, cfg, nil)

	rec, err := proc.ProcessDocument(ctx, pipeline.DocumentRef{Path: fs.Arg(0)})
	if err != nil {
		return err
	}
	if err := store.SavePredictions(*out, []entity.PartRecord{rec}); err != nil {
		return err
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	logger.Info("analyze.done", "source_id", rec.SourceID, "out", *out)
	return nil
}

func runAnalyzeBatch(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("analyze-batch", flag.ExitOnError)
	out := fs.String("out", "analysis_results.json", "output predictions file")
	journalPath := fs.String("journal", "analysis_journal.db", "journal database for crash-safe resume")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("analyze-batch: exactly one directory is required")
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	docs, stats, err := ingest.ListDrawings(fs.Arg(0))
	if err != nil {
		return err
	}
	logger.Info("batch.scan", "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
	if len(docs) == 0 {
		return fmt.Errorf("no drawings found under %s", fs.Arg(0))
	}

	journal, err := store.OpenJournal(*journalPath, logger)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	ctx = common.WithBatchID(ctx, uuid.NewString())
	proc := buildProcessor(logger, cfg, journal)

	refs := make([]pipeline.DocumentRef, len(docs))
	for i, p := range docs {
		refs[i] = pipeline.DocumentRef{Path: p}
	}
	res, runErr := proc.Run(ctx, refs)

	// The journal holds every completed record, including those from earlier
	// interrupted runs, so it is the source of truth for the collection.
	records, err := journal.List(ctx)
	if err != nil {
		return err
	}
	if len(records) > 0 {
		if err := store.SavePredictions(*out, records); err != nil {
			return err
		}
		logger.Info("batch.saved", "out", *out, "records", len(records))
	}

	for _, f := range res.Failures {
		logger.Warn("batch.failure", "source_id", f.Ref.SourceID(), "kind", f.Kind, "error", f.Err)
	}
	return runErr
}

func runValidate(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	mapping := fs.String("config", "", "TOML column-mapping file (defaults apply when omitted)")
	out := fs.String("out", "accuracy_report.xlsx", "report workbook path (empty disables)")
	_ = fs.Parse(args)
	if fs.NArg() != 2 {
		return errors.New("validate: predictions file and ground-truth workbook are required")
	}

	cfg := accuracy.DefaultConfig()
	if *mapping != "" {
		var err error
		if cfg, err = accuracy.LoadConfig(*mapping); err != nil {
			return err
		}
	}

	preds, err := store.LoadPredictions(fs.Arg(0))
	if err != nil {
		return err
	}
	truth, err := accuracy.LoadGroundTruth(fs.Arg(1), cfg, logger)
	if err != nil {
		return err
	}

	res, err := accuracy.Match(preds, truth, cfg)
	if err != nil {
		return err
	}
	report := accuracy.BuildReport(res, cfg)
	if err := report.RenderText(os.Stdout); err != nil {
		return err
	}
	if *out != "" {
		if err := report.WriteXLSX(*out, logger); err != nil {
			return err
		}
	}
	if len(res.Pairs) == 0 {
		return common.ErrNoMatches
	}
	return nil
}

func runTemplate(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("gt-template", flag.ExitOnError)
	mapping := fs.String("config", "", "TOML column-mapping file (defaults apply when omitted)")
	out := fs.String("out", "ground_truth_template.xlsx", "template workbook path")
	_ = fs.Parse(args)

	cfg := accuracy.DefaultConfig()
	if *mapping != "" {
		var err error
		if cfg, err = accuracy.LoadConfig(*mapping); err != nil {
			return err
		}
	}
	return accuracy.WriteGroundTruthTemplate(*out, cfg, logger)
}

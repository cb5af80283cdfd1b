package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/logman117/ai-manufacturing-vision/constants"
	"github.com/logman117/ai-manufacturing-vision/internal/common"
	"github.com/logman117/ai-manufacturing-vision/internal/entity"
	"github.com/logman117/ai-manufacturing-vision/internal/extract"
	"github.com/logman117/ai-manufacturing-vision/internal/llm"
	"github.com/logman117/ai-manufacturing-vision/internal/store"
)

const previewLimit = 500

// DocumentRef identifies one source document in a batch.
type DocumentRef struct {
	Path string
}

// SourceID is the identity a prediction carries: the document basename.
func (d DocumentRef) SourceID() string {
	return filepath.Base(d.Path)
}

// Failure is a terminal per-document failure, labeled with its error kind.
type Failure struct {
	Ref  DocumentRef
	Kind string
	Err  error
}

// BatchResult collects the outcomes of one batch run. NotAttempted lists the
// documents a fatal error prevented from starting, distinct from Failures.
type BatchResult struct {
	Records      []entity.PartRecord
	Failures     []Failure
	NotAttempted []DocumentRef
	Skipped      []DocumentRef // already journaled from a previous run
}

// Processor drives each document through
// extract -> request (with retry) -> parse, isolating per-document failures.
// One document's failure never aborts the batch; a fatal auth error does.
type Processor struct {
	Logger      *slog.Logger
	Extractor   extract.Extractor
	Client      llm.VisionClient
	Retry       RetryPolicy
	Journal     *store.Journal // optional incremental persistence
	Concurrency int            // max in-flight inference requests, default 1
}

func NewProcessor(logger *slog.Logger, ex extract.Extractor, client llm.VisionClient, retry RetryPolicy, journal *store.Journal, concurrency int) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{
		Logger:      logger,
		Extractor:   ex,
		Client:      client,
		Retry:       retry,
		Journal:     journal,
		Concurrency: concurrency,
	}
}

// Run processes the documents, at most Concurrency in flight. Results are
// keyed by source identifier, not position; Records come back sorted by
// source_id. The returned error is non-nil only for a batch-fatal condition
// (auth/configuration); per-document failures live in the result.
func (p *Processor) Run(ctx context.Context, docs []DocumentRef) (BatchResult, error) {
	var (
		res      BatchResult
		mu       sync.Mutex
		wg       sync.WaitGroup
		fatalErr error
	)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, p.Concurrency)

	fatal := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fatalErr != nil
	}

	batchID := common.BatchIDFromContext(ctx)
	p.Logger.Info("pipeline.batch.start",
		"batch_id", batchID, "documents", len(docs), "concurrency", p.Concurrency)

	for _, ref := range docs {
		if fatal() {
			mu.Lock()
			res.NotAttempted = append(res.NotAttempted, ref)
			mu.Unlock()
			p.Logger.Warn("pipeline.doc.not_attempted",
				"source_id", ref.SourceID(), "status", constants.DocStatusNotAttempted)
			continue
		}

		if p.Journal != nil {
			done, err := p.Journal.Has(ctx, ref.SourceID())
			if err == nil && done {
				mu.Lock()
				res.Skipped = append(res.Skipped, ref)
				mu.Unlock()
				p.Logger.Info("pipeline.doc.skip_journaled", "source_id", ref.SourceID())
				continue
			}
		}

		sem <- struct{}{}
		if fatal() {
			<-sem
			mu.Lock()
			res.NotAttempted = append(res.NotAttempted, ref)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(ref DocumentRef) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, err := p.ProcessDocument(runCtx, ref)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if common.IsFatal(err) && fatalErr == nil {
					fatalErr = err
					cancel()
				} else if fatalErr != nil && errors.Is(err, context.Canceled) {
					// In flight when the halt fired; it never got a verdict,
					// so it is not attempted rather than failed.
					res.NotAttempted = append(res.NotAttempted, ref)
					p.Logger.Warn("pipeline.doc.not_attempted",
						"source_id", ref.SourceID(), "status", constants.DocStatusNotAttempted)
					return
				}
				res.Failures = append(res.Failures, Failure{Ref: ref, Kind: common.Kind(err), Err: err})
				p.Logger.Error("pipeline.doc.failed",
					"source_id", ref.SourceID(),
					"status", constants.DocStatusFailed,
					"kind", common.Kind(err),
					"error", err,
				)
				return
			}
			res.Records = append(res.Records, rec)
			p.Logger.Info("pipeline.doc.done",
				"source_id", ref.SourceID(), "status", constants.DocStatusDone)
		}(ref)
	}

	wg.Wait()

	sort.Slice(res.Records, func(i, j int) bool {
		return res.Records[i].SourceID < res.Records[j].SourceID
	})

	p.Logger.Info("pipeline.batch.finish",
		"batch_id", batchID,
		"done", len(res.Records),
		"failed", len(res.Failures),
		"not_attempted", len(res.NotAttempted),
		"skipped", len(res.Skipped),
	)
	return res, fatalErr
}

// ProcessDocument runs one document through the full sequence and, on
// success, flushes the record to the journal so completed work survives a
// crash mid-batch.
func (p *Processor) ProcessDocument(ctx context.Context, ref DocumentRef) (entity.PartRecord, error) {
	sourceID := ref.SourceID()
	log := p.Logger.With("source_id", sourceID)

	log.Info("pipeline.doc.state", "status", constants.DocStatusExtracting)
	doc, err := p.Extractor.Extract(ctx, ref.Path)
	if err != nil {
		return entity.PartRecord{}, err
	}

	req := llm.VisionRequest{
		System: llm.BuildSystemPrompt(),
		Prompt: llm.BuildUserPrompt(doc.Text),
	}
	for _, img := range doc.PageImages {
		req.Images = append(req.Images, llm.ImageAttachment{MIMEType: "image/png", Data: img})
	}

	log.Info("pipeline.doc.state", "status", constants.DocStatusRequesting,
		"pages", doc.Pages, "text_bytes", len(doc.Text))
	var rawText string
	err = p.Retry.Do(ctx, log, func() error {
		var callErr error
		rawText, callErr = p.Client.Analyze(ctx, req)
		return callErr
	})
	if err != nil {
		return entity.PartRecord{}, err
	}

	log.Info("pipeline.doc.state", "status", constants.DocStatusParsing)
	fields, warnings, err := llm.ParsePartFields(rawText, log)
	if err != nil {
		return entity.PartRecord{}, err
	}
	if len(warnings) > 0 {
		log.Warn("pipeline.doc.coercions", "count", len(warnings))
	}

	rec := entity.PartRecord{
		SourceID:             sourceID,
		ComplexityLevel:      fields.ComplexityLevel,
		PartType:             fields.PartType,
		PartName:             fields.PartName,
		Material:             fields.Material,
		Notes:                fields.Notes,
		ProcessFlags:         fields.ProcessFlags,
		ExtractedTextPreview: preview(doc.Text),
	}

	if p.Journal != nil {
		if err := p.Journal.Upsert(ctx, rec); err != nil {
			// The record is still returned; only crash-resume is degraded.
			log.Error("pipeline.journal.write_failed", "error", err)
		}
	}
	return rec, nil
}

func preview(text string) string {
	if len(text) <= previewLimit {
		return text
	}
	return text[:previewLimit]
}

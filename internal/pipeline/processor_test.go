package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logman117/ai-manufacturing-vision/constants"
	"github.com/logman117/ai-manufacturing-vision/internal/common"
	"github.com/logman117/ai-manufacturing-vision/internal/entity"
	"github.com/logman117/ai-manufacturing-vision/internal/extract"
	"github.com/logman117/ai-manufacturing-vision/internal/llm"
	"github.com/logman117/ai-manufacturing-vision/internal/store"
)

type fakeExtractor struct {
	failFor map[string]error
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (extract.DocumentExtract, error) {
	if err, ok := f.failFor[path]; ok {
		return extract.DocumentExtract{}, &common.ExtractionError{Path: path, Err: err}
	}
	return extract.DocumentExtract{
		Text:       "TITLE BLOCK " + path,
		Pages:      1,
		PageImages: [][]byte{[]byte("png")},
	}, nil
}

// fakeClient returns scripted errors before succeeding with a valid payload.
type fakeClient struct {
	mu       sync.Mutex
	failures []error
	calls    int
}

func (f *fakeClient) Analyze(context.Context, llm.VisionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return "", err
	}
	return validResponse(), nil
}

func validResponse() string {
	m := map[string]any{
		"complexity_level": "Moderate",
		"part_type":        "Bracket",
		"material":         "Steel",
	}
	for _, key := range constants.ProcessKeys {
		m[key] = 0
	}
	m["laser_cut"] = 1
	b, _ := json.Marshal(m)
	return "```json\n" + string(b) + "\n```"
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 1.0}
}

func TestRunProducesSortedRecords(t *testing.T) {
	proc := NewProcessor(nil, &fakeExtractor{}, &fakeClient{}, fastRetry(), nil, 2)

	res, err := proc.Run(context.Background(), []DocumentRef{
		{Path: "/drawings/zeta.pdf"},
		{Path: "/drawings/alpha.pdf"},
	})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "alpha.pdf", res.Records[0].SourceID)
	assert.Equal(t, "zeta.pdf", res.Records[1].SourceID)
	assert.Equal(t, 1, res.Records[0].LaserCut)
	assert.Equal(t, "Moderate", res.Records[0].ComplexityLevel)
	assert.NotEmpty(t, res.Records[0].ExtractedTextPreview)
	assert.Empty(t, res.Failures)
}

func TestRunRecoversFromRateLimit(t *testing.T) {
	client := &fakeClient{failures: []error{
		&common.ServiceRateLimitError{RetryAfter: time.Millisecond, Err: errors.New("429")},
		&common.ServiceRateLimitError{RetryAfter: time.Millisecond, Err: errors.New("429")},
	}}
	proc := NewProcessor(nil, &fakeExtractor{}, client, fastRetry(), nil, 1)

	res, err := proc.Run(context.Background(), []DocumentRef{{Path: "a.pdf"}})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Empty(t, res.Failures, "a recovered retry is not a failure")
	assert.Equal(t, 3, client.calls)
}

func TestRunIsolatesPerDocumentFailures(t *testing.T) {
	ex := &fakeExtractor{failFor: map[string]error{"bad.pdf": errors.New("encrypted")}}
	proc := NewProcessor(nil, ex, &fakeClient{}, fastRetry(), nil, 1)

	res, err := proc.Run(context.Background(), []DocumentRef{
		{Path: "bad.pdf"},
		{Path: "good.pdf"},
	})
	require.NoError(t, err, "a per-document failure is not batch-fatal")
	require.Len(t, res.Records, 1)
	assert.Equal(t, "good.pdf", res.Records[0].SourceID)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, common.KindExtraction, res.Failures[0].Kind)
	assert.Empty(t, res.NotAttempted)
}

func TestRunAuthErrorHaltsBatch(t *testing.T) {
	client := &fakeClient{failures: []error{
		&common.ServiceAuthError{Status: 401, Err: errors.New("bad key")},
	}}
	proc := NewProcessor(nil, &fakeExtractor{}, client, fastRetry(), nil, 1)

	res, err := proc.Run(context.Background(), []DocumentRef{
		{Path: "a.pdf"},
		{Path: "b.pdf"},
		{Path: "c.pdf"},
	})
	require.Error(t, err)
	var auth *common.ServiceAuthError
	assert.ErrorAs(t, err, &auth)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, common.KindServiceAuth, res.Failures[0].Kind)
	// Documents the halt prevented are not attempted, distinct from failed.
	assert.Len(t, res.NotAttempted, 2)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, client.calls, "auth errors are not retried")
}

// haltClient blocks its first call until the run is cancelled and answers
// the second with a fatal auth error, so one document is guaranteed to be in
// flight when the halt fires.
type haltClient struct {
	started chan struct{}
	mu      sync.Mutex
	calls   int
}

func (c *haltClient) Analyze(ctx context.Context, _ llm.VisionRequest) (string, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()
	if n == 1 {
		close(c.started)
		<-ctx.Done()
		return "", ctx.Err()
	}
	<-c.started
	return "", &common.ServiceAuthError{Status: 401, Err: errors.New("bad key")}
}

func TestRunAuthErrorConcurrentInFlightNotAttempted(t *testing.T) {
	client := &haltClient{started: make(chan struct{})}
	proc := NewProcessor(nil, &fakeExtractor{}, client, fastRetry(), nil, 2)

	res, err := proc.Run(context.Background(), []DocumentRef{
		{Path: "a.pdf"},
		{Path: "b.pdf"},
	})
	require.Error(t, err)
	var auth *common.ServiceAuthError
	assert.ErrorAs(t, err, &auth)

	// Only the document that hit the auth error counts as failed; the one
	// cancelled mid-flight was never given a verdict.
	require.Len(t, res.Failures, 1)
	assert.Equal(t, common.KindServiceAuth, res.Failures[0].Kind)
	assert.Len(t, res.NotAttempted, 1)
	assert.Empty(t, res.Records)
}

func TestRunSkipsJournaledDocuments(t *testing.T) {
	journal, err := store.OpenJournal(":memory:", nil)
	require.NoError(t, err)
	defer func() { _ = journal.Close() }()

	ctx := context.Background()
	require.NoError(t, journal.Upsert(ctx, entity.PartRecord{SourceID: "done.pdf"}))

	client := &fakeClient{}
	proc := NewProcessor(nil, &fakeExtractor{}, client, fastRetry(), journal, 1)

	res, err := proc.Run(ctx, []DocumentRef{
		{Path: "done.pdf"},
		{Path: "fresh.pdf"},
	})
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "done.pdf", res.Skipped[0].SourceID())
	require.Len(t, res.Records, 1)
	assert.Equal(t, "fresh.pdf", res.Records[0].SourceID)
	assert.Equal(t, 1, client.calls)

	// Both documents are now journaled.
	all, err := journal.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestProcessDocumentSchemaViolation(t *testing.T) {
	proc := NewProcessor(nil, &fakeExtractor{}, garbageClient{}, fastRetry(), nil, 1)

	_, err := proc.ProcessDocument(context.Background(), DocumentRef{Path: "a.pdf"})
	require.Error(t, err)
	assert.Equal(t, common.KindSchema, common.Kind(err))
}

type garbageClient struct{}

func (garbageClient) Analyze(context.Context, llm.VisionRequest) (string, error) {
	return "I could not read the drawing.", nil
}

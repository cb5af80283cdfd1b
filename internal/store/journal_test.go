package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logman117/ai-manufacturing-vision/internal/entity"
)

func TestJournalUpsertHasList(t *testing.T) {
	j, err := OpenJournal(":memory:", nil)
	require.NoError(t, err)
	defer func() { _ = j.Close() }()

	ctx := context.Background()

	ok, err := j.Has(ctx, "a.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	rec := entity.PartRecord{SourceID: "a.pdf", ComplexityLevel: "Simple", Material: "Steel"}
	rec.LaserCut = 1
	require.NoError(t, j.Upsert(ctx, rec))

	ok, err = j.Has(ctx, "a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	// Upsert replaces the previous entry for the same source.
	rec.Material = "Aluminum"
	require.NoError(t, j.Upsert(ctx, rec))
	require.NoError(t, j.Upsert(ctx, entity.PartRecord{SourceID: "b.pdf"}))

	records, err := j.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a.pdf", records[0].SourceID)
	assert.Equal(t, "Aluminum", records[0].Material)
	assert.Equal(t, 1, records[0].LaserCut)
	assert.Equal(t, "b.pdf", records[1].SourceID)
}

func TestJournalPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := OpenJournal(path, nil)
	require.NoError(t, err)
	require.NoError(t, j.Upsert(ctx, entity.PartRecord{SourceID: "a.pdf"}))
	require.NoError(t, j.Close())

	j2, err := OpenJournal(path, nil)
	require.NoError(t, err)
	defer func() { _ = j2.Close() }()

	ok, err := j2.Has(ctx, "a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPredictionsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictions.json")

	rec := entity.PartRecord{
		SourceID:        "bracket_001.pdf",
		ComplexityLevel: "Complex",
		PartType:        "Bracket",
		Material:        "Steel",
	}
	rec.Weld = 1
	require.NoError(t, SavePredictions(path, []entity.PartRecord{rec}))

	got, err := LoadPredictions(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
}

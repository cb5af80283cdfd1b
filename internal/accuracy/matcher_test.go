package accuracy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logman117/ai-manufacturing-vision/internal/common"
	"github.com/logman117/ai-manufacturing-vision/internal/entity"
)

func gtRow(id string) entity.GroundTruthRecord {
	return entity.GroundTruthRecord{
		PartID:   id,
		Metadata: map[string]string{},
		Flags:    map[string]int{},
	}
}

func predRow(sourceID string) entity.PartRecord {
	return entity.PartRecord{SourceID: sourceID}
}

func TestMatchPairsByNormalizedID(t *testing.T) {
	cfg := DefaultConfig()
	truth := []entity.GroundTruthRecord{gtRow("bracket_001"), gtRow("shaft_002")}
	preds := []entity.PartRecord{predRow("Bracket_001.PDF"), predRow("shaft_002.pdf")}

	res, err := Match(preds, truth, cfg)
	require.NoError(t, err)
	require.Len(t, res.Pairs, 2)
	assert.Equal(t, "Bracket_001.PDF", res.Pairs[0].Prediction.SourceID)
	assert.Equal(t, "bracket_001", res.Pairs[0].Truth.PartID)
	assert.Empty(t, res.UnmatchedTruth)
	assert.Empty(t, res.UnmatchedPreds)
	assert.Empty(t, res.Duplicates)
}

func TestMatchUnmatchedBothSides(t *testing.T) {
	cfg := DefaultConfig()
	truth := []entity.GroundTruthRecord{gtRow("bracket_001"), gtRow("orphan_gt")}
	preds := []entity.PartRecord{predRow("bracket_001.pdf"), predRow("orphan_pred.pdf")}

	res, err := Match(preds, truth, cfg)
	require.NoError(t, err)
	require.Len(t, res.Pairs, 1)
	require.Len(t, res.UnmatchedTruth, 1)
	assert.Equal(t, "orphan_gt", res.UnmatchedTruth[0].PartID)
	require.Len(t, res.UnmatchedPreds, 1)
	assert.Equal(t, "orphan_pred.pdf", res.UnmatchedPreds[0].SourceID)
}

func TestMatchDuplicatePredictionFlaggedNotMerged(t *testing.T) {
	cfg := DefaultConfig()
	truth := []entity.GroundTruthRecord{gtRow("bracket_001")}
	// Two filenames normalize to the same identifier.
	preds := []entity.PartRecord{
		predRow("bracket_001.pdf"),
		predRow("bracket_001 (1).pdf"),
	}

	res, err := Match(preds, truth, cfg)
	require.NoError(t, err)
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "bracket_001.pdf", res.Pairs[0].Prediction.SourceID)
	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, "bracket_001 (1).pdf", res.Duplicates[0].SourceID)
	assert.Empty(t, res.UnmatchedPreds)
}

func TestMatchDuplicateGroundTruthIsFatal(t *testing.T) {
	cfg := DefaultConfig()
	truth := []entity.GroundTruthRecord{gtRow("bracket_001.pdf"), gtRow("BRACKET_001_drw")}

	_, err := Match(nil, truth, cfg)
	var mce *common.MatchingConfigError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, "bracket_001", mce.ID)
	assert.Equal(t, common.KindMatchingConfig, common.Kind(err))
}

func TestMatchEmptyInputs(t *testing.T) {
	cfg := DefaultConfig()
	res, err := Match(nil, nil, cfg)
	require.NoError(t, err)
	assert.Empty(t, res.Pairs)
	assert.Empty(t, res.UnmatchedTruth)
	assert.Empty(t, res.UnmatchedPreds)
}

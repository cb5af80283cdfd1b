package accuracy

import (
	"github.com/logman117/ai-manufacturing-vision/internal/common"
	"github.com/logman117/ai-manufacturing-vision/internal/entity"
)

// MatchResult pairs predictions with ground truth and tracks everything that
// did not pair, so nothing is silently dropped from reporting.
type MatchResult struct {
	Pairs          []entity.MatchedPair
	UnmatchedTruth []entity.GroundTruthRecord
	UnmatchedPreds []entity.PartRecord
	// Duplicates are predictions whose normalized identifier hit a
	// ground-truth row that an earlier prediction already claimed. They are
	// flagged, never merged: matching stays injective.
	Duplicates []entity.PartRecord
}

// Match pairs predictions with ground-truth rows by normalized identifier.
// Ground-truth identifiers must be unique after normalization; a duplicate
// is a MatchingConfigError, fatal to the validation run. There is no fuzzy
// matching beyond normalization; near-misses surface in the unmatched lists.
func Match(preds []entity.PartRecord, truth []entity.GroundTruthRecord, cfg *Config) (MatchResult, error) {
	byID := make(map[string]int, len(truth))
	for i, gt := range truth {
		id := cfg.NormalizeID(gt.PartID)
		if _, exists := byID[id]; exists {
			return MatchResult{}, &common.MatchingConfigError{ID: id}
		}
		byID[id] = i
	}

	var res MatchResult
	claimed := make(map[int]bool, len(truth))

	for _, pred := range preds {
		id := cfg.NormalizeID(pred.SourceID)
		idx, ok := byID[id]
		if !ok {
			res.UnmatchedPreds = append(res.UnmatchedPreds, pred)
			continue
		}
		if claimed[idx] {
			res.Duplicates = append(res.Duplicates, pred)
			continue
		}
		claimed[idx] = true
		res.Pairs = append(res.Pairs, entity.MatchedPair{
			Prediction: pred,
			Truth:      truth[idx],
		})
	}

	for i, gt := range truth {
		if !claimed[i] {
			res.UnmatchedTruth = append(res.UnmatchedTruth, gt)
		}
	}
	return res, nil
}

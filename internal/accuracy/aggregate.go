package accuracy

import (
	"strings"

	"github.com/logman117/ai-manufacturing-vision/internal/entity"
)

// ReportStats holds per-parameter tallies plus the OVERALL roll-up, in the
// configured report order.
type ReportStats struct {
	Order   []string
	Params  map[string]entity.ParameterStat
	Overall entity.ParameterStat
}

// Aggregate scores every matched pair against the configured parameters.
// A parameter accrues a total whenever its ground-truth column exists in the
// workbook; a blank cell in an existing column is graded (incorrect unless
// the prediction is blank too), so sparse rows cannot inflate accuracy.
// Columns absent from the workbook never contribute.
func Aggregate(pairs []entity.MatchedPair, cfg *Config) ReportStats {
	stats := ReportStats{
		Order:  cfg.ParameterOrder(),
		Params: make(map[string]entity.ParameterStat, len(cfg.Metadata)+len(cfg.Processes)+len(cfg.Combined)),
	}
	for _, name := range stats.Order {
		stats.Params[name] = entity.ParameterStat{}
	}

	score := func(name string, correct bool, metadata bool) {
		s := stats.Params[name]
		s.Total++
		if correct {
			s.Correct++
		}
		stats.Params[name] = s

		if metadata && !cfg.OverallIncludesMetadata {
			return
		}
		stats.Overall.Total++
		if correct {
			stats.Overall.Correct++
		}
	}

	for _, pair := range pairs {
		pred, gt := pair.Prediction, pair.Truth

		for _, m := range cfg.Metadata {
			truth, ok := gt.Metadata[m.Column]
			if !ok {
				continue
			}
			guess := strings.TrimSpace(predictionField(&pred, m.Field))
			score(m.Column, compareValues(guess, strings.TrimSpace(truth), m.Compare), true)
		}

		for _, pc := range cfg.Processes {
			truth, ok := gt.Flags[pc.Column]
			if !ok {
				continue
			}
			guess, _ := pred.Flag(pc.Field)
			score(pc.Column, guess == truth, false)
		}

		for _, cc := range cfg.Combined {
			truth, ok := gt.Flags[cc.Column]
			if !ok {
				continue
			}
			a, _ := pred.Flag(cc.Fields[0])
			b, _ := pred.Flag(cc.Fields[1])
			score(cc.Column, mergeFlags(a, b, cc.Policy) == truth, false)
		}
	}
	return stats
}

// mergeFlags folds two binary predictions into one value for a merged
// ground-truth column. OR is max, AND is min.
func mergeFlags(a, b int, policy MergePolicy) int {
	if policy == MergeAND {
		if a < b {
			return a
		}
		return b
	}
	if a > b {
		return a
	}
	return b
}

// compareValues grades one metadata value. Substring matching is
// containment either way, case-insensitive. An empty string on either side
// never substring-matches a non-empty one (the empty string is a substring
// of everything); two empty values agree.
func compareValues(guess, truth string, policy ComparePolicy) bool {
	if policy == CompareSubstring {
		if guess == "" || truth == "" {
			return guess == truth
		}
		g, t := strings.ToLower(guess), strings.ToLower(truth)
		return strings.Contains(g, t) || strings.Contains(t, g)
	}
	return strings.EqualFold(guess, truth)
}

func predictionField(rec *entity.PartRecord, field string) string {
	switch field {
	case "complexity_level":
		return rec.ComplexityLevel
	case "part_type":
		return rec.PartType
	case "material":
		return rec.Material
	}
	return ""
}

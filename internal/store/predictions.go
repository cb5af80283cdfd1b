package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/logman117/ai-manufacturing-vision/internal/entity"
)

// SavePredictions writes the prediction collection as a JSON document:
// an ordered array of part records, one object per drawing. The write is
// atomic (temp file + rename) so a reader never sees a torn document.
func SavePredictions(path string, records []entity.PartRecord) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode predictions: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".predictions-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write predictions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename predictions: %w", err)
	}
	return nil
}

// LoadPredictions reads a prediction collection written by SavePredictions.
func LoadPredictions(path string) ([]entity.PartRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read predictions: %w", err)
	}
	var records []entity.PartRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	return records, nil
}

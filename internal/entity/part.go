package entity

// ProcessFlags holds the 16 binary manufacturing-process indicators.
// Every field is always 0 or 1 after parsing; the parser coerces missing or
// malformed values so downstream comparison never sees holes.
type ProcessFlags struct {
	LaserCut            int `json:"laser_cut"`
	SawShear            int `json:"saw_shear"`
	BreakPress          int `json:"break_press"`
	Fab                 int `json:"fab"`
	Weld                int `json:"weld"`
	Painting            int `json:"painting"`
	HeatTreat           int `json:"heat_treat"`
	Plating             int `json:"plating"`
	CNCMachiningTurning int `json:"cnc_machining_turning"`
	MetalRolling        int `json:"metal_rolling"`
	CastingForging      int `json:"casting_forging"`
	TubeBending         int `json:"tube_bending"`
	MetalSpinning       int `json:"metal_spinning"`
	TurretPunchStamping int `json:"turret_punch_stamping"`
	Press               int `json:"press"`
	Inserts             int `json:"inserts"`
}

func (f *ProcessFlags) fieldPtr(key string) *int {
	switch key {
	case "laser_cut":
		return &f.LaserCut
	case "saw_shear":
		return &f.SawShear
	case "break_press":
		return &f.BreakPress
	case "fab":
		return &f.Fab
	case "weld":
		return &f.Weld
	case "painting":
		return &f.Painting
	case "heat_treat":
		return &f.HeatTreat
	case "plating":
		return &f.Plating
	case "cnc_machining_turning":
		return &f.CNCMachiningTurning
	case "metal_rolling":
		return &f.MetalRolling
	case "casting_forging":
		return &f.CastingForging
	case "tube_bending":
		return &f.TubeBending
	case "metal_spinning":
		return &f.MetalSpinning
	case "turret_punch_stamping":
		return &f.TurretPunchStamping
	case "press":
		return &f.Press
	case "inserts":
		return &f.Inserts
	}
	return nil
}

// Flag returns the value of the named process flag.
// The second result is false for an unknown key.
func (f ProcessFlags) Flag(key string) (int, bool) {
	p := f.fieldPtr(key)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// SetFlag sets the named process flag, returning false for an unknown key.
func (f *ProcessFlags) SetFlag(key string, v int) bool {
	p := f.fieldPtr(key)
	if p == nil {
		return false
	}
	*p = v
	return true
}

// PartRecord is the canonical structured output for one drawing.
// Created once by the response parser and immutable thereafter.
type PartRecord struct {
	SourceID        string `json:"source_id"`
	ComplexityLevel string `json:"complexity_level"`
	PartType        string `json:"part_type"`
	PartName        string `json:"part_name,omitempty"`
	Material        string `json:"material"`
	Notes           string `json:"notes,omitempty"`

	ProcessFlags

	ExtractedTextPreview string `json:"extracted_text_preview,omitempty"`
}

// GroundTruthRecord is one human-labeled row from the ground-truth workbook.
// Metadata and Flags are keyed by the ground-truth column name (which for
// flags may combine two model-side fields, e.g. "Fab Weld"); the column set
// is configuration-driven. A key is present exactly when the column exists
// in the workbook, so an absent column is distinguishable from a blank cell.
type GroundTruthRecord struct {
	PartID   string
	Metadata map[string]string
	Flags    map[string]int
}

// MatchedPair joins a prediction with its ground-truth row by normalized ID.
type MatchedPair struct {
	Prediction PartRecord
	Truth      GroundTruthRecord
}

// ParameterStat tallies correctness for one parameter across matched pairs.
type ParameterStat struct {
	Correct int
	Total   int
}

// Accuracy returns correct/total as a percentage. ok is false when the
// parameter saw no data (total == 0).
func (s ParameterStat) Accuracy() (pct float64, ok bool) {
	if s.Total == 0 {
		return 0, false
	}
	return float64(s.Correct) / float64(s.Total) * 100, true
}

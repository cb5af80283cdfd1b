package constants

import "strings"

// ProcessKeys lists the 16 binary manufacturing-process indicators in the
// order they are requested from the model and serialized in predictions.
var ProcessKeys = []string{
	"laser_cut",
	"saw_shear",
	"break_press",
	"fab",
	"weld",
	"painting",
	"heat_treat",
	"plating",
	"cnc_machining_turning",
	"metal_rolling",
	"casting_forging",
	"tube_bending",
	"metal_spinning",
	"turret_punch_stamping",
	"press",
	"inserts",
}

// ComplexityLevel is the fixed rating scale for a part.
type ComplexityLevel string

const (
	ComplexitySimple      ComplexityLevel = "Simple"
	ComplexityModerate    ComplexityLevel = "Moderate"
	ComplexityComplex     ComplexityLevel = "Complex"
	ComplexityVeryComplex ComplexityLevel = "Very Complex"

	// ComplexityUnknown is the sentinel used when the model returns a value
	// outside the scale. The record is kept; the comparison simply counts it
	// as wrong unless the ground truth says the same.
	ComplexityUnknown ComplexityLevel = "Unknown"
)

var complexityLevels = []ComplexityLevel{
	ComplexitySimple,
	ComplexityModerate,
	ComplexityComplex,
	ComplexityVeryComplex,
}

// CanonicalComplexity maps a free-form label onto the fixed scale.
// Returns (ComplexityUnknown, false) when the label is off-scale.
func CanonicalComplexity(label string) (ComplexityLevel, bool) {
	s := strings.TrimSpace(label)
	for _, c := range complexityLevels {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return ComplexityUnknown, false
}

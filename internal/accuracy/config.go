package accuracy

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/logman117/ai-manufacturing-vision/constants"
)

// ComparePolicy controls how a metadata field is compared.
type ComparePolicy string

const (
	// CompareExact is case-insensitive exact equality.
	CompareExact ComparePolicy = "exact"
	// CompareSubstring is case-insensitive containment either way, which is
	// how material callouts are graded ("Steel" vs "Carbon Steel").
	CompareSubstring ComparePolicy = "substring"
)

// MergePolicy controls how two model flags combine against one merged
// ground-truth column.
type MergePolicy string

const (
	// MergeOR grades the combined column as max(fieldA, fieldB).
	MergeOR MergePolicy = "OR"
	// MergeAND grades the combined column as min(fieldA, fieldB).
	MergeAND MergePolicy = "AND"
)

// MetadataColumn maps one ground-truth metadata column onto a record field.
type MetadataColumn struct {
	Column  string        `toml:"column"`
	Field   string        `toml:"field"` // complexity_level | part_type | material
	Compare ComparePolicy `toml:"compare"`
}

// ProcessColumn maps one model process flag onto one ground-truth column.
type ProcessColumn struct {
	Field  string `toml:"field"`
	Column string `toml:"column"`
}

// CombinedColumn maps exactly two model flags onto one merged ground-truth
// column under an explicit merge policy. The policy is configuration, never
// inferred.
type CombinedColumn struct {
	Column string      `toml:"column"`
	Fields []string    `toml:"fields"`
	Policy MergePolicy `toml:"policy"`
}

// Config is the immutable validation configuration: identifier
// normalization rules, the ground-truth column mapping, and merge policies.
// Built once at startup and passed by reference into the normalizer, loader,
// matcher and aggregator.
type Config struct {
	IDColumn string   `toml:"id_column"`
	IDStrip  []string `toml:"id_strip"`

	Metadata  []MetadataColumn `toml:"metadata"`
	Processes []ProcessColumn  `toml:"processes"`
	Combined  []CombinedColumn `toml:"combined"`

	// OverallIncludesMetadata keeps metadata parameters in the OVERALL
	// tally. On by default, matching the historical report.
	OverallIncludesMetadata bool `toml:"overall_includes_metadata"`
}

// DefaultConfig mirrors the canonical ground-truth workbook layout.
// Both combined columns default to OR: the merged cell says "some work of
// this family happened", so either model flag satisfies it.
func DefaultConfig() *Config {
	return &Config{
		IDColumn: "Part ID",
		IDStrip:  []string{"_drw", ".pdf", ".drw", " (1)", " (2)"},
		Metadata: []MetadataColumn{
			{Column: "Complexity Level", Field: "complexity_level", Compare: CompareExact},
			{Column: "Type", Field: "part_type", Compare: CompareExact},
			{Column: "Material", Field: "material", Compare: CompareSubstring},
		},
		Processes: []ProcessColumn{
			{Field: "laser_cut", Column: "Laser Cut"},
			{Field: "saw_shear", Column: "Saw/Shear"},
			{Field: "break_press", Column: "Break Press"},
			{Field: "painting", Column: "Painting"},
			{Field: "heat_treat", Column: "Heat Treat"},
			{Field: "plating", Column: "Plating"},
			{Field: "cnc_machining_turning", Column: "CNC Machining /Turning"},
			{Field: "metal_rolling", Column: "Metal Rolling"},
			{Field: "casting_forging", Column: "Casting / Forging"},
			{Field: "tube_bending", Column: "Tube Bending"},
			{Field: "metal_spinning", Column: "Metal Spinning"},
			{Field: "turret_punch_stamping", Column: "Turret Punch /Metal Stamping"},
		},
		Combined: []CombinedColumn{
			{Column: "Fab Weld", Fields: []string{"fab", "weld"}, Policy: MergeOR},
			{Column: "Press Inserts", Fields: []string{"press", "inserts"}, Policy: MergeOR},
		},
		OverallIncludesMetadata: true,
	}
}

// LoadConfig reads a TOML mapping file over the defaults, so a file only
// needs to state what differs from the canonical layout.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping config: %w", err)
	}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("decode mapping config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects mappings that reference unknown flags or malformed
// combined columns before any statistics are computed.
func (c *Config) Validate() error {
	known := map[string]struct{}{}
	for _, k := range constants.ProcessKeys {
		known[k] = struct{}{}
	}
	if c.IDColumn == "" {
		return fmt.Errorf("%w", &configError{"id_column is required"})
	}
	for _, pc := range c.Processes {
		if _, ok := known[pc.Field]; !ok {
			return &configError{fmt.Sprintf("processes: unknown flag %q", pc.Field)}
		}
	}
	for _, cc := range c.Combined {
		if len(cc.Fields) != 2 {
			return &configError{fmt.Sprintf("combined %q: exactly two fields required", cc.Column)}
		}
		for _, f := range cc.Fields {
			if _, ok := known[f]; !ok {
				return &configError{fmt.Sprintf("combined %q: unknown flag %q", cc.Column, f)}
			}
		}
		if cc.Policy != MergeOR && cc.Policy != MergeAND {
			return &configError{fmt.Sprintf("combined %q: policy must be OR or AND", cc.Column)}
		}
	}
	return nil
}

// ParameterOrder is the report row order: metadata first, then process
// columns, then combined columns.
func (c *Config) ParameterOrder() []string {
	order := make([]string, 0, len(c.Metadata)+len(c.Processes)+len(c.Combined))
	for _, m := range c.Metadata {
		order = append(order, m.Column)
	}
	for _, p := range c.Processes {
		order = append(order, p.Column)
	}
	for _, cc := range c.Combined {
		order = append(order, cc.Column)
	}
	return order
}

// FlagColumns lists every binary ground-truth column (singles then merged).
func (c *Config) FlagColumns() []string {
	cols := make([]string, 0, len(c.Processes)+len(c.Combined))
	for _, p := range c.Processes {
		cols = append(cols, p.Column)
	}
	for _, cc := range c.Combined {
		cols = append(cols, cc.Column)
	}
	return cols
}

type configError struct{ msg string }

func (e *configError) Error() string { return "mapping config: " + e.msg }

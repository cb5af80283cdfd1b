package accuracy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	body := `
id_column = "Drawing"
id_strip = [".pdf"]
overall_includes_metadata = false

[[combined]]
column = "Fab Weld"
fields = ["fab", "weld"]
policy = "AND"
`
	path := filepath.Join(t.TempDir(), "mapping.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Drawing", cfg.IDColumn)
	assert.Equal(t, []string{".pdf"}, cfg.IDStrip)
	assert.False(t, cfg.OverallIncludesMetadata)
	require.Len(t, cfg.Combined, 1)
	assert.Equal(t, MergeAND, cfg.Combined[0].Policy)
	// Unmentioned sections keep their defaults.
	assert.Len(t, cfg.Processes, 12)
}

func TestConfigValidateRejectsBadMappings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown process flag", func(c *Config) {
			c.Processes[0].Field = "unobtainium"
		}},
		{"combined with one field", func(c *Config) {
			c.Combined[0].Fields = []string{"fab"}
		}},
		{"combined with unknown flag", func(c *Config) {
			c.Combined[0].Fields = []string{"fab", "unobtainium"}
		}},
		{"bad merge policy", func(c *Config) {
			c.Combined[0].Policy = "XOR"
		}},
		{"missing id column", func(c *Config) {
			c.IDColumn = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

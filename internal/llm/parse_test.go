package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logman117/ai-manufacturing-vision/constants"
	"github.com/logman117/ai-manufacturing-vision/internal/common"
)

// minimalPayload returns a valid response body with the given overrides.
func minimalPayload(overrides map[string]any) string {
	m := map[string]any{
		"complexity_level": "Moderate",
		"part_type":        "Bracket",
		"material":         "Steel",
	}
	for _, key := range constants.ProcessKeys {
		m[key] = 0
	}
	for k, v := range overrides {
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func TestLocateJSONPayload(t *testing.T) {
	want := `{"a": 1}`

	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "Here is the analysis:\n```json\n{\"a\": 1}\n```\nDone."},
		{"bare fence", "```\n{\"a\": 1}\n```"},
		{"braces with prose", "The result is {\"a\": 1} as requested."},
		{"payload only", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocateJSONPayload(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLocateJSONPayloadNoJSON(t *testing.T) {
	_, err := LocateJSONPayload("I cannot analyze this drawing.")
	var sv *common.SchemaViolation
	require.ErrorAs(t, err, &sv)
	assert.Contains(t, sv.Raw, "cannot analyze")
}

func TestParsePartFieldsFencedResponse(t *testing.T) {
	raw := "Analysis below.\n```json\n" +
		minimalPayload(map[string]any{"laser_cut": 1, "weld": 1}) +
		"\n```"

	fields, warnings, err := ParsePartFields(raw, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "Moderate", fields.ComplexityLevel)
	assert.Equal(t, "Bracket", fields.PartType)
	assert.Equal(t, 1, fields.LaserCut)
	assert.Equal(t, 1, fields.Weld)
	assert.Equal(t, 0, fields.Fab)
}

func TestParsePartFieldsMissingFlagsDefaultToZero(t *testing.T) {
	// Only metadata present; every flag must still come back 0 or 1.
	raw := `{"complexity_level": "Simple", "part_type": "Shaft", "material": "Aluminum"}`

	fields, warnings, err := ParsePartFields(raw, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings, "missing flags are defaulted silently")
	for _, key := range constants.ProcessKeys {
		v, ok := fields.Flag(key)
		require.True(t, ok)
		assert.Equal(t, 0, v, "flag %s", key)
	}
}

func TestParsePartFieldsCoercions(t *testing.T) {
	raw := minimalPayload(map[string]any{
		"laser_cut":        true,
		"weld":             "yes",
		"painting":         "0",
		"heat_treat":       2, // non-binary
		"complexity_level": "Somewhat Complex",
		"type":             "Bracket", // synonym for part_type
		"part_type":        nil,
		"confidence":       0.9, // unknown key
	})

	fields, warnings, err := ParsePartFields(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fields.LaserCut)
	assert.Equal(t, 1, fields.Weld)
	assert.Equal(t, 0, fields.Painting)
	assert.Equal(t, 0, fields.HeatTreat)
	assert.Equal(t, string(constants.ComplexityUnknown), fields.ComplexityLevel)
	assert.Equal(t, "Bracket", fields.PartType)

	joined := strings.Join(warnings, " ")
	assert.Contains(t, joined, "heat_treat")
	assert.Contains(t, joined, "complexity_level")
	assert.Contains(t, joined, "confidence")
}

func TestParsePartFieldsInvalidJSON(t *testing.T) {
	_, _, err := ParsePartFields("```json\n{not json}\n```", nil)
	var sv *common.SchemaViolation
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, common.KindSchema, common.Kind(err))
}

func TestParsePartFieldsRawPreviewTruncated(t *testing.T) {
	raw := "garbage " + strings.Repeat("x", 2000)
	_, _, err := ParsePartFields(raw, nil)
	var sv *common.SchemaViolation
	require.ErrorAs(t, err, &sv)
	assert.LessOrEqual(t, len(sv.Raw), rawPreviewLimit+len("…"))
}

func TestParsePartFieldsNeverPartial(t *testing.T) {
	// Valid JSON array, not an object: parse must fail whole.
	_, _, err := ParsePartFields(`[1, 2, 3]`, nil)
	require.Error(t, err)
}

func TestBuildUserPromptMentionsEveryFlag(t *testing.T) {
	prompt := BuildUserPrompt("TITLE BLOCK: bracket, 6mm steel")
	for _, key := range constants.ProcessKeys {
		assert.Contains(t, prompt, key)
	}
	assert.Contains(t, prompt, "bracket, 6mm steel")
}

func TestBuildUserPromptTruncatesLongText(t *testing.T) {
	long := strings.Repeat("a", textExcerptLimit+500)
	prompt := BuildUserPrompt(long)
	assert.Less(t, len(prompt), len(long)+2000)
}

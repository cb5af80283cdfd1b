package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/logman117/ai-manufacturing-vision/constants"
	"github.com/logman117/ai-manufacturing-vision/internal/common"
)

const rawPreviewLimit = 500

// LocateJSONPayload finds the structured payload inside a free-form model
// response. Markdown fences are preferred; otherwise the outermost brace pair
// is taken. Surrounding commentary is tolerated on both sides.
func LocateJSONPayload(raw string) (string, error) {
	if i := strings.Index(raw, "```json"); i >= 0 {
		rest := raw[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j]), nil
		}
	}
	if i := strings.Index(raw, "```"); i >= 0 {
		rest := raw[i+len("```"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j]), nil
		}
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return strings.TrimSpace(raw[start : end+1]), nil
	}
	return "", &common.SchemaViolation{
		Reason: "no JSON payload located in response",
		Raw:    truncateRaw(raw),
	}
}

// ParsePartFields converts a raw model response into fully typed part fields.
// It returns either a complete record (every flag resolved to 0 or 1, every
// optional string defaulted) or a SchemaViolation; never a partial record.
// Warnings describe the coercions that were applied.
func ParsePartFields(raw string, logger *slog.Logger) (PartFields, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	payload, err := LocateJSONPayload(raw)
	if err != nil {
		return PartFields{}, nil, err
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return PartFields{}, nil, &common.SchemaViolation{
			Reason: fmt.Sprintf("payload is not valid JSON: %v", err),
			Raw:    truncateRaw(raw),
		}
	}

	m, warnings := sanitizePayload(m)
	if len(warnings) > 0 {
		logger.Warn("llm.parse.coerced", "warnings", warnings)
	}

	doc, err := json.Marshal(m)
	if err != nil {
		return PartFields{}, warnings, fmt.Errorf("encode sanitized payload: %w", err)
	}
	if err := validatePartPayload(doc); err != nil {
		return PartFields{}, warnings, &common.SchemaViolation{
			Reason: err.Error(),
			Raw:    truncateRaw(raw),
		}
	}

	var out PartFields
	if err := json.Unmarshal(doc, &out); err != nil {
		return PartFields{}, warnings, &common.SchemaViolation{
			Reason: fmt.Sprintf("unmarshal fields: %v", err),
			Raw:    truncateRaw(raw),
		}
	}
	return out, warnings, nil
}

var fieldSynonyms = map[string]string{
	"type":       "part_type",
	"part_notes": "notes",
}

// sanitizePayload coerces the generic decoded payload into the strict shape
// the schema expects:
//   - known synonym keys are renamed
//   - every process flag resolves to exactly 0 or 1 (missing -> 0,
//     non-binary -> 0 with a warning)
//   - complexity_level off the fixed scale -> "Unknown"
//   - metadata strings are trimmed; required ones default to ""
//   - unknown keys are removed
func sanitizePayload(m map[string]any) (map[string]any, []string) {
	var warnings []string

	for from, to := range fieldSynonyms {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
		}
	}

	metaKeys := []string{"complexity_level", "part_type", "part_name", "material", "notes"}
	for _, k := range metaKeys {
		switch v := m[k].(type) {
		case string:
			m[k] = strings.TrimSpace(v)
		case nil:
			delete(m, k)
		default:
			warnings = append(warnings, k+"(non-string)")
			delete(m, k)
		}
	}
	// required metadata must exist for the schema; absent -> empty string
	for _, k := range []string{"part_type", "material"} {
		if _, ok := m[k]; !ok {
			m[k] = ""
		}
	}

	label, _ := m["complexity_level"].(string)
	canon, ok := constants.CanonicalComplexity(label)
	if !ok && label != "" {
		warnings = append(warnings, fmt.Sprintf("complexity_level(%q->Unknown)", label))
	}
	m["complexity_level"] = string(canon)

	allowed := map[string]struct{}{
		"complexity_level": {}, "part_type": {}, "part_name": {},
		"material": {}, "notes": {},
	}
	for _, key := range constants.ProcessKeys {
		allowed[key] = struct{}{}
		v, present := m[key]
		if !present {
			m[key] = 0
			continue
		}
		flag, ok := coerceFlag(v)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s(%v->0)", key, v))
			flag = 0
		}
		m[key] = flag
	}

	for k := range m {
		if _, ok := allowed[k]; !ok {
			warnings = append(warnings, k+"(unknown)")
			delete(m, k)
		}
	}

	return m, warnings
}

// coerceFlag accepts the binary encodings models actually emit. Anything
// else is non-binary and reported to the caller.
func coerceFlag(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t == 0 {
			return 0, true
		}
		if t == 1 {
			return 1, true
		}
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "0", "false", "no":
			return 0, true
		case "1", "true", "yes":
			return 1, true
		}
	}
	return 0, false
}

func truncateRaw(s string) string {
	if len(s) <= rawPreviewLimit {
		return s
	}
	return s[:rawPreviewLimit] + "…"
}

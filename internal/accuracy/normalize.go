package accuracy

import "strings"

// Normalize canonicalizes a free-form part identifier for matching across
// the two datasets: trim, lowercase, then strip the configured tokens until
// a fixpoint so the function is idempotent. It is total: the worst case is
// the trimmed lowercase input unchanged. All matching logic is defined only
// in terms of this output.
func Normalize(raw string, strip []string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	for {
		next := s
		for _, tok := range strip {
			tok = strings.ToLower(tok)
			if tok == "" {
				continue
			}
			next = strings.ReplaceAll(next, tok, "")
		}
		next = strings.TrimSpace(next)
		if next == s {
			return s
		}
		s = next
	}
}

// NormalizeID applies the config's strip rules.
func (c *Config) NormalizeID(raw string) string {
	return Normalize(raw, c.IDStrip)
}

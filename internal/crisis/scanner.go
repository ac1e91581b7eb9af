package crisis

import "strings"

// Scanner flags message text containing self-harm or suicidal-ideation
// language. Matching is case-insensitive substring containment: any hit
// fires, because a missed signal costs far more than a spurious alert.
// Severity and triage belong to the external crisis-alert subsystem.
type Scanner struct {
	categories map[string][]string
}

// DefaultKeywords is the built-in phrase list, grouped by category. The list
// is configuration, not business logic; extend it without touching the
// pipeline.
func DefaultKeywords() map[string][]string {
	return map[string][]string{
		"suicidal_ideation": {
			"kill myself",
			"end my life",
			"suicide",
			"suicidal",
			"want to die",
			"don't want to live",
			"no reason to live",
			"better off dead",
			"end it all",
		},
		"self_harm": {
			"hurt myself",
			"harm myself",
			"self harm",
			"self-harm",
			"cut myself",
			"cutting myself",
		},
	}
}

// NewScanner builds a scanner over the given keyword map. Phrases are
// normalized to lower case once, at construction.
func NewScanner(categories map[string][]string) *Scanner {
	normalized := make(map[string][]string, len(categories))
	for category, phrases := range categories {
		lowered := make([]string, 0, len(phrases))
		for _, p := range phrases {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				lowered = append(lowered, p)
			}
		}
		if len(lowered) > 0 {
			normalized[category] = lowered
		}
	}
	return &Scanner{categories: normalized}
}

// NewDefaultScanner builds a scanner over the built-in list plus any extra
// phrases, filed under the "custom" category.
func NewDefaultScanner(extra []string) *Scanner {
	keywords := DefaultKeywords()
	if len(extra) > 0 {
		keywords["custom"] = extra
	}
	return NewScanner(keywords)
}

// Scan checks the text against every phrase. It never fails; no match is a
// valid, silent outcome. Returns the matched category when it fires.
func (s *Scanner) Scan(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	lowered := strings.ToLower(text)
	for category, phrases := range s.categories {
		for _, phrase := range phrases {
			if strings.Contains(lowered, phrase) {
				return category, true
			}
		}
	}
	return "", false
}

package ai

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// TaxonomySuggestion is the normalized result of a tagging call.
// All fields are always non-nil.
type TaxonomySuggestion struct {
	Tags       []string            `json:"tags"`
	Categories []string            `json:"categories"`
	Audience   []string            `json:"audience"`
	Taxonomies map[string][]string `json:"taxonomies"`
}

func newTaxonomySuggestion() *TaxonomySuggestion {
	return &TaxonomySuggestion{
		Tags:       []string{},
		Categories: []string{},
		Audience:   []string{},
		Taxonomies: map[string][]string{},
	}
}

var (
	markupRe   = regexp.MustCompile(`<[^>]*>`)
	tagsLineRe = regexp.MustCompile(`(?i)^(?:tags|תגיות):\s*(.+)$`)
	catsLineRe = regexp.MustCompile(`(?i)^(?:categories|קטגוריות):\s*(.+)$`)
	audLineRe  = regexp.MustCompile(`(?i)^(?:target audience|audience|קהל יעד):\s*(.+)$`)
	taxLineRe  = regexp.MustCompile(`(?i)^([a-z0-9_-]+):\s*(.+)$`)
)

// sanitizeTerms normalizes raw term values: drops non-scalars, strips
// markup, trims whitespace, removes empties and deduplicates while
// preserving order.
func sanitizeTerms(values []any) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, v := range values {
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			continue
		default:
			continue
		}
		s = strings.TrimSpace(markupRe.ReplaceAllString(s, ""))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func splitTerms(line string) []string {
	parts := strings.Split(line, ",")
	values := make([]any, len(parts))
	for i, p := range parts {
		values[i] = p
	}
	return sanitizeTerms(values)
}

// ParseTaxonomySuggestion extracts structured tag suggestions from a
// model response. It tries strict JSON first, then a JSON object
// embedded in surrounding prose, then labeled lines. It never fails:
// unparseable input yields an empty suggestion.
func ParseTaxonomySuggestion(raw string) *TaxonomySuggestion {
	if parsed, ok := parseJSONObject(strings.TrimSpace(raw)); ok {
		return parsed
	}

	// The model often wraps JSON in markdown fences or commentary.
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		if parsed, ok := parseJSONObject(raw[start : end+1]); ok {
			return parsed
		}
	}

	return parseLabeledLines(raw)
}

func parseJSONObject(raw string) (*TaxonomySuggestion, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, false
	}

	out := newTaxonomySuggestion()

	if taxonomies, ok := m["taxonomies"].(map[string]any); ok {
		for name, v := range taxonomies {
			if values, ok := v.([]any); ok {
				out.Taxonomies[name] = sanitizeTerms(values)
			}
		}
	}
	if values, ok := m["tags"].([]any); ok {
		out.Tags = sanitizeTerms(values)
	}
	if values, ok := m["categories"].([]any); ok {
		out.Categories = sanitizeTerms(values)
	}
	if values, ok := m["audience"].([]any); ok {
		out.Audience = sanitizeTerms(values)
	}

	out.mirrorTaxonomies()
	return out, true
}

// mirrorTaxonomies fills the flat tag and category fields from the
// conventional taxonomy keys when the model supplied only the nested
// form. Existing values are never overwritten.
func (s *TaxonomySuggestion) mirrorTaxonomies() {
	if len(s.Tags) == 0 {
		if terms, ok := s.Taxonomies["post_tag"]; ok {
			s.Tags = append([]string{}, terms...)
		}
	}
	if len(s.Categories) == 0 {
		if terms, ok := s.Taxonomies["category"]; ok {
			s.Categories = append([]string{}, terms...)
		}
	}
}

func parseLabeledLines(raw string) *TaxonomySuggestion {
	out := newTaxonomySuggestion()

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "-* \t")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := tagsLineRe.FindStringSubmatch(line); m != nil {
			out.Tags = splitTerms(m[1])
			continue
		}
		if m := catsLineRe.FindStringSubmatch(line); m != nil {
			out.Categories = splitTerms(m[1])
			continue
		}
		if m := audLineRe.FindStringSubmatch(line); m != nil {
			out.Audience = splitTerms(m[1])
			continue
		}
		if m := taxLineRe.FindStringSubmatch(line); m != nil {
			out.Taxonomies[strings.ToLower(m[1])] = splitTerms(m[2])
		}
	}

	out.mirrorTaxonomies()
	return out
}

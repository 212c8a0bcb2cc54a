// Package memory defines the Memory record and the small set of pure
// transforms (tag normalization, type inference) shared by ingestion,
// search, and the context loader.
package memory

import (
	"sort"
	"strings"
	"time"
)

// Type enumerates the kind of fact a Memory represents.
type Type string

const (
	TypeFact       Type = "fact"
	TypePreference Type = "preference"
	TypeDecision   Type = "decision"
	TypeLearning   Type = "learning"
	TypeIssue      Type = "issue"
)

// GlobalProject is the sentinel project value meaning "applies everywhere".
const GlobalProject = "global"

// Memory is an immutable-by-convention fact record. See spec §3 for the
// field invariants; store.MemoryStore.Insert enforces the cheap ones
// (non-empty trimmed content, importance clamped into [0,1]).
type Memory struct {
	ID            string
	Content       string
	Who           string
	Why           string
	Project       string
	SessionID     string
	Importance    float64
	Type          Type
	Tags          string
	Pinned        bool
	CreatedAt     time.Time
	LastAccessed  *time.Time
	AccessCount   int
}

// AutoImportanceCap is the ceiling applied to auto-extracted memories
// (why starts with "auto-").
const AutoImportanceCap = 0.4

// IsAutoExtracted reports whether why starts with "auto-".
func (m Memory) IsAutoExtracted() bool {
	return strings.HasPrefix(m.Why, "auto-")
}

// NormalizeTags trims, lowercases, drops empty entries, and rejoins a
// comma-separated tag list. Accepts either a comma-separated string or a
// slice of strings so ingestion can normalize both JSON shapes the
// extractor collaborator may produce; both yield the same canonical form.
// NormalizeTags is idempotent: NormalizeTags(NormalizeTags(x)) == NormalizeTags(x).
func NormalizeTags(tags interface{}) string {
	var parts []string
	switch v := tags.(type) {
	case nil:
		return ""
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []interface{}:
		for _, e := range v {
			if s, ok := e.(string); ok {
				parts = append(parts, s)
			}
		}
	default:
		return ""
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.ToLower(strings.TrimSpace(p))
		if t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, ",")
}

// TagList splits a normalized tag string back into its components.
func TagList(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, ",")
}

// typeHints maps a keyword, in priority order, to the Type it implies. Go
// maps don't preserve order, so this stays a slice - first match in
// lowercase content wins, matching spec §4.8 step 3.
var typeHints = []struct {
	keyword string
	typ     Type
}{
	{"prefer", TypePreference},
	{"decided", TypeDecision},
	{"learned", TypeLearning},
	{"issue", TypeIssue},
	{"bug", TypeIssue},
}

// InferType returns the first matching type hint in lowercase content, or
// TypeFact if none match.
func InferType(content string) Type {
	lower := strings.ToLower(content)
	for _, h := range typeHints {
		if strings.Contains(lower, h.keyword) {
			return h.typ
		}
	}
	return TypeFact
}

// SortTagsStable returns a copy of tags sorted for deterministic display.
// The normalizer itself never sorts (it preserves input order, matching the
// Python original).
func SortTagsStable(tags []string) []string {
	out := append([]string(nil), tags...)
	sort.Strings(out)
	return out
}

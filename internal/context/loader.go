// Package context assembles the text agentmem injects into an assistant's
// prompt: the session-start prelude plus working-memory digest, and the
// per-prompt "[relevant memories]" block.
package context

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"agentmem/internal/logging"
	"agentmem/internal/memory"
	"agentmem/internal/scorer"
	"agentmem/internal/store"
)

const (
	sessionPrelude        = "[memory active | /remember | /recall]"
	memoryDocMaxChars     = 10000
	truncatedMarker       = "[truncated]"
	sessionStartCharBudget = 2000
	sessionStartLimit      = 30
	sessionStartEffThreshold = 0.2

	relevantHeader       = "[relevant memories]"
	perPromptCharBudget  = 500
	perPromptLimit       = 15
	perPromptEffThreshold = 0.3
	perPromptMinTokens    = 3
	perPromptMaxTokens    = 10
)

// Loader assembles context text from the relational store.
type Loader struct {
	memStore *store.MemoryStore
	clock    scorer.Clock
}

// New constructs a Loader. A nil clock defaults to the system clock.
func New(memStore *store.MemoryStore, clock scorer.Clock) *Loader {
	if clock == nil {
		clock = scorer.SystemClock{}
	}
	return &Loader{memStore: memStore, clock: clock}
}

// SessionStart emits the fixed prelude, the MEMORY.md digest (if present,
// truncated at 10 000 characters), and a greedily-accumulated list of
// high-value memories visible to project, per spec §4.7.
func (l *Loader) SessionStart(project, memoryDocPath string) (string, error) {
	var b strings.Builder
	b.WriteString(sessionPrelude)
	b.WriteString("\n")

	if digest, err := readMemoryDoc(memoryDocPath); err != nil {
		logging.ContextLogDebug("no working memory document at %s: %v", memoryDocPath, err)
	} else if digest != "" {
		b.WriteString(digest)
		b.WriteString("\n")
	}

	rows, err := l.memStore.ProjectVisible(project)
	if err != nil {
		return "", err
	}

	type scored struct {
		m   memory.Memory
		eff float64
	}
	var candidates []scored
	for _, m := range rows {
		eff := scorer.Effective(m, l.clock)
		if eff > sessionStartEffThreshold || m.Pinned {
			candidates = append(candidates, scored{m: m, eff: eff})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		iCurrent := candidates[i].m.Project == project
		jCurrent := candidates[j].m.Project == project
		if iCurrent != jCurrent {
			return iCurrent
		}
		return candidates[i].eff > candidates[j].eff
	})
	if len(candidates) > sessionStartLimit {
		candidates = candidates[:sessionStartLimit]
	}

	var accessed []string
	used := 0
	for _, c := range candidates {
		line := formatBullet(c.m)
		if used+len(line) > sessionStartCharBudget {
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
		used += len(line)
		accessed = append(accessed, c.m.ID)
	}

	if len(accessed) > 0 {
		if err := l.memStore.UpdateAccess(accessed); err != nil {
			logging.ContextLog("session-start: failed to update access counters: %v", err)
		}
	}

	return b.String(), nil
}

// PerPromptEnvelope is the JSON shape read from stdin for the per-prompt
// retrieval path.
type PerPromptEnvelope struct {
	UserPrompt string `json:"user_prompt"`
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// PerPrompt reads a JSON envelope, tokenizes user_prompt, runs a
// project-scoped FTS query over the first 10 tokens of length >= 3 joined
// by OR, and renders any effective-score-qualifying hits as a
// "[relevant memories]" block, per spec §4.7. Returns "" if nothing
// qualifies - a valid, silent outcome.
func (l *Loader) PerPrompt(project string, rawJSON []byte) (string, error) {
	var env PerPromptEnvelope
	if err := json.Unmarshal(rawJSON, &env); err != nil {
		logging.ContextLogDebug("per-prompt: malformed envelope: %v", err)
		return "", nil
	}

	tokens := tokenize(env.UserPrompt)
	if len(tokens) == 0 {
		return "", nil
	}
	if len(tokens) > perPromptMaxTokens {
		tokens = tokens[:perPromptMaxTokens]
	}
	ftsQuery := strings.Join(tokens, " OR ")

	ids, err := l.memStore.FtsSearchProject(ftsQuery, project, perPromptLimit)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}

	type scored struct {
		m   memory.Memory
		eff float64
	}
	var candidates []scored
	for _, id := range ids {
		m, err := l.memStore.FindById(id)
		if err != nil {
			return "", err
		}
		if m == nil {
			continue
		}
		eff := scorer.Effective(*m, l.clock)
		if eff > perPromptEffThreshold || m.Pinned {
			candidates = append(candidates, scored{m: *m, eff: eff})
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].eff > candidates[j].eff
	})

	var b strings.Builder
	b.WriteString(relevantHeader)
	b.WriteString("\n")

	var accessed []string
	used := 0
	for _, c := range candidates {
		line := formatBullet(c.m)
		if used+len(line) > perPromptCharBudget {
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
		used += len(line)
		accessed = append(accessed, c.m.ID)
	}

	if len(accessed) == 0 {
		return "", nil
	}
	if err := l.memStore.UpdateAccess(accessed); err != nil {
		logging.ContextLog("per-prompt: failed to update access counters: %v", err)
	}

	return b.String(), nil
}

// tokenize lowercases s and extracts word-characters runs of length >= 3.
func tokenize(s string) []string {
	lower := strings.ToLower(s)
	all := tokenPattern.FindAllString(lower, -1)
	out := make([]string, 0, len(all))
	for _, t := range all {
		if len(t) >= perPromptMinTokens {
			out = append(out, t)
		}
	}
	return out
}

// formatBullet renders a memory as "- <content>[ [tags]]".
func formatBullet(m memory.Memory) string {
	if m.Tags == "" {
		return fmt.Sprintf("- %s", m.Content)
	}
	return fmt.Sprintf("- %s [%s]", m.Content, strings.ReplaceAll(m.Tags, ",", ", "))
}

// readMemoryDoc reads path and truncates it to memoryDocMaxChars, appending
// truncatedMarker when the content exceeds that length.
func readMemoryDoc(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := string(data)
	if len(content) > memoryDocMaxChars {
		content = content[:memoryDocMaxChars] + truncatedMarker
	}
	return content, nil
}

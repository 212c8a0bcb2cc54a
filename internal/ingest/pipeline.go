// Package ingest implements agentmem's two write paths: explicit operator
// saves and best-effort auto-extraction from session transcripts.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"agentmem/internal/embedding"
	"agentmem/internal/logging"
	"agentmem/internal/memory"
	"agentmem/internal/store"
)

const (
	criticalPrefix       = "critical:"
	explicitImportance   = 0.8
	criticalImportance   = 1.0
	autoImportanceCap    = 0.4
	minTranscriptChars   = 500
	dedupTokenMinLength  = 4
	dedupTokenCount      = 5
	dedupJaccardThreshold = 0.7
)

var tagContentPattern = regexp.MustCompile(`(?s)^\[([^\]]+)\]:\s*(.+)$`)

// Pipeline writes memories into the relational and vector stores. vecStore
// and embedder may be nil; the explicit path then always reports
// "saved (no embedding)" and the auto path's importance cap and dedup logic
// are unaffected, since neither consults the vector store directly.
type Pipeline struct {
	memStore  *store.MemoryStore
	vecStore  *store.VectorStore
	embedder  embedding.Provider
	extractor Extractor
}

// New constructs a Pipeline. extractor may be ingest.NoopExtractor{} when no
// transcript extractor is configured.
func New(memStore *store.MemoryStore, vecStore *store.VectorStore, embedder embedding.Provider, extractor Extractor) *Pipeline {
	if extractor == nil {
		extractor = NoopExtractor{}
	}
	return &Pipeline{memStore: memStore, vecStore: vecStore, embedder: embedder, extractor: extractor}
}

// ExplicitResult reports what SaveExplicit did, for the CLI to render.
type ExplicitResult struct {
	ID       string
	Content  string
	Embedded bool
}

// SaveExplicit persists an operator-authored memory per spec §4.8's explicit
// path: critical-prefix handling, tag-prefix parsing, type inference, then
// insert, then a best-effort embed + vector upsert whose failure is logged
// but never fails the save.
func (p *Pipeline) SaveExplicit(ctx context.Context, content, who, project string) (ExplicitResult, error) {
	content = strings.TrimSpace(content)

	importance := explicitImportance
	pinned := false
	why := "explicit"

	if strings.HasPrefix(content, criticalPrefix) {
		content = strings.TrimSpace(strings.TrimPrefix(content, criticalPrefix))
		importance = criticalImportance
		pinned = true
		why = "explicit-critical"
	}

	var tags string
	if m := tagContentPattern.FindStringSubmatch(content); m != nil {
		tags = memory.NormalizeTags(m[1])
		content = strings.TrimSpace(m[2])
	}

	memType := memory.InferType(content)

	id, err := p.memStore.Insert(memory.Memory{
		Content:    content,
		Who:        who,
		Why:        why,
		Project:    project,
		Importance: importance,
		Type:       memType,
		Tags:       tags,
		Pinned:     pinned,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return ExplicitResult{}, err
	}

	embedded := p.bestEffortEmbed(ctx, id, content)
	return ExplicitResult{ID: id, Content: content, Embedded: embedded}, nil
}

// bestEffortEmbed embeds content and upserts it into the vector store,
// logging and swallowing any failure - embedding is never allowed to fail
// an explicit save.
func (p *Pipeline) bestEffortEmbed(ctx context.Context, id, content string) bool {
	if p.embedder == nil || p.vecStore == nil {
		return false
	}
	res, err := p.embedder.Embed(ctx, content)
	if err != nil {
		logging.IngestWarn("embedding failed for memory %s: %v", id, err)
		return false
	}
	if err := p.vecStore.Upsert(id, res.Vector); err != nil {
		logging.IngestWarn("vector upsert failed for memory %s: %v", id, err)
		return false
	}
	return true
}

// AutoEnvelope is the JSON shape read from stdin for the auto-extraction
// path.
type AutoEnvelope struct {
	TranscriptPath string `json:"transcript_path"`
	SessionID      string `json:"session_id"`
	Cwd            string `json:"cwd"`
	Reason         string `json:"reason"`
}

// SaveAuto implements spec §4.8's auto path: decode the envelope, abort
// silently on a cleared session / missing or too-short transcript, invoke
// the extractor, then persist each surviving, non-duplicate candidate with
// an importance cap and auto-<type> provenance. Returns the count saved.
func (p *Pipeline) SaveAuto(ctx context.Context, envelopeJSON []byte) (int, error) {
	var env AutoEnvelope
	if err := json.Unmarshal(envelopeJSON, &env); err != nil {
		logging.IngestDebug("auto-save: invalid envelope: %v", err)
		return 0, nil
	}

	if env.Reason == "clear" {
		logging.IngestDebug("auto-save: session cleared, skipping")
		return 0, nil
	}
	if env.TranscriptPath == "" {
		logging.IngestDebug("auto-save: no transcript path")
		return 0, nil
	}

	raw, err := os.ReadFile(env.TranscriptPath)
	if err != nil {
		logging.IngestDebug("auto-save: transcript not found: %v", err)
		return 0, nil
	}
	content := string(raw)
	if len(content) < minTranscriptChars {
		logging.IngestDebug("auto-save: transcript too short (%d chars)", len(content))
		return 0, nil
	}

	candidates, err := p.extractor.Extract(ctx, content)
	if err != nil {
		logging.IngestWarn("auto-save: extraction failed: %v", err)
		return 0, nil
	}
	if len(candidates) == 0 {
		logging.IngestDebug("auto-save: no memories extracted")
		return 0, nil
	}

	saved := 0
	for _, c := range candidates {
		importance := c.Importance
		if importance > autoImportanceCap {
			importance = autoImportanceCap
		}
		if importance < autoImportanceCap {
			continue
		}

		dup, err := p.isDuplicate(c.Content)
		if err != nil {
			logging.IngestWarn("auto-save: dedup check failed, keeping candidate: %v", err)
		} else if dup {
			continue
		}

		memType := memory.Type(c.Type)
		if memType == "" {
			memType = memory.TypeFact
		}

		_, err = p.memStore.Insert(memory.Memory{
			Content:    strings.TrimSpace(c.Content),
			Who:        "agentmem",
			Why:        fmt.Sprintf("auto-%s", memType),
			Project:    env.Cwd,
			SessionID:  env.SessionID,
			Importance: importance,
			Type:       memType,
			Tags:       memory.NormalizeTags(c.Tags),
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			logging.IngestWarn("auto-save: insert failed: %v", err)
			continue
		}
		saved++
	}

	logging.Ingest("auto-save: saved %d memories", saved)
	return saved, nil
}

var dedupTokenPattern = regexp.MustCompile(`[a-z0-9]{4,}`)

// isDuplicate implements the §4.8 dedup rule: tokenize to the first 5
// lowercase word-tokens of length >= 4, run an FTS AND-query, and flag a
// duplicate if either string contains the other or their token overlap
// exceeds 0.7 of the new content's own token count.
func (p *Pipeline) isDuplicate(content string) (bool, error) {
	lower := strings.ToLower(content)
	tokens := dedupTokenPattern.FindAllString(lower, -1)
	if len(tokens) == 0 {
		return false, nil
	}
	if len(tokens) > dedupTokenCount {
		tokens = tokens[:dedupTokenCount]
	}
	ftsQuery := strings.Join(tokens, " AND ")

	matches, err := p.memStore.FtsSearch(ftsQuery, 5)
	if err != nil {
		return false, err
	}

	newWords := strings.Fields(lower)
	newWordSet := make(map[string]struct{}, len(newWords))
	for _, w := range newWords {
		newWordSet[w] = struct{}{}
	}

	for _, match := range matches {
		existing, err := p.memStore.FindById(match.ID)
		if err != nil || existing == nil {
			continue
		}
		existingLower := strings.ToLower(existing.Content)
		if strings.Contains(existingLower, lower) || strings.Contains(lower, existingLower) {
			return true, nil
		}
		overlap := 0
		for _, w := range strings.Fields(existingLower) {
			if _, ok := newWordSet[w]; ok {
				overlap++
			}
		}
		if len(newWords) > 0 && float64(overlap)/float64(len(newWords)) > dedupJaccardThreshold {
			return true, nil
		}
	}
	return false, nil
}

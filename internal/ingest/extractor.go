package ingest

import "context"

// Candidate is a single extracted memory proposal, the schema contract
// between the auto-ingestion path and whatever extracts it - an LLM call, a
// rules engine, or a stub. Its implementation is deliberately out of scope
// here; only the shape is specified.
type Candidate struct {
	Content    string
	Type       string
	Tags       interface{} // string or []string, normalized by memory.NormalizeTags
	Importance float64
}

// Extractor turns raw transcript text into candidate memories. The timeout
// budget (45s for auto-save, 180s for a digest run) is the caller's
// responsibility via ctx.
type Extractor interface {
	Extract(ctx context.Context, transcript string) ([]Candidate, error)
}

// NoopExtractor always returns no candidates. It is useful as a safe
// default when no extractor collaborator is wired up - auto-save then
// degrades to a no-op instead of failing.
type NoopExtractor struct{}

func (NoopExtractor) Extract(ctx context.Context, transcript string) ([]Candidate, error) {
	return nil, nil
}

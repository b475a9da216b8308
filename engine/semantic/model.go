package semantic

import "github.com/cfirst/finbot/engine/domain"

// VectorRecord is a single point to store in Qdrant: one embedded question
// variant with its entry back-reference and all answer variants.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // entry_id, language, question, answer_*
}

// SearchResult is a single nearest-neighbor hit. Score is Qdrant's cosine
// similarity (1 = identical direction).
type SearchResult struct {
	ID       string
	Score    float32
	EntryID  string
	Language domain.Language
	Question string
	Answers  domain.LocalizedText
}

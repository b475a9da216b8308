// Package domain defines core domain types, constants, and validation for
// the finbot pipeline. It acts as the validation gate at pipeline entry
// points and is imported by every other engine package.
package domain

// Language is the closed set of answer languages the corpus carries.
type Language string

const (
	LangEnglish  Language = "english"
	LangHindi    Language = "hindi"
	LangHinglish Language = "hinglish"
)

// Languages lists every supported language in a stable order.
var Languages = []Language{LangEnglish, LangHindi, LangHinglish}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case LangEnglish, LangHindi, LangHinglish:
		return true
	}
	return false
}

// LocalizedText holds one text in each supported language. Variants may be
// empty when the corpus has no translation.
type LocalizedText struct {
	English  string `json:"english"`
	Hindi    string `json:"hindi"`
	Hinglish string `json:"hinglish"`
}

// Get returns the variant for the given language.
func (t LocalizedText) Get(l Language) string {
	switch l {
	case LangHindi:
		return t.Hindi
	case LangHinglish:
		return t.Hinglish
	default:
		return t.English
	}
}

// GetOrEnglish returns the variant for l, falling back to English when that
// variant is empty.
func (t LocalizedText) GetOrEnglish(l Language) string {
	if v := t.Get(l); v != "" {
		return v
	}
	return t.English
}

// VariantCount returns the number of non-empty variants.
func (t LocalizedText) VariantCount() int {
	n := 0
	for _, l := range Languages {
		if t.Get(l) != "" {
			n++
		}
	}
	return n
}

// CorpusEntry is one multilingual question/answer record. Entries are
// immutable after load; the vector index owns them once seeded.
type CorpusEntry struct {
	ID       string        `json:"id"`
	Question LocalizedText `json:"question"`
	Answer   LocalizedText `json:"answer"`
}

// QueryRequest is the body of a chat request. SimilarityThreshold is
// optional and defaults to DefaultThreshold.
type QueryRequest struct {
	Question            string   `json:"question"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
}

// Threshold returns the effective similarity threshold for the request.
func (r QueryRequest) Threshold() float64 {
	if r.SimilarityThreshold == nil {
		return DefaultThreshold
	}
	return *r.SimilarityThreshold
}

// Status is the outcome class of a chat response.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFiltered Status = "filtered"
	StatusError    Status = "error"
)

// ChatResponse is the terminal response for one chat request. It is
// constructed fresh per request and never persisted. SimilarityScore is
// present only when a stored answer matched above the threshold.
type ChatResponse struct {
	Status          Status   `json:"status"`
	UserQuery       string   `json:"user_query"`
	BotResponse     string   `json:"bot_response"`
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
}

// QAPair is one retrieved question/answer used as grounding context for
// answer generation.
type QAPair struct {
	Question string
	Answer   string
}

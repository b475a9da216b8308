package domain

import (
	"strconv"
	"strings"
)

// DefaultThreshold is the similarity threshold applied when a request does
// not supply one.
const DefaultThreshold = 0.7

// ValidateQuery validates a chat request before any processing.
func ValidateQuery(r QueryRequest) error {
	if strings.TrimSpace(r.Question) == "" {
		return NewValidationError("question", r.Question, ErrEmptyQuestion)
	}
	if r.SimilarityThreshold != nil {
		t := *r.SimilarityThreshold
		if t < 0 || t > 1 {
			return NewValidationError("similarity_threshold",
				strconv.FormatFloat(t, 'f', -1, 64), ErrThresholdRange)
		}
	}
	return nil
}

// ValidateEntry checks a corpus record before seeding. An entry needs an id,
// at least one question variant, and an English answer (the fallback every
// matched response can rely on).
func ValidateEntry(e CorpusEntry) error {
	if strings.TrimSpace(e.ID) == "" {
		return NewValidationError("id", e.ID, ErrMissingEntryID)
	}
	if e.Question.VariantCount() == 0 {
		return NewValidationError("question", e.ID, ErrNoQuestionVariant)
	}
	if strings.TrimSpace(e.Answer.English) == "" {
		return NewValidationError("answer.english", e.ID, ErrNoEnglishAnswer)
	}
	return nil
}

// Package corpus loads the multilingual question/answer corpus into the
// vector index: parsing, validation, per-variant embedding, and idempotent
// seeding at startup.
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/cfirst/finbot/engine/domain"
	"github.com/cfirst/finbot/engine/semantic"
	"github.com/cfirst/finbot/pkg/fn"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the slice of the vector store the loader writes to.
type VectorIndex interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
	Count(ctx context.Context) (uint64, error)
}

// ParseRecords decodes a JSON array of corpus entries.
func ParseRecords(r io.Reader) ([]domain.CorpusEntry, error) {
	var entries []domain.CorpusEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("corpus: parse records: %w", err)
	}
	return entries, nil
}

// PointID derives the deterministic vector id for one question variant.
// Re-seeding the same corpus therefore overwrites points instead of
// duplicating them.
func PointID(entryID string, lang domain.Language) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(entryID+"_"+string(lang))).String()
}

// Loader seeds and extends the vector index. Seed runs at most once per
// process; IndexEntry may be called at any time for live additions.
type Loader struct {
	embedder Embedder
	index    VectorIndex
	logger   *slog.Logger

	seedOnce sync.Once
	seeded   int
	seedErr  error
}

// NewLoader creates a Loader.
func NewLoader(embedder Embedder, index VectorIndex, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{embedder: embedder, index: index, logger: logger}
}

// Validate rejects malformed corpus entries before any embedding happens.
var Validate fn.Stage[domain.CorpusEntry, domain.CorpusEntry] = func(_ context.Context, e domain.CorpusEntry) fn.Result[domain.CorpusEntry] {
	if err := domain.ValidateEntry(e); err != nil {
		return fn.Err[domain.CorpusEntry](err)
	}
	return fn.Ok(e)
}

// NewEmbedVariants creates a stage that embeds every non-empty question
// variant of an entry. Each variant becomes its own vector carrying all
// answer translations, so any variant hit can answer in any language.
func NewEmbedVariants(embedder Embedder) fn.Stage[domain.CorpusEntry, []semantic.VectorRecord] {
	return func(ctx context.Context, e domain.CorpusEntry) fn.Result[[]semantic.VectorRecord] {
		records := make([]semantic.VectorRecord, 0, len(domain.Languages))
		for _, lang := range domain.Languages {
			question := e.Question.Get(lang)
			if question == "" {
				continue
			}
			embedding, err := embedder.Embed(ctx, question)
			if err != nil {
				return fn.Err[[]semantic.VectorRecord](fmt.Errorf("embed %s/%s: %w", e.ID, lang, err))
			}
			records = append(records, semantic.VectorRecord{
				ID:        PointID(e.ID, lang),
				Embedding: embedding,
				Payload: map[string]any{
					"entry_id":        e.ID,
					"language":        string(lang),
					"question":        question,
					"answer_english":  e.Answer.English,
					"answer_hindi":    e.Answer.Hindi,
					"answer_hinglish": e.Answer.Hinglish,
				},
			})
		}
		return fn.Ok(records)
	}
}

// NewStore creates a stage that upserts records and reports how many were
// written.
func NewStore(index VectorIndex) fn.Stage[[]semantic.VectorRecord, int] {
	return func(ctx context.Context, records []semantic.VectorRecord) fn.Result[int] {
		if err := index.Upsert(ctx, records); err != nil {
			return fn.Err[int](fmt.Errorf("vector upsert: %w", err))
		}
		return fn.Ok(len(records))
	}
}

// pipeline composes Validate → EmbedVariants → Store for one entry, with a
// logging tap at entry.
func (l *Loader) pipeline() fn.Stage[domain.CorpusEntry, int] {
	logged := fn.TapStage(func(_ context.Context, e domain.CorpusEntry) {
		l.logger.Debug("corpus: indexing entry", "entry_id", e.ID)
	})
	embedded := fn.Then(fn.Then(logged, Validate), NewEmbedVariants(l.embedder))
	return fn.TracedStage("corpus.index_entry", fn.Then(embedded, NewStore(l.index)))
}

// IndexEntry validates, embeds, and stores a single entry. Returns the
// number of vectors written.
func (l *Loader) IndexEntry(ctx context.Context, e domain.CorpusEntry) (int, error) {
	result := l.pipeline()(ctx, e)
	if result.IsErr() {
		_, err := result.Unwrap()
		return 0, err
	}
	n, _ := result.Unwrap()
	return n, nil
}

// Seed loads the corpus into the vector index exactly once per process.
// When the index already holds the expected number of vectors the whole
// embedding pass is skipped, so restarts cost no provider calls. Malformed
// entries are logged and skipped rather than aborting the seed.
func (l *Loader) Seed(ctx context.Context, entries []domain.CorpusEntry) (int, error) {
	l.seedOnce.Do(func() {
		l.seeded, l.seedErr = l.seed(ctx, entries)
	})
	return l.seeded, l.seedErr
}

func (l *Loader) seed(ctx context.Context, entries []domain.CorpusEntry) (int, error) {
	expected := 0
	valid := make([]domain.CorpusEntry, 0, len(entries))
	for _, e := range entries {
		if err := domain.ValidateEntry(e); err != nil {
			l.logger.Warn("corpus: skipping malformed entry", "entry_id", e.ID, "error", err)
			continue
		}
		expected += e.Question.VariantCount()
		valid = append(valid, e)
	}

	count, err := l.index.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("corpus: count: %w", err)
	}
	if count == uint64(expected) && expected > 0 {
		l.logger.Info("corpus: index already seeded", "vectors", count)
		return 0, nil
	}

	total := 0
	pipe := l.pipeline()
	for _, e := range valid {
		result := pipe(ctx, e)
		if result.IsErr() {
			_, err := result.Unwrap()
			return total, fmt.Errorf("corpus: seed entry %s: %w", e.ID, err)
		}
		n, _ := result.Unwrap()
		total += n
	}
	l.logger.Info("corpus: seeded", "entries", len(valid), "vectors", total)
	return total, nil
}

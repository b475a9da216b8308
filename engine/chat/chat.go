// Package chat orchestrates the answer pipeline for one user query: safety
// gate, language detection, embedding, similarity search, and either a
// stored answer, a domain rejection, or grounded generation.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cfirst/finbot/engine/domain"
	"github.com/cfirst/finbot/engine/lang"
	"github.com/cfirst/finbot/engine/safety"
	"github.com/cfirst/finbot/engine/semantic"
)

// Fixed responses. These are returned verbatim regardless of query language.
const (
	FolioMessage = "Sorry, I can't provide information about folio numbers."

	OffTopicMessage = "I'm sorry, I can only answer questions related to finance, stock market, and investments. Please ask a finance-related question."
)

// Embedder turns a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher performs k-NN retrieval over the vector index.
type Searcher interface {
	Query(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchResult, error)
}

// Classifier decides whether a query belongs to the finance domain.
type Classifier interface {
	IsFinanceRelated(ctx context.Context, query string) (bool, error)
}

// Generator produces a grounded answer in the target language.
type Generator interface {
	Generate(ctx context.Context, query string, contexts []domain.QAPair, target domain.Language) (string, error)
}

// Options configures the chat pipeline.
type Options struct {
	// TopK is the retrieval width.
	TopK int
	// ClassifierFailOpen allows generation to proceed on classifier errors
	// when at least one retrieved match exists. Off by default: an
	// unreachable classifier then fails the request instead of bypassing
	// the domain gate.
	ClassifierFailOpen bool
}

// DefaultOptions returns the standard pipeline configuration.
func DefaultOptions() Options {
	return Options{TopK: semantic.TopK}
}

// Service runs the chat pipeline.
type Service struct {
	embedder   Embedder
	searcher   Searcher
	classifier Classifier
	generator  Generator
	opts       Options
	logger     *slog.Logger
}

// New creates a chat Service.
func New(embedder Embedder, searcher Searcher, classifier Classifier, generator Generator, opts Options, logger *slog.Logger) *Service {
	if opts.TopK <= 0 {
		opts.TopK = semantic.TopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embedder:   embedder,
		searcher:   searcher,
		classifier: classifier,
		generator:  generator,
		opts:       opts,
		logger:     logger,
	}
}

// Ask answers one query. Validation failures return a *domain.ValidationError;
// provider failures return a *domain.ProviderError. The returned response is
// freshly built per call and never retained.
func (s *Service) Ask(ctx context.Context, req domain.QueryRequest) (*domain.ChatResponse, error) {
	if err := domain.ValidateQuery(req); err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer("engine/chat").Start(ctx, "chat.ask")
	defer span.End()

	// Safety gate runs before any provider call: a folio-looking query must
	// never leave the process.
	if safety.Scan(req.Question) {
		span.SetAttributes(attribute.String("chat.outcome", "filtered_folio"))
		s.logger.Info("chat: folio query filtered", "query", safety.Redact(req.Question))
		return &domain.ChatResponse{
			Status:      domain.StatusFiltered,
			UserQuery:   req.Question,
			BotResponse: FolioMessage,
		}, nil
	}

	queryLang := lang.Detect(req.Question)
	span.SetAttributes(attribute.String("chat.language", string(queryLang)))

	embedding, err := s.embedder.Embed(ctx, req.Question)
	if err != nil {
		return nil, err
	}

	results, err := s.searcher.Query(ctx, embedding, s.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("chat: search: %w", err)
	}

	// Compare in float32: the index reports float32 scores, and widening
	// them first would make a score exactly at the threshold compare below
	// it (float64(float32(0.7)) < 0.7).
	threshold := req.Threshold()
	if len(results) > 0 && results[0].Score >= float32(threshold) {
		best := results[0]
		score := roundScore(float64(best.Score))
		span.SetAttributes(
			attribute.String("chat.outcome", "matched"),
			attribute.Float64("chat.score", score),
		)
		s.logger.Info("chat: corpus match",
			"entry_id", best.EntryID,
			"score", score,
			"language", queryLang,
		)
		return &domain.ChatResponse{
			Status:          domain.StatusSuccess,
			UserQuery:       req.Question,
			BotResponse:     best.Answers.GetOrEnglish(queryLang),
			SimilarityScore: &score,
		}, nil
	}

	// Below threshold (or empty index): gate on domain before generating.
	finance, err := s.classifier.IsFinanceRelated(ctx, req.Question)
	if err != nil {
		if !s.opts.ClassifierFailOpen || len(results) == 0 {
			return nil, err
		}
		s.logger.Warn("chat: classifier unavailable, proceeding on retrieved context", "error", err)
		finance = true
	}
	if !finance {
		span.SetAttributes(attribute.String("chat.outcome", "filtered_domain"))
		s.logger.Info("chat: off-topic query filtered")
		return &domain.ChatResponse{
			Status:      domain.StatusFiltered,
			UserQuery:   req.Question,
			BotResponse: OffTopicMessage,
		}, nil
	}

	contexts := make([]domain.QAPair, 0, len(results))
	for _, r := range results {
		contexts = append(contexts, domain.QAPair{
			Question: r.Question,
			Answer:   r.Answers.GetOrEnglish(queryLang),
		})
	}

	answer, err := s.generator.Generate(ctx, req.Question, contexts, queryLang)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("chat.outcome", "generated"))
	s.logger.Info("chat: answer generated", "context_pairs", len(contexts), "language", queryLang)
	return &domain.ChatResponse{
		Status:      domain.StatusSuccess,
		UserQuery:   req.Question,
		BotResponse: answer,
	}, nil
}

// roundScore rounds to four decimal places for response payloads.
func roundScore(v float64) float64 {
	return math.Round(v*10000) / 10000
}

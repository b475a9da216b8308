// Package ai provides the Gemini-backed providers for the chat pipeline:
// query embeddings, the finance-domain classifier, and grounded answer
// generation. All calls go through a rate limiter and a circuit breaker;
// failures surface as *domain.ProviderError and never carry query text.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/cfirst/finbot/engine/domain"
	"github.com/cfirst/finbot/pkg/resilience"
)

const providerName = "gemini"

// Defaults.
const (
	DefaultEmbedModel = "text-embedding-004"
	DefaultChatModel  = "gemini-2.0-flash"
	// EmbedDims is the output dimensionality of DefaultEmbedModel.
	EmbedDims = 768
)

// Config configures the Gemini client.
type Config struct {
	APIKey            string
	EmbedModel        string
	ChatModel         string
	RequestsPerMinute int
}

// Client wraps one genai.Client for embeddings, classification, and
// generation. Safe for concurrent use.
type Client struct {
	genai      *genai.Client
	embedModel string
	chatModel  string
	breaker    *resilience.Breaker
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a Gemini client.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ai: missing Gemini API key")
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if logger == nil {
		logger = slog.Default()
	}

	gc, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("ai: genai client: %w", err)
	}

	return &Client{
		genai:      gc,
		embedModel: cfg.EmbedModel,
		chatModel:  cfg.ChatModel,
		breaker:    resilience.NewBreaker(resilience.DefaultBreakerOpts),
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute/6+1),
		logger:     logger,
	}, nil
}

// Close releases the underlying genai client.
func (c *Client) Close() error {
	return c.genai.Close()
}

// Embed converts text into a fixed-length vector. Pure function of its
// input; empty input is rejected before the provider is called.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewProviderError(providerName, "embed", errors.New("empty input"))
	}

	ctx, span := otel.Tracer("pkg/ai").Start(ctx, "gemini.embed")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", c.embedModel))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.NewProviderError(providerName, "embed", err)
	}

	var values []float32
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		resp, err := c.genai.EmbeddingModel(c.embedModel).EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return errors.New("no embedding returned")
		}
		values = resp.Embedding.Values
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, domain.NewProviderError(providerName, "embed", err)
	}
	span.SetAttributes(attribute.Int("gemini.dimensions", len(values)))
	return values, nil
}

// IsFinanceRelated classifies a query as finance-related or not with a
// single fixed-instruction call.
func (c *Client) IsFinanceRelated(ctx context.Context, query string) (bool, error) {
	ctx, span := otel.Tracer("pkg/ai").Start(ctx, "gemini.classify")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", c.chatModel))

	if err := c.limiter.Wait(ctx); err != nil {
		return false, domain.NewProviderError(providerName, "classify", err)
	}

	var verdict string
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		model := c.genai.GenerativeModel(c.chatModel)
		model.SetTemperature(0)
		resp, err := model.GenerateContent(ctx, genai.Text(classifierPrompt(query)))
		if err != nil {
			return err
		}
		verdict = responseText(resp)
		if verdict == "" {
			return errors.New("empty classification response")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return false, domain.NewProviderError(providerName, "classify", err)
	}

	finance := parseYesNo(verdict)
	span.SetAttributes(attribute.Bool("gemini.finance_related", finance))
	return finance, nil
}

// Generate produces an answer grounded in the retrieved context, composed
// in the target language register.
func (c *Client) Generate(ctx context.Context, query string, contexts []domain.QAPair, target domain.Language) (string, error) {
	ctx, span := otel.Tracer("pkg/ai").Start(ctx, "gemini.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", c.chatModel),
		attribute.Int("gemini.context_pairs", len(contexts)),
		attribute.String("gemini.target_language", string(target)),
	)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", domain.NewProviderError(providerName, "generate", err)
	}

	var answer string
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		model := c.genai.GenerativeModel(c.chatModel)
		model.SetTemperature(0.7)
		model.SetMaxOutputTokens(2048)
		resp, err := model.GenerateContent(ctx, genai.Text(answerPrompt(query, contexts, target)))
		if err != nil {
			return err
		}
		answer = responseText(resp)
		if answer == "" {
			return errors.New("empty generation response")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return "", domain.NewProviderError(providerName, "generate", err)
	}
	return answer, nil
}

// --- prompt construction ---

func classifierPrompt(query string) string {
	var b strings.Builder
	b.WriteString("You are a financial domain classifier. Determine if the following question is related to finance, stock market, investments, mutual funds, trading, banking, or financial services.\n\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer with ONLY \"YES\" if it's finance-related, or \"NO\" if it's not finance-related. No explanation needed.")
	return b.String()
}

func answerPrompt(query string, contexts []domain.QAPair, target domain.Language) string {
	var b strings.Builder
	b.WriteString("You are a helpful financial assistant. Use ONLY the following context plus general finance knowledge to answer the user query. ")
	b.WriteString("If the context is insufficient, say so and give cautious general guidance instead of inventing specifics.\n\n")
	b.WriteString("Context:\n")
	if len(contexts) == 0 {
		b.WriteString("(none)\n")
	}
	for _, c := range contexts {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", c.Question, c.Answer)
	}
	fmt.Fprintf(&b, "User Query: %s\n\n", query)
	b.WriteString(languageInstruction(target))
	return b.String()
}

func languageInstruction(l domain.Language) string {
	switch l {
	case domain.LangHindi:
		return "Answer in Hindi, written in Devanagari script."
	case domain.LangHinglish:
		return "Answer in Hinglish: conversational Hindi written in Latin script."
	default:
		return "Answer in clear and natural English. Focus only on financial information."
	}
}

// parseYesNo interprets a classifier verdict; anything that does not start
// with YES counts as not finance-related.
func parseYesNo(s string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(s)), "YES")
}

// responseText flattens the first candidate's text parts.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

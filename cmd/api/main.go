// Package main implements the finbot API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/cfirst/finbot/engine/chat"
	"github.com/cfirst/finbot/engine/corpus"
	"github.com/cfirst/finbot/engine/domain"
	"github.com/cfirst/finbot/engine/semantic"
	"github.com/cfirst/finbot/pkg/ai"
	"github.com/cfirst/finbot/pkg/metrics"
	"github.com/cfirst/finbot/pkg/mid"
)

// Config holds all environment-based configuration.
type Config struct {
	Port               string
	QdrantURL          string
	Collection         string
	GeminiAPIKey       string
	EmbedModel         string
	ChatModel          string
	EmbedDims          int
	CorpusFile         string
	NATSURL            string
	CORSOrigin         string
	MetricsPort        int
	ClassifierFailOpen bool
}

func loadConfig() Config {
	return Config{
		Port:               envOr("PORT", "8080"),
		QdrantURL:          envOr("QDRANT_URL", "localhost:6334"),
		Collection:         envOr("QDRANT_COLLECTION", "finbot_qa"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		EmbedModel:         envOr("GEMINI_EMBED_MODEL", ai.DefaultEmbedModel),
		ChatModel:          envOr("GEMINI_CHAT_MODEL", ai.DefaultChatModel),
		EmbedDims:          envIntOr("EMBED_DIMS", ai.EmbedDims),
		CorpusFile:         envOr("CORPUS_FILE", "corpus.json"),
		NATSURL:            os.Getenv("NATS_URL"), // empty disables the live consumer
		CORSOrigin:         envOr("CORS_ORIGIN", "*"),
		MetricsPort:        envIntOr("METRICS_PORT", 9090),
		ClassifierFailOpen: envOr("CLASSIFIER_FAIL_OPEN", "false") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	if err := vectorStore.EnsureCollection(ctx, cfg.EmbedDims); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	// --- Gemini client ---
	aiClient, err := ai.New(ctx, ai.Config{
		APIKey:     cfg.GeminiAPIKey,
		EmbedModel: cfg.EmbedModel,
		ChatModel:  cfg.ChatModel,
	}, logger)
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}
	defer aiClient.Close()

	// --- Metrics ---
	reg := metrics.New()
	reg.ServeAsync(cfg.MetricsPort)

	// --- Seed the corpus before accepting traffic ---
	loader := corpus.NewLoader(aiClient, vectorStore, logger)
	f, err := os.Open(cfg.CorpusFile)
	if err != nil {
		return fmt.Errorf("open corpus file: %w", err)
	}
	entries, err := corpus.ParseRecords(f)
	f.Close()
	if err != nil {
		return err
	}
	seeded, err := loader.Seed(ctx, entries)
	if err != nil {
		return fmt.Errorf("seed corpus: %w", err)
	}
	reg.Counter("finbot_seed_vectors_total", "Vectors written during startup seeding").Add(int64(seeded))

	// --- Optional live corpus additions over NATS ---
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		sub, err := corpus.StartConsumer(nc, loader, logger)
		if err != nil {
			return fmt.Errorf("corpus consumer: %w", err)
		}
		defer sub.Unsubscribe()
		logger.Info("corpus consumer started", "subject", corpus.EntriesSubject)
	}

	// --- Build chat service ---
	chatSvc := chat.New(aiClient, vectorStore, aiClient, aiClient, chat.Options{
		TopK:               semantic.TopK,
		ClassifierFailOpen: cfg.ClassifierFailOpen,
	}, logger)

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", handleStatus(vectorStore))
	mux.HandleFunc("POST /chat", handleChat(chatSvc, logger, reg))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("finbot-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

// asker answers one chat query.
type asker interface {
	Ask(ctx context.Context, req domain.QueryRequest) (*domain.ChatResponse, error)
}

// vectorCounter reports the size of the vector index.
type vectorCounter interface {
	Count(ctx context.Context) (uint64, error)
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	DatabaseCount uint64 `json:"database_count"`
}

func handleStatus(index vectorCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := index.Count(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "vector index unavailable")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(StatusResponse{
			Status:        "working",
			Message:       "finbot API is running",
			DatabaseCount: count,
		})
	}
}

func handleChat(svc asker, logger *slog.Logger, reg *metrics.Registry) http.HandlerFunc {
	outcomes := map[domain.Status]*metrics.Counter{
		domain.StatusSuccess:  reg.Counter(metrics.WithLabels("finbot_chat_total", "outcome", "success"), "Chat outcomes"),
		domain.StatusFiltered: reg.Counter(metrics.WithLabels("finbot_chat_total", "outcome", "filtered"), "Chat outcomes"),
		domain.StatusError:    reg.Counter(metrics.WithLabels("finbot_chat_total", "outcome", "error"), "Chat outcomes"),
	}
	duration := reg.Histogram("finbot_chat_duration_seconds", "Chat request latency", nil)

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer duration.Since(start)

		var req domain.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			outcomes[domain.StatusError].Inc()
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.Ask(r.Context(), req)
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				outcomes[domain.StatusError].Inc()
				writeError(w, http.StatusBadRequest, verr.Error())
				return
			}
			// Provider failures are logged with the error only, never the
			// query text.
			logger.Error("chat request failed", "err", err)
			outcomes[domain.StatusError].Inc()
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		outcomes[resp.Status].Inc()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  string(domain.StatusError),
		"message": msg,
	})
}

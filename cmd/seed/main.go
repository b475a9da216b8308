// Package main implements the finbot corpus seeding tool. It embeds every
// question variant of a corpus file and upserts the vectors into Qdrant,
// skipping the work entirely when the index is already complete.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/cfirst/finbot/engine/corpus"
	"github.com/cfirst/finbot/engine/semantic"
	"github.com/cfirst/finbot/pkg/ai"
)

func main() {
	_ = godotenv.Load()

	var (
		file       = flag.String("file", "corpus.json", "corpus JSON file")
		qdrantURL  = flag.String("qdrant", envOr("QDRANT_URL", "localhost:6334"), "Qdrant gRPC address")
		collection = flag.String("collection", envOr("QDRANT_COLLECTION", "finbot_qa"), "Qdrant collection name")
		embedModel = flag.String("embed-model", envOr("GEMINI_EMBED_MODEL", ai.DefaultEmbedModel), "embedding model")
		dims       = flag.Int("dims", ai.EmbedDims, "embedding dimensions")
		recreate   = flag.Bool("recreate", false, "drop and recreate the collection before seeding")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(context.Background(), *file, *qdrantURL, *collection, *embedModel, *dims, *recreate, logger); err != nil {
		logger.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, file, qdrantURL, collection, embedModel string, dims int, recreate bool, logger *slog.Logger) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open corpus file: %w", err)
	}
	defer f.Close()

	entries, err := corpus.ParseRecords(f)
	if err != nil {
		return err
	}
	logger.Info("corpus parsed", "entries", len(entries))

	store, err := semantic.New(qdrantURL, collection)
	if err != nil {
		return err
	}
	defer store.Close()

	if recreate {
		if err := store.DeleteCollection(ctx); err != nil {
			logger.Warn("delete collection", "err", err)
		}
	}
	if err := store.EnsureCollection(ctx, dims); err != nil {
		return err
	}

	aiClient, err := ai.New(ctx, ai.Config{
		APIKey:     os.Getenv("GEMINI_API_KEY"),
		EmbedModel: embedModel,
	}, logger)
	if err != nil {
		return err
	}
	defer aiClient.Close()

	seeded, err := corpus.NewLoader(aiClient, store, logger).Seed(ctx, entries)
	if err != nil {
		return err
	}

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info("seed complete", "new_vectors", seeded, "total_vectors", count)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

//go:build integration

package semantic

import (
	"context"
	"os"
	"testing"
)

func qdrantAddr() string {
	if v := os.Getenv("QDRANT_URL"); v != "" {
		return v
	}
	return "localhost:6334"
}

func testStore(t *testing.T, collection string) *VectorStore {
	t.Helper()
	vs, err := New(qdrantAddr(), collection)
	if err != nil {
		t.Fatalf("connect qdrant: %v", err)
	}
	t.Cleanup(func() {
		vs.DeleteCollection(context.Background())
		vs.Close()
	})
	return vs
}

func TestQdrant_UpsertQueryCount(t *testing.T) {
	vs := testStore(t, "finbot_test_roundtrip")
	ctx := context.Background()

	if err := vs.EnsureCollection(ctx, 4); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	records := []VectorRecord{
		{
			ID:        "11111111-1111-1111-1111-111111111111",
			Embedding: []float32{1, 0, 0, 0},
			Payload: map[string]any{
				"entry_id":       "1",
				"language":       "english",
				"question":       "What is mutual fund?",
				"answer_english": "A pooled investment vehicle.",
			},
		},
		{
			ID:        "22222222-2222-2222-2222-222222222222",
			Embedding: []float32{0, 1, 0, 0},
			Payload: map[string]any{
				"entry_id":       "2",
				"language":       "english",
				"question":       "What is SIP?",
				"answer_english": "A systematic investment plan.",
			},
		},
	}
	if err := vs.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err := vs.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 points, got %d", n)
	}

	// Re-upserting the same ids must not grow the collection.
	if err := vs.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if n, _ = vs.Count(ctx); n != 2 {
		t.Fatalf("upsert should be idempotent, got count %d", n)
	}

	// An identical vector must come back first with maximal similarity.
	results, err := vs.Query(ctx, []float32{1, 0, 0, 0}, TopK)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].EntryID != "1" {
		t.Errorf("expected entry 1 first, got %s", results[0].EntryID)
	}
	if results[0].Score < 0.999 {
		t.Errorf("identical vector should score ~1, got %v", results[0].Score)
	}
}

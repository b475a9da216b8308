package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cfirst/finbot/engine/domain"
	"github.com/cfirst/finbot/pkg/metrics"
)

type mockAsker struct {
	resp *domain.ChatResponse
	err  error
}

func (m *mockAsker) Ask(context.Context, domain.QueryRequest) (*domain.ChatResponse, error) {
	return m.resp, m.err
}

type mockCounter struct {
	count uint64
	err   error
}

func (m *mockCounter) Count(context.Context) (uint64, error) {
	return m.count, m.err
}

func TestHandleStatus(t *testing.T) {
	h := handleStatus(&mockCounter{count: 42})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "working" || resp.DatabaseCount != 42 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleStatus_IndexUnavailable(t *testing.T) {
	h := handleStatus(&mockCounter{err: errors.New("unavailable")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHandleChat_Success(t *testing.T) {
	score := 0.9123
	h := handleChat(&mockAsker{resp: &domain.ChatResponse{
		Status:          domain.StatusSuccess,
		UserQuery:       "what is a mutual fund",
		BotResponse:     "A pooled investment vehicle.",
		SimilarityScore: &score,
	}}, slog.Default(), metrics.New())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/chat", strings.NewReader(`{"question":"what is a mutual fund"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp domain.ChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != domain.StatusSuccess || resp.SimilarityScore == nil {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleChat_FilteredKeeps200(t *testing.T) {
	h := handleChat(&mockAsker{resp: &domain.ChatResponse{
		Status:      domain.StatusFiltered,
		BotResponse: "Sorry, I can't provide information about folio numbers.",
	}}, slog.Default(), metrics.New())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/chat", strings.NewReader(`{"question":"folio 12345678"}`)))
	if rec.Code != http.StatusOK {
		t.Errorf("filtered responses are 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"filtered"`) {
		t.Errorf("missing filtered status:\n%s", rec.Body.String())
	}
}

func TestHandleChat_InvalidBody(t *testing.T) {
	h := handleChat(&mockAsker{}, slog.Default(), metrics.New())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/chat", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleChat_ValidationError(t *testing.T) {
	h := handleChat(&mockAsker{
		err: domain.NewValidationError("question", "", domain.ErrEmptyQuestion),
	}, slog.Default(), metrics.New())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/chat", strings.NewReader(`{"question":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleChat_ProviderErrorHidesDetail(t *testing.T) {
	h := handleChat(&mockAsker{
		err: domain.NewProviderError("gemini", "embed", errors.New("rpc deadline exceeded")),
	}, slog.Default(), metrics.New())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/chat", strings.NewReader(`{"question":"what is nav"}`)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "what is nav") || strings.Contains(body, "deadline") {
		t.Errorf("error body must not leak query or provider detail:\n%s", body)
	}
	if !strings.Contains(body, `"error"`) {
		t.Errorf("missing error status:\n%s", body)
	}
}

func TestHandleChat_CountsOutcomes(t *testing.T) {
	reg := metrics.New()
	h := handleChat(&mockAsker{resp: &domain.ChatResponse{Status: domain.StatusSuccess}}, slog.Default(), reg)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/chat", strings.NewReader(`{"question":"x"}`)))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/chat", strings.NewReader(`{"question":"y"}`)))

	out := reg.Render()
	if !strings.Contains(out, `finbot_chat_total{outcome="success"} 2`) {
		t.Errorf("missing success counter:\n%s", out)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	// Pin the variables under test so ambient environment can't flip the
	// asserted defaults.
	for _, key := range []string{"PORT", "QDRANT_COLLECTION", "EMBED_DIMS", "CLASSIFIER_FAIL_OPEN"} {
		t.Setenv(key, "")
	}

	cfg := loadConfig()
	if cfg.Port != "8080" {
		t.Errorf("unexpected port: %s", cfg.Port)
	}
	if cfg.Collection != "finbot_qa" {
		t.Errorf("unexpected collection: %s", cfg.Collection)
	}
	if cfg.EmbedDims != 768 {
		t.Errorf("unexpected dims: %d", cfg.EmbedDims)
	}
	if cfg.ClassifierFailOpen {
		t.Error("fail-open must default to false")
	}
}

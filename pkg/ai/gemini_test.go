package ai

import (
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/cfirst/finbot/engine/domain"
)

func TestParseYesNo(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"YES", true},
		{"yes", true},
		{"Yes.", true},
		{" YES ", true},
		{"YES, it is finance-related", true},
		{"NO", false},
		{"no", false},
		{"Not sure", false},
		{"", false},
		{"maybe", false},
	}
	for _, c := range cases {
		if got := parseYesNo(c.in); got != c.want {
			t.Errorf("parseYesNo(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestClassifierPrompt(t *testing.T) {
	p := classifierPrompt("what is SIP?")
	if !strings.Contains(p, "what is SIP?") {
		t.Error("prompt should embed the query")
	}
	if !strings.Contains(p, `ONLY "YES"`) {
		t.Error("prompt should constrain the output format")
	}
}

func TestAnswerPrompt(t *testing.T) {
	pairs := []domain.QAPair{
		{Question: "What is a mutual fund?", Answer: "A pooled investment vehicle."},
	}
	p := answerPrompt("explain mutual funds", pairs, domain.LangEnglish)
	if !strings.Contains(p, "Q: What is a mutual fund?") {
		t.Error("prompt should include context questions")
	}
	if !strings.Contains(p, "A: A pooled investment vehicle.") {
		t.Error("prompt should include context answers")
	}
	if !strings.Contains(p, "User Query: explain mutual funds") {
		t.Error("prompt should include the user query")
	}
	if !strings.Contains(p, "English") {
		t.Error("prompt should carry the language instruction")
	}
}

func TestAnswerPrompt_NoContext(t *testing.T) {
	p := answerPrompt("query", nil, domain.LangHindi)
	if !strings.Contains(p, "(none)") {
		t.Error("empty context should be marked explicitly")
	}
	if !strings.Contains(p, "Devanagari") {
		t.Error("hindi instruction missing")
	}
}

func TestLanguageInstruction(t *testing.T) {
	if !strings.Contains(languageInstruction(domain.LangHinglish), "Latin script") {
		t.Error("hinglish instruction should mention Latin script")
	}
	if !strings.Contains(languageInstruction(domain.LangEnglish), "English") {
		t.Error("english instruction missing")
	}
}

func TestResponseText(t *testing.T) {
	if got := responseText(nil); got != "" {
		t.Errorf("nil response should yield empty, got %q", got)
	}
	if got := responseText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("empty response should yield empty, got %q", got)
	}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("  YES"), genai.Text("\n")}}},
		},
	}
	if got := responseText(resp); got != "YES" {
		t.Errorf("expected trimmed concatenation, got %q", got)
	}
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"snapfix/internal/domain"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

var testLabels = domain.Labels{"garbage", "graffiti", "water_logging"}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestParseProbabilityResponse(t *testing.T) {
	probs, err := parseProbabilityResponse("```json\n{\"probabilities\": {\"water_logging\": 0.7, \"garbage\": 0.3, \"volcano\": 0.5}}\n```", testLabels)
	if err != nil {
		t.Fatalf("parseProbabilityResponse failed: %v", err)
	}
	if !approx(probs[0], 0.3) || probs[1] != 0 || !approx(probs[2], 0.7) {
		t.Fatalf("unexpected vector: %v", probs)
	}
}

func TestParseProbabilityResponseRenormalizes(t *testing.T) {
	probs, err := parseProbabilityResponse(`{"probabilities": {"garbage": 2, "graffiti": 2}}`, testLabels)
	if err != nil {
		t.Fatalf("parseProbabilityResponse failed: %v", err)
	}
	if !approx(probs[0], 0.5) || !approx(probs[1], 0.5) {
		t.Fatalf("expected renormalized vector, got %v", probs)
	}
}

func TestParseProbabilityResponseRejectsUseless(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"probabilities": {}}`,
		`{"probabilities": {"volcano": 1}}`,
	} {
		if _, err := parseProbabilityResponse(raw, testLabels); err == nil {
			t.Fatalf("expected %q to fail", raw)
		}
	}
}

type stubCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (s *stubCompleter) complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.system, s.user = systemPrompt, userPrompt
	return s.reply, s.err
}

func TestTextClassifierPromptListsLabels(t *testing.T) {
	stub := &stubCompleter{reply: `{"probabilities": {"graffiti": 1}}`}
	c := &TextClassifier{provider: "stub", labels: testLabels, llm: stub}

	probs, err := c.ClassifyText(context.Background(), "  spray paint on the metro wall ")
	if err != nil {
		t.Fatalf("ClassifyText failed: %v", err)
	}
	if probs[1] != 1 {
		t.Fatalf("unexpected vector: %v", probs)
	}
	for _, label := range testLabels {
		if !strings.Contains(stub.system, "- "+label+"\n") {
			t.Fatalf("system prompt missing label %s", label)
		}
	}
	if !strings.HasSuffix(stub.user, "spray paint on the metro wall") {
		t.Fatalf("unexpected user prompt: %q", stub.user)
	}

	if _, err := c.ClassifyText(context.Background(), " "); err == nil {
		t.Fatal("expected empty text to fail")
	}
	stub.err = errors.New("rate limited")
	if _, err := c.ClassifyText(context.Background(), "x"); err == nil {
		t.Fatal("expected completer error to surface")
	}
}

func TestOpenAICompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad key"}})
			return
		}
		var req openAIRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"probabilities": {"garbage": 0.9, "graffiti": 0.1}}`}},
			},
			"usage": map[string]any{"prompt_tokens": 50, "completion_tokens": 12},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClassifier("sk-test", "", testLabels)
	c.llm.(*openAICompleter).url = srv.URL
	probs, err := c.ClassifyText(context.Background(), "garbage everywhere")
	if err != nil {
		t.Fatalf("ClassifyText failed: %v", err)
	}
	if !approx(probs[0], 0.9) {
		t.Fatalf("unexpected vector: %v", probs)
	}

	bad := NewOpenAIClassifier("sk-wrong", "gpt-test", testLabels)
	bad.llm.(*openAICompleter).url = srv.URL
	if _, err := bad.ClassifyText(context.Background(), "garbage"); err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestAnthropicCompleter(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_test",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-test",
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content": []map[string]any{
				{"type": "text", "text": `{"probabilities": {"water_logging": 1}}`},
			},
			"usage": map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer srv.Close()

	c := &TextClassifier{
		provider: "anthropic",
		labels:   testLabels,
		llm:      newAnthropicCompleter("sk-ant-test", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0)),
	}
	probs, err := c.ClassifyText(context.Background(), "knee-deep water after rain")
	if err != nil {
		t.Fatalf("ClassifyText failed: %v", err)
	}
	if probs[2] != 1 {
		t.Fatalf("unexpected vector: %v", probs)
	}
	if !strings.HasSuffix(gotPath, "/v1/messages") {
		t.Fatalf("unexpected path: %s", gotPath)
	}
}

func writeGlossary(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glossary.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write glossary: %v", err)
	}
	return path
}

func TestGlossaryClassifier(t *testing.T) {
	path := writeGlossary(t, `
terms:
  - label: garbage
    keywords: [trash, garbage, " Dump "]
  - label: water_logging
    keywords: [flood, waterlogged]
`)
	g, err := LoadGlossary(path)
	if err != nil {
		t.Fatalf("LoadGlossary failed: %v", err)
	}
	c, err := NewGlossaryClassifier(g, testLabels)
	if err != nil {
		t.Fatalf("NewGlossaryClassifier failed: %v", err)
	}

	probs, err := c.ClassifyText(context.Background(), "Trash dump next to a flooded lane")
	if err != nil {
		t.Fatalf("ClassifyText failed: %v", err)
	}
	if !approx(probs[0], 2.0/3.0) || !approx(probs[2], 1.0/3.0) || probs[1] != 0 {
		t.Fatalf("unexpected vector: %v", probs)
	}

	if _, err := c.ClassifyText(context.Background(), "streetlight flickering"); err == nil {
		t.Fatal("expected no-match to fail")
	}
}

func TestGlossaryClassifierRejectsUnknownLabel(t *testing.T) {
	g := &Glossary{Terms: []GlossaryTerm{{Label: "volcano", Keywords: []string{"lava"}}}}
	if _, err := NewGlossaryClassifier(g, testLabels); err == nil {
		t.Fatal("expected unknown glossary label to fail")
	}
	if _, err := NewGlossaryClassifier(&Glossary{}, testLabels); err == nil {
		t.Fatal("expected empty glossary to fail")
	}
}

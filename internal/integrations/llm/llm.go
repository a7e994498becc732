package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"snapfix/internal/domain"
	"strings"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"

// completer sends one system+user prompt pair and returns the model's text.
type completer interface {
	complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// TextClassifier asks an LLM for a probability per label, which lets it stand
// in for the trained text model when only a description is available.
type TextClassifier struct {
	provider string
	labels   domain.Labels
	llm      completer
}

func NewAnthropicClassifier(apiKey, model string, labels domain.Labels) *TextClassifier {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &TextClassifier{provider: "anthropic", labels: labels, llm: newAnthropicCompleter(apiKey, model)}
}

func NewOpenAIClassifier(apiKey, model string, labels domain.Labels) *TextClassifier {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &TextClassifier{provider: "openai", labels: labels, llm: newOpenAICompleter(apiKey, model)}
}

func (c *TextClassifier) ClassifyText(ctx context.Context, text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("llm: empty text")
	}
	systemPrompt, userPrompt := buildPrompts(c.labels, text)
	responseText, err := c.llm.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	probs, err := parseProbabilityResponse(responseText, c.labels)
	if err != nil {
		return nil, err
	}
	log.Printf("llm %s classified chars=%d", c.provider, len(text))
	return probs, nil
}

func buildPrompts(labels domain.Labels, text string) (string, string) {
	var labelLines strings.Builder
	for _, label := range labels {
		labelLines.WriteString("- " + label + "\n")
	}
	systemPrompt := fmt.Sprintf(`You classify citizen complaints about civic infrastructure.
Labels:
%s
Give a probability between 0 and 1 for every label above. Probabilities should sum to 1.
Use only the labels listed; do not invent new ones.

Respond with JSON only (no markdown):
{"probabilities": {"garbage": 0.82, "water_logging": 0.1, ...}}`, labelLines.String())

	return systemPrompt, "Complaint:\n" + text
}

// parseProbabilityResponse maps the model's label->probability object onto the
// registry order. Missing labels get 0; unknown labels are ignored. The vector
// is renormalized when the model's numbers do not sum to 1.
func parseProbabilityResponse(responseText string, labels domain.Labels) ([]float64, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var parsed struct {
		Probabilities map[string]float64 `json:"probabilities"`
	}
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		return nil, fmt.Errorf("parsing LLM probability response: %w (response: %s)", err, responseText)
	}

	probs := make([]float64, labels.Len())
	var sum float64
	for name, p := range parsed.Probabilities {
		idx := labels.Index(strings.TrimSpace(name))
		if idx < 0 {
			continue
		}
		if p < 0 {
			p = 0
		}
		probs[idx] = p
		sum += p
	}
	if sum == 0 {
		return nil, fmt.Errorf("LLM response has no probability for any known label")
	}
	if sum > 1.0001 || sum < 0.9999 {
		for i := range probs {
			probs[i] /= sum
		}
	}
	return probs, nil
}

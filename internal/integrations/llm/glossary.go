package llm

import (
	"context"
	"fmt"
	"os"
	"snapfix/internal/domain"
	"strings"

	"gopkg.in/yaml.v3"
)

// Glossary is a keyword table for offline text classification.
//
//	terms:
//	  - label: garbage
//	    keywords: [trash, garbage, dump]
type Glossary struct {
	Terms []GlossaryTerm `yaml:"terms"`
}

type GlossaryTerm struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

func LoadGlossary(path string) (*Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	var g Glossary
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse glossary yaml: %w", err)
	}
	return &g, nil
}

func normalizeTextToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// GlossaryClassifier turns keyword hits into a probability vector: each
// label's share of the total hits. No hit is an error, so fusion treats the
// text signal as absent rather than as a uniform guess.
type GlossaryClassifier struct {
	labels   domain.Labels
	keywords map[int][]string
}

func NewGlossaryClassifier(g *Glossary, labels domain.Labels) (*GlossaryClassifier, error) {
	keywords := make(map[int][]string)
	for _, term := range g.Terms {
		idx := labels.Index(strings.TrimSpace(term.Label))
		if idx < 0 {
			return nil, fmt.Errorf("glossary label %q is not in the label registry", term.Label)
		}
		for _, kw := range term.Keywords {
			if kw = normalizeTextToken(kw); kw != "" {
				keywords[idx] = append(keywords[idx], kw)
			}
		}
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("glossary has no keywords")
	}
	return &GlossaryClassifier{labels: labels, keywords: keywords}, nil
}

func (g *GlossaryClassifier) ClassifyText(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	desc := normalizeTextToken(text)
	if desc == "" {
		return nil, fmt.Errorf("glossary: empty text")
	}

	probs := make([]float64, g.labels.Len())
	var hits float64
	for idx, kws := range g.keywords {
		for _, kw := range kws {
			if strings.Contains(desc, kw) {
				probs[idx]++
				hits++
			}
		}
	}
	if hits == 0 {
		return nil, fmt.Errorf("glossary: no keyword matched")
	}
	for i := range probs {
		probs[i] /= hits
	}
	return probs, nil
}

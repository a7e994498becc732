// Package classify runs the configured classifiers on an intake and fuses
// their output. A failing classifier counts as an absent signal.
package classify

import (
	"context"
	"errors"
	"log"
	"snapfix/internal/domain"
	"snapfix/internal/fusion"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ErrNoValidInput means neither a usable image nor usable text reached fusion.
var ErrNoValidInput = errors.New("no valid input")

type ImageClassifier interface {
	ClassifyImage(ctx context.Context, image []byte) ([]float64, error)
}

type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) ([]float64, error)
}

type Outcome struct {
	domain.ClassificationResult
	Priority domain.Priority
}

type Service struct {
	image  ImageClassifier // nil when no image model is deployed
	text   TextClassifier
	labels domain.Labels
}

func NewService(image ImageClassifier, text TextClassifier, labels domain.Labels) *Service {
	return &Service{image: image, text: text, labels: labels}
}

// Classify runs both classifiers concurrently. It returns ErrNoValidInput when
// both raw inputs are missing or neither classifier produced a usable vector.
func (s *Service) Classify(ctx context.Context, image []byte, text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if len(image) == 0 && text == "" {
		return Outcome{}, ErrNoValidInput
	}

	var imageProbs, textProbs []float64
	g, gctx := errgroup.WithContext(ctx)
	if len(image) > 0 && s.image != nil {
		g.Go(func() error {
			imageProbs = s.vector(gctx, "image", func(ctx context.Context) ([]float64, error) {
				return s.image.ClassifyImage(ctx, image)
			})
			return nil
		})
	}
	if text != "" && s.text != nil {
		g.Go(func() error {
			textProbs = s.vector(gctx, "text", func(ctx context.Context) ([]float64, error) {
				return s.text.ClassifyText(ctx, text)
			})
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if imageProbs == nil && textProbs == nil {
		return Outcome{}, ErrNoValidInput
	}

	result := fusion.Fuse(imageProbs, textProbs, s.labels)
	priority := fusion.PriorityFor(result.Confidence)
	log.Printf("classify final label=%s raw=%s conf=%.4f source=%s priority=%s",
		result.Label, result.RawLabel, result.Confidence, result.Provenance, priority)
	return Outcome{ClassificationResult: result, Priority: priority}, nil
}

// vector calls one classifier and drops its output when it fails or does not
// line up with the label registry.
func (s *Service) vector(ctx context.Context, kind string, call func(context.Context) ([]float64, error)) []float64 {
	probs, err := call(ctx)
	if err != nil {
		log.Printf("classify %s inference failed: %v", kind, err)
		return nil
	}
	if !s.labels.Aligned(probs) {
		log.Printf("classify %s vector ignored: len=%d labels=%d", kind, len(probs), s.labels.Len())
		return nil
	}
	return probs
}

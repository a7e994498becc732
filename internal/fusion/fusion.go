// Package fusion combines the image and text classifiers' probability vectors
// into a single issue label. Text is the primary signal; the image either
// boosts agreement or damps trust when it disagrees.
package fusion

import (
	"math"
	"snapfix/internal/domain"
)

const (
	AgreementBoost    = 0.15
	DisagreePenalty   = 0.20
	ReviewThreshold   = 0.50
	HighPriorityMin   = 0.85
	MediumPriorityMin = 0.65
)

// adjusted values are snapped to this many decimal places so that e.g.
// 0.70-0.20 compares equal to the 0.50 review threshold.
const adjustPrecision = 1e12

type signal struct {
	label      domain.Label
	confidence float64
}

// topSignal returns the arg-max of probs. Ties go to the lowest index.
func topSignal(probs []float64, labels domain.Labels) (signal, bool) {
	if !labels.Aligned(probs) {
		return signal{}, false
	}
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return signal{label: labels[best], confidence: probs[best]}, true
}

func snap(v float64) float64 {
	return math.Round(v*adjustPrecision) / adjustPrecision
}

// Fuse is a pure function of its inputs. A nil, empty or misaligned vector is
// treated as an absent signal.
func Fuse(imageProbs, textProbs []float64, labels domain.Labels) domain.ClassificationResult {
	img, hasImage := topSignal(imageProbs, labels)
	txt, hasText := topSignal(textProbs, labels)

	var res domain.ClassificationResult
	switch {
	case hasImage && hasText:
		res.RawLabel = txt.label
		if txt.label == img.label {
			res.Confidence = snap(math.Min(1.0, math.Max(txt.confidence, img.confidence)+AgreementBoost))
			res.Provenance = domain.ProvenanceAgree
		} else {
			res.Confidence = snap(math.Max(0.0, txt.confidence-DisagreePenalty))
			res.Provenance = domain.ProvenanceTextOverImage
		}
	case hasText:
		res = domain.ClassificationResult{RawLabel: txt.label, Confidence: txt.confidence, Provenance: domain.ProvenanceTextOnly}
	case hasImage:
		res = domain.ClassificationResult{RawLabel: img.label, Confidence: img.confidence, Provenance: domain.ProvenanceImageOnly}
	default:
		return domain.ClassificationResult{
			Label:      domain.LabelUnknown,
			RawLabel:   domain.LabelUnknown,
			Confidence: 0,
			Provenance: domain.ProvenanceNoInput,
		}
	}

	res.Label = res.RawLabel
	if res.Confidence < ReviewThreshold {
		res.Label = domain.LabelNeedsManualReview
	}
	return res
}

// PriorityFor maps a fused confidence to a tier. Lower bounds are inclusive.
func PriorityFor(confidence float64) domain.Priority {
	switch {
	case confidence >= HighPriorityMin:
		return domain.PriorityHigh
	case confidence >= MediumPriorityMin:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

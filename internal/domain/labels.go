package domain

import (
	"fmt"
	"strings"
)

// Label is an issue type shared by both classifiers and by department routing.
type Label = string

const (
	// LabelUnknown is returned by fusion when neither classifier produced a signal.
	LabelUnknown Label = "unknown"
	// LabelNeedsManualReview replaces any fused label whose confidence is below the review threshold.
	LabelNeedsManualReview Label = "needs_manual_review"
)

// DefaultLabels is the class order the deployed image and text models were trained with.
var DefaultLabels = []Label{
	"damaged_concrete_structures",
	"damaged_electric_poles",
	"damaged_road_sign",
	"fallen_trees",
	"garbage",
	"graffiti",
	"illegal_parking",
	"no_electricity",
	"pothole_road_crack",
	"water_logging",
}

// Labels is the ordered label registry. Position i of a classifier's
// probability vector is the probability of Labels[i].
type Labels []Label

func NewLabels(names []string) (Labels, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("label registry is empty")
	}
	seen := make(map[string]bool, len(names))
	out := make(Labels, 0, len(names))
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("label %d is empty", i)
		}
		if name == LabelUnknown || name == LabelNeedsManualReview {
			return nil, fmt.Errorf("label %q is reserved", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate label %q", name)
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

func (l Labels) Len() int { return len(l) }

// Index returns the vector position of name, or -1.
func (l Labels) Index(name string) int {
	for i, label := range l {
		if label == name {
			return i
		}
	}
	return -1
}

// Aligned reports whether probs is a usable vector for this registry.
func (l Labels) Aligned(probs []float64) bool {
	return len(probs) > 0 && len(probs) == len(l)
}

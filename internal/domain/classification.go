package domain

// Provenance records which signal(s) determined a fused label and how they were combined.
type Provenance string

const (
	ProvenanceAgree         Provenance = "image_text_agree"
	ProvenanceTextOverImage Provenance = "text_primary_image_disagree"
	ProvenanceTextOnly      Provenance = "text_only"
	ProvenanceImageOnly     Provenance = "image_only"
	ProvenanceNoInput       Provenance = "no_input"
)

// ClassificationResult is the fusion engine's output. It is never persisted as such;
// its fields are copied onto a ReportDraft.
type ClassificationResult struct {
	Label      Label
	RawLabel   Label // label before any manual-review override
	Confidence float64
	Provenance Provenance
}

// Priority is the discrete urgency tier derived from fused confidence.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s), true
	}
	return "", false
}

package tracking

import (
	"fmt"
	"strconv"
	"strings"
)

const Prefix = "SNFX-"

// FromID derives the public tracking id from the store-assigned row id.
func FromID(id int64) string {
	return fmt.Sprintf("%s%06d", Prefix, id)
}

// ParseTrackingID validates the shape of a tracking id and returns the row id it encodes.
func ParseTrackingID(trackingID string) (int64, error) {
	trackingID = strings.TrimSpace(trackingID)
	digits, ok := strings.CutPrefix(trackingID, Prefix)
	if !ok {
		return 0, fmt.Errorf("tracking id %q: missing %s prefix", trackingID, Prefix)
	}
	if len(digits) < 6 {
		return 0, fmt.Errorf("tracking id %q: expected at least 6 digits", trackingID)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("tracking id %q: non-digit suffix", trackingID)
		}
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("tracking id %q: %w", trackingID, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("tracking id %q: id must be positive", trackingID)
	}
	return id, nil
}

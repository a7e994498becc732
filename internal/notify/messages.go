package notify

import (
	"fmt"
	"snapfix/internal/domain"
	"snapfix/internal/routing"
	"strings"
)

// MessageFor renders the citizen-facing text for a department status change.
// department is the updating admin's department.
func MessageFor(status, trackingID, department string) string {
	department = strings.TrimSpace(department)
	if department == "" {
		department = routing.UnknownDepartment
	}
	switch status {
	case domain.DeptStatusAssigned:
		return fmt.Sprintf("🔔 Your complaint %s has been assigned to %s.", trackingID, department)
	case domain.DeptStatusInProgress:
		return fmt.Sprintf("⏳ Work is in progress on your complaint %s.", trackingID)
	case domain.DeptStatusResolved:
		return fmt.Sprintf("✅ Your complaint %s has been resolved by %s. Thank you!", trackingID, department)
	default:
		return fmt.Sprintf("📋 Status updated: %s", status)
	}
}

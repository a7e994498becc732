package domain

import "time"

// Admin-facing status axis. Only the initial value is defined today.
const StatusPending = "Pending"

// Department-facing status axis.
const (
	DeptStatusAssigned   = "Assigned"
	DeptStatusInProgress = "In Progress"
	DeptStatusResolved   = "Resolved"
)

// Report is the persisted civic issue record.
type Report struct {
	ID                  int64
	TrackingID          string
	IssueType           Label
	RawLabel            Label
	RawLocation         string
	Latitude            *float64
	Longitude           *float64
	Description         string
	Probability         float64
	DecisionSource      Provenance
	Priority            Priority
	PrimaryDepartment   string
	Status              string
	DeptStatus          string // empty while unassigned
	DeptRemarks         string
	Remarks             string
	AssignedDeptAdminID *int64
	TelegramID          string
	Timestamp           time.Time
}

// HasLocation reports whether both coordinates are set. They are always set together.
func (r Report) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// ReportDraft carries everything createReport receives; the store fills in the rest.
type ReportDraft struct {
	IssueType         Label
	RawLabel          Label
	RawLocation       string
	Latitude          *float64
	Longitude         *float64
	Description       string
	Probability       float64
	DecisionSource    Provenance
	Priority          Priority
	PrimaryDepartment string
	TelegramID        string
	Timestamp         time.Time
}

// TrackView is what a citizen sees when looking a report up by tracking id.
type TrackView struct {
	TrackingID  string
	IssueType   Label
	Status      string
	Department  string
	Priority    Priority
	Remarks     string
	Timestamp   time.Time
	DeptStatus  string
	DeptRemarks string
}

func (r Report) TrackView() TrackView {
	return TrackView{
		TrackingID:  r.TrackingID,
		IssueType:   r.IssueType,
		Status:      r.Status,
		Department:  r.PrimaryDepartment,
		Priority:    r.Priority,
		Remarks:     r.Remarks,
		Timestamp:   r.Timestamp,
		DeptStatus:  r.DeptStatus,
		DeptRemarks: r.DeptRemarks,
	}
}

// DeptAdmin is a department operator. Credentials live with the external auth provider.
type DeptAdmin struct {
	ID         int64
	Username   string
	Department string
	CreatedAt  time.Time
}

// ReportFilter narrows the admin report list. Empty fields match everything.
type ReportFilter struct {
	Status     string
	Department string
}

// DeptStatusChange is one department-side status write. Message is enqueued
// for the report's recipient only when the report has one.
type DeptStatusChange struct {
	TrackingID string
	AdminID    int64
	Status     string
	Remarks    string
	Message    string
}

package api

import (
	"snapfix/internal/domain"
	"time"

	"github.com/shopspring/decimal"
)

type ClassifyResponse struct {
	IssueType      string  `json:"issueType"`
	RawLabel       string  `json:"rawLabel"`
	Probability    float64 `json:"probability"`
	Priority       string  `json:"priority"`
	DecisionSource string  `json:"decisionSource"`
}

type CreateReportRequest struct {
	IssueType      string   `json:"issueType"`
	RawLabel       string   `json:"rawLabel"`
	Location       string   `json:"location"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority"`
	Probability    *float64 `json:"probability"`
	DecisionSource string   `json:"decisionSource"`
	TelegramID     string   `json:"telegram_id"`
}

type TrackResponse struct {
	TrackingID        string    `json:"tracking_id"`
	IssueType         string    `json:"issueType"`
	Status            string    `json:"status"`
	PrimaryDepartment string    `json:"primary_department"`
	Priority          string    `json:"priority"`
	Remarks           string    `json:"remarks"`
	Timestamp         time.Time `json:"timestamp"`
	DeptStatus        *string   `json:"dept_status"`
	DeptRemarks       string    `json:"dept_remarks"`
}

type ReportResponse struct {
	TrackingID          string    `json:"tracking_id"`
	IssueType           string    `json:"issueType"`
	RawLabel            string    `json:"rawLabel"`
	Location            string    `json:"location"`
	Latitude            *float64  `json:"latitude"`
	Longitude           *float64  `json:"longitude"`
	Description         string    `json:"description"`
	Probability         float64   `json:"probability"`
	DecisionSource      string    `json:"decisionSource"`
	Priority            string    `json:"priority"`
	PrimaryDepartment   string    `json:"primary_department"`
	Status              string    `json:"status"`
	DeptStatus          *string   `json:"dept_status"`
	DeptRemarks         string    `json:"dept_remarks"`
	Remarks             string    `json:"remarks"`
	AssignedDeptAdminID *int64    `json:"assigned_dept_admin_id"`
	Timestamp           time.Time `json:"timestamp"`
}

type AssignRequest struct {
	DeptAdminID int64 `json:"dept_admin_id" form:"dept_admin_id"`
}

type RemarksRequest struct {
	Remarks string `json:"remarks" form:"remarks"`
}

type DeptStatusRequest struct {
	DeptStatus  string `json:"dept_status" form:"dept_status"`
	DeptRemarks string `json:"dept_remarks" form:"dept_remarks"`
}

type CreateDeptAdminRequest struct {
	Username   string `json:"username" form:"username"`
	Department string `json:"department" form:"department"`
}

type DeptAdminResponse struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
}

// displayProbability rounds to two decimals for clients. Storage keeps full
// precision.
func displayProbability(p float64) float64 {
	return decimal.NewFromFloat(p).Round(2).InexactFloat64()
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toTrackResponse(v domain.TrackView) TrackResponse {
	return TrackResponse{
		TrackingID:        v.TrackingID,
		IssueType:         v.IssueType,
		Status:            v.Status,
		PrimaryDepartment: v.Department,
		Priority:          string(v.Priority),
		Remarks:           v.Remarks,
		Timestamp:         v.Timestamp,
		DeptStatus:        optionalString(v.DeptStatus),
		DeptRemarks:       v.DeptRemarks,
	}
}

func toReportResponse(r domain.Report) ReportResponse {
	return ReportResponse{
		TrackingID:          r.TrackingID,
		IssueType:           r.IssueType,
		RawLabel:            r.RawLabel,
		Location:            r.RawLocation,
		Latitude:            r.Latitude,
		Longitude:           r.Longitude,
		Description:         r.Description,
		Probability:         displayProbability(r.Probability),
		DecisionSource:      string(r.DecisionSource),
		Priority:            string(r.Priority),
		PrimaryDepartment:   r.PrimaryDepartment,
		Status:              r.Status,
		DeptStatus:          optionalString(r.DeptStatus),
		DeptRemarks:         r.DeptRemarks,
		Remarks:             r.Remarks,
		AssignedDeptAdminID: r.AssignedDeptAdminID,
		Timestamp:           r.Timestamp,
	}
}

func toReportResponses(reports []domain.Report) []ReportResponse {
	out := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, toReportResponse(r))
	}
	return out
}

func toDeptAdminResponse(a domain.DeptAdmin) DeptAdminResponse {
	return DeptAdminResponse{ID: a.ID, Username: a.Username, Department: a.Department, CreatedAt: a.CreatedAt}
}

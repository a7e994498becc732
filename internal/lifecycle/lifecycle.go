// Package lifecycle owns the report state machine: creation, citizen lookup,
// admin assignment and department status updates with their notifications.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"snapfix/internal/domain"
	"snapfix/internal/fusion"
	"snapfix/internal/location"
	"snapfix/internal/notify"
	"snapfix/internal/routing"
	"snapfix/internal/tracking"
	"strings"
	"time"
)

var (
	ErrNotFound     = domain.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)

// Store is the persistence the manager needs.
type Store interface {
	CreateReport(ctx context.Context, d domain.ReportDraft) (domain.Report, error)
	GetReportByTrackingID(ctx context.Context, trackingID string) (domain.Report, error)
	GetAssignedReport(ctx context.Context, trackingID string, adminID int64) (domain.Report, error)
	ListReports(ctx context.Context, f domain.ReportFilter) ([]domain.Report, error)
	ListOpenAssigned(ctx context.Context, adminID int64) ([]domain.Report, error)
	AssignReport(ctx context.Context, trackingID string, adminID int64) error
	UpdateRemarks(ctx context.Context, trackingID, remarks string) error
	ApplyDeptStatus(ctx context.Context, w domain.DeptStatusChange) (*domain.Notification, error)
	CreateDeptAdmin(ctx context.Context, username, department string) (domain.DeptAdmin, error)
	GetDeptAdmin(ctx context.Context, id int64) (domain.DeptAdmin, error)
	ListDeptAdmins(ctx context.Context) ([]domain.DeptAdmin, error)
}

// Notifier receives outbox entries after their transaction committed.
type Notifier interface {
	DeliverAsync(n domain.Notification)
}

type Manager struct {
	store    Store
	router   *routing.Router
	notifier Notifier
	locks    *keyLock
	now      func() time.Time
}

func NewManager(store Store, router *routing.Router, notifier Notifier) *Manager {
	return &Manager{
		store:    store,
		router:   router,
		notifier: notifier,
		locks:    newKeyLock(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewReport is what the intake front-end submits after classification.
type NewReport struct {
	IssueType      string
	RawLabel       string
	Location       string
	Description    string
	Probability    float64
	DecisionSource domain.Provenance
	Priority       string // empty derives it from Probability
	TelegramID     string
}

func (m *Manager) CreateReport(ctx context.Context, in NewReport) (domain.Report, error) {
	issueType := strings.TrimSpace(in.IssueType)
	if issueType == "" {
		return domain.Report{}, fmt.Errorf("issue type is required: %w", ErrInvalidInput)
	}
	if math.IsNaN(in.Probability) || in.Probability < 0 || in.Probability > 1 {
		return domain.Report{}, fmt.Errorf("probability %v outside [0,1]: %w", in.Probability, ErrInvalidInput)
	}
	priority := fusion.PriorityFor(in.Probability)
	if p := strings.TrimSpace(in.Priority); p != "" {
		parsed, ok := domain.ParsePriority(p)
		if !ok {
			return domain.Report{}, fmt.Errorf("priority %q: %w", p, ErrInvalidInput)
		}
		priority = parsed
	}
	rawLabel := strings.TrimSpace(in.RawLabel)
	if rawLabel == "" {
		rawLabel = issueType
	}

	lat, lon := location.Coordinates(in.Location)
	if lat == nil && strings.TrimSpace(in.Location) != "" {
		log.Printf("lifecycle create: dropping malformed location %q", in.Location)
	}

	r, err := m.store.CreateReport(ctx, domain.ReportDraft{
		IssueType:         issueType,
		RawLabel:          rawLabel,
		RawLocation:       in.Location,
		Latitude:          lat,
		Longitude:         lon,
		Description:       strings.TrimSpace(in.Description),
		Probability:       in.Probability,
		DecisionSource:    in.DecisionSource,
		Priority:          priority,
		PrimaryDepartment: m.router.Route(issueType),
		TelegramID:        strings.TrimSpace(in.TelegramID),
		Timestamp:         m.now(),
	})
	if err != nil {
		return domain.Report{}, err
	}
	log.Printf("lifecycle created tracking=%s issue=%s priority=%s dept=%q", r.TrackingID, r.IssueType, r.Priority, r.PrimaryDepartment)
	return r, nil
}

// TrackReport is the citizen lookup. It is read-only and works for resolved
// reports too.
func (m *Manager) TrackReport(ctx context.Context, trackingID string) (domain.TrackView, error) {
	trackingID = strings.TrimSpace(trackingID)
	if _, err := tracking.ParseTrackingID(trackingID); err != nil {
		return domain.TrackView{}, ErrNotFound
	}
	r, err := m.store.GetReportByTrackingID(ctx, trackingID)
	if err != nil {
		return domain.TrackView{}, err
	}
	return r.TrackView(), nil
}

// AssignReport hands a report to a department admin. Reassignment replaces the
// previous assignee and puts the department status back to Assigned. No
// notification is sent.
func (m *Manager) AssignReport(ctx context.Context, trackingID string, adminID int64) error {
	trackingID = strings.TrimSpace(trackingID)
	unlock := m.locks.Lock(trackingID)
	defer unlock()

	if err := m.store.AssignReport(ctx, trackingID, adminID); err != nil {
		return err
	}
	log.Printf("lifecycle assigned tracking=%s admin=%d", trackingID, adminID)
	return nil
}

// UpdateDeptStatus lets the assigned admin move the department status. Anyone
// else gets ErrNotFound, exactly as if the report did not exist.
func (m *Manager) UpdateDeptStatus(ctx context.Context, trackingID string, adminID int64, status, remarks string) error {
	trackingID = strings.TrimSpace(trackingID)
	status = strings.TrimSpace(status)
	remarks = strings.TrimSpace(remarks)
	if status == "" {
		return fmt.Errorf("dept status is required: %w", ErrInvalidInput)
	}

	unlock := m.locks.Lock(trackingID)
	defer unlock()

	department := routing.UnknownDepartment
	admin, err := m.store.GetDeptAdmin(ctx, adminID)
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case err != nil:
		return err
	case strings.TrimSpace(admin.Department) != "":
		department = admin.Department
	}

	if !isKnownDeptStatus(status) {
		log.Printf("lifecycle dept status tracking=%s: accepting unrecognized status %q", trackingID, status)
	}

	n, err := m.store.ApplyDeptStatus(ctx, domain.DeptStatusChange{
		TrackingID: trackingID,
		AdminID:    adminID,
		Status:     status,
		Remarks:    remarks,
		Message:    notify.MessageFor(status, trackingID, department),
	})
	if err != nil {
		return err
	}
	log.Printf("lifecycle dept status tracking=%s admin=%d status=%q", trackingID, adminID, status)

	if n != nil && m.notifier != nil {
		m.notifier.DeliverAsync(*n)
	}
	return nil
}

func isKnownDeptStatus(status string) bool {
	switch status {
	case domain.DeptStatusAssigned, domain.DeptStatusInProgress, domain.DeptStatusResolved:
		return true
	}
	return false
}

// UpdateRemarks sets the admin-side remarks. It never notifies.
func (m *Manager) UpdateRemarks(ctx context.Context, trackingID, remarks string) error {
	trackingID = strings.TrimSpace(trackingID)
	unlock := m.locks.Lock(trackingID)
	defer unlock()
	return m.store.UpdateRemarks(ctx, trackingID, strings.TrimSpace(remarks))
}

func (m *Manager) ListReports(ctx context.Context, f domain.ReportFilter) ([]domain.Report, error) {
	return m.store.ListReports(ctx, f)
}

func (m *Manager) ListOpenAssigned(ctx context.Context, adminID int64) ([]domain.Report, error) {
	if _, err := m.store.GetDeptAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return m.store.ListOpenAssigned(ctx, adminID)
}

func (m *Manager) GetAssignedReport(ctx context.Context, trackingID string, adminID int64) (domain.Report, error) {
	return m.store.GetAssignedReport(ctx, strings.TrimSpace(trackingID), adminID)
}

func (m *Manager) CreateDeptAdmin(ctx context.Context, username, department string) (domain.DeptAdmin, error) {
	username = strings.TrimSpace(username)
	department = strings.TrimSpace(department)
	if username == "" || department == "" {
		return domain.DeptAdmin{}, fmt.Errorf("username and department are required: %w", ErrInvalidInput)
	}
	return m.store.CreateDeptAdmin(ctx, username, department)
}

func (m *Manager) ListDeptAdmins(ctx context.Context) ([]domain.DeptAdmin, error) {
	return m.store.ListDeptAdmins(ctx)
}

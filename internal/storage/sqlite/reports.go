package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"snapfix/internal/domain"
	"snapfix/internal/tracking"
	"strings"
	"time"
)

const reportColumns = `id, tracking_id, issue_type, raw_label, location, latitude, longitude,
	description, probability, decision_source, priority, primary_department, status,
	dept_status, dept_remarks, remarks, assigned_dept_admin_id, telegram_id, timestamp`

// CreateReport inserts the draft and stamps its tracking id in one transaction,
// so no committed row is ever visible without a tracking id.
func (s *Store) CreateReport(ctx context.Context, d domain.ReportDraft) (domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return domain.Report{}, err
	}
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Report{}, fmt.Errorf("begin create report: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO reports (
			issue_type, raw_label, location, latitude, longitude, description,
			probability, decision_source, priority, primary_department, status,
			telegram_id, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.IssueType, d.RawLabel, d.RawLocation, nullFloat(d.Latitude), nullFloat(d.Longitude), d.Description,
		d.Probability, string(d.DecisionSource), string(d.Priority), d.PrimaryDepartment, domain.StatusPending,
		d.TelegramID, ts,
	)
	if err != nil {
		return domain.Report{}, fmt.Errorf("insert report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Report{}, fmt.Errorf("report id: %w", err)
	}

	trackingID := tracking.FromID(id)
	if _, err := tx.ExecContext(ctx, `UPDATE reports SET tracking_id = ? WHERE id = ?`, trackingID, id); err != nil {
		return domain.Report{}, fmt.Errorf("set tracking id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Report{}, fmt.Errorf("commit create report: %w", err)
	}

	return domain.Report{
		ID:                id,
		TrackingID:        trackingID,
		IssueType:         d.IssueType,
		RawLabel:          d.RawLabel,
		RawLocation:       d.RawLocation,
		Latitude:          d.Latitude,
		Longitude:         d.Longitude,
		Description:       d.Description,
		Probability:       d.Probability,
		DecisionSource:    d.DecisionSource,
		Priority:          d.Priority,
		PrimaryDepartment: d.PrimaryDepartment,
		Status:            domain.StatusPending,
		TelegramID:        d.TelegramID,
		Timestamp:         ts,
	}, nil
}

func (s *Store) GetReportByTrackingID(ctx context.Context, trackingID string) (domain.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE tracking_id = ?`,
		trackingID,
	)
	r, err := scanReport(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, ErrNotFound
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("get report %s: %w", trackingID, err)
	}
	return r, nil
}

// GetAssignedReport returns the report only if adminID holds the assignment.
// A report assigned to someone else is indistinguishable from a missing one.
func (s *Store) GetAssignedReport(ctx context.Context, trackingID string, adminID int64) (domain.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE tracking_id = ? AND assigned_dept_admin_id = ?`,
		trackingID, adminID,
	)
	r, err := scanReport(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, ErrNotFound
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("get assigned report %s: %w", trackingID, err)
	}
	return r, nil
}

func (s *Store) ListReports(ctx context.Context, f domain.ReportFilter) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE tracking_id IS NOT NULL`
	var args []any
	if status := strings.TrimSpace(f.Status); status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if dept := strings.TrimSpace(f.Department); dept != "" {
		query += ` AND primary_department = ?`
		args = append(args, dept)
	}
	query += ` ORDER BY timestamp DESC, id DESC`
	return s.queryReports(ctx, query, args...)
}

// ListOpenAssigned is the department dashboard: everything assigned to adminID
// that has not been resolved yet.
func (s *Store) ListOpenAssigned(ctx context.Context, adminID int64) ([]domain.Report, error) {
	return s.queryReports(ctx,
		`SELECT `+reportColumns+` FROM reports
		 WHERE assigned_dept_admin_id = ? AND (dept_status IS NULL OR dept_status != ?)
		 ORDER BY timestamp DESC, id DESC`,
		adminID, domain.DeptStatusResolved,
	)
}

// AssignReport hands the report to a department admin and resets the
// department axis to Assigned.
func (s *Store) AssignReport(ctx context.Context, trackingID string, adminID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM dept_admins WHERE id = ?`, adminID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check dept admin %d: %w", adminID, err)
	}
	if exists == 0 {
		return fmt.Errorf("dept admin %d: %w", adminID, ErrNotFound)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE reports SET assigned_dept_admin_id = ?, dept_status = ? WHERE tracking_id = ?`,
		adminID, domain.DeptStatusAssigned, trackingID,
	)
	if err != nil {
		return fmt.Errorf("assign report %s: %w", trackingID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("assign rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("report %s: %w", trackingID, ErrNotFound)
	}
	return tx.Commit()
}

func (s *Store) UpdateRemarks(ctx context.Context, trackingID, remarks string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reports SET remarks = ? WHERE tracking_id = ?`, remarks, trackingID)
	if err != nil {
		return fmt.Errorf("update remarks %s: %w", trackingID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remarks rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyDeptStatus authorizes, writes status and remarks together, and enqueues
// the notification in the same transaction. The returned notification is nil
// when the report has no recipient.
func (s *Store) ApplyDeptStatus(ctx context.Context, w domain.DeptStatusChange) (*domain.Notification, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin dept status: %w", err)
	}
	defer tx.Rollback()

	var reportID int64
	var recipient string
	err = tx.QueryRowContext(ctx,
		`SELECT id, telegram_id FROM reports WHERE tracking_id = ? AND assigned_dept_admin_id = ?`,
		w.TrackingID, w.AdminID,
	).Scan(&reportID, &recipient)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load assigned report %s: %w", w.TrackingID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE reports SET dept_status = ?, dept_remarks = ? WHERE id = ?`,
		w.Status, w.Remarks, reportID,
	); err != nil {
		return nil, fmt.Errorf("update dept status %s: %w", w.TrackingID, err)
	}

	var n *domain.Notification
	recipient = strings.TrimSpace(recipient)
	if recipient != "" {
		n = &domain.Notification{
			ReportID:   reportID,
			TrackingID: w.TrackingID,
			Recipient:  recipient,
			Message:    w.Message,
			Status:     domain.NotificationPending,
			CreatedAt:  time.Now().UTC(),
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO notification_outbox (report_id, tracking_id, recipient, message, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			n.ReportID, n.TrackingID, n.Recipient, n.Message, n.Status, n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("enqueue notification %s: %w", w.TrackingID, err)
		}
		if n.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("notification id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit dept status %s: %w", w.TrackingID, err)
	}
	return n, nil
}

// DepartmentLoad is one row of the open-report digest.
type DepartmentLoad struct {
	Department string
	DeptStatus string // "" for unassigned
	Count      int
}

func (s *Store) OpenReportLoad(ctx context.Context) ([]DepartmentLoad, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT primary_department, COALESCE(dept_status, ''), COUNT(*) AS cnt
		 FROM reports
		 WHERE tracking_id IS NOT NULL AND (dept_status IS NULL OR dept_status != ?)
		 GROUP BY primary_department, COALESCE(dept_status, '')
		 ORDER BY primary_department, cnt DESC`,
		domain.DeptStatusResolved,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DepartmentLoad
	for rows.Next() {
		var l DepartmentLoad
		if err := rows.Scan(&l.Department, &l.DeptStatus, &l.Count); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) queryReports(ctx context.Context, query string, args ...any) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Report
	for rows.Next() {
		r, err := scanReport(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReport(scan func(dest ...any) error) (domain.Report, error) {
	var (
		r              domain.Report
		trackingID     sql.NullString
		lat, lon       sql.NullFloat64
		decisionSource string
		priority       string
		deptStatus     sql.NullString
		assignee       sql.NullInt64
	)
	err := scan(
		&r.ID, &trackingID, &r.IssueType, &r.RawLabel, &r.RawLocation, &lat, &lon,
		&r.Description, &r.Probability, &decisionSource, &priority, &r.PrimaryDepartment, &r.Status,
		&deptStatus, &r.DeptRemarks, &r.Remarks, &assignee, &r.TelegramID, &r.Timestamp,
	)
	if err != nil {
		return domain.Report{}, err
	}
	r.TrackingID = trackingID.String
	if lat.Valid && lon.Valid {
		la, lo := lat.Float64, lon.Float64
		r.Latitude, r.Longitude = &la, &lo
	}
	r.DecisionSource = domain.Provenance(decisionSource)
	r.Priority = domain.Priority(priority)
	r.DeptStatus = deptStatus.String
	if assignee.Valid {
		id := assignee.Int64
		r.AssignedDeptAdminID = &id
	}
	return r, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

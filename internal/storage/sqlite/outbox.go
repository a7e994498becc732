package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"snapfix/internal/domain"
	"time"
)

// ClaimNotification moves a pending entry to sending. It returns false when
// another worker already claimed it, which is how the post-commit hook and
// the sweeper avoid delivering the same message twice.
func (s *Store) ClaimNotification(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notification_outbox
		 SET status = ?, attempt_count = attempt_count + 1
		 WHERE id = ? AND status = ?`,
		domain.NotificationSending, id, domain.NotificationPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim notification %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Store) MarkNotificationSent(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notification_outbox SET status = ?, last_error = '', processed_at = ? WHERE id = ?`,
		domain.NotificationSent, at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark notification %d sent: %w", id, err)
	}
	return nil
}

func (s *Store) MarkNotificationFailed(ctx context.Context, id int64, at time.Time, cause string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notification_outbox SET status = ?, last_error = ?, processed_at = ? WHERE id = ?`,
		domain.NotificationFailed, cause, at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark notification %d failed: %w", id, err)
	}
	return nil
}

// ListPendingNotifications returns entries still pending that were created
// before the cutoff, oldest first.
func (s *Store) ListPendingNotifications(ctx context.Context, before time.Time, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report_id, tracking_id, recipient, message, status, attempt_count, last_error, created_at, processed_at
		 FROM notification_outbox
		 WHERE status = ? AND created_at <= ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		domain.NotificationPending, before.UTC(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) GetNotification(ctx context.Context, id int64) (domain.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, report_id, tracking_id, recipient, message, status, attempt_count, last_error, created_at, processed_at
		 FROM notification_outbox WHERE id = ?`,
		id,
	)
	n, err := scanNotification(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Notification{}, ErrNotFound
	}
	return n, err
}

func scanNotification(scan func(dest ...any) error) (domain.Notification, error) {
	var n domain.Notification
	var processed sql.NullTime
	if err := scan(
		&n.ID, &n.ReportID, &n.TrackingID, &n.Recipient, &n.Message, &n.Status,
		&n.AttemptCount, &n.LastError, &n.CreatedAt, &processed,
	); err != nil {
		return domain.Notification{}, err
	}
	if processed.Valid {
		t := processed.Time
		n.ProcessedAt = &t
	}
	return n, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"snapfix/internal/domain"
	"strings"
)

func (s *Store) CreateDeptAdmin(ctx context.Context, username, department string) (domain.DeptAdmin, error) {
	username = strings.TrimSpace(username)
	department = strings.TrimSpace(department)
	if username == "" || department == "" {
		return domain.DeptAdmin{}, fmt.Errorf("username and department are required")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dept_admins (username, department) VALUES (?, ?)`,
		username, department,
	)
	if err != nil {
		return domain.DeptAdmin{}, fmt.Errorf("insert dept admin %s: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.DeptAdmin{}, fmt.Errorf("dept admin id: %w", err)
	}
	return s.GetDeptAdmin(ctx, id)
}

func (s *Store) GetDeptAdmin(ctx context.Context, id int64) (domain.DeptAdmin, error) {
	var a domain.DeptAdmin
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, department, created_at FROM dept_admins WHERE id = ?`,
		id,
	).Scan(&a.ID, &a.Username, &a.Department, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DeptAdmin{}, ErrNotFound
	}
	if err != nil {
		return domain.DeptAdmin{}, fmt.Errorf("get dept admin %d: %w", id, err)
	}
	return a, nil
}

func (s *Store) ListDeptAdmins(ctx context.Context) ([]domain.DeptAdmin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, department, created_at FROM dept_admins ORDER BY department, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DeptAdmin
	for rows.Next() {
		var a domain.DeptAdmin
		if err := rows.Scan(&a.ID, &a.Username, &a.Department, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

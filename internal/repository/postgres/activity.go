package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository"
)

type activityRepository struct {
	db DBTX
}

func NewActivityRepository(db DBTX) repository.ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, e *domain.ActivityLogEntry) error {
	query := `INSERT INTO activity_logs (user_id, action, detail, severity, created_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := r.db.QueryRowContext(ctx, query, nullInt64(e.UserID), e.Action, e.Detail, e.Severity, e.CreatedAt).Scan(&e.ID); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

func (r *activityRepository) List(ctx context.Context, page domain.PageRequest) ([]domain.ActivityLogEntry, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM activity_logs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activity logs: %w", err)
	}

	query := `SELECT a.id, a.user_id, COALESCE(u.name, ''), a.action, a.detail, a.severity, a.created_at
	          FROM activity_logs a
	          LEFT JOIN users u ON u.id = a.user_id
	          ORDER BY a.created_at DESC, a.id DESC
	          LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.ActivityLogEntry
	for rows.Next() {
		var e domain.ActivityLogEntry
		var userID sql.NullInt64
		if err := rows.Scan(&e.ID, &userID, &e.UserName, &e.Action, &e.Detail, &e.Severity, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.UserID = int64Ptr(userID)
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

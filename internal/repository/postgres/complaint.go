package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
)

type complaintRepository struct {
	db DBTX
}

func NewComplaintRepository(db DBTX) repository.ComplaintRepository {
	return &complaintRepository{db: db}
}

const complaintColumns = `c.id, c.user_id, c.reservation_id, c.title, c.body, c.status, c.resolution, c.created_at, c.updated_at, u.name`

func scanComplaint(row interface{ Scan(...any) error }, c *domain.Complaint) error {
	var reservationID sql.NullInt64
	if err := row.Scan(&c.ID, &c.UserID, &reservationID, &c.Title, &c.Body, &c.Status, &c.Resolution, &c.CreatedAt, &c.UpdatedAt, &c.UserName); err != nil {
		return err
	}
	c.ReservationID = int64Ptr(reservationID)
	return nil
}

func (r *complaintRepository) Create(ctx context.Context, c *domain.Complaint) error {
	logger.EnterMethod("complaintRepository.Create", "userID", c.UserID)

	query := `INSERT INTO complaints (user_id, reservation_id, title, body, status, resolution, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	err := r.db.QueryRowContext(ctx, query, c.UserID, nullInt64(c.ReservationID), c.Title, c.Body, c.Status, c.Resolution, now).Scan(&c.ID)
	if err != nil {
		logger.ExitMethodWithError("complaintRepository.Create", err, "userID", c.UserID)
		return fmt.Errorf("insert complaint: %w", err)
	}

	logger.ExitMethod("complaintRepository.Create", "complaintID", c.ID)
	return nil
}

func (r *complaintRepository) GetByID(ctx context.Context, id int64) (*domain.Complaint, error) {
	c := &domain.Complaint{}
	query := `SELECT ` + complaintColumns + ` FROM complaints c JOIN users u ON u.id = c.user_id WHERE c.id = $1`
	if err := scanComplaint(r.db.QueryRowContext(ctx, query, id), c); err != nil {
		return nil, notFound(err, "complaint", id)
	}
	return c, nil
}

func (r *complaintRepository) UpdateResolution(ctx context.Context, c *domain.Complaint) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE complaints SET status=$1, resolution=$2, updated_at=$3 WHERE id=$4`,
		c.Status, c.Resolution, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update complaint: %w", err)
	}
	return requireAffected(res, "complaint", c.ID)
}

func (r *complaintRepository) List(ctx context.Context, filter domain.ComplaintFilter, page domain.PageRequest) ([]domain.Complaint, int64, error) {
	b := &queryBuilder{}
	if filter.UserID != nil {
		b.add("c.user_id = $%d", *filter.UserID)
	}
	if filter.Status != "" {
		b.add("c.status = $%d", filter.Status)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM complaints c`+b.clause(), b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count complaints: %w", err)
	}

	suffix, args := b.page(page)
	query := `SELECT ` + complaintColumns + ` FROM complaints c JOIN users u ON u.id = c.user_id` + b.clause() +
		` ORDER BY c.created_at DESC, c.id DESC` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	var complaints []domain.Complaint
	for rows.Next() {
		var c domain.Complaint
		if err := scanComplaint(rows, &c); err != nil {
			return nil, 0, err
		}
		complaints = append(complaints, c)
	}
	return complaints, total, rows.Err()
}

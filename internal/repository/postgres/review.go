package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository"
)

type reviewRepository struct {
	db DBTX
}

func NewReviewRepository(db DBTX) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	query := `INSERT INTO reviews (user_id, vehicle_id, reservation_id, rating, comment, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	rv.CreatedAt = time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query, rv.UserID, rv.VehicleID, nullInt64(rv.ReservationID), rv.Rating, rv.Comment, rv.CreatedAt).Scan(&rv.ID)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *reviewRepository) List(ctx context.Context, filter domain.ReviewFilter, page domain.PageRequest) ([]domain.Review, int64, error) {
	b := &queryBuilder{}
	if filter.VehicleID != nil {
		b.add("rv.vehicle_id = $%d", *filter.VehicleID)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM reviews rv`+b.clause(), b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	suffix, args := b.page(page)
	query := `SELECT rv.id, rv.user_id, rv.vehicle_id, rv.reservation_id, rv.rating, rv.comment, rv.created_at, u.name
	          FROM reviews rv JOIN users u ON u.id = rv.user_id` + b.clause() + ` ORDER BY rv.created_at DESC, rv.id DESC` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		var reservationID sql.NullInt64
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.VehicleID, &reservationID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UserName); err != nil {
			return nil, 0, err
		}
		rv.ReservationID = int64Ptr(reservationID)
		reviews = append(reviews, rv)
	}
	return reviews, total, rows.Err()
}

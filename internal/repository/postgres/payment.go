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

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	logger.EnterMethod("paymentRepository.Create", "reservationID", p.ReservationID, "amount", p.AmountCents)

	query := `INSERT INTO payments (reservation_id, amount_cents, method, status, paid_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	p.CreatedAt = time.Now().UTC()
	var paidAt sql.NullTime
	if p.PaidAt != nil {
		paidAt = sql.NullTime{Time: *p.PaidAt, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query, p.ReservationID, p.AmountCents, p.Method, p.Status, paidAt, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		logger.ExitMethodWithError("paymentRepository.Create", err, "reservationID", p.ReservationID)
		return fmt.Errorf("insert payment: %w", err)
	}

	logger.ExitMethod("paymentRepository.Create", "paymentID", p.ID)
	return nil
}

const paymentColumns = `id, reservation_id, amount_cents, method, status, paid_at, created_at`

func scanPayment(row interface{ Scan(...any) error }, p *domain.Payment) error {
	var paidAt sql.NullTime
	if err := row.Scan(&p.ID, &p.ReservationID, &p.AmountCents, &p.Method, &p.Status, &paidAt, &p.CreatedAt); err != nil {
		return err
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	p := &domain.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id), p); err != nil {
		return nil, notFound(err, "payment", id)
	}
	return p, nil
}

func (r *paymentRepository) ListByReservation(ctx context.Context, reservationID int64) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reservation_id = $1 ORDER BY created_at`, reservationID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

type damageReportRepository struct {
	db DBTX
}

func NewDamageReportRepository(db DBTX) repository.DamageReportRepository {
	return &damageReportRepository{db: db}
}

func (r *damageReportRepository) Create(ctx context.Context, d *domain.DamageReport) error {
	logger.EnterMethod("damageReportRepository.Create", "reservationID", d.ReservationID, "cost", d.CostCents)

	query := `INSERT INTO damage_reports (reservation_id, description, cost_cents, created_at)
	          VALUES ($1, $2, $3, $4) RETURNING id`
	d.CreatedAt = time.Now().UTC()
	if err := r.db.QueryRowContext(ctx, query, d.ReservationID, d.Description, d.CostCents, d.CreatedAt).Scan(&d.ID); err != nil {
		logger.ExitMethodWithError("damageReportRepository.Create", err, "reservationID", d.ReservationID)
		return fmt.Errorf("insert damage report: %w", err)
	}

	logger.ExitMethod("damageReportRepository.Create", "damageReportID", d.ID)
	return nil
}

func (r *damageReportRepository) ListByReservation(ctx context.Context, reservationID int64) ([]domain.DamageReport, error) {
	query := `SELECT id, reservation_id, description, cost_cents, created_at FROM damage_reports
	          WHERE reservation_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, reservationID)
	if err != nil {
		return nil, fmt.Errorf("list damage reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.DamageReport
	for rows.Next() {
		var d domain.DamageReport
		if err := rows.Scan(&d.ID, &d.ReservationID, &d.Description, &d.CostCents, &d.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, d)
	}
	return reports, rows.Err()
}

func (r *damageReportRepository) TotalCost(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(cost_cents), 0) FROM damage_reports`).Scan(&total)
	return total, err
}

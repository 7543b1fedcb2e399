package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"

	"github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements repository.Store on top of PostgreSQL. A Store created by
// NewStore owns the connection pool; the Store passed to WithTx callbacks is
// bound to one transaction.
type Store struct {
	db *sql.DB
	q  DBTX
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Users() repository.UserRepository { return NewUserRepository(s.q) }

func (s *Store) Branches() repository.BranchRepository { return NewBranchRepository(s.q) }

func (s *Store) Categories() repository.CategoryRepository { return NewCategoryRepository(s.q) }

func (s *Store) Vehicles() repository.VehicleRepository { return NewVehicleRepository(s.q) }

func (s *Store) Reservations() repository.ReservationRepository {
	return NewReservationRepository(s.q)
}

func (s *Store) DamageReports() repository.DamageReportRepository {
	return NewDamageReportRepository(s.q)
}

func (s *Store) Payments() repository.PaymentRepository { return NewPaymentRepository(s.q) }

func (s *Store) Activities() repository.ActivityRepository { return NewActivityRepository(s.q) }

func (s *Store) Complaints() repository.ComplaintRepository { return NewComplaintRepository(s.q) }

func (s *Store) Documents() repository.DocumentRepository { return NewDocumentRepository(s.q) }

func (s *Store) Reviews() repository.ReviewRepository { return NewReviewRepository(s.q) }

func (s *Store) WithTx(ctx context.Context, opts *sql.TxOptions, fn func(tx repository.Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return translateError(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(&Store{q: tx}); err != nil {
		return translateError(err)
	}
	if err := tx.Commit(); err != nil {
		logger.Error("Transaction commit failed", "error", err)
		return translateError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// PostgreSQL error codes the application reacts to.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqExclusionViolation   = "23P01"
	pqUniqueViolation      = "23505"
	pqForeignKeyViolation  = "23503"
	pqCheckViolation       = "23514"
)

// translateError maps driver errors to application errors. Errors that are
// already *domain.Error pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *domain.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailure, pqDeadlockDetected:
			e := domain.NewConflictError("CONCURRENT_UPDATE", "the resource was modified concurrently, please retry")
			e.Err = err
			return e
		case pqExclusionViolation:
			e := domain.NewConflictError("VEHICLE_UNAVAILABLE", "the vehicle is already booked for the requested period")
			e.Err = err
			return e
		case pqUniqueViolation:
			e := domain.NewConflictError("DUPLICATE", "a record with the same unique value already exists")
			e.Err = err
			return e
		case pqForeignKeyViolation:
			e := domain.NewValidationError("INVALID_REFERENCE", "a referenced record does not exist or is still in use", nil)
			e.Err = err
			return e
		case pqCheckViolation:
			e := domain.NewValidationError("CONSTRAINT_VIOLATION", "a value is outside its allowed range", nil)
			e.Err = err
			return e
		}
	}
	return domain.NewPersistenceError(err)
}

// notFound converts sql.ErrNoRows into a not-found error for entity id.
func notFound(err error, entity string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}
	return err
}

// requireAffected returns a not-found error when an update matched no rows.
func requireAffected(res sql.Result, entity string, id int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NewNotFoundError(entity, id)
	}
	return nil
}

// queryBuilder accumulates WHERE conditions with positional placeholders.
type queryBuilder struct {
	where []string
	args  []any
}

func (b *queryBuilder) add(cond string, arg any) {
	b.args = append(b.args, arg)
	b.where = append(b.where, fmt.Sprintf(cond, len(b.args)))
}

func (b *queryBuilder) clause() string {
	if len(b.where) == 0 {
		return ""
	}
	out := " WHERE " + b.where[0]
	for _, w := range b.where[1:] {
		out += " AND " + w
	}
	return out
}

// page appends LIMIT/OFFSET placeholders and returns the suffix.
func (b *queryBuilder) page(p domain.PageRequest) (string, []any) {
	n := len(b.args)
	args := append(append([]any{}, b.args...), p.PageSize, p.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}

func nullInt32(p *int32) sql.NullInt32 {
	if p == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *p, Valid: true}
}

func int32Ptr(n sql.NullInt32) *int32 {
	if !n.Valid {
		return nil
	}
	v := n.Int32
	return &v
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"rentacar-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	SoftDelete(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.UserFilter, page domain.PageRequest) ([]domain.User, int64, error)
	Count(ctx context.Context) (int64, error)
}

type BranchRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Branch, error)
	List(ctx context.Context) ([]domain.Branch, error)
}

type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *domain.Vehicle) error
	GetByID(ctx context.Context, id int64) (*domain.Vehicle, error)
	// LockByID reads the vehicle and holds a row lock until the surrounding
	// transaction ends.
	LockByID(ctx context.Context, id int64) (*domain.Vehicle, error)
	Update(ctx context.Context, vehicle *domain.Vehicle) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.VehicleFilter, page domain.PageRequest) ([]domain.Vehicle, int64, error)
	CountByStatus(ctx context.Context) (map[domain.VehicleStatus]int64, error)
	// SyncRentalStatuses marks vehicles with a picked-up reservation as rented
	// and releases rented vehicles without one.
	SyncRentalStatuses(ctx context.Context) (rented, released int64, err error)
}

type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	// FindBlocking returns the intervals of active reservations on the vehicle
	// that overlap the given interval. excludeID of 0 excludes nothing.
	FindBlocking(ctx context.Context, vehicleID int64, interval domain.Interval, excludeID int64) ([]domain.Interval, error)
	ListBlockingByVehicle(ctx context.Context, vehicleID int64) ([]domain.Interval, error)
	UpdateSchedule(ctx context.Context, r *domain.Reservation) error
	// UpdateStatus persists status and telemetry; it is the only status writer.
	UpdateStatus(ctx context.Context, r *domain.Reservation) error
	List(ctx context.Context, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int64, error)
	ListAll(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error)
	ListStalePending(ctx context.Context, before time.Time) ([]domain.Reservation, error)
	CountByVehicle(ctx context.Context, vehicleID int64) (int64, error)
	// Totals returns the reservation count and revenue of non-cancelled reservations.
	Totals(ctx context.Context) (count int64, revenueCents int64, err error)
	Latest(ctx context.Context, limit int) ([]domain.Reservation, error)
}

type DamageReportRepository interface {
	Create(ctx context.Context, report *domain.DamageReport) error
	ListByReservation(ctx context.Context, reservationID int64) ([]domain.DamageReport, error)
	TotalCost(ctx context.Context) (int64, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	ListByReservation(ctx context.Context, reservationID int64) ([]domain.Payment, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, entry *domain.ActivityLogEntry) error
	List(ctx context.Context, page domain.PageRequest) ([]domain.ActivityLogEntry, int64, error)
}

type ComplaintRepository interface {
	Create(ctx context.Context, c *domain.Complaint) error
	GetByID(ctx context.Context, id int64) (*domain.Complaint, error)
	UpdateResolution(ctx context.Context, c *domain.Complaint) error
	List(ctx context.Context, filter domain.ComplaintFilter, page domain.PageRequest) ([]domain.Complaint, int64, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	GetByStorageKey(ctx context.Context, key string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, d *domain.Document) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.DocumentFilter, page domain.PageRequest) ([]domain.Document, int64, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, r *domain.Review) error
	List(ctx context.Context, filter domain.ReviewFilter, page domain.PageRequest) ([]domain.Review, int64, error)
}

// Store groups the repositories. WithTx runs fn against a Store bound to a
// single transaction; the transaction commits only if fn returns nil.
// Calling WithTx on a transactional Store runs fn in the same transaction.
type Store interface {
	Users() UserRepository
	Branches() BranchRepository
	Categories() CategoryRepository
	Vehicles() VehicleRepository
	Reservations() ReservationRepository
	DamageReports() DamageReportRepository
	Payments() PaymentRepository
	Activities() ActivityRepository
	Complaints() ComplaintRepository
	Documents() DocumentRepository
	Reviews() ReviewRepository

	WithTx(ctx context.Context, opts *sql.TxOptions, fn func(tx Store) error) error
}

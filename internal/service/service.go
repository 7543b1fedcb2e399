package service

import (
	"context"
	"database/sql"
	"io"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// serializable is used by every check-then-write transaction.
var serializable = &sql.TxOptions{Isolation: sql.LevelSerializable}

type AvailabilityChecker interface {
	// IsAvailable reports whether vehicleID is free for [pickupAt, returnAt)
	// using q, which may be bound to a transaction. When it is not, the
	// blocking intervals are returned.
	IsAvailable(ctx context.Context, q repository.Store, vehicleID int64, pickupAt, returnAt time.Time, excludeReservationID int64) (bool, []domain.Interval, error)
	UnavailableIntervals(ctx context.Context, vehicleID int64) ([]domain.Interval, error)
}

type ReservationService interface {
	CreateReservation(ctx context.Context, actor domain.Actor, in CreateReservationInput) (*domain.Reservation, error)
	UpdateReservation(ctx context.Context, actor domain.Actor, id int64, in UpdateReservationInput) (*domain.Reservation, error)
	Transition(ctx context.Context, actor domain.Actor, id int64, req TransitionRequest) (*domain.Reservation, error)
	GetReservation(ctx context.Context, actor domain.Actor, id int64) (*domain.Reservation, error)
	ListReservations(ctx context.Context, actor domain.Actor, filter domain.ReservationFilter, page domain.PageRequest) (domain.Page[domain.Reservation], error)
	ExportReservations(ctx context.Context, actor domain.Actor, filter domain.ReservationFilter) ([]domain.Reservation, error)
	// ExpireStale cancels pending reservations whose pickup time passed more
	// than grace ago and returns how many were cancelled.
	ExpireStale(ctx context.Context, grace time.Duration) (int, error)
}

type PaymentService interface {
	RecordPayment(ctx context.Context, actor domain.Actor, in PaymentInput) (*domain.Payment, *domain.Reservation, error)
	GetPayment(ctx context.Context, actor domain.Actor, id int64) (*domain.Payment, error)
}

type DamageService interface {
	ReportDamage(ctx context.Context, actor domain.Actor, reservationID int64, in domain.DamageInput) (*domain.DamageReport, error)
	ListDamage(ctx context.Context, actor domain.Actor, reservationID int64) ([]domain.DamageReport, int64, error)
}

type ComplaintService interface {
	SubmitComplaint(ctx context.Context, actor domain.Actor, in domain.ComplaintInput) (*domain.Complaint, error)
	ListComplaints(ctx context.Context, actor domain.Actor, filter domain.ComplaintFilter, page domain.PageRequest) (domain.Page[domain.Complaint], error)
	ResolveComplaint(ctx context.Context, actor domain.Actor, id int64, in domain.ComplaintResolution) (*domain.Complaint, error)
}

type DocumentService interface {
	UploadDocument(ctx context.Context, actor domain.Actor, in UploadDocumentInput) (*domain.Document, error)
	ListMyDocuments(ctx context.Context, actor domain.Actor, page domain.PageRequest) (domain.Page[domain.Document], error)
	ListAllDocuments(ctx context.Context, actor domain.Actor, filter domain.DocumentFilter, page domain.PageRequest) (domain.Page[domain.Document], error)
	DeleteDocument(ctx context.Context, actor domain.Actor, id int64) error
	ReviewDocument(ctx context.Context, actor domain.Actor, id int64, approve bool) (*domain.Document, error)
	OpenDocumentFile(ctx context.Context, actor domain.Actor, key string) (io.ReadCloser, *domain.Document, error)
}

type ReviewService interface {
	SubmitReview(ctx context.Context, actor domain.Actor, in domain.ReviewInput) (*domain.Review, error)
	ListReviews(ctx context.Context, filter domain.ReviewFilter, page domain.PageRequest) (domain.Page[domain.Review], error)
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, *AuthToken, error)
	Login(ctx context.Context, email, password string) (*domain.User, *AuthToken, error)
}

type UserService interface {
	GetProfile(ctx context.Context, actor domain.Actor) (*domain.User, error)
	UpdateProfile(ctx context.Context, actor domain.Actor, in ProfileInput) (*domain.User, error)
	ListUsers(ctx context.Context, actor domain.Actor, filter domain.UserFilter, page domain.PageRequest) (domain.Page[domain.User], error)
	CreateUser(ctx context.Context, actor domain.Actor, in UserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, actor domain.Actor, id int64, in UserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, actor domain.Actor, id int64) error
}

type VehicleService interface {
	ListVehicles(ctx context.Context, actor *domain.Actor, filter domain.VehicleFilter, includeInactive bool, page domain.PageRequest) (domain.Page[domain.Vehicle], error)
	GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error)
	CreateVehicle(ctx context.Context, actor domain.Actor, in VehicleInput) (*domain.Vehicle, error)
	UpdateVehicle(ctx context.Context, actor domain.Actor, id int64, in VehicleInput) (*domain.Vehicle, error)
	DeleteVehicle(ctx context.Context, actor domain.Actor, id int64) error
	ListBranches(ctx context.Context) ([]domain.Branch, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type StatsService interface {
	GetStats(ctx context.Context, actor domain.Actor) (*domain.Stats, error)
}

type ActivityService interface {
	ListActivity(ctx context.Context, actor domain.Actor, page domain.PageRequest) (domain.Page[domain.ActivityLogEntry], error)
}

// requireRef turns a missing referenced record into a field validation error.
func requireRef(err error, field, message string) error {
	if domain.IsNotFound(err) {
		return domain.NewFieldError(field, message)
	}
	return err
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"

	"github.com/lib/pq"
)

type reservationRepository struct {
	db DBTX
}

func NewReservationRepository(db DBTX) repository.ReservationRepository {
	return &reservationRepository{db: db}
}

const reservationColumns = `r.id, r.user_id, r.vehicle_id, r.pickup_branch_id, r.return_branch_id, r.pickup_at, r.return_at,
	r.total_price_cents, r.pickup_km, r.return_km, r.pickup_fuel, r.return_fuel, r.status, r.notes, r.created_at, r.updated_at`

// reservationListSelect joins the vehicle and customer summary shown in lists.
const reservationListSelect = `SELECT ` + reservationColumns + `, v.make, v.model, v.registration, u.name, u.email
	FROM reservations r
	JOIN vehicles v ON v.id = r.vehicle_id
	JOIN users u ON u.id = r.user_id`

func reservationDest(r *domain.Reservation, pickupKm, returnKm, pickupFuel, returnFuel *sql.NullInt32) []any {
	return []any{&r.ID, &r.UserID, &r.VehicleID, &r.PickupBranchID, &r.ReturnBranchID, &r.PickupAt, &r.ReturnAt,
		&r.TotalPriceCents, pickupKm, returnKm, pickupFuel, returnFuel, &r.Status, &r.Notes, &r.CreatedAt, &r.UpdatedAt}
}

func scanReservation(row interface{ Scan(...any) error }, r *domain.Reservation, withSummary bool) error {
	var pickupKm, returnKm, pickupFuel, returnFuel sql.NullInt32
	dest := reservationDest(r, &pickupKm, &returnKm, &pickupFuel, &returnFuel)
	var v domain.Vehicle
	var u domain.User
	if withSummary {
		dest = append(dest, &v.Make, &v.Model, &v.Registration, &u.Name, &u.Email)
	}
	if err := row.Scan(dest...); err != nil {
		return err
	}
	r.PickupKm, r.ReturnKm = int32Ptr(pickupKm), int32Ptr(returnKm)
	r.PickupFuel, r.ReturnFuel = int32Ptr(pickupFuel), int32Ptr(returnFuel)
	if withSummary {
		v.ID, u.ID = r.VehicleID, r.UserID
		r.Vehicle, r.User = &v, &u
	}
	return nil
}

func blockingStatuses() any {
	statuses := make([]string, len(domain.BlockingReservationStatuses))
	for i, s := range domain.BlockingReservationStatuses {
		statuses[i] = string(s)
	}
	return pq.Array(statuses)
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	logger.EnterMethod("reservationRepository.Create", "vehicleID", res.VehicleID, "userID", res.UserID)

	query := `INSERT INTO reservations (user_id, vehicle_id, pickup_branch_id, return_branch_id, pickup_at, return_at,
	          total_price_cents, status, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10) RETURNING id`
	now := time.Now().UTC()
	res.CreatedAt, res.UpdatedAt = now, now
	err := r.db.QueryRowContext(ctx, query, res.UserID, res.VehicleID, res.PickupBranchID, res.ReturnBranchID, res.PickupAt, res.ReturnAt,
		res.TotalPriceCents, res.Status, res.Notes, now).Scan(&res.ID)
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.Create", err, "vehicleID", res.VehicleID)
		return fmt.Errorf("insert reservation: %w", err)
	}

	logger.ExitMethod("reservationRepository.Create", "reservationID", res.ID)
	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = $1`
	if err := scanReservation(r.db.QueryRowContext(ctx, query, id), res, false); err != nil {
		return nil, notFound(err, "reservation", id)
	}
	return res, nil
}

func (r *reservationRepository) FindBlocking(ctx context.Context, vehicleID int64, interval domain.Interval, excludeID int64) ([]domain.Interval, error) {
	query := `SELECT pickup_at, return_at FROM reservations
	          WHERE vehicle_id = $1 AND status = ANY($2) AND pickup_at < $3 AND return_at > $4 AND id <> $5
	          ORDER BY pickup_at`
	logger.DatabaseCall("SELECT", "reservations blocking", "vehicleID", vehicleID)
	rows, err := r.db.QueryContext(ctx, query, vehicleID, blockingStatuses(), interval.To, interval.From, excludeID)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err, "vehicleID", vehicleID)
		return nil, fmt.Errorf("find blocking reservations: %w", err)
	}
	defer rows.Close()

	intervals, err := scanIntervals(rows)
	logger.DatabaseResult("SELECT", int64(len(intervals)), err, "vehicleID", vehicleID)
	return intervals, err
}

func (r *reservationRepository) ListBlockingByVehicle(ctx context.Context, vehicleID int64) ([]domain.Interval, error) {
	query := `SELECT pickup_at, return_at FROM reservations
	          WHERE vehicle_id = $1 AND status = ANY($2)
	          ORDER BY pickup_at`
	rows, err := r.db.QueryContext(ctx, query, vehicleID, blockingStatuses())
	if err != nil {
		return nil, fmt.Errorf("list blocking reservations: %w", err)
	}
	defer rows.Close()
	return scanIntervals(rows)
}

func scanIntervals(rows *sql.Rows) ([]domain.Interval, error) {
	var intervals []domain.Interval
	for rows.Next() {
		var i domain.Interval
		if err := rows.Scan(&i.From, &i.To); err != nil {
			return nil, err
		}
		intervals = append(intervals, i)
	}
	return intervals, rows.Err()
}

func (r *reservationRepository) UpdateSchedule(ctx context.Context, res *domain.Reservation) error {
	logger.EnterMethod("reservationRepository.UpdateSchedule", "reservationID", res.ID)

	query := `UPDATE reservations SET vehicle_id=$1, pickup_branch_id=$2, return_branch_id=$3, pickup_at=$4, return_at=$5,
	          total_price_cents=$6, notes=$7, updated_at=$8 WHERE id=$9`
	res.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, res.VehicleID, res.PickupBranchID, res.ReturnBranchID, res.PickupAt, res.ReturnAt,
		res.TotalPriceCents, res.Notes, res.UpdatedAt, res.ID)
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.UpdateSchedule", err, "reservationID", res.ID)
		return fmt.Errorf("update reservation schedule: %w", err)
	}

	logger.ExitMethod("reservationRepository.UpdateSchedule", "reservationID", res.ID)
	return requireAffected(result, "reservation", res.ID)
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, res *domain.Reservation) error {
	logger.EnterMethod("reservationRepository.UpdateStatus", "reservationID", res.ID, "status", res.Status)

	query := `UPDATE reservations SET status=$1, pickup_km=$2, pickup_fuel=$3, return_km=$4, return_fuel=$5, updated_at=$6 WHERE id=$7`
	res.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, res.Status, nullInt32(res.PickupKm), nullInt32(res.PickupFuel),
		nullInt32(res.ReturnKm), nullInt32(res.ReturnFuel), res.UpdatedAt, res.ID)
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.UpdateStatus", err, "reservationID", res.ID)
		return fmt.Errorf("update reservation status: %w", err)
	}

	logger.ExitMethod("reservationRepository.UpdateStatus", "reservationID", res.ID)
	return requireAffected(result, "reservation", res.ID)
}

func reservationFilter(filter domain.ReservationFilter) *queryBuilder {
	b := &queryBuilder{}
	if filter.UserID != nil {
		b.add("r.user_id = $%d", *filter.UserID)
	}
	if filter.VehicleID != nil {
		b.add("r.vehicle_id = $%d", *filter.VehicleID)
	}
	if filter.Status != "" {
		b.add("r.status = $%d", filter.Status)
	}
	return b
}

func (r *reservationRepository) List(ctx context.Context, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int64, error) {
	logger.EnterMethod("reservationRepository.List", "status", filter.Status)

	b := reservationFilter(filter)
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM reservations r`+b.clause(), b.args...).Scan(&total); err != nil {
		logger.ExitMethodWithError("reservationRepository.List", err)
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	suffix, args := b.page(page)
	list, err := r.query(ctx, reservationListSelect+b.clause()+` ORDER BY r.created_at DESC, r.id DESC`+suffix, args...)
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.List", err)
		return nil, 0, err
	}

	logger.ExitMethod("reservationRepository.List", "count", len(list), "total", total)
	return list, total, nil
}

func (r *reservationRepository) ListAll(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	b := reservationFilter(filter)
	return r.query(ctx, reservationListSelect+b.clause()+` ORDER BY r.pickup_at, r.id`, b.args...)
}

func (r *reservationRepository) ListStalePending(ctx context.Context, before time.Time) ([]domain.Reservation, error) {
	return r.query(ctx, reservationListSelect+` WHERE r.status = $1 AND r.pickup_at < $2 ORDER BY r.pickup_at`,
		domain.ReservationStatusPending, before)
}

func (r *reservationRepository) Latest(ctx context.Context, limit int) ([]domain.Reservation, error) {
	return r.query(ctx, reservationListSelect+` ORDER BY r.created_at DESC, r.id DESC LIMIT $1`, limit)
}

func (r *reservationRepository) query(ctx context.Context, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var list []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := scanReservation(rows, &res, true); err != nil {
			return nil, err
		}
		list = append(list, res)
	}
	return list, rows.Err()
}

func (r *reservationRepository) CountByVehicle(ctx context.Context, vehicleID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM reservations WHERE vehicle_id = $1`, vehicleID).Scan(&n)
	return n, err
}

func (r *reservationRepository) Totals(ctx context.Context) (int64, int64, error) {
	var count, revenue int64
	query := `SELECT count(*), COALESCE(SUM(total_price_cents) FILTER (WHERE status <> 'OTKAZANA'), 0) FROM reservations`
	if err := r.db.QueryRowContext(ctx, query).Scan(&count, &revenue); err != nil {
		return 0, 0, fmt.Errorf("reservation totals: %w", err)
	}
	return count, revenue, nil
}

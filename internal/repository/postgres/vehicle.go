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

type vehicleRepository struct {
	db DBTX
}

func NewVehicleRepository(db DBTX) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

const vehicleColumns = `id, branch_id, category_id, make, model, registration, price_per_day_cents, status,
	image_url, year, fuel_type, transmission, seats, created_at, updated_at`

func scanVehicle(row interface{ Scan(...any) error }, v *domain.Vehicle) error {
	var year, seats sql.NullInt32
	err := row.Scan(&v.ID, &v.BranchID, &v.CategoryID, &v.Make, &v.Model, &v.Registration, &v.PricePerDayCents, &v.Status,
		&v.ImageURL, &year, &v.FuelType, &v.Transmission, &seats, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return err
	}
	v.Year = int32Ptr(year)
	v.Seats = int32Ptr(seats)
	return nil
}

func (r *vehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	logger.EnterMethod("vehicleRepository.Create", "registration", v.Registration)

	query := `INSERT INTO vehicles (branch_id, category_id, make, model, registration, price_per_day_cents, status,
	          image_url, year, fuel_type, transmission, seats, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13) RETURNING id`
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	err := r.db.QueryRowContext(ctx, query, v.BranchID, v.CategoryID, v.Make, v.Model, v.Registration, v.PricePerDayCents, v.Status,
		v.ImageURL, nullInt32(v.Year), v.FuelType, v.Transmission, nullInt32(v.Seats), now).Scan(&v.ID)
	if err != nil {
		logger.ExitMethodWithError("vehicleRepository.Create", err, "registration", v.Registration)
		return fmt.Errorf("insert vehicle: %w", err)
	}

	logger.ExitMethod("vehicleRepository.Create", "vehicleID", v.ID)
	return nil
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	if err := scanVehicle(r.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id), v); err != nil {
		return nil, notFound(err, "vehicle", id)
	}
	return v, nil
}

func (r *vehicleRepository) LockByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "vehicles", "vehicleID", id)
	v := &domain.Vehicle{}
	err := scanVehicle(r.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1 FOR UPDATE`, id), v)
	if err != nil {
		logger.DatabaseResult("SELECT FOR UPDATE", 0, err, "vehicleID", id)
		return nil, notFound(err, "vehicle", id)
	}
	logger.DatabaseResult("SELECT FOR UPDATE", 1, nil, "vehicleID", id)
	return v, nil
}

func (r *vehicleRepository) Update(ctx context.Context, v *domain.Vehicle) error {
	query := `UPDATE vehicles SET branch_id=$1, category_id=$2, make=$3, model=$4, registration=$5, price_per_day_cents=$6,
	          status=$7, image_url=$8, year=$9, fuel_type=$10, transmission=$11, seats=$12, updated_at=$13 WHERE id=$14`
	v.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query, v.BranchID, v.CategoryID, v.Make, v.Model, v.Registration, v.PricePerDayCents,
		v.Status, v.ImageURL, nullInt32(v.Year), v.FuelType, v.Transmission, nullInt32(v.Seats), v.UpdatedAt, v.ID)
	if err != nil {
		return fmt.Errorf("update vehicle: %w", err)
	}
	return requireAffected(res, "vehicle", v.ID)
}

func (r *vehicleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	return requireAffected(res, "vehicle", id)
}

func (r *vehicleRepository) List(ctx context.Context, filter domain.VehicleFilter, page domain.PageRequest) ([]domain.Vehicle, int64, error) {
	logger.EnterMethod("vehicleRepository.List", "statuses", filter.Statuses)

	b := &queryBuilder{}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		b.add("status = ANY($%d)", pq.Array(statuses))
	}
	if filter.BranchID != nil {
		b.add("branch_id = $%d", *filter.BranchID)
	}
	if filter.CategoryID != nil {
		b.add("category_id = $%d", *filter.CategoryID)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM vehicles`+b.clause(), b.args...).Scan(&total); err != nil {
		logger.ExitMethodWithError("vehicleRepository.List", err)
		return nil, 0, fmt.Errorf("count vehicles: %w", err)
	}

	suffix, args := b.page(page)
	rows, err := r.db.QueryContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles`+b.clause()+` ORDER BY make, model, id`+suffix, args...)
	if err != nil {
		logger.ExitMethodWithError("vehicleRepository.List", err)
		return nil, 0, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := scanVehicle(rows, &v); err != nil {
			return nil, 0, err
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	logger.ExitMethod("vehicleRepository.List", "count", len(vehicles), "total", total)
	return vehicles, total, nil
}

func (r *vehicleRepository) CountByStatus(ctx context.Context) (map[domain.VehicleStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, count(*) FROM vehicles GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count vehicles by status: %w", err)
	}
	defer rows.Close()

	counts := map[domain.VehicleStatus]int64{}
	for rows.Next() {
		var status domain.VehicleStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *vehicleRepository) SyncRentalStatuses(ctx context.Context) (int64, int64, error) {
	logger.EnterMethod("vehicleRepository.SyncRentalStatuses")

	rentedQuery := `UPDATE vehicles v SET status = 'U_NAJMU', updated_at = now()
	                WHERE v.status = 'DOSTUPNO'
	                  AND EXISTS (SELECT 1 FROM reservations r WHERE r.vehicle_id = v.id AND r.status = 'PREUZETO')`
	res, err := r.db.ExecContext(ctx, rentedQuery)
	if err != nil {
		logger.ExitMethodWithError("vehicleRepository.SyncRentalStatuses", err)
		return 0, 0, fmt.Errorf("mark rented vehicles: %w", err)
	}
	rented, _ := res.RowsAffected()

	releasedQuery := `UPDATE vehicles v SET status = 'DOSTUPNO', updated_at = now()
	                  WHERE v.status = 'U_NAJMU'
	                    AND NOT EXISTS (SELECT 1 FROM reservations r WHERE r.vehicle_id = v.id AND r.status = 'PREUZETO')`
	res, err = r.db.ExecContext(ctx, releasedQuery)
	if err != nil {
		logger.ExitMethodWithError("vehicleRepository.SyncRentalStatuses", err)
		return 0, 0, fmt.Errorf("release vehicles: %w", err)
	}
	released, _ := res.RowsAffected()

	logger.ExitMethod("vehicleRepository.SyncRentalStatuses", "rented", rented, "released", released)
	return rented, released, nil
}

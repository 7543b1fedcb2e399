package service

import (
	"context"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
)

type availabilityChecker struct {
	store repository.Store
}

func NewAvailabilityChecker(store repository.Store) AvailabilityChecker {
	return &availabilityChecker{store: store}
}

func (c *availabilityChecker) IsAvailable(ctx context.Context, q repository.Store, vehicleID int64, pickupAt, returnAt time.Time, excludeReservationID int64) (bool, []domain.Interval, error) {
	interval := domain.Interval{From: pickupAt, To: returnAt}
	if !interval.Valid() {
		return false, nil, domain.NewValidationError("INVALID_INTERVAL", "pickup time must be before return time",
			map[string]string{"return_at": "return time must be after pickup time"})
	}
	if q == nil {
		q = c.store
	}

	blocking, err := q.Reservations().FindBlocking(ctx, vehicleID, interval, excludeReservationID)
	if err != nil {
		return false, nil, err
	}
	if len(blocking) > 0 {
		logger.Debug("Vehicle unavailable", "vehicleID", vehicleID, "conflicts", len(blocking))
		return false, blocking, nil
	}
	return true, nil, nil
}

func (c *availabilityChecker) UnavailableIntervals(ctx context.Context, vehicleID int64) ([]domain.Interval, error) {
	if _, err := c.store.Vehicles().GetByID(ctx, vehicleID); err != nil {
		return nil, err
	}
	intervals, err := c.store.Reservations().ListBlockingByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if intervals == nil {
		intervals = []domain.Interval{}
	}
	return intervals, nil
}

// unavailableError is the conflict returned when a booking overlaps
// existing reservations.
func unavailableError(conflicts []domain.Interval) error {
	err := domain.NewConflictError("VEHICLE_UNAVAILABLE", "the vehicle is already booked for the requested period")
	err.Conflicts = conflicts
	return err
}

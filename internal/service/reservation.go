package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
	"rentacar-backend/internal/security"
	"rentacar-backend/internal/utils"
)

type CreateReservationInput struct {
	VehicleID        int64     `json:"vehicle_id"`
	PickupBranchID   int64     `json:"pickup_branch_id"`
	ReturnBranchID   int64     `json:"return_branch_id"`
	PickupAt         time.Time `json:"pickup_at"`
	ReturnAt         time.Time `json:"return_at"`
	Notes            string    `json:"notes"`
	OnBehalfOfUserID *int64    `json:"on_behalf_of_user_id"`
	// TotalPriceCents overrides the computed price; staff only.
	TotalPriceCents *int64 `json:"total_price_cents"`
}

func (in CreateReservationInput) validate(now time.Time) error {
	fields := map[string]string{}
	if in.VehicleID <= 0 {
		fields["vehicle_id"] = "vehicle is required"
	}
	if in.PickupBranchID <= 0 {
		fields["pickup_branch_id"] = "pickup branch is required"
	}
	if in.ReturnBranchID <= 0 {
		fields["return_branch_id"] = "return branch is required"
	}
	switch {
	case in.PickupAt.IsZero():
		fields["pickup_at"] = "pickup time is required"
	case !in.PickupAt.After(now):
		fields["pickup_at"] = "pickup time must be in the future"
	}
	switch {
	case in.ReturnAt.IsZero():
		fields["return_at"] = "return time is required"
	case !in.PickupAt.IsZero() && !in.ReturnAt.After(in.PickupAt):
		fields["return_at"] = "return time must be after pickup time"
	}
	if in.TotalPriceCents != nil && *in.TotalPriceCents < 0 {
		fields["total_price_cents"] = "price must not be negative"
	}
	if len(fields) > 0 {
		return domain.NewValidationError("VALIDATION_FAILED", "invalid reservation", fields)
	}
	return nil
}

// UpdateReservationInput changes the schedule of an editable reservation.
// Nil fields are left unchanged.
type UpdateReservationInput struct {
	VehicleID       *int64     `json:"vehicle_id"`
	PickupBranchID  *int64     `json:"pickup_branch_id"`
	ReturnBranchID  *int64     `json:"return_branch_id"`
	PickupAt        *time.Time `json:"pickup_at"`
	ReturnAt        *time.Time `json:"return_at"`
	Notes           *string    `json:"notes"`
	TotalPriceCents *int64     `json:"total_price_cents"`
}

// TransitionRequest moves a reservation to Target. Telemetry is recorded on
// the hand-over leg the transition belongs to; Damage is only accepted with
// VRACENO and ZAVRSENA.
type TransitionRequest struct {
	Target domain.ReservationStatus `json:"status"`
	domain.Telemetry
	Damage []domain.DamageInput `json:"damage,omitempty"`
}

type reservationService struct {
	store        repository.Store
	availability AvailabilityChecker
	activity     *ActivityRecorder
	clock        Clock
}

func NewReservationService(store repository.Store, availability AvailabilityChecker, activity *ActivityRecorder, clock Clock) ReservationService {
	return &reservationService{
		store:        store,
		availability: availability,
		activity:     activity,
		clock:        clock,
	}
}

func (s *reservationService) CreateReservation(ctx context.Context, actor domain.Actor, in CreateReservationInput) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.CreateReservation", "actorID", actor.UserID, "vehicleID", in.VehicleID)

	if err := in.validate(s.clock.now()); err != nil {
		logger.ExitMethodWithError("reservationService.CreateReservation", err)
		return nil, err
	}
	if err := security.Authorize(actor, security.ActionCreateReservation, security.Owned(actor.UserID)); err != nil {
		return nil, err
	}
	userID := actor.UserID
	if in.OnBehalfOfUserID != nil && *in.OnBehalfOfUserID != actor.UserID {
		if err := security.Authorize(actor, security.ActionBookOnBehalf, security.Resource{}); err != nil {
			logger.Warn("Client tried to book on behalf of another user", "actorID", actor.UserID, "userID", *in.OnBehalfOfUserID)
			return nil, err
		}
		userID = *in.OnBehalfOfUserID
	}
	if in.TotalPriceCents != nil {
		if err := security.Authorize(actor, security.ActionSetExplicitPrice, security.Resource{}); err != nil {
			return nil, err
		}
	}

	var res *domain.Reservation
	err := s.activity.InTx(ctx, s.store, serializable, func(tx repository.Store, record RecordFunc) error {
		if userID != actor.UserID {
			if _, err := tx.Users().GetByID(ctx, userID); err != nil {
				return requireRef(err, "on_behalf_of_user_id", "user does not exist")
			}
		}
		if err := requireBranches(ctx, tx, in.PickupBranchID, in.ReturnBranchID); err != nil {
			return err
		}

		vehicle, err := tx.Vehicles().LockByID(ctx, in.VehicleID)
		if err != nil {
			return requireRef(err, "vehicle_id", "vehicle does not exist")
		}
		if err := requireBookable(vehicle); err != nil {
			return err
		}

		ok, conflicts, err := s.availability.IsAvailable(ctx, tx, vehicle.ID, in.PickupAt, in.ReturnAt, 0)
		if err != nil {
			return err
		}
		if !ok {
			return unavailableError(conflicts)
		}

		total, err := rentalPrice(vehicle, in.PickupAt, in.ReturnAt, in.TotalPriceCents)
		if err != nil {
			return err
		}

		res = &domain.Reservation{
			UserID:          userID,
			VehicleID:       vehicle.ID,
			PickupBranchID:  in.PickupBranchID,
			ReturnBranchID:  in.ReturnBranchID,
			PickupAt:        in.PickupAt.UTC(),
			ReturnAt:        in.ReturnAt.UTC(),
			TotalPriceCents: total,
			Status:          domain.ReservationStatusPending,
			Notes:           strings.TrimSpace(in.Notes),
		}
		if err := tx.Reservations().Create(ctx, res); err != nil {
			return err
		}
		res.Vehicle = vehicle

		return record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionReservationCreated,
			Severity: domain.SeverityInfo,
			Detail: fmt.Sprintf("Reservation #%d created for %s (%s), %s to %s, total %s",
				res.ID, vehicle.DisplayName(), vehicle.Registration,
				res.PickupAt.Format(time.RFC3339), res.ReturnAt.Format(time.RFC3339), utils.FormatCents(total)),
		})
	})
	if err != nil {
		logger.ExitMethodWithError("reservationService.CreateReservation", err, "vehicleID", in.VehicleID)
		return nil, err
	}

	logger.ExitMethod("reservationService.CreateReservation", "reservationID", res.ID)
	return res, nil
}

func (s *reservationService) UpdateReservation(ctx context.Context, actor domain.Actor, id int64, in UpdateReservationInput) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.UpdateReservation", "actorID", actor.UserID, "reservationID", id)

	if in.TotalPriceCents != nil {
		if err := security.Authorize(actor, security.ActionSetExplicitPrice, security.Resource{}); err != nil {
			return nil, err
		}
		if *in.TotalPriceCents < 0 {
			return nil, domain.NewFieldError("total_price_cents", "price must not be negative")
		}
	}

	var res *domain.Reservation
	err := s.activity.InTx(ctx, s.store, serializable, func(tx repository.Store, record RecordFunc) error {
		current, err := tx.Reservations().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := security.Authorize(actor, security.ActionEditReservation, security.Owned(current.UserID)); err != nil {
			return err
		}
		if !current.Status.Editable() {
			e := domain.NewConflictError("NOT_EDITABLE",
				fmt.Sprintf("reservation in status %s can no longer be changed", current.Status))
			e.CurrentStatus = current.Status
			return e
		}

		vehicleChanged := in.VehicleID != nil && *in.VehicleID != current.VehicleID
		scheduleChanged := vehicleChanged ||
			(in.PickupAt != nil && !in.PickupAt.Equal(current.PickupAt)) ||
			(in.ReturnAt != nil && !in.ReturnAt.Equal(current.ReturnAt))

		if in.VehicleID != nil {
			current.VehicleID = *in.VehicleID
		}
		if in.PickupBranchID != nil {
			current.PickupBranchID = *in.PickupBranchID
		}
		if in.ReturnBranchID != nil {
			current.ReturnBranchID = *in.ReturnBranchID
		}
		if in.PickupAt != nil {
			if !in.PickupAt.Equal(current.PickupAt) && !in.PickupAt.After(s.clock.now()) {
				return domain.NewFieldError("pickup_at", "pickup time must be in the future")
			}
			current.PickupAt = in.PickupAt.UTC()
		}
		if in.ReturnAt != nil {
			current.ReturnAt = in.ReturnAt.UTC()
		}
		if in.Notes != nil {
			current.Notes = strings.TrimSpace(*in.Notes)
		}
		if !current.Interval().Valid() {
			return domain.NewValidationError("INVALID_INTERVAL", "pickup time must be before return time",
				map[string]string{"return_at": "return time must be after pickup time"})
		}
		if in.PickupBranchID != nil || in.ReturnBranchID != nil {
			if err := requireBranches(ctx, tx, current.PickupBranchID, current.ReturnBranchID); err != nil {
				return err
			}
		}

		vehicle, err := tx.Vehicles().LockByID(ctx, current.VehicleID)
		if err != nil {
			return requireRef(err, "vehicle_id", "vehicle does not exist")
		}
		if vehicleChanged {
			if err := requireBookable(vehicle); err != nil {
				return err
			}
		}

		if scheduleChanged {
			ok, conflicts, err := s.availability.IsAvailable(ctx, tx, vehicle.ID, current.PickupAt, current.ReturnAt, current.ID)
			if err != nil {
				return err
			}
			if !ok {
				return unavailableError(conflicts)
			}
		}
		if scheduleChanged || in.TotalPriceCents != nil {
			total, err := rentalPrice(vehicle, current.PickupAt, current.ReturnAt, in.TotalPriceCents)
			if err != nil {
				return err
			}
			current.TotalPriceCents = total
		}

		if err := tx.Reservations().UpdateSchedule(ctx, current); err != nil {
			return err
		}
		if err := record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionReservationUpdated,
			Severity: domain.SeverityInfo,
			Detail: fmt.Sprintf("Reservation #%d changed: %s (%s), %s to %s, total %s",
				current.ID, vehicle.DisplayName(), vehicle.Registration,
				current.PickupAt.Format(time.RFC3339), current.ReturnAt.Format(time.RFC3339),
				utils.FormatCents(current.TotalPriceCents)),
		}); err != nil {
			return err
		}

		res = current
		return loadReservationDetail(ctx, tx, res)
	})
	if err != nil {
		logger.ExitMethodWithError("reservationService.UpdateReservation", err, "reservationID", id)
		return nil, err
	}

	logger.ExitMethod("reservationService.UpdateReservation", "reservationID", id)
	return res, nil
}

func (s *reservationService) Transition(ctx context.Context, actor domain.Actor, id int64, req TransitionRequest) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.Transition", "actorID", actor.UserID, "reservationID", id, "target", req.Target)

	if !req.Target.IsValid() {
		return nil, domain.NewFieldError("status", fmt.Sprintf("unknown reservation status %q", req.Target))
	}
	if len(req.Damage) > 0 {
		if !req.Target.AcceptsDamage() {
			return nil, domain.NewValidationError("DAMAGE_NOT_ALLOWED", "damage can only be reported with a return or completion",
				map[string]string{"damage": "damage requires status VRACENO or ZAVRSENA"})
		}
		for _, d := range req.Damage {
			if err := d.Validate(); err != nil {
				return nil, err
			}
		}
	}

	var res *domain.Reservation
	err := s.activity.InTx(ctx, s.store, serializable, func(tx repository.Store, record RecordFunc) error {
		current, err := tx.Reservations().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeTransition(actor, current, req.Target); err != nil {
			return err
		}

		from := current.Status
		if err := current.Transition(req.Target, req.Telemetry); err != nil {
			return err
		}
		if err := tx.Reservations().UpdateStatus(ctx, current); err != nil {
			return err
		}
		if err := record(statusChangedEvent(actor, current, from)); err != nil {
			return err
		}

		for _, d := range req.Damage {
			report, err := createDamageReport(ctx, tx, current.ID, d)
			if err != nil {
				return err
			}
			if err := record(damageEvent(actor, report)); err != nil {
				return err
			}
		}

		res = current
		return loadReservationDetail(ctx, tx, res)
	})
	if err != nil {
		logger.ExitMethodWithError("reservationService.Transition", err, "reservationID", id, "target", req.Target)
		return nil, err
	}

	logger.ExitMethod("reservationService.Transition", "reservationID", id, "status", res.Status)
	return res, nil
}

func (s *reservationService) GetReservation(ctx context.Context, actor domain.Actor, id int64) (*domain.Reservation, error) {
	res, err := s.store.Reservations().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := security.Authorize(actor, security.ActionViewReservation, security.Owned(res.UserID)); err != nil {
		return nil, err
	}
	if err := loadReservationDetail(ctx, s.store, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *reservationService) ListReservations(ctx context.Context, actor domain.Actor, filter domain.ReservationFilter, page domain.PageRequest) (domain.Page[domain.Reservation], error) {
	if !security.CanPerform(actor, security.ActionListAllReservations, security.Resource{}) {
		uid := actor.UserID
		filter.UserID = &uid
	}
	page = page.Normalize()
	items, total, err := s.store.Reservations().List(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.Reservation]{}, err
	}
	return domain.NewPage(items, total, page), nil
}

func (s *reservationService) ExportReservations(ctx context.Context, actor domain.Actor, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	if err := security.Authorize(actor, security.ActionExportReservations, security.Resource{}); err != nil {
		return nil, err
	}
	return s.store.Reservations().ListAll(ctx, filter)
}

func (s *reservationService) ExpireStale(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := s.clock.now().Add(-grace)
	stale, err := s.store.Reservations().ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var expired int
	var errs []error
	for _, r := range stale {
		changed := false
		err := s.activity.InTx(ctx, s.store, serializable, func(tx repository.Store, record RecordFunc) error {
			current, err := tx.Reservations().GetByID(ctx, r.ID)
			if err != nil {
				return err
			}
			if current.Status != domain.ReservationStatusPending {
				return nil
			}
			if err := current.Transition(domain.ReservationStatusCancelled, domain.Telemetry{}); err != nil {
				return err
			}
			if err := tx.Reservations().UpdateStatus(ctx, current); err != nil {
				return err
			}
			changed = true
			return record(domain.ActivityEvent{
				Actor:    domain.SystemActor,
				Action:   domain.ActionReservationExpired,
				Severity: domain.SeverityWarning,
				Detail:   fmt.Sprintf("Reservation #%d was not confirmed before pickup at %s and has been cancelled", current.ID, current.PickupAt.Format(time.RFC3339)),
			})
		})
		if err != nil {
			logger.Error("Failed to expire reservation", "reservationID", r.ID, "error", err)
			errs = append(errs, fmt.Errorf("expire reservation %d: %w", r.ID, err))
			continue
		}
		if changed {
			expired++
		}
	}
	return expired, errors.Join(errs...)
}

// authorizeTransition lets owners cancel their own reservation before pickup;
// every other transition is a staff action.
func authorizeTransition(actor domain.Actor, res *domain.Reservation, target domain.ReservationStatus) error {
	if target != domain.ReservationStatusCancelled {
		return security.Authorize(actor, security.ActionTransitionReservation, security.Owned(res.UserID))
	}
	if err := security.Authorize(actor, security.ActionCancelReservation, security.Owned(res.UserID)); err != nil {
		return err
	}
	if !actor.Role.IsStaff() && res.Status.CanTransitionTo(target) && !res.Status.Editable() {
		return domain.NewForbiddenError("a reservation can only be cancelled by staff after pickup")
	}
	return nil
}

func statusChangedEvent(actor domain.Actor, res *domain.Reservation, from domain.ReservationStatus) domain.ActivityEvent {
	severity := domain.SeverityInfo
	switch res.Status {
	case domain.ReservationStatusCancelled:
		severity = domain.SeverityWarning
	case domain.ReservationStatusCompleted:
		severity = domain.SeveritySuccess
	}

	detail := fmt.Sprintf("Reservation #%d: %s -> %s", res.ID, from, res.Status)
	switch res.Status {
	case domain.ReservationStatusPickedUp:
		detail += telemetryDetail(res.PickupKm, res.PickupFuel)
	case domain.ReservationStatusReturned, domain.ReservationStatusCompleted:
		detail += telemetryDetail(res.ReturnKm, res.ReturnFuel)
	}
	return domain.ActivityEvent{
		Actor:    actor,
		Action:   domain.ActionReservationStatusChanged,
		Detail:   detail,
		Severity: severity,
	}
}

func telemetryDetail(km, fuel *int32) string {
	if km == nil || fuel == nil {
		return ""
	}
	return fmt.Sprintf(" (km %d, fuel %d%%)", *km, *fuel)
}

func requireBranches(ctx context.Context, q repository.Store, pickupID, returnID int64) error {
	if _, err := q.Branches().GetByID(ctx, pickupID); err != nil {
		return requireRef(err, "pickup_branch_id", "branch does not exist")
	}
	if returnID != pickupID {
		if _, err := q.Branches().GetByID(ctx, returnID); err != nil {
			return requireRef(err, "return_branch_id", "branch does not exist")
		}
	}
	return nil
}

func requireBookable(v *domain.Vehicle) error {
	if v.Bookable() {
		return nil
	}
	return domain.NewValidationError("VEHICLE_NOT_BOOKABLE", "the vehicle cannot be booked",
		map[string]string{"vehicle_id": fmt.Sprintf("vehicle is %s", v.Status)})
}

// rentalPrice is the explicit price when given, otherwise the vehicle's daily
// price times the started days.
func rentalPrice(v *domain.Vehicle, pickupAt, returnAt time.Time, explicit *int64) (int64, error) {
	if explicit != nil {
		return *explicit, nil
	}
	total, err := utils.CalculateRentalCost(pickupAt, returnAt, v.PricePerDayCents)
	if err != nil {
		return 0, domain.NewFieldError("return_at", err.Error())
	}
	return total, nil
}

// loadReservationDetail attaches the vehicle, the user and the damage reports.
func loadReservationDetail(ctx context.Context, q repository.Store, res *domain.Reservation) error {
	vehicle, err := q.Vehicles().GetByID(ctx, res.VehicleID)
	switch {
	case err == nil:
		res.Vehicle = vehicle
	case !domain.IsNotFound(err):
		return err
	}

	user, err := q.Users().GetByID(ctx, res.UserID)
	switch {
	case err == nil:
		res.User = user
	case !domain.IsNotFound(err):
		return err
	}

	reports, err := q.DamageReports().ListByReservation(ctx, res.ID)
	if err != nil {
		return err
	}
	res.DamageReports = reports
	res.DamageTotalCents = domain.SumDamageCosts(reports)
	return nil
}

package service

import (
	"context"
	"fmt"
	"strings"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
	"rentacar-backend/internal/security"
)

type VehicleInput struct {
	BranchID         int64                `json:"branch_id"`
	CategoryID       int64                `json:"category_id"`
	Make             string               `json:"make"`
	Model            string               `json:"model"`
	Registration     string               `json:"registration"`
	PricePerDayCents int64                `json:"price_per_day_cents"`
	Status           domain.VehicleStatus `json:"status"`
	ImageURL         string               `json:"image_url"`
	Year             *int32               `json:"year"`
	FuelType         string               `json:"fuel_type"`
	Transmission     string               `json:"transmission"`
	Seats            *int32               `json:"seats"`
}

func (in *VehicleInput) normalize() {
	in.Make = strings.TrimSpace(in.Make)
	in.Model = strings.TrimSpace(in.Model)
	in.Registration = strings.ToUpper(strings.TrimSpace(in.Registration))
	if in.Status == "" {
		in.Status = domain.VehicleStatusAvailable
	}
}

func (in VehicleInput) validate() error {
	fields := map[string]string{}
	if in.BranchID <= 0 {
		fields["branch_id"] = "branch is required"
	}
	if in.CategoryID <= 0 {
		fields["category_id"] = "category is required"
	}
	if in.Make == "" {
		fields["make"] = "make is required"
	}
	if in.Model == "" {
		fields["model"] = "model is required"
	}
	if in.Registration == "" {
		fields["registration"] = "registration is required"
	}
	if in.PricePerDayCents < 0 {
		fields["price_per_day_cents"] = "price must not be negative"
	}
	if !in.Status.IsValid() {
		fields["status"] = "status must be one of DOSTUPNO, U_NAJMU, SERVIS, NEAKTIVNO"
	}
	if in.Seats != nil && *in.Seats <= 0 {
		fields["seats"] = "seats must be positive"
	}
	if len(fields) > 0 {
		return domain.NewValidationError("VALIDATION_FAILED", "invalid vehicle", fields)
	}
	return nil
}

// publicVehicleStatuses are listed to everyone; decommissioned vehicles are
// staff only.
var publicVehicleStatuses = []domain.VehicleStatus{
	domain.VehicleStatusAvailable,
	domain.VehicleStatusRented,
	domain.VehicleStatusService,
}

type vehicleService struct {
	store    repository.Store
	activity *ActivityRecorder
}

func NewVehicleService(store repository.Store, activity *ActivityRecorder) VehicleService {
	return &vehicleService{store: store, activity: activity}
}

// ListVehicles lists the catalogue. actor is nil for anonymous callers;
// includeInactive only has an effect for staff.
func (s *vehicleService) ListVehicles(ctx context.Context, actor *domain.Actor, filter domain.VehicleFilter, includeInactive bool, page domain.PageRequest) (domain.Page[domain.Vehicle], error) {
	page = page.Normalize()
	staff := actor != nil && security.CanPerform(*actor, security.ActionViewInactiveVehicles, security.Resource{})
	if !includeInactive || !staff {
		if len(filter.Statuses) == 0 {
			filter.Statuses = publicVehicleStatuses
		} else {
			var visible []domain.VehicleStatus
			for _, st := range filter.Statuses {
				if st != domain.VehicleStatusInactive {
					visible = append(visible, st)
				}
			}
			if len(visible) == 0 {
				return domain.NewPage[domain.Vehicle](nil, 0, page), nil
			}
			filter.Statuses = visible
		}
	}

	items, total, err := s.store.Vehicles().List(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.Vehicle]{}, err
	}
	return domain.NewPage(items, total, page), nil
}

func (s *vehicleService) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	return s.store.Vehicles().GetByID(ctx, id)
}

func (s *vehicleService) CreateVehicle(ctx context.Context, actor domain.Actor, in VehicleInput) (*domain.Vehicle, error) {
	logger.EnterMethod("vehicleService.CreateVehicle", "actorID", actor.UserID, "registration", in.Registration)

	if err := security.Authorize(actor, security.ActionManageVehicles, security.Resource{}); err != nil {
		return nil, err
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	v := &domain.Vehicle{}
	err := s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		if err := applyVehicleInput(ctx, tx, v, in); err != nil {
			return err
		}
		if err := tx.Vehicles().Create(ctx, v); err != nil {
			return registrationTaken(err)
		}
		return record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionVehicleCreated,
			Severity: domain.SeveritySuccess,
			Detail:   fmt.Sprintf("Vehicle #%d added: %s (%s)", v.ID, v.DisplayName(), v.Registration),
		})
	})
	if err != nil {
		logger.ExitMethodWithError("vehicleService.CreateVehicle", err)
		return nil, err
	}

	logger.ExitMethod("vehicleService.CreateVehicle", "vehicleID", v.ID)
	return v, nil
}

func (s *vehicleService) UpdateVehicle(ctx context.Context, actor domain.Actor, id int64, in VehicleInput) (*domain.Vehicle, error) {
	if err := security.Authorize(actor, security.ActionManageVehicles, security.Resource{}); err != nil {
		return nil, err
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	var v *domain.Vehicle
	err := s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		var err error
		v, err = tx.Vehicles().LockByID(ctx, id)
		if err != nil {
			return err
		}
		from := v.Status
		if err := applyVehicleInput(ctx, tx, v, in); err != nil {
			return err
		}
		if err := tx.Vehicles().Update(ctx, v); err != nil {
			return registrationTaken(err)
		}

		detail := fmt.Sprintf("Vehicle #%d updated: %s (%s)", v.ID, v.DisplayName(), v.Registration)
		if from != v.Status {
			detail += fmt.Sprintf(", status %s -> %s", from, v.Status)
		}
		return record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionVehicleUpdated,
			Severity: domain.SeverityInfo,
			Detail:   detail,
		})
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteVehicle removes a vehicle that was never booked. Vehicles with
// reservation history are decommissioned with status NEAKTIVNO instead.
func (s *vehicleService) DeleteVehicle(ctx context.Context, actor domain.Actor, id int64) error {
	if err := security.Authorize(actor, security.ActionDeleteVehicle, security.Resource{}); err != nil {
		return err
	}

	return s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		v, err := tx.Vehicles().LockByID(ctx, id)
		if err != nil {
			return err
		}
		n, err := tx.Reservations().CountByVehicle(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.NewConflictError("VEHICLE_HAS_RESERVATIONS",
				fmt.Sprintf("vehicle has %d reservations; set its status to NEAKTIVNO instead", n))
		}
		if err := tx.Vehicles().Delete(ctx, id); err != nil {
			return err
		}
		return record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionVehicleDeleted,
			Severity: domain.SeverityWarning,
			Detail:   fmt.Sprintf("Vehicle #%d deleted: %s (%s)", v.ID, v.DisplayName(), v.Registration),
		})
	})
}

func (s *vehicleService) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	branches, err := s.store.Branches().List(ctx)
	if branches == nil && err == nil {
		branches = []domain.Branch{}
	}
	return branches, err
}

func (s *vehicleService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.store.Categories().List(ctx)
	if categories == nil && err == nil {
		categories = []domain.Category{}
	}
	return categories, err
}

// applyVehicleInput copies in onto v. A zero daily price falls back to the
// category price.
func applyVehicleInput(ctx context.Context, tx repository.Store, v *domain.Vehicle, in VehicleInput) error {
	if _, err := tx.Branches().GetByID(ctx, in.BranchID); err != nil {
		return requireRef(err, "branch_id", "branch does not exist")
	}
	category, err := tx.Categories().GetByID(ctx, in.CategoryID)
	if err != nil {
		return requireRef(err, "category_id", "category does not exist")
	}

	v.BranchID = in.BranchID
	v.CategoryID = in.CategoryID
	v.Make = in.Make
	v.Model = in.Model
	v.Registration = in.Registration
	v.PricePerDayCents = in.PricePerDayCents
	if v.PricePerDayCents == 0 {
		v.PricePerDayCents = category.PricePerDayCents
	}
	v.Status = in.Status
	v.ImageURL = strings.TrimSpace(in.ImageURL)
	v.Year = in.Year
	v.FuelType = strings.TrimSpace(in.FuelType)
	v.Transmission = strings.TrimSpace(in.Transmission)
	v.Seats = in.Seats
	return nil
}

func registrationTaken(err error) error {
	if e := domain.AsError(err); e.Kind == domain.ErrorKindConflict && e.Code == "DUPLICATE" {
		conflict := domain.NewConflictError("REGISTRATION_TAKEN", "a vehicle with this registration already exists")
		conflict.Fields = map[string]string{"registration": "registration is already in use"}
		return conflict
	}
	return err
}

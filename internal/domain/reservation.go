package domain

import (
	"fmt"
	"time"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "CEKA"
	ReservationStatusConfirmed ReservationStatus = "POTVRDJENA"
	ReservationStatusPickedUp  ReservationStatus = "PREUZETO"
	ReservationStatusReturned  ReservationStatus = "VRACENO"
	ReservationStatusCancelled ReservationStatus = "OTKAZANA"
	ReservationStatusCompleted ReservationStatus = "ZAVRSENA"
)

// reservationTransitions is the reservation lifecycle. Statuses with no
// outgoing edges are terminal.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending:   {ReservationStatusConfirmed, ReservationStatusCancelled},
	ReservationStatusConfirmed: {ReservationStatusPickedUp, ReservationStatusCompleted, ReservationStatusCancelled},
	ReservationStatusPickedUp:  {ReservationStatusReturned, ReservationStatusCompleted, ReservationStatusCancelled},
	ReservationStatusReturned:  {ReservationStatusCompleted, ReservationStatusCancelled},
	ReservationStatusCancelled: {},
	ReservationStatusCompleted: {},
}

// BlockingReservationStatuses hold the vehicle for their interval.
var BlockingReservationStatuses = []ReservationStatus{
	ReservationStatusPending,
	ReservationStatusConfirmed,
	ReservationStatusPickedUp,
}

func ParseReservationStatus(s string) (ReservationStatus, bool) {
	status := ReservationStatus(s)
	return status, status.IsValid()
}

func (s ReservationStatus) IsValid() bool {
	_, ok := reservationTransitions[s]
	return ok
}

func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	for _, t := range reservationTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s ReservationStatus) IsTerminal() bool {
	return s.IsValid() && len(reservationTransitions[s]) == 0
}

func (s ReservationStatus) IsBlocking() bool {
	for _, b := range BlockingReservationStatuses {
		if b == s {
			return true
		}
	}
	return false
}

// Editable reports whether dates, vehicle and branches may still change.
func (s ReservationStatus) Editable() bool {
	return s == ReservationStatusPending || s == ReservationStatusConfirmed
}

// Interval is a half-open time range [From, To).
type Interval struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (i Interval) Valid() bool {
	return i.From.Before(i.To)
}

// Overlaps uses half-open semantics: back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.From.Before(o.To) && o.From.Before(i.To)
}

func (i Interval) Duration() time.Duration {
	return i.To.Sub(i.From)
}

type Reservation struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"user_id"`
	VehicleID       int64             `json:"vehicle_id"`
	PickupBranchID  int64             `json:"pickup_branch_id"`
	ReturnBranchID  int64             `json:"return_branch_id"`
	PickupAt        time.Time         `json:"pickup_at"`
	ReturnAt        time.Time         `json:"return_at"`
	TotalPriceCents int64             `json:"total_price_cents"`
	PickupKm        *int32            `json:"pickup_km,omitempty"`
	ReturnKm        *int32            `json:"return_km,omitempty"`
	PickupFuel      *int32            `json:"pickup_fuel,omitempty"`
	ReturnFuel      *int32            `json:"return_fuel,omitempty"`
	Status          ReservationStatus `json:"status"`
	Notes           string            `json:"notes"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`

	// Populated on detail reads only.
	Vehicle          *Vehicle       `json:"vehicle,omitempty"`
	User             *User          `json:"user,omitempty"`
	DamageReports    []DamageReport `json:"damage_reports,omitempty"`
	DamageTotalCents int64          `json:"damage_total_cents,omitempty"`
}

func (r *Reservation) Interval() Interval {
	return Interval{From: r.PickupAt, To: r.ReturnAt}
}

// Telemetry is the odometer and fuel reading taken on a hand-over leg.
type Telemetry struct {
	Km   *int32 `json:"km,omitempty"`
	Fuel *int32 `json:"fuel,omitempty"`
}

func (t Telemetry) Present() bool {
	return t.Km != nil || t.Fuel != nil
}

func (t Telemetry) validate(required bool) error {
	fields := map[string]string{}
	if t.Km == nil {
		if required {
			fields["km"] = "odometer reading is required"
		}
	} else if *t.Km < 0 {
		fields["km"] = "odometer reading must be a non-negative integer"
	}
	if t.Fuel == nil {
		if required {
			fields["fuel"] = "fuel level is required"
		}
	} else if *t.Fuel < 0 || *t.Fuel > 100 {
		fields["fuel"] = "fuel level must be between 0 and 100"
	}
	if !required && t.Present() && (t.Km == nil || t.Fuel == nil) {
		if t.Km == nil {
			fields["km"] = "odometer reading is required with fuel level"
		} else {
			fields["fuel"] = "fuel level is required with odometer reading"
		}
	}
	if len(fields) > 0 {
		return NewValidationError("INVALID_TELEMETRY", "invalid odometer or fuel reading", fields)
	}
	return nil
}

// Transition moves r to target, recording the telemetry on the leg the
// transition belongs to. It is the only mutator of Status.
func (r *Reservation) Transition(target ReservationStatus, tel Telemetry) error {
	if !target.IsValid() {
		return NewFieldError("status", fmt.Sprintf("unknown reservation status %q", target))
	}
	if !r.Status.CanTransitionTo(target) {
		err := NewConflictError("INVALID_TRANSITION",
			fmt.Sprintf("reservation cannot move from %s to %s", r.Status, target))
		err.CurrentStatus = r.Status
		return err
	}

	switch {
	case target == ReservationStatusPickedUp:
		if err := tel.validate(true); err != nil {
			return err
		}
		r.PickupKm, r.PickupFuel = tel.Km, tel.Fuel
	case target == ReservationStatusReturned,
		target == ReservationStatusCompleted && r.Status == ReservationStatusPickedUp:
		if err := r.recordReturn(tel, true); err != nil {
			return err
		}
	case target == ReservationStatusCompleted && tel.Present():
		if err := r.recordReturn(tel, false); err != nil {
			return err
		}
	}

	r.Status = target
	return nil
}

func (r *Reservation) recordReturn(tel Telemetry, required bool) error {
	if err := tel.validate(required); err != nil {
		return err
	}
	if r.PickupKm != nil && tel.Km != nil && *tel.Km < *r.PickupKm {
		return NewFieldError("km", fmt.Sprintf("return odometer %d is below pickup odometer %d", *tel.Km, *r.PickupKm))
	}
	r.ReturnKm, r.ReturnFuel = tel.Km, tel.Fuel
	return nil
}

// AcceptsDamage reports whether damage may be recorded together with a
// transition to s.
func (s ReservationStatus) AcceptsDamage() bool {
	return s == ReservationStatusReturned || s == ReservationStatusCompleted
}

type ReservationFilter struct {
	UserID    *int64
	VehicleID *int64
	Status    ReservationStatus
}

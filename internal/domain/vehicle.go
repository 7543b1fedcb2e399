package domain

import "time"

type VehicleStatus string

const (
	VehicleStatusAvailable VehicleStatus = "DOSTUPNO"
	VehicleStatusRented    VehicleStatus = "U_NAJMU"
	VehicleStatusService   VehicleStatus = "SERVIS"
	VehicleStatusInactive  VehicleStatus = "NEAKTIVNO"
)

func (s VehicleStatus) IsValid() bool {
	switch s {
	case VehicleStatusAvailable, VehicleStatusRented, VehicleStatusService, VehicleStatusInactive:
		return true
	}
	return false
}

type CategoryName string

const (
	CategoryEconomy CategoryName = "EKONOMI"
	CategoryCompact CategoryName = "KOMPAKT"
	CategorySUV     CategoryName = "SUV"
	CategoryVan     CategoryName = "KOMBI"
	CategoryLuxury  CategoryName = "LUKSUZ"
)

type Branch struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
}

type Category struct {
	ID               int64        `json:"id"`
	Name             CategoryName `json:"name"`
	PricePerDayCents int64        `json:"price_per_day_cents"`
}

type Vehicle struct {
	ID               int64         `json:"id"`
	BranchID         int64         `json:"branch_id"`
	CategoryID       int64         `json:"category_id"`
	Make             string        `json:"make"`
	Model            string        `json:"model"`
	Registration     string        `json:"registration"`
	PricePerDayCents int64         `json:"price_per_day_cents"`
	Status           VehicleStatus `json:"status"`
	ImageURL         string        `json:"image_url,omitempty"`
	Year             *int32        `json:"year,omitempty"`
	FuelType         string        `json:"fuel_type,omitempty"`
	Transmission     string        `json:"transmission,omitempty"`
	Seats            *int32        `json:"seats,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Bookable reports whether new reservations may be placed on the vehicle.
// Vehicles in service or decommissioned are excluded; otherwise availability
// is decided by overlapping reservations, not by Status.
func (v *Vehicle) Bookable() bool {
	return v.Status != VehicleStatusInactive && v.Status != VehicleStatusService
}

func (v *Vehicle) DisplayName() string {
	return v.Make + " " + v.Model
}

type VehicleFilter struct {
	Statuses   []VehicleStatus
	BranchID   *int64
	CategoryID *int64
}

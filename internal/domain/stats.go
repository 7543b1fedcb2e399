package domain

type Stats struct {
	TotalVehicles      int64                   `json:"total_vehicles"`
	TotalUsers         int64                   `json:"total_users"`
	TotalReservations  int64                   `json:"total_reservations"`
	RevenueCents       int64                   `json:"revenue_cents"`
	DamageChargesCents int64                   `json:"damage_charges_cents"`
	VehiclesByStatus   map[VehicleStatus]int64 `json:"vehicles_by_status"`
	LatestReservations []Reservation           `json:"latest_reservations"`
}

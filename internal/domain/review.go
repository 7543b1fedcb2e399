package domain

import (
	"time"
	"unicode/utf8"
)

type Review struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	VehicleID     int64     `json:"vehicle_id"`
	ReservationID *int64    `json:"reservation_id,omitempty"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
	UserName      string    `json:"user_name,omitempty"`
}

type ReviewInput struct {
	VehicleID     int64  `json:"vehicle_id"`
	ReservationID *int64 `json:"reservation_id"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
}

func (in ReviewInput) Validate() error {
	fields := map[string]string{}
	if in.VehicleID <= 0 {
		fields["vehicle_id"] = "vehicle is required"
	}
	if in.Rating < 1 || in.Rating > 5 {
		fields["rating"] = "rating must be between 1 and 5"
	}
	switch {
	case in.Comment == "":
		fields["comment"] = "comment is required"
	case utf8.RuneCountInString(in.Comment) > 1000:
		fields["comment"] = "comment must be at most 1000 characters"
	}
	if len(fields) > 0 {
		return NewValidationError("INVALID_REVIEW", "invalid review", fields)
	}
	return nil
}

type ReviewFilter struct {
	VehicleID *int64
}

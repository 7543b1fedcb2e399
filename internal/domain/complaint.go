package domain

import (
	"time"
	"unicode/utf8"
)

type ComplaintStatus string

const (
	ComplaintStatusSubmitted  ComplaintStatus = "PODNETA"
	ComplaintStatusInProgress ComplaintStatus = "U_OBRADI"
	ComplaintStatusResolved   ComplaintStatus = "RESENA"
	ComplaintStatusRejected   ComplaintStatus = "ODBIJENA"
)

const (
	maxComplaintTitle      = 255
	maxComplaintBody       = 2000
	maxComplaintResolution = 2000
)

type Complaint struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	ReservationID *int64          `json:"reservation_id,omitempty"`
	Title         string          `json:"title"`
	Body          string          `json:"body"`
	Status        ComplaintStatus `json:"status"`
	Resolution    string          `json:"resolution,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	UserName      string          `json:"user_name,omitempty"`
}

type ComplaintInput struct {
	ReservationID *int64 `json:"reservation_id"`
	Title         string `json:"title"`
	Body          string `json:"body"`
}

func (in ComplaintInput) Validate() error {
	fields := map[string]string{}
	switch {
	case in.Title == "":
		fields["title"] = "title is required"
	case utf8.RuneCountInString(in.Title) > maxComplaintTitle:
		fields["title"] = "title must be at most 255 characters"
	}
	switch {
	case in.Body == "":
		fields["body"] = "complaint text is required"
	case utf8.RuneCountInString(in.Body) > maxComplaintBody:
		fields["body"] = "complaint text must be at most 2000 characters"
	}
	if len(fields) > 0 {
		return NewValidationError("INVALID_COMPLAINT", "invalid complaint", fields)
	}
	return nil
}

type ComplaintResolution struct {
	Status     ComplaintStatus `json:"status"`
	Resolution string          `json:"resolution"`
}

func (in ComplaintResolution) Validate() error {
	fields := map[string]string{}
	switch in.Status {
	case ComplaintStatusInProgress, ComplaintStatusResolved, ComplaintStatusRejected:
	default:
		fields["status"] = "status must be one of U_OBRADI, RESENA, ODBIJENA"
	}
	if utf8.RuneCountInString(in.Resolution) > maxComplaintResolution {
		fields["resolution"] = "resolution must be at most 2000 characters"
	}
	if len(fields) > 0 {
		return NewValidationError("INVALID_COMPLAINT", "invalid complaint resolution", fields)
	}
	return nil
}

type ComplaintFilter struct {
	UserID *int64
	Status ComplaintStatus
}

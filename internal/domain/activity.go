package domain

import "time"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Activity action codes.
const (
	ActionReservationCreated       = "RESERVATION_CREATED"
	ActionReservationUpdated       = "RESERVATION_UPDATED"
	ActionReservationStatusChanged = "RESERVATION_STATUS_CHANGED"
	ActionReservationExpired       = "RESERVATION_EXPIRED"
	ActionDamageReportCreated      = "DAMAGE_REPORT_CREATED"
	ActionPaymentSuccess           = "PAYMENT_SUCCESS"
	ActionComplaintSubmitted       = "COMPLAINT_SUBMITTED"
	ActionComplaintResolved        = "COMPLAINT_RESOLVED"
	ActionDocumentUploaded         = "DOCUMENT_UPLOADED"
	ActionDocumentApproved         = "DOCUMENT_APPROVED"
	ActionDocumentRejected         = "DOCUMENT_REJECTED"
	ActionReviewSubmitted          = "REVIEW_SUBMITTED"
	ActionUserRegistered           = "USER_REGISTERED"
	ActionUserCreated              = "USER_CREATED"
	ActionUserUpdated              = "USER_UPDATED"
	ActionUserDeleted              = "USER_DELETED"
	ActionVehicleCreated           = "VEHICLE_CREATED"
	ActionVehicleUpdated           = "VEHICLE_UPDATED"
	ActionVehicleDeleted           = "VEHICLE_DELETED"
)

// ActivityEvent is what a core operation emits when it finishes.
type ActivityEvent struct {
	Actor    Actor
	Action   string
	Detail   string
	Severity Severity
}

// ActivityLogEntry is an append-only audit row.
type ActivityLogEntry struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	UserName  string    `json:"user_name,omitempty"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

package security

import "rentacar-backend/internal/domain"

type Action string

const (
	ActionCreateReservation     Action = "reservation:create"
	ActionBookOnBehalf          Action = "reservation:book_on_behalf"
	ActionSetExplicitPrice      Action = "reservation:set_price"
	ActionViewReservation       Action = "reservation:view"
	ActionListAllReservations   Action = "reservation:list_all"
	ActionEditReservation       Action = "reservation:edit"
	ActionCancelReservation     Action = "reservation:cancel"
	ActionTransitionReservation Action = "reservation:transition"
	ActionExportReservations    Action = "reservation:export"

	ActionRecordPayment Action = "payment:record"
	ActionViewPayment   Action = "payment:view"
	ActionRecordDamage  Action = "damage:record"
	ActionViewDamage    Action = "damage:view"

	ActionSubmitComplaint   Action = "complaint:submit"
	ActionListAllComplaints Action = "complaint:list_all"
	ActionResolveComplaint  Action = "complaint:resolve"

	ActionUploadDocument  Action = "document:upload"
	ActionViewDocument    Action = "document:view"
	ActionDeleteDocument  Action = "document:delete"
	ActionReviewDocuments Action = "document:review"

	ActionSubmitReview Action = "review:submit"

	ActionManageVehicles       Action = "vehicle:manage"
	ActionDeleteVehicle        Action = "vehicle:delete"
	ActionViewInactiveVehicles Action = "vehicle:view_inactive"

	ActionSearchUsers Action = "user:search"
	ActionManageUsers Action = "user:manage"
	ActionViewStats   Action = "stats:view"
	ActionViewLogs    Action = "logs:view"
)

type rule int

const (
	ruleAuthenticated rule = iota
	ruleOwner
	ruleOwnerOrStaff
	ruleStaff
	ruleAdmin
)

var policy = map[Action]rule{
	ActionCreateReservation:     ruleAuthenticated,
	ActionBookOnBehalf:          ruleStaff,
	ActionSetExplicitPrice:      ruleStaff,
	ActionViewReservation:       ruleOwnerOrStaff,
	ActionListAllReservations:   ruleStaff,
	ActionEditReservation:       ruleOwnerOrStaff,
	ActionCancelReservation:     ruleOwnerOrStaff,
	ActionTransitionReservation: ruleStaff,
	ActionExportReservations:    ruleAdmin,

	ActionRecordPayment: ruleOwnerOrStaff,
	ActionViewPayment:   ruleOwnerOrStaff,
	ActionRecordDamage:  ruleStaff,
	ActionViewDamage:    ruleStaff,

	ActionSubmitComplaint:   ruleAuthenticated,
	ActionListAllComplaints: ruleStaff,
	ActionResolveComplaint:  ruleStaff,

	ActionUploadDocument:  ruleAuthenticated,
	ActionViewDocument:    ruleOwnerOrStaff,
	ActionDeleteDocument:  ruleOwner,
	ActionReviewDocuments: ruleStaff,

	ActionSubmitReview: ruleAuthenticated,

	ActionManageVehicles:       ruleStaff,
	ActionDeleteVehicle:        ruleAdmin,
	ActionViewInactiveVehicles: ruleStaff,

	ActionSearchUsers: ruleStaff,
	ActionManageUsers: ruleAdmin,
	ActionViewStats:   ruleAdmin,
	ActionViewLogs:    ruleAdmin,
}

// Resource describes what an action is applied to. OwnerID is the user the
// resource belongs to, or 0 when ownership does not apply.
type Resource struct {
	OwnerID int64
}

// Owned is a Resource belonging to userID.
func Owned(userID int64) Resource {
	return Resource{OwnerID: userID}
}

// CanPerform is the single authorization decision point. Unknown actions
// are denied.
func CanPerform(actor domain.Actor, action Action, resource Resource) bool {
	if !actor.Role.IsValid() {
		return false
	}
	r, ok := policy[action]
	if !ok {
		return false
	}

	isOwner := resource.OwnerID != 0 && resource.OwnerID == actor.UserID
	switch r {
	case ruleAuthenticated:
		return true
	case ruleOwner:
		return isOwner
	case ruleOwnerOrStaff:
		return isOwner || actor.Role.IsStaff()
	case ruleStaff:
		return actor.Role.IsStaff()
	case ruleAdmin:
		return actor.Role == domain.UserRoleAdmin
	}
	return false
}

// Authorize is CanPerform returning a forbidden error on denial.
func Authorize(actor domain.Actor, action Action, resource Resource) error {
	if CanPerform(actor, action, resource) {
		return nil
	}
	return domain.NewForbiddenError("you are not allowed to perform this action")
}

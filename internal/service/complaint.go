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

type complaintService struct {
	store    repository.Store
	activity *ActivityRecorder
}

func NewComplaintService(store repository.Store, activity *ActivityRecorder) ComplaintService {
	return &complaintService{store: store, activity: activity}
}

func (s *complaintService) SubmitComplaint(ctx context.Context, actor domain.Actor, in domain.ComplaintInput) (*domain.Complaint, error) {
	logger.EnterMethod("complaintService.SubmitComplaint", "actorID", actor.UserID)

	in.Title, in.Body = strings.TrimSpace(in.Title), strings.TrimSpace(in.Body)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := security.Authorize(actor, security.ActionSubmitComplaint, security.Owned(actor.UserID)); err != nil {
		return nil, err
	}

	var c *domain.Complaint
	err := s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		if in.ReservationID != nil {
			res, err := tx.Reservations().GetByID(ctx, *in.ReservationID)
			if err != nil {
				return requireRef(err, "reservation_id", "reservation does not exist")
			}
			if res.UserID != actor.UserID {
				return domain.NewFieldError("reservation_id", "reservation does not belong to you")
			}
		}

		c = &domain.Complaint{
			UserID:        actor.UserID,
			ReservationID: in.ReservationID,
			Title:         in.Title,
			Body:          in.Body,
			Status:        domain.ComplaintStatusSubmitted,
		}
		if err := tx.Complaints().Create(ctx, c); err != nil {
			return err
		}
		return record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionComplaintSubmitted,
			Severity: domain.SeverityWarning,
			Detail:   fmt.Sprintf("Complaint #%d submitted: %s", c.ID, c.Title),
		})
	})
	if err != nil {
		logger.ExitMethodWithError("complaintService.SubmitComplaint", err)
		return nil, err
	}

	logger.ExitMethod("complaintService.SubmitComplaint", "complaintID", c.ID)
	return c, nil
}

// ListComplaints shows staff every complaint and clients their own.
func (s *complaintService) ListComplaints(ctx context.Context, actor domain.Actor, filter domain.ComplaintFilter, page domain.PageRequest) (domain.Page[domain.Complaint], error) {
	if !security.CanPerform(actor, security.ActionListAllComplaints, security.Resource{}) {
		uid := actor.UserID
		filter.UserID = &uid
	}
	page = page.Normalize()
	items, total, err := s.store.Complaints().List(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.Complaint]{}, err
	}
	return domain.NewPage(items, total, page), nil
}

func (s *complaintService) ResolveComplaint(ctx context.Context, actor domain.Actor, id int64, in domain.ComplaintResolution) (*domain.Complaint, error) {
	logger.EnterMethod("complaintService.ResolveComplaint", "actorID", actor.UserID, "complaintID", id)

	if err := security.Authorize(actor, security.ActionResolveComplaint, security.Resource{}); err != nil {
		return nil, err
	}
	in.Resolution = strings.TrimSpace(in.Resolution)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var c *domain.Complaint
	err := s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		var err error
		c, err = tx.Complaints().GetByID(ctx, id)
		if err != nil {
			return err
		}
		c.Status = in.Status
		if in.Resolution != "" {
			c.Resolution = in.Resolution
		}
		if err := tx.Complaints().UpdateResolution(ctx, c); err != nil {
			return err
		}

		severity := domain.SeverityInfo
		if c.Status == domain.ComplaintStatusResolved {
			severity = domain.SeveritySuccess
		}
		return record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionComplaintResolved,
			Severity: severity,
			Detail:   fmt.Sprintf("Complaint #%d set to %s", c.ID, c.Status),
		})
	})
	if err != nil {
		logger.ExitMethodWithError("complaintService.ResolveComplaint", err, "complaintID", id)
		return nil, err
	}

	logger.ExitMethod("complaintService.ResolveComplaint", "complaintID", id, "status", c.Status)
	return c, nil
}

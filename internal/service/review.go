package service

import (
	"context"
	"fmt"
	"strings"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository"
	"rentacar-backend/internal/security"
)

type reviewService struct {
	store    repository.Store
	activity *ActivityRecorder
}

func NewReviewService(store repository.Store, activity *ActivityRecorder) ReviewService {
	return &reviewService{store: store, activity: activity}
}

func (s *reviewService) SubmitReview(ctx context.Context, actor domain.Actor, in domain.ReviewInput) (*domain.Review, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := security.Authorize(actor, security.ActionSubmitReview, security.Owned(actor.UserID)); err != nil {
		return nil, err
	}

	var review *domain.Review
	err := s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		vehicle, err := tx.Vehicles().GetByID(ctx, in.VehicleID)
		if err != nil {
			return requireRef(err, "vehicle_id", "vehicle does not exist")
		}
		if in.ReservationID != nil {
			res, err := tx.Reservations().GetByID(ctx, *in.ReservationID)
			if err != nil {
				return requireRef(err, "reservation_id", "reservation does not exist")
			}
			if res.UserID != actor.UserID || res.VehicleID != vehicle.ID {
				return domain.NewFieldError("reservation_id", "reservation does not match the reviewed vehicle")
			}
		}

		review = &domain.Review{
			UserID:        actor.UserID,
			VehicleID:     vehicle.ID,
			ReservationID: in.ReservationID,
			Rating:        in.Rating,
			Comment:       in.Comment,
		}
		if err := tx.Reviews().Create(ctx, review); err != nil {
			return err
		}
		return record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionReviewSubmitted,
			Severity: domain.SeverityInfo,
			Detail:   fmt.Sprintf("Review %d/5 for %s (%s)", review.Rating, vehicle.DisplayName(), vehicle.Registration),
		})
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) ListReviews(ctx context.Context, filter domain.ReviewFilter, page domain.PageRequest) (domain.Page[domain.Review], error) {
	page = page.Normalize()
	items, total, err := s.store.Reviews().List(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.Review]{}, err
	}
	return domain.NewPage(items, total, page), nil
}

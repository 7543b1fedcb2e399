package service

import (
	"context"
	"fmt"
	"strings"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
	"rentacar-backend/internal/security"
	"rentacar-backend/internal/utils"
)

type PaymentInput struct {
	ReservationID int64  `json:"reservation_id"`
	AmountCents   int64  `json:"amount_cents"`
	Method        string `json:"method"`
}

func (in PaymentInput) validate() error {
	fields := map[string]string{}
	if in.ReservationID <= 0 {
		fields["reservation_id"] = "reservation is required"
	}
	if in.AmountCents <= 0 {
		fields["amount_cents"] = "amount must be greater than zero"
	}
	if strings.TrimSpace(in.Method) == "" {
		fields["method"] = "payment method is required"
	}
	if len(fields) > 0 {
		return domain.NewValidationError("INVALID_PAYMENT", "invalid payment", fields)
	}
	return nil
}

type paymentService struct {
	store    repository.Store
	activity *ActivityRecorder
	clock    Clock
}

func NewPaymentService(store repository.Store, activity *ActivityRecorder, clock Clock) PaymentService {
	return &paymentService{store: store, activity: activity, clock: clock}
}

// RecordPayment stores a settled payment. A pending reservation is confirmed
// in the same transaction.
func (s *paymentService) RecordPayment(ctx context.Context, actor domain.Actor, in PaymentInput) (*domain.Payment, *domain.Reservation, error) {
	logger.EnterMethod("paymentService.RecordPayment", "actorID", actor.UserID, "reservationID", in.ReservationID)

	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	var payment *domain.Payment
	var res *domain.Reservation
	err := s.activity.InTx(ctx, s.store, serializable, func(tx repository.Store, record RecordFunc) error {
		current, err := tx.Reservations().GetByID(ctx, in.ReservationID)
		if err != nil {
			return requireRef(err, "reservation_id", "reservation does not exist")
		}
		if err := security.Authorize(actor, security.ActionRecordPayment, security.Owned(current.UserID)); err != nil {
			return err
		}
		if current.Status == domain.ReservationStatusCancelled {
			e := domain.NewConflictError("RESERVATION_CANCELLED", "a cancelled reservation cannot be paid")
			e.CurrentStatus = current.Status
			return e
		}

		paidAt := s.clock.now()
		payment = &domain.Payment{
			ReservationID: current.ID,
			AmountCents:   in.AmountCents,
			Method:        strings.TrimSpace(in.Method),
			Status:        domain.PaymentStatusPaid,
			PaidAt:        &paidAt,
		}
		if err := tx.Payments().Create(ctx, payment); err != nil {
			return err
		}
		if err := record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionPaymentSuccess,
			Severity: domain.SeveritySuccess,
			Detail: fmt.Sprintf("Payment of %s (%s) recorded for reservation #%d",
				utils.FormatCents(payment.AmountCents), payment.Method, current.ID),
		}); err != nil {
			return err
		}

		if current.Status == domain.ReservationStatusPending {
			from := current.Status
			if err := current.Transition(domain.ReservationStatusConfirmed, domain.Telemetry{}); err != nil {
				return err
			}
			if err := tx.Reservations().UpdateStatus(ctx, current); err != nil {
				return err
			}
			if err := record(statusChangedEvent(actor, current, from)); err != nil {
				return err
			}
		}
		res = current
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.RecordPayment", err, "reservationID", in.ReservationID)
		return nil, nil, err
	}

	logger.ExitMethod("paymentService.RecordPayment", "paymentID", payment.ID, "status", res.Status)
	return payment, res, nil
}

func (s *paymentService) GetPayment(ctx context.Context, actor domain.Actor, id int64) (*domain.Payment, error) {
	payment, err := s.store.Payments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.store.Reservations().GetByID(ctx, payment.ReservationID)
	if err != nil {
		return nil, err
	}
	if err := security.Authorize(actor, security.ActionViewPayment, security.Owned(res.UserID)); err != nil {
		return nil, err
	}
	return payment, nil
}

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

type damageService struct {
	store    repository.Store
	activity *ActivityRecorder
}

func NewDamageService(store repository.Store, activity *ActivityRecorder) DamageService {
	return &damageService{store: store, activity: activity}
}

// ReportDamage attaches a damage report to a returned or completed
// reservation.
func (s *damageService) ReportDamage(ctx context.Context, actor domain.Actor, reservationID int64, in domain.DamageInput) (*domain.DamageReport, error) {
	logger.EnterMethod("damageService.ReportDamage", "actorID", actor.UserID, "reservationID", reservationID)

	if err := security.Authorize(actor, security.ActionRecordDamage, security.Resource{}); err != nil {
		return nil, err
	}
	if reservationID <= 0 {
		return nil, domain.NewFieldError("reservation_id", "reservation is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var report *domain.DamageReport
	err := s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		res, err := tx.Reservations().GetByID(ctx, reservationID)
		if err != nil {
			return requireRef(err, "reservation_id", "reservation does not exist")
		}
		if !res.Status.AcceptsDamage() {
			e := domain.NewConflictError("DAMAGE_NOT_ALLOWED",
				fmt.Sprintf("damage cannot be reported for a reservation in status %s", res.Status))
			e.CurrentStatus = res.Status
			return e
		}

		report, err = createDamageReport(ctx, tx, res.ID, in)
		if err != nil {
			return err
		}
		return record(damageEvent(actor, report))
	})
	if err != nil {
		logger.ExitMethodWithError("damageService.ReportDamage", err, "reservationID", reservationID)
		return nil, err
	}

	logger.ExitMethod("damageService.ReportDamage", "reportID", report.ID)
	return report, nil
}

// ListDamage returns the reports of a reservation and their total cost.
func (s *damageService) ListDamage(ctx context.Context, actor domain.Actor, reservationID int64) ([]domain.DamageReport, int64, error) {
	res, err := s.store.Reservations().GetByID(ctx, reservationID)
	if err != nil {
		return nil, 0, err
	}
	if err := security.Authorize(actor, security.ActionViewDamage, security.Owned(res.UserID)); err != nil {
		return nil, 0, err
	}
	reports, err := s.store.DamageReports().ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, 0, err
	}
	if reports == nil {
		reports = []domain.DamageReport{}
	}
	return reports, domain.SumDamageCosts(reports), nil
}

func createDamageReport(ctx context.Context, tx repository.Store, reservationID int64, in domain.DamageInput) (*domain.DamageReport, error) {
	report := &domain.DamageReport{
		ReservationID: reservationID,
		Description:   strings.TrimSpace(in.Description),
		CostCents:     in.CostCents,
	}
	if err := tx.DamageReports().Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func damageEvent(actor domain.Actor, report *domain.DamageReport) domain.ActivityEvent {
	return domain.ActivityEvent{
		Actor:    actor,
		Action:   domain.ActionDamageReportCreated,
		Severity: domain.SeverityError,
		Detail: fmt.Sprintf("Damage reported on reservation #%d: %s, additional cost %s",
			report.ReservationID, report.Description, utils.FormatCents(report.CostCents)),
	}
}

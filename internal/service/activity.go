package service

import (
	"context"
	"database/sql"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
	"rentacar-backend/internal/security"
)

// ActivityPublisher receives activity entries after their transaction has
// committed. Delivery is best effort.
type ActivityPublisher interface {
	Publish(entry domain.ActivityLogEntry)
}

// RecordFunc appends an activity entry inside the running transaction.
type RecordFunc func(ev domain.ActivityEvent) error

// ActivityRecorder is the single writer of the activity log.
type ActivityRecorder struct {
	publisher ActivityPublisher
	clock     Clock
}

// NewActivityRecorder returns a recorder; publisher may be nil.
func NewActivityRecorder(publisher ActivityPublisher, clock Clock) *ActivityRecorder {
	return &ActivityRecorder{publisher: publisher, clock: clock}
}

// Record appends ev to the activity log through tx, so the entry commits or
// rolls back together with the business change.
func (r *ActivityRecorder) Record(ctx context.Context, tx repository.Store, ev domain.ActivityEvent) (*domain.ActivityLogEntry, error) {
	severity := ev.Severity
	if severity == "" {
		severity = domain.SeverityInfo
	}
	entry := &domain.ActivityLogEntry{
		UserID:    ev.Actor.ActivityUserID(),
		Action:    ev.Action,
		Detail:    ev.Detail,
		Severity:  severity,
		CreatedAt: r.clock.now(),
	}
	if err := tx.Activities().Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Publish forwards committed entries to the live feed.
func (r *ActivityRecorder) Publish(entries ...domain.ActivityLogEntry) {
	if r.publisher == nil {
		return
	}
	for _, e := range entries {
		r.publisher.Publish(e)
	}
}

// InTx runs fn in a transaction and publishes the entries fn recorded once
// the transaction has committed.
func (r *ActivityRecorder) InTx(ctx context.Context, store repository.Store, opts *sql.TxOptions, fn func(tx repository.Store, record RecordFunc) error) error {
	var entries []domain.ActivityLogEntry
	err := store.WithTx(ctx, opts, func(tx repository.Store) error {
		entries = entries[:0]
		return fn(tx, func(ev domain.ActivityEvent) error {
			e, err := r.Record(ctx, tx, ev)
			if err != nil {
				return err
			}
			entries = append(entries, *e)
			return nil
		})
	})
	if err != nil {
		return err
	}
	r.Publish(entries...)
	return nil
}

type activityService struct {
	store repository.Store
}

func NewActivityService(store repository.Store) ActivityService {
	return &activityService{store: store}
}

func (s *activityService) ListActivity(ctx context.Context, actor domain.Actor, page domain.PageRequest) (domain.Page[domain.ActivityLogEntry], error) {
	if err := security.Authorize(actor, security.ActionViewLogs, security.Resource{}); err != nil {
		return domain.Page[domain.ActivityLogEntry]{}, err
	}
	page = page.Normalize()
	entries, total, err := s.store.Activities().List(ctx, page)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list activity log", "error", err)
		return domain.Page[domain.ActivityLogEntry]{}, err
	}
	return domain.NewPage(entries, total, page), nil
}

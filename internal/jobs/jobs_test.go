package jobs

import (
	"context"
	"testing"
	"time"

	"rentacar-backend/internal/config"
	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository/memory"
	"rentacar-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobsFixture struct {
	ctx    context.Context
	store  *memory.Store
	now    time.Time
	runner *JobRunner
	branch domain.Branch
	cat    domain.Category
	user   *domain.User
}

func newJobsFixture(t *testing.T) *jobsFixture {
	t.Helper()
	f := &jobsFixture{
		ctx:   context.Background(),
		store: memory.NewStore(),
		now:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	recorder := service.NewActivityRecorder(nil, clock)
	reservations := service.NewReservationService(f.store, service.NewAvailabilityChecker(f.store), recorder, clock)

	cfg := &config.Config{Reservation: config.ReservationConfig{PendingGraceMinutes: 60}}
	f.runner = NewJobRunner(f.store, &Services{Reservation: reservations}, cfg)

	f.branch = f.store.AddBranch(domain.Branch{Name: "Centar", Address: "Knez Mihailova 1", City: "Beograd"})
	f.cat = f.store.AddCategory(domain.Category{Name: domain.CategoryCompact, PricePerDayCents: 4500})
	f.user = &domain.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x", Role: domain.UserRoleClient}
	require.NoError(t, f.store.Users().Create(f.ctx, f.user))
	return f
}

func (f *jobsFixture) vehicle(t *testing.T, registration string, status domain.VehicleStatus) *domain.Vehicle {
	t.Helper()
	v := &domain.Vehicle{
		BranchID:         f.branch.ID,
		CategoryID:       f.cat.ID,
		Make:             "Skoda",
		Model:            "Fabia",
		Registration:     registration,
		PricePerDayCents: 4500,
		Status:           status,
	}
	require.NoError(t, f.store.Vehicles().Create(f.ctx, v))
	return v
}

func (f *jobsFixture) reservation(t *testing.T, v *domain.Vehicle, pickup time.Time, status domain.ReservationStatus) *domain.Reservation {
	t.Helper()
	r := &domain.Reservation{
		UserID:          f.user.ID,
		VehicleID:       v.ID,
		PickupBranchID:  f.branch.ID,
		ReturnBranchID:  f.branch.ID,
		PickupAt:        pickup,
		ReturnAt:        pickup.Add(48 * time.Hour),
		TotalPriceCents: 9000,
		Status:          status,
	}
	require.NoError(t, f.store.Reservations().Create(f.ctx, r))
	return r
}

func (f *jobsFixture) status(t *testing.T, id int64) domain.ReservationStatus {
	t.Helper()
	r, err := f.store.Reservations().GetByID(f.ctx, id)
	require.NoError(t, err)
	return r.Status
}

func TestExpireStaleReservations(t *testing.T) {
	f := newJobsFixture(t)
	v := f.vehicle(t, "BG-100-AA", domain.VehicleStatusAvailable)

	stale := f.reservation(t, v, f.now.Add(-2*time.Hour), domain.ReservationStatusPending)
	withinGrace := f.reservation(t, v, f.now.Add(-30*time.Minute), domain.ReservationStatusPending)
	confirmed := f.reservation(t, v, f.now.Add(-3*time.Hour), domain.ReservationStatusConfirmed)

	f.runner.ExpireStaleReservations()

	assert.Equal(t, domain.ReservationStatusCancelled, f.status(t, stale.ID))
	assert.Equal(t, domain.ReservationStatusPending, f.status(t, withinGrace.ID))
	assert.Equal(t, domain.ReservationStatusConfirmed, f.status(t, confirmed.ID))

	entries, _, err := f.store.Activities().List(f.ctx, domain.PageRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionReservationExpired, entries[0].Action)
	assert.Nil(t, entries[0].UserID)

	// A second run finds nothing left to expire.
	f.runner.ExpireStaleReservations()
	entries, _, err = f.store.Activities().List(f.ctx, domain.PageRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSyncVehicleStatuses(t *testing.T) {
	f := newJobsFixture(t)
	out := f.vehicle(t, "BG-100-AA", domain.VehicleStatusAvailable)
	back := f.vehicle(t, "BG-200-BB", domain.VehicleStatusRented)
	workshop := f.vehicle(t, "BG-300-CC", domain.VehicleStatusService)

	f.reservation(t, out, f.now.Add(-time.Hour), domain.ReservationStatusPickedUp)
	f.reservation(t, workshop, f.now.Add(-time.Hour), domain.ReservationStatusPickedUp)

	f.runner.SyncVehicleStatuses()

	for id, want := range map[int64]domain.VehicleStatus{
		out.ID:      domain.VehicleStatusRented,
		back.ID:     domain.VehicleStatusAvailable,
		workshop.ID: domain.VehicleStatusService,
	} {
		v, err := f.store.Vehicles().GetByID(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, v.Status, "vehicle %d", id)
	}
}

func TestRunWithRecovery(t *testing.T) {
	runner := NewJobRunner(memory.NewStore(), &Services{}, &config.Config{})

	assert.NotPanics(t, func() {
		runner.ExpireStaleReservations()
	})

	called := false
	runner.runWithRecovery("noop", func(ctx context.Context) {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		called = true
	})
	assert.True(t, called)
}

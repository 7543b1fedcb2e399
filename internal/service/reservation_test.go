package service_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReservationService_CreateReservation(t *testing.T) {
	t.Run("Two full days at 50 EUR", func(t *testing.T) {
		f := newFixture(t)
		res := f.book(t, f.client, june(1, 10), june(3, 10))

		assert.Equal(t, domain.ReservationStatusPending, res.Status)
		assert.Equal(t, int64(10000), res.TotalPriceCents)
		assert.Equal(t, f.client.ID, res.UserID)

		log := f.activity(t)
		require.Len(t, log, 1)
		assert.Equal(t, domain.ActionReservationCreated, log[0].Action)
		assert.Equal(t, f.client.ID, *log[0].UserID)
		f.publisher.AssertNumberOfCalls(t, "Publish", 1)
	})

	t.Run("Partial day is charged as a full day", func(t *testing.T) {
		f := newFixture(t)
		res := f.book(t, f.client, june(1, 10), june(3, 11))
		assert.Equal(t, int64(15000), res.TotalPriceCents)
	})

	t.Run("Overlap scenario", func(t *testing.T) {
		f := newFixture(t)
		a := f.book(t, f.client, june(1, 0), june(5, 0))
		b, err := f.reservations().CreateReservation(f.ctx, actorOf(f.other), f.booking(f.vehicle.ID, june(5, 0), june(8, 0)))
		require.NoError(t, err, "back-to-back booking must succeed")
		assert.NotEqual(t, a.ID, b.ID)

		_, err = f.reservations().CreateReservation(f.ctx, actorOf(f.other), f.booking(f.vehicle.ID, june(4, 0), june(6, 0)))
		e := appErr(t, err)
		assert.Equal(t, domain.ErrorKindConflict, e.Kind)
		assert.Equal(t, "VEHICLE_UNAVAILABLE", e.Code)
		assert.Contains(t, e.Conflicts, domain.Interval{From: june(1, 0), To: june(5, 0)})
	})

	t.Run("Cancelled reservations do not block", func(t *testing.T) {
		f := newFixture(t)
		a := f.book(t, f.client, june(1, 0), june(5, 0))
		_, err := f.reservations().Transition(f.ctx, actorOf(f.client), a.ID, service.TransitionRequest{Target: domain.ReservationStatusCancelled})
		require.NoError(t, err)

		_, err = f.reservations().CreateReservation(f.ctx, actorOf(f.other), f.booking(f.vehicle.ID, june(2, 0), june(3, 0)))
		assert.NoError(t, err)
	})

	t.Run("Invalid interval", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.reservations().CreateReservation(f.ctx, actorOf(f.client), f.booking(f.vehicle.ID, june(3, 10), june(3, 10)))
		e := appErr(t, err)
		assert.Equal(t, domain.ErrorKindValidation, e.Kind)
		assert.Contains(t, e.Fields, "return_at")
	})

	t.Run("Pickup in the past", func(t *testing.T) {
		f := newFixture(t)
		past := f.now.Add(-time.Hour)
		_, err := f.reservations().CreateReservation(f.ctx, actorOf(f.client), f.booking(f.vehicle.ID, past, june(3, 10)))
		e := appErr(t, err)
		assert.Equal(t, domain.ErrorKindValidation, e.Kind)
		assert.Contains(t, e.Fields, "pickup_at")
	})

	t.Run("Vehicle out of service", func(t *testing.T) {
		f := newFixture(t)
		for _, status := range []domain.VehicleStatus{domain.VehicleStatusInactive, domain.VehicleStatusService} {
			v := f.addVehicle(t, "NS-"+string(status), 5000, status)
			_, err := f.reservations().CreateReservation(f.ctx, actorOf(f.client), f.booking(v.ID, june(1, 10), june(2, 10)))
			e := appErr(t, err)
			assert.Equal(t, "VEHICLE_NOT_BOOKABLE", e.Code, status)
		}
	})

	t.Run("Rented vehicle is booked by interval", func(t *testing.T) {
		f := newFixture(t)
		v := f.addVehicle(t, "NS-100-BB", 5000, domain.VehicleStatusRented)
		_, err := f.reservations().CreateReservation(f.ctx, actorOf(f.client), f.booking(v.ID, june(1, 10), june(2, 10)))
		assert.NoError(t, err)
	})

	t.Run("Unknown vehicle and branch", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.reservations().CreateReservation(f.ctx, actorOf(f.client), f.booking(999, june(1, 10), june(2, 10)))
		assert.Contains(t, appErr(t, err).Fields, "vehicle_id")

		in := f.booking(f.vehicle.ID, june(1, 10), june(2, 10))
		in.ReturnBranchID = 999
		_, err = f.reservations().CreateReservation(f.ctx, actorOf(f.client), in)
		assert.Contains(t, appErr(t, err).Fields, "return_branch_id")
	})

	t.Run("Client cannot book on behalf of another user", func(t *testing.T) {
		f := newFixture(t)
		in := f.booking(f.vehicle.ID, june(1, 10), june(2, 10))
		in.OnBehalfOfUserID = int64Ptr(f.other.ID)
		_, err := f.reservations().CreateReservation(f.ctx, actorOf(f.client), in)
		assert.Equal(t, domain.ErrorKindForbidden, appErr(t, err).Kind)
		assert.Empty(t, f.activity(t))
	})

	t.Run("Clerk books on behalf with explicit price", func(t *testing.T) {
		f := newFixture(t)
		in := f.booking(f.vehicle.ID, june(1, 10), june(2, 10))
		in.OnBehalfOfUserID = int64Ptr(f.client.ID)
		in.TotalPriceCents = int64Ptr(3000)
		res, err := f.reservations().CreateReservation(f.ctx, actorOf(f.clerk), in)
		require.NoError(t, err)
		assert.Equal(t, f.client.ID, res.UserID)
		assert.Equal(t, int64(3000), res.TotalPriceCents)
		assert.Equal(t, f.clerk.ID, *f.activity(t)[0].UserID)
	})

	t.Run("Client cannot set the price", func(t *testing.T) {
		f := newFixture(t)
		in := f.booking(f.vehicle.ID, june(1, 10), june(2, 10))
		in.TotalPriceCents = int64Ptr(1)
		_, err := f.reservations().CreateReservation(f.ctx, actorOf(f.client), in)
		assert.Equal(t, domain.ErrorKindForbidden, appErr(t, err).Kind)
	})
}

func TestReservationService_ConcurrentBooking(t *testing.T) {
	f := newFixture(t)
	svc := f.reservations()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.CreateReservation(f.ctx, actorOf(f.client), f.booking(f.vehicle.ID, june(1, 10), june(3, 10)))
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case domain.KindOf(err) == domain.ErrorKindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)

	page, err := svc.ListReservations(f.ctx, actorOf(f.admin), domain.ReservationFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestReservationService_Transition(t *testing.T) {
	t.Run("Pending cannot jump to returned", func(t *testing.T) {
		f := newFixture(t)
		res := f.book(t, f.client, june(1, 10), june(3, 10))

		_, err := f.reservations().Transition(f.ctx, actorOf(f.clerk), res.ID, service.TransitionRequest{
			Target:    domain.ReservationStatusReturned,
			Telemetry: domain.Telemetry{Km: int32Ptr(100), Fuel: int32Ptr(50)},
		})
		e := appErr(t, err)
		assert.Equal(t, "INVALID_TRANSITION", e.Code)
		assert.Equal(t, domain.ReservationStatusPending, e.CurrentStatus)

		got, err := f.reservations().GetReservation(f.ctx, actorOf(f.client), res.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusPending, got.Status)
	})

	t.Run("Pickup and return with damage", func(t *testing.T) {
		f := newFixture(t)
		svc := f.reservations()
		res := f.book(t, f.client, june(1, 10), june(3, 10))
		staff := actorOf(f.clerk)

		_, err := svc.Transition(f.ctx, staff, res.ID, service.TransitionRequest{Target: domain.ReservationStatusConfirmed})
		require.NoError(t, err)

		_, err = svc.Transition(f.ctx, staff, res.ID, service.TransitionRequest{Target: domain.ReservationStatusPickedUp})
		assert.Equal(t, "INVALID_TELEMETRY", appErr(t, err).Code)

		_, err = svc.Transition(f.ctx, staff, res.ID, service.TransitionRequest{
			Target:    domain.ReservationStatusPickedUp,
			Telemetry: domain.Telemetry{Km: int32Ptr(10234), Fuel: int32Ptr(100)},
		})
		require.NoError(t, err)

		got, err := svc.Transition(f.ctx, staff, res.ID, service.TransitionRequest{
			Target:    domain.ReservationStatusReturned,
			Telemetry: domain.Telemetry{Km: int32Ptr(10532), Fuel: int32Ptr(40)},
			Damage:    []domain.DamageInput{{Description: "scratch on bumper", CostCents: 8000}},
		})
		require.NoError(t, err)

		assert.Equal(t, domain.ReservationStatusReturned, got.Status)
		assert.Equal(t, int32(10234), *got.PickupKm)
		assert.Equal(t, int32(100), *got.PickupFuel)
		assert.Equal(t, int32(10532), *got.ReturnKm)
		assert.Equal(t, int32(40), *got.ReturnFuel)
		require.Len(t, got.DamageReports, 1)
		assert.Equal(t, "scratch on bumper", got.DamageReports[0].Description)
		assert.Equal(t, int64(8000), got.DamageReports[0].CostCents)
		assert.Equal(t, int64(8000), got.DamageTotalCents)

		log := f.activity(t)
		assert.Equal(t, domain.ActionDamageReportCreated, log[0].Action)
		assert.Equal(t, domain.SeverityError, log[0].Severity)
		assert.Equal(t, domain.ActionReservationStatusChanged, log[1].Action)
		assert.Contains(t, log[1].Detail, "km 10532, fuel 40%")

		_, err = svc.Transition(f.ctx, staff, res.ID, service.TransitionRequest{Target: domain.ReservationStatusCompleted})
		require.NoError(t, err)
	})

	t.Run("Damage failure rolls back the status change", func(t *testing.T) {
		f := newFixture(t)
		svc := f.reservations()
		res := f.book(t, f.client, june(1, 10), june(3, 10))
		staff := actorOf(f.clerk)
		_, err := svc.Transition(f.ctx, staff, res.ID, service.TransitionRequest{Target: domain.ReservationStatusConfirmed})
		require.NoError(t, err)
		_, err = svc.Transition(f.ctx, staff, res.ID, service.TransitionRequest{
			Target:    domain.ReservationStatusPickedUp,
			Telemetry: domain.Telemetry{Km: int32Ptr(500), Fuel: int32Ptr(90)},
		})
		require.NoError(t, err)
		before := len(f.activity(t))
		calls := len(f.publisher.Calls)

		f.store.FailNext("damage_reports.create", errors.New("disk full"))
		_, err = svc.Transition(f.ctx, staff, res.ID, service.TransitionRequest{
			Target:    domain.ReservationStatusCompleted,
			Telemetry: domain.Telemetry{Km: int32Ptr(800), Fuel: int32Ptr(50)},
			Damage:    []domain.DamageInput{{Description: "broken mirror", CostCents: 12000}},
		})
		assert.Equal(t, domain.ErrorKindPersistence, appErr(t, err).Kind)

		got, err := svc.GetReservation(f.ctx, staff, res.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusPickedUp, got.Status)
		assert.Nil(t, got.ReturnKm)
		assert.Empty(t, got.DamageReports)
		assert.Len(t, f.activity(t), before)
		assert.Len(t, f.publisher.Calls, calls)
	})

	t.Run("Terminal statuses", func(t *testing.T) {
		f := newFixture(t)
		svc := f.reservations()
		res := f.book(t, f.client, june(1, 10), june(3, 10))
		_, err := svc.Transition(f.ctx, actorOf(f.client), res.ID, service.TransitionRequest{Target: domain.ReservationStatusCancelled})
		require.NoError(t, err)

		for _, target := range []domain.ReservationStatus{
			domain.ReservationStatusPending, domain.ReservationStatusConfirmed,
			domain.ReservationStatusCompleted, domain.ReservationStatusCancelled,
		} {
			_, err := svc.Transition(f.ctx, actorOf(f.admin), res.ID, service.TransitionRequest{Target: target})
			assert.Equal(t, "INVALID_TRANSITION", appErr(t, err).Code, target)
		}
	})

	t.Run("Authorization", func(t *testing.T) {
		f := newFixture(t)
		svc := f.reservations()
		res := f.book(t, f.client, june(1, 10), june(3, 10))

		_, err := svc.Transition(f.ctx, actorOf(f.client), res.ID, service.TransitionRequest{Target: domain.ReservationStatusConfirmed})
		assert.Equal(t, domain.ErrorKindForbidden, appErr(t, err).Kind)

		_, err = svc.Transition(f.ctx, actorOf(f.other), res.ID, service.TransitionRequest{Target: domain.ReservationStatusCancelled})
		assert.Equal(t, domain.ErrorKindForbidden, appErr(t, err).Kind)

		_, err = svc.Transition(f.ctx, actorOf(f.clerk), res.ID, service.TransitionRequest{Target: domain.ReservationStatusConfirmed})
		require.NoError(t, err)
		_, err = svc.Transition(f.ctx, actorOf(f.clerk), res.ID, service.TransitionRequest{
			Target:    domain.ReservationStatusPickedUp,
			Telemetry: domain.Telemetry{Km: int32Ptr(1), Fuel: int32Ptr(100)},
		})
		require.NoError(t, err)

		_, err = svc.Transition(f.ctx, actorOf(f.client), res.ID, service.TransitionRequest{Target: domain.ReservationStatusCancelled})
		assert.Equal(t, domain.ErrorKindForbidden, appErr(t, err).Kind)

		_, err = svc.Transition(f.ctx, actorOf(f.clerk), res.ID, service.TransitionRequest{Target: domain.ReservationStatusCancelled})
		assert.NoError(t, err)
	})

	t.Run("Damage only with return or completion", func(t *testing.T) {
		f := newFixture(t)
		res := f.book(t, f.client, june(1, 10), june(3, 10))
		_, err := f.reservations().Transition(f.ctx, actorOf(f.clerk), res.ID, service.TransitionRequest{
			Target: domain.ReservationStatusConfirmed,
			Damage: []domain.DamageInput{{Description: "dent"}},
		})
		assert.Equal(t, "DAMAGE_NOT_ALLOWED", appErr(t, err).Code)

		_, err = f.reservations().Transition(f.ctx, actorOf(f.clerk), res.ID, service.TransitionRequest{
			Target: domain.ReservationStatusReturned,
			Damage: []domain.DamageInput{{Description: "dent", CostCents: -1}},
		})
		assert.Equal(t, "INVALID_DAMAGE_REPORT", appErr(t, err).Code)
	})

	t.Run("Unknown status", func(t *testing.T) {
		f := newFixture(t)
		res := f.book(t, f.client, june(1, 10), june(3, 10))
		_, err := f.reservations().Transition(f.ctx, actorOf(f.clerk), res.ID, service.TransitionRequest{Target: "IZGUBLJENO"})
		assert.Contains(t, appErr(t, err).Fields, "status")
	})

	t.Run("Unknown reservation", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.reservations().Transition(f.ctx, actorOf(f.clerk), 42, service.TransitionRequest{Target: domain.ReservationStatusConfirmed})
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestReservationService_UpdateReservation(t *testing.T) {
	f := newFixture(t)
	svc := f.reservations()
	a := f.book(t, f.client, june(1, 10), june(3, 10))
	b := f.book(t, f.other, june(5, 10), june(7, 10))

	t.Run("Overlap with another reservation", func(t *testing.T) {
		returnAt := june(6, 10)
		_, err := svc.UpdateReservation(f.ctx, actorOf(f.client), a.ID, service.UpdateReservationInput{ReturnAt: &returnAt})
		e := appErr(t, err)
		assert.Equal(t, "VEHICLE_UNAVAILABLE", e.Code)
		assert.Equal(t, []domain.Interval{b.Interval()}, e.Conflicts)
	})

	t.Run("Extending recomputes the price", func(t *testing.T) {
		returnAt := june(5, 10)
		got, err := svc.UpdateReservation(f.ctx, actorOf(f.client), a.ID, service.UpdateReservationInput{ReturnAt: &returnAt})
		require.NoError(t, err)
		assert.Equal(t, int64(20000), got.TotalPriceCents)
		assert.Equal(t, domain.ActionReservationUpdated, f.activity(t)[0].Action)
	})

	t.Run("Moving to another vehicle", func(t *testing.T) {
		v := f.addVehicle(t, "BG-999-ZZ", 7000, domain.VehicleStatusAvailable)
		got, err := svc.UpdateReservation(f.ctx, actorOf(f.client), a.ID, service.UpdateReservationInput{VehicleID: &v.ID})
		require.NoError(t, err)
		assert.Equal(t, v.ID, got.VehicleID)
		assert.Equal(t, int64(28000), got.TotalPriceCents)
	})

	t.Run("Other client", func(t *testing.T) {
		notes := "hello"
		_, err := svc.UpdateReservation(f.ctx, actorOf(f.other), a.ID, service.UpdateReservationInput{Notes: &notes})
		assert.Equal(t, domain.ErrorKindForbidden, appErr(t, err).Kind)
	})

	t.Run("Not editable after pickup", func(t *testing.T) {
		_, err := svc.Transition(f.ctx, actorOf(f.clerk), b.ID, service.TransitionRequest{Target: domain.ReservationStatusConfirmed})
		require.NoError(t, err)
		_, err = svc.Transition(f.ctx, actorOf(f.clerk), b.ID, service.TransitionRequest{
			Target:    domain.ReservationStatusPickedUp,
			Telemetry: domain.Telemetry{Km: int32Ptr(10), Fuel: int32Ptr(80)},
		})
		require.NoError(t, err)

		notes := "late"
		_, err = svc.UpdateReservation(f.ctx, actorOf(f.other), b.ID, service.UpdateReservationInput{Notes: &notes})
		e := appErr(t, err)
		assert.Equal(t, "NOT_EDITABLE", e.Code)
		assert.Equal(t, domain.ReservationStatusPickedUp, e.CurrentStatus)
	})
}

func TestReservationService_ListAndGet(t *testing.T) {
	f := newFixture(t)
	svc := f.reservations()
	mine := f.book(t, f.client, june(1, 10), june(3, 10))
	f.book(t, f.other, june(4, 10), june(6, 10))

	page, err := svc.ListReservations(f.ctx, actorOf(f.client), domain.ReservationFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].ID)
	assert.Equal(t, domain.DefaultPageSize, page.PageSize)

	page, err = svc.ListReservations(f.ctx, actorOf(f.clerk), domain.ReservationFilter{}, domain.PageRequest{Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 1)

	_, err = svc.GetReservation(f.ctx, actorOf(f.other), mine.ID)
	assert.Equal(t, domain.ErrorKindForbidden, appErr(t, err).Kind)

	got, err := svc.GetReservation(f.ctx, actorOf(f.client), mine.ID)
	require.NoError(t, err)
	assert.Equal(t, f.vehicle.Registration, got.Vehicle.Registration)
	assert.Equal(t, f.client.Name, got.User.Name)

	_, err = svc.ExportReservations(f.ctx, actorOf(f.clerk), domain.ReservationFilter{})
	assert.Equal(t, domain.ErrorKindForbidden, appErr(t, err).Kind)
	all, err := svc.ExportReservations(f.ctx, actorOf(f.admin), domain.ReservationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReservationService_ExpireStale(t *testing.T) {
	f := newFixture(t)
	svc := f.reservations()
	stale := f.book(t, f.client, june(1, 10), june(3, 10))
	confirmed := f.book(t, f.other, june(4, 10), june(6, 10))
	future := f.book(t, f.client, june(20, 10), june(22, 10))
	_, err := svc.Transition(f.ctx, actorOf(f.clerk), confirmed.ID, service.TransitionRequest{Target: domain.ReservationStatusConfirmed})
	require.NoError(t, err)

	f.now = june(10, 0)
	n, err := svc.ExpireStale(f.ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.GetReservation(f.ctx, actorOf(f.admin), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusCancelled, got.Status)
	for _, id := range []int64{confirmed.ID, future.ID} {
		got, err := svc.GetReservation(f.ctx, actorOf(f.admin), id)
		require.NoError(t, err)
		assert.NotEqual(t, domain.ReservationStatusCancelled, got.Status)
	}

	log := f.activity(t)
	assert.Equal(t, domain.ActionReservationExpired, log[0].Action)
	assert.Equal(t, domain.SeverityWarning, log[0].Severity)
	assert.Nil(t, log[0].UserID)
	f.publisher.AssertCalled(t, "Publish", mock.MatchedBy(func(e domain.ActivityLogEntry) bool {
		return e.Action == domain.ActionReservationExpired
	}))

	n, err = svc.ExpireStale(f.ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAvailabilityChecker(t *testing.T) {
	f := newFixture(t)
	checker := service.NewAvailabilityChecker(f.store)
	a := f.book(t, f.client, june(1, 0), june(5, 0))

	ok, conflicts, err := checker.IsAvailable(f.ctx, nil, f.vehicle.ID, june(4, 0), june(6, 0), 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []domain.Interval{a.Interval()}, conflicts)

	ok, _, err = checker.IsAvailable(f.ctx, nil, f.vehicle.ID, june(4, 0), june(6, 0), a.ID)
	require.NoError(t, err)
	assert.True(t, ok, "the edited reservation is excluded")

	ok, _, err = checker.IsAvailable(f.ctx, f.store, f.vehicle.ID, june(5, 0), june(6, 0), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	_, _, err = checker.IsAvailable(f.ctx, nil, f.vehicle.ID, june(6, 0), june(5, 0), 0)
	assert.Equal(t, domain.ErrorKindValidation, domain.KindOf(err))

	intervals, err := checker.UnavailableIntervals(f.ctx, f.vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Interval{a.Interval()}, intervals)

	_, err = checker.UnavailableIntervals(f.ctx, 999)
	assert.True(t, domain.IsNotFound(err))
}

package service_test

import (
	"context"
	"testing"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository/memory"
	"rentacar-backend/internal/service"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(entry domain.ActivityLogEntry) {
	m.Called(entry)
}

// fixture is a seeded in-memory store with one branch, one vehicle priced at
// 50 EUR per day and a user for every role. The clock starts on 2024-05-01.
type fixture struct {
	ctx       context.Context
	store     *memory.Store
	now       time.Time
	clock     service.Clock
	publisher *MockPublisher
	recorder  *service.ActivityRecorder

	branch   domain.Branch
	branch2  domain.Branch
	category domain.Category
	vehicle  *domain.Vehicle

	client, other, clerk, admin *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:       context.Background(),
		store:     memory.NewStore(),
		now:       time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		publisher: new(MockPublisher),
	}
	f.clock = func() time.Time { return f.now }
	f.publisher.On("Publish", mock.Anything).Return()
	f.recorder = service.NewActivityRecorder(f.publisher, f.clock)

	f.branch = f.store.AddBranch(domain.Branch{Name: "Centar", Address: "Knez Mihailova 1", City: "Beograd"})
	f.branch2 = f.store.AddBranch(domain.Branch{Name: "Aerodrom", Address: "Surcin bb", City: "Beograd"})
	f.category = f.store.AddCategory(domain.Category{Name: domain.CategoryCompact, PricePerDayCents: 4500})
	f.vehicle = f.addVehicle(t, "BG-123-AA", 5000, domain.VehicleStatusAvailable)

	f.client = f.addUser(t, "Ana Klijent", "ana@example.com", domain.UserRoleClient)
	f.other = f.addUser(t, "Marko Klijent", "marko@example.com", domain.UserRoleClient)
	f.clerk = f.addUser(t, "Sanja Sluzbenik", "sanja@example.com", domain.UserRoleClerk)
	f.admin = f.addUser(t, "Petar Admin", "petar@example.com", domain.UserRoleAdmin)
	return f
}

func (f *fixture) addVehicle(t *testing.T, registration string, pricePerDay int64, status domain.VehicleStatus) *domain.Vehicle {
	t.Helper()
	v := &domain.Vehicle{
		BranchID:         f.branch.ID,
		CategoryID:       f.category.ID,
		Make:             "Skoda",
		Model:            "Octavia",
		Registration:     registration,
		PricePerDayCents: pricePerDay,
		Status:           status,
	}
	require.NoError(t, f.store.Vehicles().Create(f.ctx, v))
	return v
}

func (f *fixture) addUser(t *testing.T, name, email string, role domain.UserRole) *domain.User {
	t.Helper()
	u := &domain.User{Name: name, Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return u
}

func actorOf(u *domain.User) domain.Actor {
	return domain.Actor{UserID: u.ID, Role: u.Role}
}

func (f *fixture) reservations() service.ReservationService {
	return service.NewReservationService(f.store, service.NewAvailabilityChecker(f.store), f.recorder, f.clock)
}

func (f *fixture) booking(vehicleID int64, from, to time.Time) service.CreateReservationInput {
	return service.CreateReservationInput{
		VehicleID:      vehicleID,
		PickupBranchID: f.branch.ID,
		ReturnBranchID: f.branch.ID,
		PickupAt:       from,
		ReturnAt:       to,
	}
}

func (f *fixture) book(t *testing.T, u *domain.User, from, to time.Time) *domain.Reservation {
	t.Helper()
	res, err := f.reservations().CreateReservation(f.ctx, actorOf(u), f.booking(f.vehicle.ID, from, to))
	require.NoError(t, err)
	return res
}

// activity returns the activity log, newest first.
func (f *fixture) activity(t *testing.T) []domain.ActivityLogEntry {
	t.Helper()
	entries, _, err := f.store.Activities().List(f.ctx, domain.PageRequest{Page: 1, PageSize: 100})
	require.NoError(t, err)
	return entries
}

func actions(entries []domain.ActivityLogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func june(day, hour int) time.Time {
	return time.Date(2024, 6, day, hour, 0, 0, 0, time.UTC)
}

func int32Ptr(v int32) *int32 { return &v }

func int64Ptr(v int64) *int64 { return &v }

func appErr(t *testing.T, err error) *domain.Error {
	t.Helper()
	require.Error(t, err)
	return domain.AsError(err)
}

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"rentacar-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reservationCols = []string{"id", "user_id", "vehicle_id", "pickup_branch_id", "return_branch_id", "pickup_at", "return_at",
	"total_price_cents", "pickup_km", "return_km", "pickup_fuel", "return_fuel", "status", "notes", "created_at", "updated_at"}

func TestReservationRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReservationRepository(db)
	ctx := context.Background()
	pickup := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	res := &domain.Reservation{
		UserID:          4,
		VehicleID:       2,
		PickupBranchID:  1,
		ReturnBranchID:  1,
		PickupAt:        pickup,
		ReturnAt:        pickup.Add(48 * time.Hour),
		TotalPriceCents: 10000,
		Status:          domain.ReservationStatusPending,
	}

	mock.ExpectQuery("INSERT INTO reservations").
		WithArgs(int64(4), int64(2), int64(1), int64(1), res.PickupAt, res.ReturnAt, int64(10000), "CEKA", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	require.NoError(t, repo.Create(ctx, res))
	assert.Equal(t, int64(7), res.ID)
	assert.False(t, res.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReservationRepository(db)
	ctx := context.Background()
	pickup := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM reservations r WHERE r.id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(reservationCols).AddRow(
				7, 4, 2, 1, 1, pickup, pickup.Add(48*time.Hour),
				10000, 10234, nil, 100, nil, "PREUZETO", "", pickup, pickup))

		res, err := repo.GetByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusPickedUp, res.Status)
		require.NotNil(t, res.PickupKm)
		assert.Equal(t, int32(10234), *res.PickupKm)
		assert.Nil(t, res.ReturnKm)
		assert.Nil(t, res.Vehicle)
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM reservations r WHERE r.id = \\$1").
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, 99)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestReservationRepository_FindBlocking(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReservationRepository(db)
	from := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery("SELECT pickup_at, return_at FROM reservations").
		WithArgs(int64(2), sqlmock.AnyArg(), to, from, int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"pickup_at", "return_at"}).
			AddRow(from.Add(-time.Hour), from.Add(3*time.Hour)))

	got, err := repo.FindBlocking(context.Background(), 2, domain.Interval{From: from, To: to}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, from.Add(-time.Hour), got[0].From)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReservationRepository(db)
	ctx := context.Background()
	km := int32(10532)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE reservations SET status").
			WithArgs("VRACENO", nil, nil, int64(km), nil, sqlmock.AnyArg(), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(ctx, &domain.Reservation{ID: 7, Status: domain.ReservationStatusReturned, ReturnKm: &km})
		assert.NoError(t, err)
	})

	t.Run("Missing row", func(t *testing.T) {
		mock.ExpectExec("UPDATE reservations SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(ctx, &domain.Reservation{ID: 8, Status: domain.ReservationStatusCancelled})
		assert.True(t, domain.IsNotFound(err))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReservationRepository(db)
	pickup := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	userID := int64(4)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM reservations r WHERE r.user_id = \\$1").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery("FROM reservations r\\s+JOIN vehicles v .* WHERE r.user_id = \\$1 ORDER BY r.created_at DESC, r.id DESC LIMIT \\$2 OFFSET \\$3").
		WithArgs(userID, 10, 10).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, reservationCols...), "make", "model", "registration", "name", "email")).
			AddRow(3, 4, 2, 1, 1, pickup, pickup.Add(24*time.Hour), 5000, nil, nil, nil, nil, "CEKA", "", pickup, pickup,
				"Skoda", "Octavia", "BG-123-AA", "Ana", "ana@example.com"))

	list, total, err := repo.List(context.Background(), domain.ReservationFilter{UserID: &userID}, domain.PageRequest{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
	require.Len(t, list, 1)
	assert.Equal(t, "BG-123-AA", list[0].Vehicle.Registration)
	assert.Equal(t, "Ana", list[0].User.Name)
	assert.Equal(t, int64(2), list[0].Vehicle.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_Totals(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT count\\(\\*\\), COALESCE\\(SUM\\(total_price_cents\\)").
		WillReturnRows(sqlmock.NewRows([]string{"count", "revenue"}).AddRow(3, 25000))

	count, revenue, err := NewReservationRepository(db).Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, int64(25000), revenue)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		code pq.ErrorCode
		kind domain.ErrorKind
		want string
	}{
		{"Serialization failure", "40001", domain.ErrorKindConflict, "CONCURRENT_UPDATE"},
		{"Deadlock", "40P01", domain.ErrorKindConflict, "CONCURRENT_UPDATE"},
		{"Overlapping booking", "23P01", domain.ErrorKindConflict, "VEHICLE_UNAVAILABLE"},
		{"Unique violation", "23505", domain.ErrorKindConflict, "DUPLICATE"},
		{"Foreign key violation", "23503", domain.ErrorKindValidation, "INVALID_REFERENCE"},
		{"Check violation", "23514", domain.ErrorKindValidation, "CONSTRAINT_VIOLATION"},
		{"Anything else", "42P01", domain.ErrorKindPersistence, "PERSISTENCE_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateError(errWrap(&pq.Error{Code: tt.code}))
			var appErr *domain.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.kind, appErr.Kind)
			assert.Equal(t, tt.want, appErr.Code)
		})
	}

	t.Run("Application errors pass through", func(t *testing.T) {
		in := domain.NewForbiddenError("nope")
		assert.Same(t, in, translateError(in))
	})

	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, translateError(nil))
	})
}

func errWrap(err error) error {
	return fmt.Errorf("insert reservation: %w", err)
}

func TestStore_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := NewStore(db)

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM vehicles").WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = store.WithTx(ctx, nil, func(tx repository.Store) error {
			return tx.Vehicles().Delete(ctx, 3)
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Exclusion violation rolls back as conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := NewStore(db)

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO reservations").WillReturnError(&pq.Error{Code: "23P01"})
		mock.ExpectRollback()

		err = store.WithTx(ctx, nil, func(tx repository.Store) error {
			return tx.Reservations().Create(ctx, &domain.Reservation{UserID: 1, VehicleID: 2, Status: domain.ReservationStatusPending})
		})
		var appErr *domain.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, domain.ErrorKindConflict, appErr.Kind)
		assert.Equal(t, "VEHICLE_UNAVAILABLE", appErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Domain errors from the callback are kept", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := NewStore(db)

		mock.ExpectBegin()
		mock.ExpectRollback()

		err = store.WithTx(ctx, nil, func(tx repository.Store) error {
			return domain.NewConflictError("INVALID_TRANSITION", "no")
		})
		assert.Equal(t, "INVALID_TRANSITION", domain.AsError(err).Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Commit failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := NewStore(db)

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("connection lost"))

		err = store.WithTx(ctx, nil, func(tx repository.Store) error { return nil })
		require.Error(t, err)
		assert.Equal(t, domain.ErrorKindPersistence, domain.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

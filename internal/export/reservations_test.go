package export_test

import (
	"bytes"
	"testing"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/export"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteReservations(t *testing.T) {
	km, fuel := int32(10234), int32(100)
	reservations := []domain.Reservation{
		{
			ID:              1,
			PickupAt:        time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
			ReturnAt:        time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
			TotalPriceCents: 10000,
			PickupKm:        &km,
			PickupFuel:      &fuel,
			Status:          domain.ReservationStatusPickedUp,
			Notes:           "child seat",
			User:            &domain.User{Name: "Ana Klijent", Email: "ana@example.com"},
			Vehicle:         &domain.Vehicle{Make: "Skoda", Model: "Octavia", Registration: "BG-123-AA"},
		},
		{
			ID:              2,
			PickupAt:        time.Date(2024, 6, 5, 9, 30, 0, 0, time.UTC),
			ReturnAt:        time.Date(2024, 6, 6, 9, 30, 0, 0, time.UTC),
			TotalPriceCents: 4550,
			Status:          domain.ReservationStatusPending,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteReservations(&buf, reservations))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.ReservationsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Napomena", rows[0][13])

	first := rows[1]
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "Ana Klijent", first[1])
	assert.Equal(t, "Skoda Octavia", first[3])
	assert.Equal(t, "2024-06-01 10:00", first[5])
	assert.Equal(t, "PREUZETO", first[7])
	assert.Equal(t, "100.00 EUR", first[8])
	assert.Equal(t, "10234", first[9])
	assert.Equal(t, "", first[10])
	assert.Equal(t, "child seat", first[13])

	second := rows[2]
	assert.Equal(t, "2", second[0])
	assert.Equal(t, "", second[1])
	assert.Equal(t, "45.50 EUR", second[8])
}

func TestWriteReservations_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteReservations(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.ReservationsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

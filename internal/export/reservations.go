package export

import (
	"fmt"
	"io"
	"strconv"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/utils"

	"github.com/xuri/excelize/v2"
)

const (
	ReservationsSheet = "Rezervacije"
	ContentTypeXLSX   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout        = "2006-01-02 15:04"
)

var reservationHeader = []interface{}{
	"ID", "Klijent", "Email", "Vozilo", "Registracija", "Preuzimanje", "Povratak",
	"Status", "Cena", "Km preuzimanje", "Km povratak", "Gorivo preuzimanje %", "Gorivo povratak %", "Napomena",
}

// WriteReservations renders reservations as an xlsx workbook with a single
// sheet and writes it to w.
func WriteReservations(w io.Writer, reservations []domain.Reservation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReservationsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(ReservationsSheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	header := make([]interface{}, len(reservationHeader))
	for i, title := range reservationHeader {
		header[i] = excelize.Cell{StyleID: bold, Value: title}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range reservations {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, reservationRow(r)); err != nil {
			return fmt.Errorf("write reservation %d: %w", r.ID, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	_, err = f.WriteTo(w)
	return err
}

func reservationRow(r domain.Reservation) []interface{} {
	var client, email, vehicle, registration string
	if r.User != nil {
		client, email = r.User.Name, r.User.Email
	}
	if r.Vehicle != nil {
		vehicle, registration = r.Vehicle.DisplayName(), r.Vehicle.Registration
	}
	return []interface{}{
		r.ID,
		client,
		email,
		vehicle,
		registration,
		r.PickupAt.Format(timeLayout),
		r.ReturnAt.Format(timeLayout),
		string(r.Status),
		utils.FormatCents(r.TotalPriceCents),
		optional(r.PickupKm),
		optional(r.ReturnKm),
		optional(r.PickupFuel),
		optional(r.ReturnFuel),
		r.Notes,
	}
}

func optional(v *int32) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(int(*v))
}

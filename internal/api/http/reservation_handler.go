package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/export"
	"rentacar-backend/internal/service"
)

type reservationHandler struct {
	reservations service.ReservationService
	damage       service.DamageService
}

func reservationFilter(r *http.Request) (domain.ReservationFilter, error) {
	var filter domain.ReservationFilter
	var err error
	if filter.UserID, err = queryInt64(r, "user_id"); err != nil {
		return filter, err
	}
	if filter.VehicleID, err = queryInt64(r, "vehicle_id"); err != nil {
		return filter, err
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter.Status = domain.ReservationStatus(strings.ToUpper(raw))
		if !filter.Status.IsValid() {
			return filter, domain.NewFieldError("status", "unknown reservation status "+raw)
		}
	}
	return filter, nil
}

func (h *reservationHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req service.CreateReservationInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.reservations.CreateReservation(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *reservationHandler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := reservationFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.reservations.ListReservations(r.Context(), actor, filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *reservationHandler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.reservations.GetReservation(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// update moves the reservation through its lifecycle when the body carries
// "status" and edits the booking otherwise.
func (h *reservationHandler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		writeError(w, r, badRequest("could not read request body"))
		return
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		writeError(w, r, badRequest("malformed JSON body: "+err.Error()))
		return
	}

	var res *domain.Reservation
	if _, isTransition := probe["status"]; isTransition {
		var req service.TransitionRequest
		if err := strictUnmarshal(body, &req); err != nil {
			writeError(w, r, err)
			return
		}
		res, err = h.reservations.Transition(r.Context(), actor, id, req)
	} else {
		var req service.UpdateReservationInput
		if err := strictUnmarshal(body, &req); err != nil {
			writeError(w, r, err)
			return
		}
		res, err = h.reservations.UpdateReservation(r.Context(), actor, id, req)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func strictUnmarshal(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("malformed JSON body: " + err.Error())
	}
	return nil
}

func (h *reservationHandler) listDamage(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	reports, total, err := h.damage.ListDamage(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": reports, "total_cost_cents": total})
}

func (h *reservationHandler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filter, err := reservationFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.reservations.ExportReservations(r.Context(), actor, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReservations(&buf, list); err != nil {
		writeError(w, r, domain.NewPersistenceError(err))
		return
	}
	filename := fmt.Sprintf("rezervacije-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

package http

import (
	"net/http"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/service"
)

type paymentHandler struct {
	payments service.PaymentService
	damage   service.DamageService
}

type paymentResponse struct {
	Payment     *domain.Payment     `json:"payment"`
	Reservation *domain.Reservation `json:"reservation"`
}

type damageRequest struct {
	ReservationID int64 `json:"reservation_id"`
	domain.DamageInput
}

func (h *paymentHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req service.PaymentInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	payment, res, err := h.payments.RecordPayment(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentResponse{Payment: payment, Reservation: res})
}

func (h *paymentHandler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := h.payments.GetPayment(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *paymentHandler) reportDamage(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req damageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	report, err := h.damage.ReportDamage(r.Context(), actor, req.ReservationID, req.DamageInput)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

package http

import (
	"net/http"
	"strings"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/service"
)

// feedbackHandler serves complaints and vehicle reviews.
type feedbackHandler struct {
	complaints service.ComplaintService
	reviews    service.ReviewService
}

func (h *feedbackHandler) listComplaints(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := domain.ComplaintFilter{Status: domain.ComplaintStatus(strings.ToUpper(r.URL.Query().Get("status")))}
	result, err := h.complaints.ListComplaints(r.Context(), actor, filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *feedbackHandler) submitComplaint(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req domain.ComplaintInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.complaints.SubmitComplaint(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *feedbackHandler) resolveComplaint(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.ComplaintResolution
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.complaints.ResolveComplaint(r.Context(), actor, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *feedbackHandler) listReviews(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var filter domain.ReviewFilter
	if filter.VehicleID, err = queryInt64(r, "vehicle_id"); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.reviews.ListReviews(r.Context(), filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *feedbackHandler) submitReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req domain.ReviewInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	review, err := h.reviews.SubmitReview(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

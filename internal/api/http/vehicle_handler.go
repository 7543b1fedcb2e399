package http

import (
	"net/http"
	"strings"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/service"
)

type vehicleHandler struct {
	vehicles     service.VehicleService
	availability service.AvailabilityChecker
}

// list serves the catalogue. status is a comma separated list, or "all" for
// staff to include decommissioned vehicles.
func (h *vehicleHandler) list(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var filter domain.VehicleFilter
	if filter.BranchID, err = queryInt64(r, "branch_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.CategoryID, err = queryInt64(r, "category_id"); err != nil {
		writeError(w, r, err)
		return
	}
	includeInactive := false
	if raw := r.URL.Query().Get("status"); raw == "all" {
		includeInactive = true
	} else if raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st := domain.VehicleStatus(strings.ToUpper(strings.TrimSpace(s)))
			if !st.IsValid() {
				writeError(w, r, domain.NewFieldError("status", "unknown vehicle status "+s))
				return
			}
			filter.Statuses = append(filter.Statuses, st)
		}
		includeInactive = true
	}

	var actor *domain.Actor
	if a, ok := ActorFromContext(r.Context()); ok {
		actor = &a
	}
	result, err := h.vehicles.ListVehicles(r.Context(), actor, filter, includeInactive, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *vehicleHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.vehicles.GetVehicle(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *vehicleHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req service.VehicleInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.vehicles.CreateVehicle(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *vehicleHandler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req service.VehicleInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.vehicles.UpdateVehicle(r.Context(), actor, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *vehicleHandler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.vehicles.DeleteVehicle(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *vehicleHandler) unavailable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	intervals, err := h.availability.UnavailableIntervals(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicle_id": id, "unavailable": intervals})
}

func (h *vehicleHandler) branches(w http.ResponseWriter, r *http.Request) {
	list, err := h.vehicles.ListBranches(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *vehicleHandler) categories(w http.ResponseWriter, r *http.Request) {
	list, err := h.vehicles.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

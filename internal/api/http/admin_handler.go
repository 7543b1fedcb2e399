package http

import (
	"net/http"

	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/realtime"
	"rentacar-backend/internal/security"
	"rentacar-backend/internal/service"

	"github.com/gorilla/websocket"
)

type adminHandler struct {
	stats    service.StatsService
	activity service.ActivityService
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// newAdminHandler applies the CORS origin list to websocket upgrades.
// Requests without an Origin header come from non-browser clients.
func newAdminHandler(stats service.StatsService, activity service.ActivityService, hub *realtime.Hub, allowOrigin func(string) bool) *adminHandler {
	return &adminHandler{
		stats:    stats,
		activity: activity,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowOrigin(origin)
			},
		},
	}
}

func (h *adminHandler) getStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	stats, err := h.stats.GetStats(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *adminHandler) listLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.activity.ListActivity(r.Context(), actor, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// streamLogs upgrades to a websocket that receives every committed activity
// entry. Browsers cannot set headers on websocket requests, so the token
// comes from the query string.
func (h *adminHandler) streamLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := security.Authorize(actor, security.ActionViewLogs, security.Resource{}); err != nil {
		writeError(w, r, err)
		return
	}
	if h.hub == nil {
		http.Error(w, "live feed is not enabled", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(r.Context(), "Websocket upgrade failed", "error", err)
		return
	}
	h.hub.Serve(conn, actor.UserID)
}

package http

import (
	"net/http"

	"rentacar-backend/internal/realtime"
	"rentacar-backend/internal/security"
	"rentacar-backend/internal/service"

	"github.com/gorilla/mux"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth         service.AuthService
	Users        service.UserService
	Vehicles     service.VehicleService
	Availability service.AvailabilityChecker
	Reservations service.ReservationService
	Payments     service.PaymentService
	Damage       service.DamageService
	Complaints   service.ComplaintService
	Documents    service.DocumentService
	Reviews      service.ReviewService
	Stats        service.StatsService
	Activity     service.ActivityService
}

type RouterConfig struct {
	Tokens         security.TokenManager
	Hub            *realtime.Hub
	AllowedOrigins []string
	MaxUploadBytes int64
}

// NewRouter wires every REST route. Route names are the keys of
// config.EndpointSecurityConfig.
func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	allowOrigin := originAllowed(cfg.AllowedOrigins)
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: &domainErrNoRoute})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: &domainErrMethod})
	})
	r.Use(recoverer, NewAuthMiddleware(cfg.Tokens, svc.Users).Middleware)

	r.HandleFunc("/health", health).Methods(http.MethodGet).Name("health")

	api := r.PathPrefix("/api").Subrouter()

	auth := &authHandler{auth: svc.Auth, users: svc.Users}
	api.HandleFunc("/register", auth.register).Methods(http.MethodPost).Name("auth.register")
	api.HandleFunc("/login", auth.login).Methods(http.MethodPost).Name("auth.login")
	api.HandleFunc("/profile", auth.getProfile).Methods(http.MethodGet).Name("profile.get")
	api.HandleFunc("/profile", auth.updateProfile).Methods(http.MethodPut).Name("profile.update")

	vehicles := &vehicleHandler{vehicles: svc.Vehicles, availability: svc.Availability}
	api.HandleFunc("/vehicles", vehicles.list).Methods(http.MethodGet).Name("vehicles.list")
	api.HandleFunc("/vehicles", vehicles.create).Methods(http.MethodPost).Name("vehicles.create")
	api.HandleFunc("/vehicles/{id:[0-9]+}", vehicles.get).Methods(http.MethodGet).Name("vehicles.get")
	api.HandleFunc("/vehicles/{id:[0-9]+}", vehicles.update).Methods(http.MethodPut).Name("vehicles.update")
	api.HandleFunc("/vehicles/{id:[0-9]+}", vehicles.delete).Methods(http.MethodDelete).Name("vehicles.delete")
	api.HandleFunc("/vehicles/{id:[0-9]+}/unavailable-dates", vehicles.unavailable).Methods(http.MethodGet).Name("vehicles.unavailable")
	api.HandleFunc("/branches", vehicles.branches).Methods(http.MethodGet).Name("branches.list")
	api.HandleFunc("/categories", vehicles.categories).Methods(http.MethodGet).Name("categories.list")

	reservations := &reservationHandler{reservations: svc.Reservations, damage: svc.Damage}
	api.HandleFunc("/reservations", reservations.create).Methods(http.MethodPost).Name("reservations.create")
	api.HandleFunc("/reservations", reservations.list).Methods(http.MethodGet).Name("reservations.list")
	api.HandleFunc("/reservations/export", reservations.exportXLSX).Methods(http.MethodGet).Name("reservations.export")
	api.HandleFunc("/reservations/{id:[0-9]+}", reservations.get).Methods(http.MethodGet).Name("reservations.get")
	api.HandleFunc("/reservations/{id:[0-9]+}", reservations.update).Methods(http.MethodPut).Name("reservations.update")
	api.HandleFunc("/reservations/{id:[0-9]+}/damage-reports", reservations.listDamage).Methods(http.MethodGet).Name("reservations.damages")

	payments := &paymentHandler{payments: svc.Payments, damage: svc.Damage}
	api.HandleFunc("/payments", payments.create).Methods(http.MethodPost).Name("payments.create")
	api.HandleFunc("/payments/{id:[0-9]+}", payments.get).Methods(http.MethodGet).Name("payments.get")
	api.HandleFunc("/damage-reports", payments.reportDamage).Methods(http.MethodPost).Name("damage.create")

	feedback := &feedbackHandler{complaints: svc.Complaints, reviews: svc.Reviews}
	api.HandleFunc("/complaints", feedback.listComplaints).Methods(http.MethodGet).Name("complaints.list")
	api.HandleFunc("/complaints", feedback.submitComplaint).Methods(http.MethodPost).Name("complaints.create")
	api.HandleFunc("/complaints/{id:[0-9]+}", feedback.resolveComplaint).Methods(http.MethodPut).Name("complaints.resolve")
	api.HandleFunc("/reviews", feedback.listReviews).Methods(http.MethodGet).Name("reviews.list")
	api.HandleFunc("/reviews", feedback.submitReview).Methods(http.MethodPost).Name("reviews.create")

	documents := &documentHandler{documents: svc.Documents, maxUpload: cfg.MaxUploadBytes}
	api.HandleFunc("/documents", documents.listMine).Methods(http.MethodGet).Name("documents.list")
	api.HandleFunc("/documents", documents.upload).Methods(http.MethodPost).Name("documents.create")
	api.HandleFunc("/documents/all", documents.listAll).Methods(http.MethodGet).Name("documents.all")
	api.HandleFunc("/documents/{id:[0-9]+}", documents.delete).Methods(http.MethodDelete).Name("documents.delete")
	api.HandleFunc("/documents/{id:[0-9]+}/approve", documents.approve).Methods(http.MethodPost).Name("documents.approve")
	api.HandleFunc("/documents/{id:[0-9]+}/reject", documents.reject).Methods(http.MethodPost).Name("documents.reject")
	api.HandleFunc("/files/{key}", documents.download).Methods(http.MethodGet).Name("files.get")

	users := &userHandler{users: svc.Users}
	api.HandleFunc("/users", users.list).Methods(http.MethodGet).Name("users.list")
	api.HandleFunc("/users", users.create).Methods(http.MethodPost).Name("users.create")
	api.HandleFunc("/users/{id:[0-9]+}", users.update).Methods(http.MethodPut).Name("users.update")
	api.HandleFunc("/users/{id:[0-9]+}", users.delete).Methods(http.MethodDelete).Name("users.delete")

	admin := newAdminHandler(svc.Stats, svc.Activity, cfg.Hub, allowOrigin)
	api.HandleFunc("/stats", admin.getStats).Methods(http.MethodGet).Name("stats.get")
	api.HandleFunc("/logs", admin.listLogs).Methods(http.MethodGet).Name("logs.list")
	api.HandleFunc("/logs/stream", admin.streamLogs).Methods(http.MethodGet).Name("logs.stream")

	return requestLogger(corsHandler(allowOrigin)(r))
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

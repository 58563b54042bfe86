// Package http exposes the desk workflow as a JSON API.
package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"equiptrack-backend/internal/security"
	"equiptrack-backend/internal/service"
)

// Handler serves every API route.
type Handler struct {
	checkout    service.CheckoutService
	circulation service.CirculationService
	inventory   service.InventoryService
	auth        *security.Authenticator
	tokens      security.TokenManager
}

func NewHandler(
	checkoutSvc service.CheckoutService,
	circulationSvc service.CirculationService,
	inventorySvc service.InventoryService,
	auth *security.Authenticator,
	tokens security.TokenManager,
) *Handler {
	return &Handler{
		checkout:    checkoutSvc,
		circulation: circulationSvc,
		inventory:   inventorySvc,
		auth:        auth,
		tokens:      tokens,
	}
}

// NewRouter registers the routes. Every route is named; the name selects its
// security level.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogger, h.authenticate)

	router.HandleFunc("/healthz", h.Health).Methods("GET").Name("health")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET").Name("metrics")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", h.Login).Methods("POST").Name("login")

	// checkout sessions
	api.HandleFunc("/sessions", h.StartSession).Methods("POST").Name("sessions.start")
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET").Name("sessions.get")
	api.HandleFunc("/sessions/{id}", h.CancelSession).Methods("DELETE").Name("sessions.cancel")
	api.HandleFunc("/sessions/{id}/user", h.SelectUser).Methods("PUT").Name("sessions.user")
	api.HandleFunc("/sessions/{id}/user", h.CreateUserAndSelect).Methods("POST").Name("sessions.user.create")
	api.HandleFunc("/sessions/{id}/scan", h.Scan).Methods("POST").Name("sessions.scan")
	api.HandleFunc("/sessions/{id}/items", h.AddItem).Methods("POST").Name("sessions.items.add")
	api.HandleFunc("/sessions/{id}/items/{equipmentId}", h.SetQuantity).Methods("PUT").Name("sessions.items.qty")
	api.HandleFunc("/sessions/{id}/items/{equipmentId}", h.RemoveItem).Methods("DELETE").Name("sessions.items.del")
	api.HandleFunc("/sessions/{id}/review", h.Review).Methods("POST").Name("sessions.review")
	api.HandleFunc("/sessions/{id}/due-date", h.SetDueDate).Methods("PUT").Name("sessions.due_date")
	api.HandleFunc("/sessions/{id}/notes", h.SetNotes).Methods("PUT").Name("sessions.notes")
	api.HandleFunc("/sessions/{id}/back", h.Back).Methods("POST").Name("sessions.back")
	api.HandleFunc("/sessions/{id}/commit", h.Commit).Methods("POST").Name("sessions.commit")
	api.HandleFunc("/users", h.SearchUsers).Methods("GET").Name("users.search")

	// lookup and circulation
	api.HandleFunc("/resolve", h.Resolve).Methods("GET").Name("resolve")
	api.HandleFunc("/delivery-notes/{id}", h.GetDeliveryNote).Methods("GET").Name("delivery_notes.get")
	api.HandleFunc("/checkouts/{id}/return", h.Return).Methods("POST").Name("checkouts.return")
	api.HandleFunc("/checkouts/{id}/lost", h.MarkLost).Methods("POST").Name("checkouts.lost")
	api.HandleFunc("/checkouts/{id}/recover", h.Recover).Methods("POST").Name("checkouts.recover")

	// inventory
	api.HandleFunc("/equipment", h.ListEquipment).Methods("GET").Name("equipment.list")
	api.HandleFunc("/equipment", h.CreateEquipment).Methods("POST").Name("equipment.create")
	api.HandleFunc("/equipment/{id}", h.GetEquipment).Methods("GET").Name("equipment.get")
	api.HandleFunc("/equipment/{id}/stock", h.AdjustStock).Methods("PUT").Name("equipment.stock")
	api.HandleFunc("/equipment/{id}/instances", h.ProvisionInstances).Methods("POST").Name("equipment.instances")
	api.HandleFunc("/equipment/{id}/maintenance", h.StartMaintenance).Methods("POST").Name("equipment.maintenance.start")
	api.HandleFunc("/equipment/{id}/maintenance", h.EndMaintenance).Methods("DELETE").Name("equipment.maintenance.end")
	api.HandleFunc("/equipment/{id}/retire", h.Retire).Methods("POST").Name("equipment.retire")

	// maintenance sweeps
	api.HandleFunc("/admin/reconcile", h.Reconcile).Methods("POST").Name("admin.reconcile")
	api.HandleFunc("/admin/mark-overdue", h.MarkOverdue).Methods("POST").Name("admin.mark_overdue")

	return router
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware панели владельца.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/owner", func(r chi.Router) {
		r.Use(custommiddleware.BearerAuth)

		r.Get("/reservations", h.GetReservations)
		r.Get("/reservations/stats", h.GetStats)
		r.Post("/reservations/bulk/{action}", h.ApplyBulkAction)
		r.Post("/reservations/{id}/actions/{action}", h.ApplyAction)

		r.Get("/actions", h.GetActions)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

package quotations

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quotations", h.List)
	r.Post("/quotations", h.Create)
	r.Get("/quotations/preview", h.Preview)
	r.Get("/quotations/{id}", h.Show)
	r.Put("/quotations/{id}", h.Update)
	r.Delete("/quotations/{id}", h.Delete)
	r.Post("/quotations/{id}/approve", h.Approve)
	r.Post("/quotations/{id}/reject", h.Reject)
	r.Post("/quotations/{id}/convert", h.Convert)
}

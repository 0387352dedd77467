package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/dashboard", h.dashboard)
	r.Get("/reports/due", h.due)
	r.Get("/reports/udhaar.xlsx", h.export)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	dash, err := h.service.Build(r.Context(), userID)
	if err != nil {
		h.logger.Error("build dashboard", slog.Any("error", err), slog.Int64("user_id", userID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) due(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		d, err := shared.ParseDate(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid as_of", err.Error())
			return
		}
		asOf = d.Time
	}
	rows, err := h.service.DueCollections(r.Context(), userID, asOf)
	if err != nil {
		h.logger.Error("due collections", slog.Any("error", err), slog.Int64("user_id", userID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"as_of": shared.NewDate(asOf), "customers": rows})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="udhaar.xlsx"`)
	if err := h.service.ExportXLSX(r.Context(), userID, w); err != nil {
		h.logger.Error("export workbook", slog.Any("error", err), slog.Int64("user_id", userID))
		httpx.RespondError(w, err)
	}
}

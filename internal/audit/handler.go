package audit

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
	r.Get("/audit", h.timeline)
	r.Get("/audit/export.csv", h.export)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}
	result, err := h.service.Timeline(r.Context(), userID, filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err), slog.Int64("user_id", userID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="activity.csv"`)
	if err := h.service.ExportCSV(r.Context(), userID, filters, w); err != nil {
		h.logger.Error("audit export", slog.Any("error", err), slog.Int64("user_id", userID))
		httpx.RespondError(w, err)
	}
}

// parseFilters reads from/to as calendar days; to is inclusive.
func parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	filters := TimelineFilters{Entity: q.Get("entity"), Action: q.Get("action")}
	from, err := shared.ParseDate(q.Get("from"))
	if err != nil {
		return filters, err
	}
	filters.From = from.Time
	to, err := shared.ParseDate(q.Get("to"))
	if err != nil {
		return filters, err
	}
	if !to.IsZero() {
		filters.To = to.Time.Add(24 * time.Hour)
	}
	filters.Page, filters.PageSize = shared.PageParams(r)
	return filters, nil
}

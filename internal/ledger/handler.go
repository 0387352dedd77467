package ledger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/shared"
)

// Handler manages collection and khata endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/collections", h.listCollections)
	r.Post("/collections", h.recordCollection)
	r.Get("/collections/{id}", h.showCollection)
	r.Put("/collections/{id}", h.updateCollection)
	r.Delete("/collections/{id}", h.deleteCollection)

	r.Get("/transactions", h.listTransactions)
	r.Post("/transactions", h.createTransaction)
	r.Delete("/transactions/{id}", h.deleteTransaction)

	r.Get("/customers/{id}/statement", h.showStatement)
}

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	page, perPage := shared.PageParams(r)
	req := ListCollectionsRequest{Limit: perPage, Offset: (page - 1) * perPage}

	customerID, err := httpx.QueryInt64(r, "customer_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if customerID > 0 {
		req.CustomerID = &customerID
	}
	orderID, err := httpx.QueryInt64(r, "order_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if orderID > 0 {
		req.OrderID = &orderID
	}

	list, total, err := h.service.ListCollections(r.Context(), userID, req)
	if err != nil {
		h.logger.Error("list collections", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Collection{}
	}
	httpx.JSON(w, http.StatusOK, shared.Page[Collection]{Items: list, Pagination: shared.NewPagination(page, perPage, total)})
}

func (h *Handler) recordCollection(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	var input RecordCollectionInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.IdempotencyKey = r.Header.Get("Idempotency-Key")

	collection, err := h.service.RecordCollection(r.Context(), userID, input)
	if err != nil {
		h.logger.Error("record collection", slog.Any("error", err), slog.Int64("customer_id", input.CustomerID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, collection)
}

func (h *Handler) showCollection(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	collection, err := h.service.GetCollection(r.Context(), userID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, collection)
}

func (h *Handler) updateCollection(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input UpdateCollectionInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	collection, err := h.service.UpdateCollection(r.Context(), userID, id, input)
	if err != nil {
		h.logger.Error("update collection", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, collection)
}

func (h *Handler) deleteCollection(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteCollection(r.Context(), userID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	customerID, err := httpx.QueryInt64(r, "customer_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var filter *int64
	if customerID > 0 {
		filter = &customerID
	}
	txns, err := h.service.ListTransactions(r.Context(), userID, filter)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if txns == nil {
		txns = []Transaction{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": txns})
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	var input CreateTransactionInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	txn, err := h.service.CreateTransaction(r.Context(), userID, input)
	if err != nil {
		h.logger.Error("create transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, txn)
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteTransaction(r.Context(), userID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) showStatement(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := h.service.Statement(r.Context(), userID, id)
	if err != nil {
		h.logger.Error("customer statement", slog.Any("error", err), slog.Int64("customer_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

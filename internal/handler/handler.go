// Package handler содержит HTTP-обработчики API панели владельца.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/middleware"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/model"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/service"
)

const (
	defaultActionsLimit = 50
	maxActionsLimit     = 500
	maxBulkItems        = 200
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	LoadReservations(ctx context.Context, p model.Principal, f model.ListFilter) ([]model.Reservation, error)
	Stats(ctx context.Context, p model.Principal) (model.Stats, error)
	Dispatch(ctx context.Context, p model.Principal, id int64, action model.Action, payload model.ActionPayload) model.ActionResult
	BulkDispatch(ctx context.Context, p model.Principal, ids []int64, action model.Action) []model.ActionResult
	ListActions(ctx context.Context, p model.Principal, limit int) ([]model.ActionEntry, error)
}

// Handler реализует HTTP-обработчики API панели владельца.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
	}
}

// GetReservations загружает список бронирований владельца с фильтрами status, date и search.
func (h *Handler) GetReservations(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	filter := model.ListFilter{
		Status: q.Get("status"),
		Date:   q.Get("date"),
		Search: q.Get("search"),
	}

	list, err := h.service.LoadReservations(r.Context(), p, filter)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateFilter) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if errors.Is(err, service.ErrUnauthorized) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("load reservations error", zap.Error(err), zap.String("owner", p.Key()))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	if len(list) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// GetStats возвращает статистику владельца.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	s, err := h.service.Stats(r.Context(), p)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("stats error", zap.Error(err), zap.String("owner", p.Key()))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, s)
}

// ApplyAction выполняет действие над одним бронированием.
func (h *Handler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var payload model.ActionPayload
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}
	if payload.Amount != nil && payload.Amount.IsNegative() {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	action := model.Action(chi.URLParam(r, "action"))
	res := h.service.Dispatch(r.Context(), p, id, action, payload)

	if !res.OK {
		h.logger.Info("action failed",
			zap.String("owner", p.Key()),
			zap.String("user_id", p.UserID),
			zap.Int64("reservation_id", id),
			zap.String("action", string(action)),
			zap.String("kind", string(res.ErrorKind)),
			zap.String("message", res.Message),
		)
	}

	writeJSON(w, statusForResult(res), res)
}

type bulkRequest struct {
	IDs []int64 `json:"ids"`
}

type bulkResponse struct {
	Results   []model.ActionResult `json:"results"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
}

// ApplyBulkAction выполняет действие над несколькими бронированиями.
func (h *Handler) ApplyBulkAction(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 || len(req.IDs) > maxBulkItems {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	action := model.Action(chi.URLParam(r, "action"))
	if !action.Valid() {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	results := h.service.BulkDispatch(r.Context(), p, req.IDs, action)

	resp := bulkResponse{Results: results}
	for _, res := range results {
		if res.OK {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetActions возвращает журнал действий владельца.
func (h *Handler) GetActions(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	limit := defaultActionsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		limit = min(n, maxActionsLimit)
	}

	entries, err := h.service.ListActions(r.Context(), p, limit)
	if err != nil {
		h.logger.Error("list actions error", zap.Error(err), zap.String("owner", p.Key()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(entries) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func statusForResult(res model.ActionResult) int {
	if res.OK {
		return http.StatusOK
	}
	switch res.ErrorKind {
	case model.ErrorKindNotFound:
		return http.StatusNotFound
	case model.ErrorKindBusy, model.ErrorKindValidationConflict:
		return http.StatusConflict
	case model.ErrorKindUnsupported:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

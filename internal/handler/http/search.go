package http

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/internal/service"
	apperrors "github.com/francpeal/buscador/pkg/errors"
	"github.com/francpeal/buscador/pkg/httputil"
	"github.com/francpeal/buscador/pkg/pagination"
)

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// SearchItems handles GET /items
func (h *SearchHandler) SearchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := pagination.FromValues(q)

	req := &domain.ItemSearchRequest{
		Query:     strings.TrimSpace(q.Get("q")),
		Page:      p.Page,
		Size:      p.Size,
		StockMin:  parseStockMin(q.Get("stock_min")),
		Almacenes: domain.ParseMulti(q["almacen"]),
		Marcas:    domain.ParseMulti(q["marca"]),
		Division:  single(q, "division"),
		Linea:     single(q, "linea"),
		Clase:     single(q, "clase"),
		Subclase:  single(q, "subclase"),
		Familia:   single(q, "familia"),
		Sort:      domain.ParseSort(q.Get("sort")),
	}

	result, err := h.service.SearchItems(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// SearchClients handles GET /clients
func (h *SearchHandler) SearchClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := pagination.FromValues(q)

	req := &domain.ClientSearchRequest{
		Query: strings.TrimSpace(q.Get("q")),
		Page:  p.Page,
		Size:  p.Size,
		Tipo:  single(q, "tipo"),
		RUC:   single(q, "ruc"),
	}

	result, err := h.service.SearchClients(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// SuggestItems handles GET /items/suggest
func (h *SearchHandler) SuggestItems(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.SuggestItems(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}

// SuggestClients handles GET /clients/suggest
func (h *SearchHandler) SuggestClients(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.SuggestClients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}

// GetItem handles GET /items/{codigo}
func (h *SearchHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetItem(r.Context(), chi.URLParam(r, "codigo"))
	if err != nil {
		h.writeDetailError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

// GetClient handles GET /clients/{cliente_id}
func (h *SearchHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetClient(r.Context(), chi.URLParam(r, "cliente_id"))
	if err != nil {
		h.writeDetailError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

// writeDetailError answers a missing row with the compact not_found body.
func (h *SearchHandler) writeDetailError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		httputil.WriteNotFound(w)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}

// single returns the trimmed first value of key.
func single(q url.Values, key string) string {
	return strings.TrimSpace(q.Get(key))
}

// parseStockMin accepts integers and decimals; anything else, and negatives,
// mean no minimum.
func parseStockMin(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return max(n, 0)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Ceil(f))
}

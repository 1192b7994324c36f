package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/internal/engine"
	apperrors "github.com/francpeal/buscador/pkg/errors"
	"github.com/francpeal/buscador/pkg/pagination"
)

// DetailLookup reads item and client detail from the system of record.
type DetailLookup interface {
	ItemSummary(ctx context.Context, codigo string) (map[string]any, error)
	ClientSummary(ctx context.Context, clienteID string) (map[string]any, error)
	ItemHistory(ctx context.Context, codigo string) ([]domain.SalesMonth, error)
	ClientHistory(ctx context.Context, clienteID string) ([]domain.SalesMonth, error)
}

var errDetailsDisabled = errors.New("detail lookups are not configured")

// SearchService implements the read side: searches and suggestions against
// the engine, detail views against the relational source.
type SearchService struct {
	engine  engine.Searcher
	details DetailLookup
	logger  *slog.Logger
}

// NewSearchService creates a new search service. details may be nil, in
// which case detail lookups report the backend as unavailable.
func NewSearchService(eng engine.Searcher, details DetailLookup, logger *slog.Logger) *SearchService {
	return &SearchService{
		engine:  eng,
		details: details,
		logger:  logger,
	}
}

// SearchItems runs a faceted item search. Page and size are clamped and an
// unknown sort falls back to relevance.
func (s *SearchService) SearchItems(ctx context.Context, req *domain.ItemSearchRequest) (*domain.ItemSearchResult, error) {
	p := pagination.Clamp(req.Page, req.Size)
	req.Page, req.Size = p.Page, p.Size
	req.Query = strings.TrimSpace(req.Query)
	if req.Sort == "" {
		req.Sort = domain.SortRelevance
	}
	if req.StockMin < 0 {
		req.StockMin = 0
	}

	result, err := s.engine.SearchItems(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}

	s.logger.DebugContext(ctx, "item search executed",
		slog.String("query", req.Query),
		slog.String("sort", string(req.Sort)),
		slog.Int64("total", result.Total),
		slog.Int64("took_ms", result.Took),
	)

	return result, nil
}

// SearchClients runs a client search.
func (s *SearchService) SearchClients(ctx context.Context, req *domain.ClientSearchRequest) (*domain.ClientSearchResult, error) {
	p := pagination.Clamp(req.Page, req.Size)
	req.Page, req.Size = p.Page, p.Size
	req.Query = strings.TrimSpace(req.Query)

	result, err := s.engine.SearchClients(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search clients: %w", err)
	}

	s.logger.DebugContext(ctx, "client search executed",
		slog.String("query", req.Query),
		slog.Int64("total", result.Total),
		slog.Int64("took_ms", result.Took),
	)

	return result, nil
}

// SuggestItems returns completion suggestions over item codes and descriptions.
func (s *SearchService) SuggestItems(ctx context.Context, prefix string) (domain.Suggestion, error) {
	return s.suggest(ctx, domain.EntityItem, prefix)
}

// SuggestClients returns completion suggestions over RUCs and company names.
func (s *SearchService) SuggestClients(ctx context.Context, prefix string) (domain.Suggestion, error) {
	return s.suggest(ctx, domain.EntityClient, prefix)
}

func (s *SearchService) suggest(ctx context.Context, e domain.Entity, prefix string) (domain.Suggestion, error) {
	sug, err := s.engine.Suggest(ctx, e, prefix)
	if err != nil {
		return nil, fmt.Errorf("suggest %s: %w", e, err)
	}
	if sug == nil {
		sug = domain.Suggestion{}
	}
	return sug, nil
}

// GetItem returns the item summary with its six-month sales history.
func (s *SearchService) GetItem(ctx context.Context, codigo string) (*domain.ItemDetail, error) {
	codigo = strings.TrimSpace(codigo)
	if codigo == "" {
		return nil, apperrors.NotFound(domain.EntityItem.Label(), codigo)
	}
	if s.details == nil {
		return nil, apperrors.Unavailable("postgres", errDetailsDisabled)
	}

	item, err := s.details.ItemSummary(ctx, codigo)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	hist, err := s.details.ItemHistory(ctx, codigo)
	if err != nil {
		return nil, fmt.Errorf("get item history: %w", err)
	}
	return &domain.ItemDetail{Item: item, Historico: nonNil(hist)}, nil
}

// GetClient returns the client summary with its six-month purchase history.
func (s *SearchService) GetClient(ctx context.Context, clienteID string) (*domain.ClientDetail, error) {
	clienteID = strings.TrimSpace(clienteID)
	if clienteID == "" {
		return nil, apperrors.NotFound(domain.EntityClient.Label(), clienteID)
	}
	if s.details == nil {
		return nil, apperrors.Unavailable("postgres", errDetailsDisabled)
	}

	cliente, err := s.details.ClientSummary(ctx, clienteID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	hist, err := s.details.ClientHistory(ctx, clienteID)
	if err != nil {
		return nil, fmt.Errorf("get client history: %w", err)
	}
	return &domain.ClientDetail{Cliente: cliente, Historico: nonNil(hist)}, nil
}

func nonNil(h []domain.SalesMonth) []domain.SalesMonth {
	if h == nil {
		return []domain.SalesMonth{}
	}
	return h
}

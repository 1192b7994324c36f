package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/internal/engine/memory"
	apperrors "github.com/francpeal/buscador/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubDetails struct {
	items   map[string]map[string]any
	history map[string][]domain.SalesMonth
	histErr error
}

func (d *stubDetails) ItemSummary(_ context.Context, codigo string) (map[string]any, error) {
	if it, ok := d.items[codigo]; ok {
		return it, nil
	}
	return nil, apperrors.NotFound("item", codigo)
}

func (d *stubDetails) ClientSummary(_ context.Context, id string) (map[string]any, error) {
	if it, ok := d.items[id]; ok {
		return it, nil
	}
	return nil, apperrors.NotFound("client", id)
}

func (d *stubDetails) ItemHistory(_ context.Context, codigo string) ([]domain.SalesMonth, error) {
	return d.history[codigo], d.histErr
}

func (d *stubDetails) ClientHistory(_ context.Context, id string) ([]domain.SalesMonth, error) {
	return d.history[id], d.histErr
}

func newTestService(t *testing.T, details DetailLookup) (*SearchService, *memory.Engine) {
	t.Helper()
	eng := memory.New()
	require.NoError(t, eng.Bulk(context.Background(), domain.EntityItem, []domain.BulkAction{
		{ID: "A-1", Document: domain.ItemDocument{Codigo: "A-1", Descripcion: "TUBO PVC", StockTotal: 5, Suggest: domain.Suggest{Input: []string{"A-1", "TUBO PVC"}}}},
		{ID: "A-2", Document: domain.ItemDocument{Codigo: "A-2", Descripcion: "CODO PVC", StockTotal: 9}},
	}))
	require.NoError(t, eng.Bulk(context.Background(), domain.EntityClient, []domain.BulkAction{
		{ID: "C1", Document: domain.ClientDocument{ClienteID: "C1", RUC: "201", RazonSocial: "ACME", Suggest: domain.Suggest{Input: []string{"201", "ACME"}}}},
	}))
	return NewSearchService(eng, details, newTestLogger()), eng
}

func TestSearchItems_ClampsPaging(t *testing.T) {
	svc, _ := newTestService(t, nil)

	req := &domain.ItemSearchRequest{Query: "  pvc ", Page: 0, Size: 1000, StockMin: -3}
	res, err := svc.SearchItems(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 100, res.Size)
	assert.Equal(t, int64(2), res.Total)
	assert.Equal(t, "pvc", req.Query)
	assert.Equal(t, domain.SortRelevance, req.Sort)
	assert.Zero(t, req.StockMin)
}

func TestSearchItems_Sorted(t *testing.T) {
	svc, _ := newTestService(t, nil)

	res, err := svc.SearchItems(context.Background(), &domain.ItemSearchRequest{Page: 1, Size: 20, Sort: domain.SortStock})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "A-2", res.Items[0]["codigo"])
}

func TestSearchClients(t *testing.T) {
	svc, _ := newTestService(t, nil)

	res, err := svc.SearchClients(context.Background(), &domain.ClientSearchRequest{Query: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 1, res.Size)
	require.Len(t, res.Clients, 1)
}

func TestSuggest(t *testing.T) {
	svc, _ := newTestService(t, nil)

	s, err := svc.SuggestItems(context.Background(), "tu")
	require.NoError(t, err)
	assert.Len(t, s["options"], 1)

	s, err = svc.SuggestClients(context.Background(), "ac")
	require.NoError(t, err)
	assert.Len(t, s["options"], 1)
}

type failingSearcher struct{ *memory.Engine }

func (failingSearcher) Suggest(context.Context, domain.Entity, string) (domain.Suggestion, error) {
	return nil, errors.New("cluster red")
}

func TestSuggest_Error(t *testing.T) {
	svc := NewSearchService(failingSearcher{memory.New()}, nil, newTestLogger())
	_, err := svc.SuggestItems(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suggest items")
}

func TestGetItem(t *testing.T) {
	details := &stubDetails{
		items:   map[string]map[string]any{"A-1": {"codigo": "A-1"}},
		history: map[string][]domain.SalesMonth{"A-1": {{Mes: "2024-04", Qty: 2, Venta: 20}}},
	}
	svc, _ := newTestService(t, details)

	d, err := svc.GetItem(context.Background(), " A-1 ")
	require.NoError(t, err)
	assert.Equal(t, "A-1", d.Item["codigo"])
	assert.Len(t, d.Historico, 1)
}

func TestGetItem_NotFound(t *testing.T) {
	svc, _ := newTestService(t, &stubDetails{})

	_, err := svc.GetItem(context.Background(), "ZZZ")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.GetItem(context.Background(), "  ")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetClient_EmptyHistory(t *testing.T) {
	details := &stubDetails{items: map[string]map[string]any{"C1": {"cliente_id": "C1"}}}
	svc, _ := newTestService(t, details)

	d, err := svc.GetClient(context.Background(), "C1")
	require.NoError(t, err)
	assert.NotNil(t, d.Historico)
	assert.Empty(t, d.Historico)
}

func TestGetClient_HistoryError(t *testing.T) {
	details := &stubDetails{items: map[string]map[string]any{"C1": {}}, histErr: errors.New("timeout")}
	svc, _ := newTestService(t, details)

	_, err := svc.GetClient(context.Background(), "C1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetItem_NoDetails(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.GetItem(context.Background(), "A-1")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}

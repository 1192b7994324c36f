package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/pkg/database"
	apperrors "github.com/francpeal/buscador/pkg/errors"
)

func setupSource(t *testing.T) (*Source, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock), mock
}

var lastSale = time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

func itemRowValues(codigo string, stock string) []any {
	return []any{
		codigo, "TUBO PVC", "FERR", "TUB", "C1", "S1", "F1", "PAVCO",
		int64(15), stock, decimal.RequireFromString("42"), decimal.RequireFromString("1234.567"), lastSale,
	}
}

func TestRows_StreamsItems(t *testing.T) {
	src, mock := setupSource(t)

	mock.ExpectQuery(`^SELECT \* FROM vw_items_search ORDER BY codigo$`).
		WillReturnRows(pgxmock.NewRows(domain.ItemColumns).
			AddRow(itemRowValues("A-1", `[{"almacen":"W1","qty":10}]`)...).
			AddRow(itemRowValues("A-2", "null")...))

	it, err := src.Rows(context.Background(), domain.EntityItem)
	require.NoError(t, err)
	defer it.Close()

	var codes []any
	for it.Next() {
		row := it.Row()
		assert.Len(t, row, len(domain.ItemColumns))
		codes = append(codes, row["codigo"])
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []any{"A-1", "A-2"}, codes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRows_Clients(t *testing.T) {
	src, mock := setupSource(t)

	mock.ExpectQuery(`^SELECT \* FROM vw_clients_search ORDER BY cliente_id$`).
		WillReturnRows(pgxmock.NewRows(domain.ClientColumns).
			AddRow("C1", "20123456789", "ACME SAC", "MAYORISTA", int64(1), nil, nil, `["A-1"]`))

	it, err := src.Rows(context.Background(), domain.EntityClient)
	require.NoError(t, err)
	require.True(t, it.Next())
	assert.Equal(t, "ACME SAC", it.Row()["razon_social"])
	assert.False(t, it.Next())
	it.Close()
	it.Close()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRows_QueryError(t *testing.T) {
	src, mock := setupSource(t)
	mock.ExpectQuery(`SELECT \* FROM vw_items_search`).WillReturnError(errors.New("relation does not exist"))

	_, err := src.Rows(context.Background(), domain.EntityItem)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vw_items_search")
}

func TestRows_IterationError(t *testing.T) {
	src, mock := setupSource(t)
	mock.ExpectQuery(`SELECT \* FROM vw_items_search ORDER BY codigo`).
		WillReturnRows(pgxmock.NewRows(domain.ItemColumns).
			AddRow(itemRowValues("A-1", "[]")...).
			AddRow(itemRowValues("A-2", "[]")...).
			RowError(1, errors.New("connection reset")))

	it, err := src.ItemRows(context.Background())
	require.NoError(t, err)
	defer it.Close()

	n := 0
	for it.Next() {
		n++
	}
	assert.Equal(t, 1, n)
	require.Error(t, it.Err())
}

func TestRows_UnknownEntity(t *testing.T) {
	src, _ := setupSource(t)
	_, err := src.Rows(context.Background(), domain.Entity("orders"))
	assert.Error(t, err)
}

func TestItemSummary(t *testing.T) {
	src, mock := setupSource(t)

	mock.ExpectQuery(`SELECT \* FROM vw_items_search WHERE codigo = \$1 LIMIT 1`).
		WithArgs("A-1").
		WillReturnRows(pgxmock.NewRows(domain.ItemColumns).AddRow(itemRowValues("A-1", "")...))

	item, err := src.ItemSummary(context.Background(), "A-1")
	require.NoError(t, err)
	assert.Equal(t, "A-1", item["codigo"])
	assert.Equal(t, 1234.567, item["venta_usd_6m"])
	assert.Equal(t, []any{}, item["stock_por_almacen"])
	assert.Equal(t, lastSale, item["fecha_ultima_venta"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemSummary_NotFound(t *testing.T) {
	src, mock := setupSource(t)

	mock.ExpectQuery(`SELECT \* FROM vw_items_search WHERE codigo`).
		WithArgs("NOPE").
		WillReturnRows(pgxmock.NewRows(domain.ItemColumns))

	_, err := src.ItemSummary(context.Background(), "NOPE")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientSummary(t *testing.T) {
	src, mock := setupSource(t)

	mock.ExpectQuery(`SELECT \* FROM vw_clients_search WHERE cliente_id::text = \$1`).
		WithArgs("42").
		WillReturnRows(pgxmock.NewRows(domain.ClientColumns).
			AddRow(int64(42), "20123456789", "ACME SAC", "MAYORISTA", int64(3), decimal.RequireFromString("99.5"), nil, []byte(`["A-1","A-2"]`)))

	c, err := src.ClientSummary(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), c["cliente_id"])
	assert.Equal(t, 99.5, c["venta_usd_6m"])
	assert.Equal(t, []any{"A-1", "A-2"}, c["productos_top_6m"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientSummary_QueryError(t *testing.T) {
	src, mock := setupSource(t)
	mock.ExpectQuery(`FROM vw_clients_search`).WithArgs("1").WillReturnError(errors.New("timeout"))

	_, err := src.ClientSummary(context.Background(), "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

var historyColumns = []string{"mes", "qty", "venta"}

func TestItemHistory(t *testing.T) {
	src, mock := setupSource(t)

	mock.ExpectQuery(`SELECT .+ FROM ventas WHERE codigo = \$1 .+ GROUP BY 1`).
		WithArgs("A-1").
		WillReturnRows(pgxmock.NewRows(historyColumns).
			AddRow("2024-03", int64(10), 120.5).
			AddRow("2024-04", int64(4), 48.0))

	hist, err := src.ItemHistory(context.Background(), "A-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.SalesMonth{
		{Mes: "2024-03", Qty: 10, Venta: 120.5},
		{Mes: "2024-04", Qty: 4, Venta: 48},
	}, hist)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientHistory_Empty(t *testing.T) {
	src, mock := setupSource(t)

	mock.ExpectQuery(`FROM ventas WHERE cliente_id::text = \$1`).
		WithArgs("C9").
		WillReturnRows(pgxmock.NewRows(historyColumns))

	hist, err := src.ClientHistory(context.Background(), "C9")
	require.NoError(t, err)
	assert.NotNil(t, hist)
	assert.Empty(t, hist)
}

func TestPing(t *testing.T) {
	src, mock := setupSource(t)
	mock.ExpectPing().WillReturnError(errors.New("down"))

	err := src.Ping(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}

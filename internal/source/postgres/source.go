// Package postgres reads the search views and the sales history from the
// ERP reporting database.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/internal/indexer"
	"github.com/francpeal/buscador/internal/normalize"
	"github.com/francpeal/buscador/pkg/database"
	apperrors "github.com/francpeal/buscador/pkg/errors"
)

const (
	itemsView   = "vw_items_search"
	clientsView = "vw_clients_search"
)

// Source implements indexer.Source and the detail lookups over a pgx pool.
type Source struct {
	db database.DBTX
}

// New creates a Source reading through db.
func New(db database.DBTX) *Source {
	return &Source{db: db}
}

// Rows streams every row of the view backing e.
func (s *Source) Rows(ctx context.Context, e domain.Entity) (indexer.RowIterator, error) {
	switch e {
	case domain.EntityItem:
		return s.ItemRows(ctx)
	case domain.EntityClient:
		return s.ClientRows(ctx)
	}
	return nil, fmt.Errorf("no source view for entity %q", e)
}

// ItemRows streams vw_items_search ordered by codigo.
func (s *Source) ItemRows(ctx context.Context) (*RowIter, error) {
	return s.scanView(ctx, itemsView, "codigo")
}

// ClientRows streams vw_clients_search ordered by cliente_id.
func (s *Source) ClientRows(ctx context.Context) (*RowIter, error) {
	return s.scanView(ctx, clientsView, "cliente_id")
}

// scanView reads view in key order so repeated rebuilds buffer and flush
// the same rows in the same batches.
func (s *Source) scanView(ctx context.Context, view, orderBy string) (*RowIter, error) {
	query := "SELECT * FROM " + view + " ORDER BY " + orderBy

	ctx, done := database.TraceQuery(ctx, "scan_"+view, query)
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("query %s: %w", view, err)
	}
	return &RowIter{rows: rows, view: view, done: done}, nil
}

// RowIter adapts pgx.Rows to indexer.RowIterator. Rows are decoded lazily,
// one at a time, straight off the connection.
type RowIter struct {
	rows pgx.Rows
	view string
	row  map[string]any
	err  error
	done func(error)
}

// Next advances to the next row.
func (it *RowIter) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	values, err := it.rows.Values()
	if err != nil {
		it.err = fmt.Errorf("decode %s row: %w", it.view, err)
		return false
	}
	it.row = columnMap(it.rows.FieldDescriptions(), values)
	return true
}

// Row returns the current row as a column→value map.
func (it *RowIter) Row() map[string]any { return it.row }

// Err reports the first decoding or transport error.
func (it *RowIter) Err() error {
	if it.err != nil {
		return it.err
	}
	if err := it.rows.Err(); err != nil {
		return fmt.Errorf("iterate %s rows: %w", it.view, err)
	}
	return nil
}

// Close releases the connection. It is safe to call more than once.
func (it *RowIter) Close() {
	it.rows.Close()
	if it.done != nil {
		it.done(it.Err())
		it.done = nil
	}
}

func columnMap(fields []pgconn.FieldDescription, values []any) map[string]any {
	m := make(map[string]any, len(fields))
	for i, f := range fields {
		if i < len(values) {
			m[f.Name] = values[i]
		}
	}
	return m
}

// ItemSummary returns the vw_items_search row for codigo, normalized for JSON.
func (s *Source) ItemSummary(ctx context.Context, codigo string) (map[string]any, error) {
	return s.summary(ctx, itemsView, "codigo", codigo, domain.EntityItem)
}

// ClientSummary returns the vw_clients_search row for clienteID.
func (s *Source) ClientSummary(ctx context.Context, clienteID string) (map[string]any, error) {
	return s.summary(ctx, clientsView, "cliente_id::text", clienteID, domain.EntityClient)
}

func (s *Source) summary(ctx context.Context, view, keyExpr, key string, e domain.Entity) (m map[string]any, err error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1 LIMIT 1", view, keyExpr)

	ctx, done := database.TraceQuery(ctx, "summary_"+view, query)
	defer func() { done(err) }()

	rows, err := s.db.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("query %s summary: %w", e.Label(), err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query %s summary: %w", e.Label(), err)
		}
		return nil, apperrors.NotFound(e.Label(), key)
	}
	values, err := rows.Values()
	if err != nil {
		return nil, fmt.Errorf("decode %s summary: %w", e.Label(), err)
	}

	raw := columnMap(rows.FieldDescriptions(), values)
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = normalize.Value(v)
	}
	if e == domain.EntityItem {
		out["stock_por_almacen"] = normalize.StockList(raw["stock_por_almacen"])
	}
	return out, nil
}

const historyQuery = `
		SELECT to_char(date_trunc('month', fecha), 'YYYY-MM') AS mes,
		       COALESCE(SUM(qty), 0)::bigint AS qty,
		       ROUND(COALESCE(SUM(venta_usd), 0), 2)::float8 AS venta
		FROM ventas
		WHERE %s = $1
		  AND fecha >= date_trunc('month', now()) - interval '5 months'
		GROUP BY 1
		ORDER BY 1`

// ItemHistory returns the monthly sales of codigo over the trailing six months,
// oldest first. Months without sales are absent.
func (s *Source) ItemHistory(ctx context.Context, codigo string) ([]domain.SalesMonth, error) {
	return s.history(ctx, "codigo", codigo)
}

// ClientHistory returns the monthly purchases of clienteID over the trailing six months.
func (s *Source) ClientHistory(ctx context.Context, clienteID string) ([]domain.SalesMonth, error) {
	return s.history(ctx, "cliente_id::text", clienteID)
}

func (s *Source) history(ctx context.Context, keyExpr, key string) (out []domain.SalesMonth, err error) {
	query := fmt.Sprintf(historyQuery, keyExpr)

	ctx, done := database.TraceQuery(ctx, "sales_history", query)
	defer func() { done(err) }()

	rows, err := s.db.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("query sales history: %w", err)
	}
	defer rows.Close()

	out = make([]domain.SalesMonth, 0, 6)
	for rows.Next() {
		var m domain.SalesMonth
		if err := rows.Scan(&m.Mes, &m.Qty, &m.Venta); err != nil {
			return nil, fmt.Errorf("scan sales history row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales history rows: %w", err)
	}
	return out, nil
}

// Ping checks the database connection.
func (s *Source) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return errors.Join(apperrors.ErrServiceUnavail, err)
	}
	return nil
}

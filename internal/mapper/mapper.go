// Package mapper turns source rows into index documents.
package mapper

import (
	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/internal/normalize"
)

// Item maps a vw_items_search row to its document.
func Item(row domain.ItemRow) (domain.ItemDocument, error) {
	stock, err := intColumn(domain.EntityItem, "stock_total", row.StockTotal)
	if err != nil {
		return domain.ItemDocument{}, err
	}
	qty, err := intColumn(domain.EntityItem, "qty_6m", row.Qty6m)
	if err != nil {
		return domain.ItemDocument{}, err
	}
	venta, err := moneyColumn(domain.EntityItem, "venta_usd_6m", row.VentaUSD6m)
	if err != nil {
		return domain.ItemDocument{}, err
	}

	return domain.ItemDocument{
		Codigo:            row.Codigo,
		Descripcion:       row.Descripcion,
		CategoriaDivision: row.CategoriaDivision,
		CategoriaLinea:    row.CategoriaLinea,
		CategoriaClase:    row.CategoriaClase,
		CategoriaSubclase: row.CategoriaSubclase,
		CategoriaFamilia:  row.CategoriaFamilia,
		CategoriaMarca:    row.CategoriaMarca,
		StockTotal:        stock,
		StockPorAlmacen:   normalize.StockList(row.StockPorAlmacen),
		Qty6m:             qty,
		VentaUSD6m:        venta,
		FechaUltimaVenta:  row.FechaUltimaVenta,
		Suggest:           suggest(row.Codigo, row.Descripcion),
	}, nil
}

// Client maps a vw_clients_search row to its document.
func Client(row domain.ClientRow) (domain.ClientDocument, error) {
	qty, err := intColumn(domain.EntityClient, "qty_6m", row.Qty6m)
	if err != nil {
		return domain.ClientDocument{}, err
	}
	venta, err := moneyColumn(domain.EntityClient, "venta_usd_6m", row.VentaUSD6m)
	if err != nil {
		return domain.ClientDocument{}, err
	}

	return domain.ClientDocument{
		ClienteID:        row.ClienteID,
		RUC:              row.RUC,
		RazonSocial:      row.RazonSocial,
		TipoCliente:      row.TipoCliente,
		ProductosTop6m:   normalize.List(row.ProductosTop6m),
		Qty6m:            qty,
		VentaUSD6m:       venta,
		FechaUltimaVenta: row.FechaUltimaVenta,
		Suggest:          suggest(row.RUC, row.RazonSocial),
	}, nil
}

// ItemAction maps a raw item row to a bulk action keyed by codigo.
func ItemAction(m map[string]any) (domain.BulkAction, error) {
	row, err := domain.ItemRowFromMap(m)
	if err != nil {
		return domain.BulkAction{}, err
	}
	doc, err := Item(row)
	if err != nil {
		return domain.BulkAction{}, err
	}
	return domain.BulkAction{ID: doc.Codigo, Document: doc}, nil
}

// ClientAction maps a raw client row to a bulk action keyed by cliente_id.
func ClientAction(m map[string]any) (domain.BulkAction, error) {
	row, err := domain.ClientRowFromMap(m)
	if err != nil {
		return domain.BulkAction{}, err
	}
	doc, err := Client(row)
	if err != nil {
		return domain.BulkAction{}, err
	}
	return domain.BulkAction{ID: doc.ClienteID, Document: doc}, nil
}

// suggest keeps input order and drops blanks, which the completion field rejects.
func suggest(inputs ...string) domain.Suggest {
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if in != "" {
			out = append(out, in)
		}
	}
	return domain.Suggest{Input: out}
}

func intColumn(e domain.Entity, col string, v any) (int64, error) {
	n, err := normalize.Int(v)
	if err != nil {
		return 0, &domain.MalformedRowError{Entity: e, Column: col, Err: err}
	}
	return n, nil
}

func moneyColumn(e domain.Entity, col string, v any) (float64, error) {
	f, err := normalize.Money(v)
	if err != nil {
		return 0, &domain.MalformedRowError{Entity: e, Column: col, Err: err}
	}
	return f, nil
}

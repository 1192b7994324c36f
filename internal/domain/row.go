package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ItemColumns are the columns every vw_items_search row must carry.
var ItemColumns = []string{
	"codigo", "descripcion",
	"categoria_division", "categoria_linea", "categoria_clase",
	"categoria_subclase", "categoria_familia", "categoria_marca",
	"stock_total", "stock_por_almacen",
	"qty_6m", "venta_usd_6m", "fecha_ultima_venta",
}

// ClientColumns are the columns every vw_clients_search row must carry.
var ClientColumns = []string{
	"cliente_id", "ruc", "razon_social", "tipo_cliente",
	"qty_6m", "venta_usd_6m", "fecha_ultima_venta", "productos_top_6m",
}

// ItemRow is one vw_items_search row. Text columns are already strings (NULL
// becomes ""); the remaining columns keep their driver values for the mapper.
type ItemRow struct {
	Codigo            string
	Descripcion       string
	CategoriaDivision string
	CategoriaLinea    string
	CategoriaClase    string
	CategoriaSubclase string
	CategoriaFamilia  string
	CategoriaMarca    string
	StockTotal        any
	StockPorAlmacen   any
	Qty6m             any
	VentaUSD6m        any
	FechaUltimaVenta  any
}

// ClientRow is one vw_clients_search row.
type ClientRow struct {
	ClienteID        string
	RUC              string
	RazonSocial      string
	TipoCliente      string
	Qty6m            any
	VentaUSD6m       any
	FechaUltimaVenta any
	ProductosTop6m   any
}

// ItemRowFromMap builds an ItemRow from a column→value map. A missing column
// yields a *MalformedRowError.
func ItemRowFromMap(m map[string]any) (ItemRow, error) {
	if err := requireColumns(EntityItem, m, ItemColumns); err != nil {
		return ItemRow{}, err
	}
	return ItemRow{
		Codigo:            Text(m["codigo"]),
		Descripcion:       Text(m["descripcion"]),
		CategoriaDivision: Text(m["categoria_division"]),
		CategoriaLinea:    Text(m["categoria_linea"]),
		CategoriaClase:    Text(m["categoria_clase"]),
		CategoriaSubclase: Text(m["categoria_subclase"]),
		CategoriaFamilia:  Text(m["categoria_familia"]),
		CategoriaMarca:    Text(m["categoria_marca"]),
		StockTotal:        m["stock_total"],
		StockPorAlmacen:   m["stock_por_almacen"],
		Qty6m:             m["qty_6m"],
		VentaUSD6m:        m["venta_usd_6m"],
		FechaUltimaVenta:  m["fecha_ultima_venta"],
	}, nil
}

// ClientRowFromMap builds a ClientRow from a column→value map.
func ClientRowFromMap(m map[string]any) (ClientRow, error) {
	if err := requireColumns(EntityClient, m, ClientColumns); err != nil {
		return ClientRow{}, err
	}
	return ClientRow{
		ClienteID:        Text(m["cliente_id"]),
		RUC:              Text(m["ruc"]),
		RazonSocial:      Text(m["razon_social"]),
		TipoCliente:      Text(m["tipo_cliente"]),
		Qty6m:            m["qty_6m"],
		VentaUSD6m:       m["venta_usd_6m"],
		FechaUltimaVenta: m["fecha_ultima_venta"],
		ProductosTop6m:   m["productos_top_6m"],
	}, nil
}

func requireColumns(e Entity, m map[string]any, cols []string) error {
	for _, c := range cols {
		if _, ok := m[c]; !ok {
			return &MalformedRowError{Entity: e, Column: c}
		}
	}
	return nil
}

// Text renders a scalar column as a string. NULL is "".
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

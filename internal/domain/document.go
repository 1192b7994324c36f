package domain

// Suggest is the completion-suggester seed of a document.
type Suggest struct {
	Input []string `json:"input"`
}

// ItemDocument is the indexed shape of a catalog item, keyed by Codigo.
type ItemDocument struct {
	Codigo            string  `json:"codigo"`
	Descripcion       string  `json:"descripcion"`
	CategoriaDivision string  `json:"categoria_division"`
	CategoriaLinea    string  `json:"categoria_linea"`
	CategoriaClase    string  `json:"categoria_clase"`
	CategoriaSubclase string  `json:"categoria_subclase"`
	CategoriaFamilia  string  `json:"categoria_familia"`
	CategoriaMarca    string  `json:"categoria_marca"`
	StockTotal        int64   `json:"stock_total"`
	StockPorAlmacen   []any   `json:"stock_por_almacen"`
	Qty6m             int64   `json:"qty_6m"`
	VentaUSD6m        float64 `json:"venta_usd_6m"`
	FechaUltimaVenta  any     `json:"fecha_ultima_venta"`
	Suggest           Suggest `json:"suggest"`
}

// ClientDocument is the indexed shape of a client, keyed by ClienteID.
type ClientDocument struct {
	ClienteID        string  `json:"cliente_id"`
	RUC              string  `json:"ruc"`
	RazonSocial      string  `json:"razon_social"`
	TipoCliente      string  `json:"tipo_cliente"`
	ProductosTop6m   []any   `json:"productos_top_6m"`
	Qty6m            int64   `json:"qty_6m"`
	VentaUSD6m       float64 `json:"venta_usd_6m"`
	FechaUltimaVenta any     `json:"fecha_ultima_venta"`
	Suggest          Suggest `json:"suggest"`
}

// BulkAction is one (index action, document) pair of a bulk request.
type BulkAction struct {
	ID       string
	Document any
}

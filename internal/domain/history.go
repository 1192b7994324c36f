package domain

// SalesMonth is one month of the trailing sales history.
type SalesMonth struct {
	Mes   string  `json:"mes"`
	Qty   int64   `json:"qty"`
	Venta float64 `json:"venta"`
}

// ItemDetail is the response of an item lookup.
type ItemDetail struct {
	Item      map[string]any `json:"item"`
	Historico []SalesMonth   `json:"historico_6m"`
}

// ClientDetail is the response of a client lookup.
type ClientDetail struct {
	Cliente   map[string]any `json:"cliente"`
	Historico []SalesMonth   `json:"historico_6m"`
}

package domain

import "strings"

// Sort is the ordering applied to item search results.
type Sort string

const (
	SortRelevance Sort = "relevance"
	SortStock     Sort = "stock"
	SortSales     Sort = "ventas6m"
	SortLastSale  Sort = "ultima"
)

var sortAliases = map[string]Sort{
	"relevance":          SortRelevance,
	"stock":              SortStock,
	"ventas6m":           SortSales,
	"ventas_6m":          SortSales,
	"ultima":             SortLastSale,
	"fecha":              SortLastSale,
	"ultima_venta":       SortLastSale,
	"fecha_ultima_venta": SortLastSale,
}

// ParseSort maps a user-supplied token to a Sort. Unknown tokens are relevance.
func ParseSort(raw string) Sort {
	if s, ok := sortAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return SortRelevance
}

// ParseMulti flattens repeated and comma-separated values into one list.
// Values are trimmed, empties dropped, and duplicates removed keeping the first.
func ParseMulti(values []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// ItemSearchRequest holds the parameters of an item search.
type ItemSearchRequest struct {
	Query     string
	Page      int
	Size      int
	StockMin  int64
	Almacenes []string
	Marcas    []string
	Division  string
	Linea     string
	Clase     string
	Subclase  string
	Familia   string
	Sort      Sort
}

// ClientSearchRequest holds the parameters of a client search.
type ClientSearchRequest struct {
	Query string
	Page  int
	Size  int
	Tipo  string
	RUC   string
}

// Hit is one stored document as returned by the index.
type Hit = map[string]any

// ItemSearchResult is the response body of an item search. Total is the
// engine's hit count, which may be a lower bound on very large result sets.
type ItemSearchResult struct {
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Took  int64 `json:"took"`
	Total int64 `json:"total"`
	Items []Hit `json:"items"`
}

// ClientSearchResult is the response body of a client search.
type ClientSearchResult struct {
	Page    int   `json:"page"`
	Size    int   `json:"size"`
	Took    int64 `json:"took"`
	Total   int64 `json:"total"`
	Clients []Hit `json:"clients"`
}

// Suggestion is the first completion group returned by the index, verbatim.
type Suggestion map[string]any

// HighlightField is the derived field carrying the description fragment.
const HighlightField = "descripcion_highlight"

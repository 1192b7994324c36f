package elasticsearch

import (
	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/pkg/pagination"
)

var (
	itemFields   = []string{"descripcion^2", "codigo^3", "categoria_marca", "categoria_linea", "categoria_division", "categoria_familia"}
	clientFields = []string{"razon_social^2", "ruc", "tipo_cliente"}
)

// BuildItemQuery constructs the search body for an item request. Page and
// size are clamped again so from never overflows.
func BuildItemQuery(req *domain.ItemSearchRequest) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{textClause(req.Query, itemFields)},
	}
	if filters := itemFilters(req); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	p := pagination.Clamp(req.Page, req.Size)
	body := map[string]interface{}{
		"query":            map[string]interface{}{"bool": boolQuery},
		"from":             p.Offset,
		"size":             p.Size,
		"track_total_hits": true,
	}
	if sort := itemSort(req.Sort); sort != nil {
		body["sort"] = sort
	}
	if req.Query != "" {
		body["highlight"] = map[string]interface{}{
			"fields": map[string]interface{}{
				"descripcion": map[string]interface{}{
					"fragment_size":       120,
					"number_of_fragments": 1,
				},
			},
			"pre_tags":  []string{"<em>"},
			"post_tags": []string{"</em>"},
		}
	}
	return body
}

// BuildClientQuery constructs the search body for a client request. Clients
// are always ordered by trailing revenue.
func BuildClientQuery(req *domain.ClientSearchRequest) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{textClause(req.Query, clientFields)},
	}

	var filters []interface{}
	if req.Tipo != "" {
		filters = append(filters, term("tipo_cliente", req.Tipo))
	}
	if req.RUC != "" {
		filters = append(filters, term("ruc", req.RUC))
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	p := pagination.Clamp(req.Page, req.Size)
	return map[string]interface{}{
		"query":            map[string]interface{}{"bool": boolQuery},
		"from":             p.Offset,
		"size":             p.Size,
		"track_total_hits": true,
		"sort":             descThenScore("venta_usd_6m"),
	}
}

func buildSuggestQuery(prefix string) map[string]interface{} {
	return map[string]interface{}{
		"size": 0,
		"suggest": map[string]interface{}{
			suggestName: map[string]interface{}{
				"prefix": prefix,
				"completion": map[string]interface{}{
					"field":           "suggest",
					"skip_duplicates": true,
				},
			},
		},
	}
}

func textClause(q string, fields []string) map[string]interface{} {
	if q == "" {
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}
	return map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":    q,
			"fields":   fields,
			"type":     "best_fields",
			"operator": "and",
		},
	}
}

func itemFilters(req *domain.ItemSearchRequest) []interface{} {
	var filters []interface{}

	if req.StockMin > 0 {
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				"stock_total": map[string]interface{}{"gte": req.StockMin},
			},
		})
	}

	// A warehouse matches only when it actually holds stock.
	if len(req.Almacenes) > 0 {
		filters = append(filters, map[string]interface{}{
			"nested": map[string]interface{}{
				"path": "stock_por_almacen",
				"query": map[string]interface{}{
					"bool": map[string]interface{}{
						"filter": []interface{}{
							map[string]interface{}{
								"terms": map[string]interface{}{"stock_por_almacen.almacen": req.Almacenes},
							},
							map[string]interface{}{
								"range": map[string]interface{}{
									"stock_por_almacen.qty": map[string]interface{}{"gt": 0},
								},
							},
						},
					},
				},
			},
		})
	}

	if len(req.Marcas) > 0 {
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"categoria_marca": req.Marcas},
		})
	}

	for _, f := range []struct{ field, value string }{
		{"categoria_division", req.Division},
		{"categoria_linea", req.Linea},
		{"categoria_clase", req.Clase},
		{"categoria_subclase", req.Subclase},
		{"categoria_familia", req.Familia},
	} {
		if f.value != "" {
			filters = append(filters, term(f.field, f.value))
		}
	}

	return filters
}

// itemSort returns nil for relevance so the engine's native score order applies.
func itemSort(s domain.Sort) []interface{} {
	switch s {
	case domain.SortStock:
		return descThenScore("stock_total")
	case domain.SortSales:
		return descThenScore("venta_usd_6m")
	case domain.SortLastSale:
		return []interface{}{
			map[string]interface{}{
				"fecha_ultima_venta": map[string]interface{}{"order": "desc", "missing": "_last"},
			},
			"_score",
		}
	default:
		return nil
	}
}

func descThenScore(field string) []interface{} {
	return []interface{}{
		map[string]interface{}{field: "desc"},
		"_score",
	}
}

func term(field, value string) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{field: value},
	}
}

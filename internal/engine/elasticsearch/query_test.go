package elasticsearch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/pkg/pagination"
)

// asJSON round-trips v so assertions compare plain JSON values.
func asJSON(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestBuildItemQuery_MatchAll(t *testing.T) {
	q := BuildItemQuery(&domain.ItemSearchRequest{Page: 1, Size: 20})

	assert.JSONEq(t, `{
		"query": {"bool": {"must": [{"match_all": {}}]}},
		"from": 0,
		"size": 20,
		"track_total_hits": true
	}`, mustMarshal(t, q))
}

func TestBuildItemQuery_TextAndHighlight(t *testing.T) {
	q := asJSON(t, BuildItemQuery(&domain.ItemSearchRequest{Query: "tubo pvc", Page: 3, Size: 10}))

	assert.Equal(t, float64(20), q["from"])
	must := q["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]interface{})
	mm := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "tubo pvc", mm["query"])
	assert.Equal(t, "and", mm["operator"])
	assert.Equal(t, "best_fields", mm["type"])
	assert.Equal(t, []interface{}{"descripcion^2", "codigo^3", "categoria_marca", "categoria_linea", "categoria_division", "categoria_familia"}, mm["fields"])

	hl := q["highlight"].(map[string]interface{})
	assert.Equal(t, []interface{}{"<em>"}, hl["pre_tags"])
	assert.Equal(t, []interface{}{"</em>"}, hl["post_tags"])
	desc := hl["fields"].(map[string]interface{})["descripcion"].(map[string]interface{})
	assert.Equal(t, float64(120), desc["fragment_size"])
	assert.Equal(t, float64(1), desc["number_of_fragments"])
	assert.NotContains(t, q, "sort")
}

func TestBuildItemQuery_Filters(t *testing.T) {
	q := BuildItemQuery(&domain.ItemSearchRequest{
		Page:      1,
		Size:      20,
		StockMin:  5,
		Almacenes: []string{"W1", "W2"},
		Marcas:    []string{"PAVCO"},
		Division:  "FERR",
		Familia:   "F1",
	})

	assert.JSONEq(t, `[
		{"range": {"stock_total": {"gte": 5}}},
		{"nested": {
			"path": "stock_por_almacen",
			"query": {"bool": {"filter": [
				{"terms": {"stock_por_almacen.almacen": ["W1", "W2"]}},
				{"range": {"stock_por_almacen.qty": {"gt": 0}}}
			]}}
		}},
		{"terms": {"categoria_marca": ["PAVCO"]}},
		{"term": {"categoria_division": "FERR"}},
		{"term": {"categoria_familia": "F1"}}
	]`, mustMarshal(t, q["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"]))
}

func TestBuildItemQuery_ZeroStockMinIsNoFilter(t *testing.T) {
	q := asJSON(t, BuildItemQuery(&domain.ItemSearchRequest{Page: 1, Size: 20, StockMin: 0}))
	assert.NotContains(t, q["query"].(map[string]interface{})["bool"], "filter")
}

func TestBuildItemQuery_Sort(t *testing.T) {
	tests := []struct {
		sort domain.Sort
		want string
	}{
		{domain.SortStock, `[{"stock_total":"desc"},"_score"]`},
		{domain.SortSales, `[{"venta_usd_6m":"desc"},"_score"]`},
		{domain.SortLastSale, `[{"fecha_ultima_venta":{"order":"desc","missing":"_last"}},"_score"]`},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			q := BuildItemQuery(&domain.ItemSearchRequest{Page: 1, Size: 20, Sort: tt.sort})
			assert.JSONEq(t, tt.want, mustMarshal(t, q["sort"]))
		})
	}

	q := BuildItemQuery(&domain.ItemSearchRequest{Page: 1, Size: 20, Sort: domain.ParseSort("bogus")})
	assert.NotContains(t, q, "sort")
}

func TestBuildQuery_HugePageKeepsOffsetPositive(t *testing.T) {
	const page = 184467440737095517

	iq := asJSON(t, BuildItemQuery(&domain.ItemSearchRequest{Page: page, Size: 100}))
	cq := asJSON(t, BuildClientQuery(&domain.ClientSearchRequest{Page: page, Size: 100}))

	want := float64((pagination.MaxPage - 1) * 100)
	assert.Equal(t, want, iq["from"])
	assert.Equal(t, want, cq["from"])
}

func TestBuildClientQuery(t *testing.T) {
	q := BuildClientQuery(&domain.ClientSearchRequest{Query: "acme", Page: 2, Size: 5, Tipo: "MAYORISTA", RUC: "20123456789"})

	assert.JSONEq(t, `{
		"query": {"bool": {
			"must": [{"multi_match": {
				"query": "acme",
				"fields": ["razon_social^2", "ruc", "tipo_cliente"],
				"type": "best_fields",
				"operator": "and"
			}}],
			"filter": [
				{"term": {"tipo_cliente": "MAYORISTA"}},
				{"term": {"ruc": "20123456789"}}
			]
		}},
		"from": 5,
		"size": 5,
		"track_total_hits": true,
		"sort": [{"venta_usd_6m": "desc"}, "_score"]
	}`, mustMarshal(t, q))
}

func TestBuildSuggestQuery(t *testing.T) {
	assert.JSONEq(t, `{
		"size": 0,
		"suggest": {"s1": {"prefix": "tub", "completion": {"field": "suggest", "skip_duplicates": true}}}
	}`, mustMarshal(t, buildSuggestQuery("tub")))
}

func mustMarshal(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

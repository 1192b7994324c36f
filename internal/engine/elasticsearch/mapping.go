package elasticsearch

import "github.com/francpeal/buscador/internal/domain"

// itemsMapping folds accents and case on descripcion so "tubería" matches
// "TUBERIA".
const itemsMapping = `{
  "settings": {
    "analysis": {
      "analyzer": {
        "es_text": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "codigo":             { "type": "keyword" },
      "descripcion":        { "type": "text", "analyzer": "es_text" },
      "categoria_division": { "type": "keyword" },
      "categoria_linea":    { "type": "keyword" },
      "categoria_clase":    { "type": "keyword" },
      "categoria_subclase": { "type": "keyword" },
      "categoria_familia":  { "type": "keyword" },
      "categoria_marca":    { "type": "keyword" },
      "stock_total":        { "type": "integer" },
      "stock_por_almacen": {
        "type": "nested",
        "properties": {
          "almacen": { "type": "keyword" },
          "qty":     { "type": "integer" }
        }
      },
      "qty_6m":             { "type": "integer" },
      "venta_usd_6m":       { "type": "scaled_float", "scaling_factor": 100 },
      "fecha_ultima_venta": { "type": "date" },
      "suggest":            { "type": "completion" }
    }
  }
}`

const clientsMapping = `{
  "mappings": {
    "properties": {
      "cliente_id":         { "type": "keyword" },
      "ruc":                { "type": "keyword" },
      "razon_social":       { "type": "text" },
      "tipo_cliente":       { "type": "keyword" },
      "productos_top_6m":   { "type": "keyword" },
      "qty_6m":             { "type": "integer" },
      "venta_usd_6m":       { "type": "scaled_float", "scaling_factor": 100 },
      "fecha_ultima_venta": { "type": "date" },
      "suggest":            { "type": "completion" }
    }
  }
}`

func indexMapping(e domain.Entity) (string, bool) {
	switch e {
	case domain.EntityItem:
		return itemsMapping, true
	case domain.EntityClient:
		return clientsMapping, true
	}
	return "", false
}

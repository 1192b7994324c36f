package elasticsearch

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/francpeal/buscador/internal/domain"
)

const suggestName = "s1"

type esSearchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []esHit `json:"hits"`
	} `json:"hits"`
	Suggest map[string][]map[string]interface{} `json:"suggest"`
}

type esHit struct {
	Source    map[string]interface{} `json:"_source"`
	Highlight map[string][]string    `json:"highlight"`
}

// decodeSearchResponse keeps numbers as json.Number so integer fields such as
// stock_total round-trip without float conversion.
func decodeSearchResponse(r io.Reader) (*esSearchResponse, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var resp esSearchResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &resp, nil
}

func shapeItemResult(resp *esSearchResponse, page, size int) *domain.ItemSearchResult {
	items := make([]domain.Hit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		doc := sourceOf(h)
		if frags := h.Highlight["descripcion"]; len(frags) > 0 {
			doc[domain.HighlightField] = frags[0]
		}
		items = append(items, doc)
	}
	return &domain.ItemSearchResult{
		Page:  page,
		Size:  size,
		Took:  resp.Took,
		Total: resp.Hits.Total.Value,
		Items: items,
	}
}

func shapeClientResult(resp *esSearchResponse, page, size int) *domain.ClientSearchResult {
	clients := make([]domain.Hit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		clients = append(clients, sourceOf(h))
	}
	return &domain.ClientSearchResult{
		Page:    page,
		Size:    size,
		Took:    resp.Took,
		Total:   resp.Hits.Total.Value,
		Clients: clients,
	}
}

func sourceOf(h esHit) domain.Hit {
	if h.Source == nil {
		return domain.Hit{}
	}
	return h.Source
}

// firstSuggestGroup returns the first entry of the s1 suggestion, or an empty
// object when the engine returned none.
func firstSuggestGroup(resp *esSearchResponse) domain.Suggestion {
	groups := resp.Suggest[suggestName]
	if len(groups) == 0 || groups[0] == nil {
		return domain.Suggestion{}
	}
	return domain.Suggestion(groups[0])
}

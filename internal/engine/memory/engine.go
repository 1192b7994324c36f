// Package memory is an in-process search engine for local development and
// tests. It mirrors the Elasticsearch behavior closely enough for scenario
// tests but does no relevance scoring.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/francpeal/buscador/internal/domain"
)

const maxSuggestOptions = 5

var (
	itemTextFields   = []string{"descripcion", "codigo", "categoria_marca", "categoria_linea", "categoria_division", "categoria_familia"}
	clientTextFields = []string{"razon_social", "ruc", "tipo_cliente"}
)

type index struct {
	ids  []string
	docs map[string]domain.Hit
}

func newIndex() *index { return &index{docs: make(map[string]domain.Hit)} }

// Engine is an in-memory implementation of engine.SearchEngine.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu      sync.RWMutex
	names   map[domain.Entity]string
	indices map[domain.Entity]*index
}

// New creates an empty engine using the default index names.
func New() *Engine {
	return &Engine{
		names: map[domain.Entity]string{
			domain.EntityItem:   string(domain.EntityItem),
			domain.EntityClient: string(domain.EntityClient),
		},
		indices: map[domain.Entity]*index{
			domain.EntityItem:   newIndex(),
			domain.EntityClient: newIndex(),
		},
	}
}

// IndexName returns the index name of e.
func (e *Engine) IndexName(entity domain.Entity) string { return e.names[entity] }

// Ping always succeeds.
func (e *Engine) Ping(context.Context) error { return nil }

// Recreate empties the index of entity.
func (e *Engine) Recreate(_ context.Context, entity domain.Entity) error {
	if _, ok := e.names[entity]; !ok {
		return fmt.Errorf("memory recreate: unknown entity %q", entity)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indices[entity] = newIndex()
	return nil
}

// Bulk upserts actions. Documents are stored in their JSON form so hits look
// exactly like indexed sources.
func (e *Engine) Bulk(_ context.Context, entity domain.Entity, actions []domain.BulkAction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.indices[entity]
	if !ok {
		return fmt.Errorf("memory bulk: unknown entity %q", entity)
	}
	for _, a := range actions {
		doc, err := toHit(a.Document)
		if err != nil {
			return &domain.BulkWriteError{Entity: entity, DocumentID: a.ID, Status: 400, Type: "encode_exception", Reason: err.Error()}
		}
		if _, exists := idx.docs[a.ID]; !exists {
			idx.ids = append(idx.ids, a.ID)
		}
		idx.docs[a.ID] = doc
	}
	return nil
}

func toHit(v any) (domain.Hit, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var h domain.Hit
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, err
	}
	return h, nil
}

// Count returns the number of documents held for entity.
func (e *Engine) Count(entity domain.Entity) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.indices[entity].docs)
}

// SearchItems applies the item filters and sort over the stored documents.
func (e *Engine) SearchItems(_ context.Context, req *domain.ItemSearchRequest) (*domain.ItemSearchResult, error) {
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	terms := tokens(req.Query)
	matched := make([]domain.Hit, 0)
	for _, id := range e.indices[domain.EntityItem].ids {
		doc := e.indices[domain.EntityItem].docs[id]
		if !matchesText(doc, itemTextFields, terms) || !matchesItemFilters(doc, req) {
			continue
		}
		matched = append(matched, copyHit(doc))
	}
	sortItems(matched, req.Sort)

	if len(terms) > 0 {
		for _, h := range matched {
			if frag, ok := highlight(str(h["descripcion"]), terms); ok {
				h[domain.HighlightField] = frag
			}
		}
	}

	return &domain.ItemSearchResult{
		Page:  req.Page,
		Size:  req.Size,
		Took:  time.Since(start).Milliseconds(),
		Total: int64(len(matched)),
		Items: paginate(matched, req.Page, req.Size),
	}, nil
}

// SearchClients applies the client filters and orders by revenue.
func (e *Engine) SearchClients(_ context.Context, req *domain.ClientSearchRequest) (*domain.ClientSearchResult, error) {
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	terms := tokens(req.Query)
	matched := make([]domain.Hit, 0)
	for _, id := range e.indices[domain.EntityClient].ids {
		doc := e.indices[domain.EntityClient].docs[id]
		if !matchesText(doc, clientTextFields, terms) {
			continue
		}
		if req.Tipo != "" && str(doc["tipo_cliente"]) != req.Tipo {
			continue
		}
		if req.RUC != "" && str(doc["ruc"]) != req.RUC {
			continue
		}
		matched = append(matched, copyHit(doc))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return num(matched[i]["venta_usd_6m"]) > num(matched[j]["venta_usd_6m"])
	})

	return &domain.ClientSearchResult{
		Page:    req.Page,
		Size:    req.Size,
		Took:    time.Since(start).Milliseconds(),
		Total:   int64(len(matched)),
		Clients: paginate(matched, req.Page, req.Size),
	}, nil
}

// Suggest matches prefix against the suggest inputs, case and accent
// insensitively, skipping duplicate texts.
func (e *Engine) Suggest(_ context.Context, entity domain.Entity, prefix string) (domain.Suggestion, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	idx, ok := e.indices[entity]
	if !ok {
		return nil, fmt.Errorf("memory suggest: unknown entity %q", entity)
	}

	want := fold(prefix)
	options := make([]any, 0)
	seen := make(map[string]struct{})
	for _, id := range idx.ids {
		doc := idx.docs[id]
		for _, in := range suggestInputs(doc) {
			if !strings.HasPrefix(fold(in), want) {
				continue
			}
			if _, dup := seen[in]; dup {
				continue
			}
			seen[in] = struct{}{}
			options = append(options, map[string]any{"text": in, "_id": id, "_source": copyHit(doc)})
			break
		}
		if len(options) >= maxSuggestOptions {
			break
		}
	}

	return domain.Suggestion{
		"text":    prefix,
		"offset":  0,
		"length":  len([]rune(prefix)),
		"options": options,
	}, nil
}

func suggestInputs(doc domain.Hit) []string {
	s, _ := doc["suggest"].(map[string]any)
	raw, _ := s["input"].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if text, ok := v.(string); ok {
			out = append(out, text)
		}
	}
	return out
}

func matchesItemFilters(doc domain.Hit, req *domain.ItemSearchRequest) bool {
	if req.StockMin > 0 && num(doc["stock_total"]) < float64(req.StockMin) {
		return false
	}
	if len(req.Almacenes) > 0 && !hasStockIn(doc, req.Almacenes) {
		return false
	}
	if len(req.Marcas) > 0 && !slices.Contains(req.Marcas, str(doc["categoria_marca"])) {
		return false
	}
	for field, want := range map[string]string{
		"categoria_division": req.Division,
		"categoria_linea":    req.Linea,
		"categoria_clase":    req.Clase,
		"categoria_subclase": req.Subclase,
		"categoria_familia":  req.Familia,
	} {
		if want != "" && str(doc[field]) != want {
			return false
		}
	}
	return true
}

// hasStockIn requires one warehouse entry that is both listed and positive,
// the same entry satisfying both conditions.
func hasStockIn(doc domain.Hit, almacenes []string) bool {
	entries, _ := doc["stock_por_almacen"].([]any)
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if slices.Contains(almacenes, str(m["almacen"])) && num(m["qty"]) > 0 {
			return true
		}
	}
	return false
}

func sortItems(hits []domain.Hit, s domain.Sort) {
	switch s {
	case domain.SortStock:
		sort.SliceStable(hits, func(i, j int) bool {
			return num(hits[i]["stock_total"]) > num(hits[j]["stock_total"])
		})
	case domain.SortSales:
		sort.SliceStable(hits, func(i, j int) bool {
			return num(hits[i]["venta_usd_6m"]) > num(hits[j]["venta_usd_6m"])
		})
	case domain.SortLastSale:
		// Missing or unparseable dates go last.
		sort.SliceStable(hits, func(i, j int) bool {
			a, aok := saleTime(hits[i]["fecha_ultima_venta"])
			b, bok := saleTime(hits[j]["fecha_ultima_venta"])
			if !aok || !bok {
				return aok && !bok
			}
			return a.After(b)
		})
	default:
		// Relevance: insertion order.
	}
}

func saleTime(v any) (time.Time, bool) {
	s := str(v)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func paginate(hits []domain.Hit, page, size int) []domain.Hit {
	offset := (page - 1) * size
	if offset < 0 || offset > len(hits) {
		offset = len(hits)
	}
	end := offset + size
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}

func matchesText(doc domain.Hit, fields []string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	var sb strings.Builder
	for _, f := range fields {
		sb.WriteString(fold(str(doc[f])))
		sb.WriteByte(' ')
	}
	haystack := sb.String()
	for _, t := range terms {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

// fragmentSize bounds the visible text of a highlight fragment, tags excluded.
const fragmentSize = 120

// highlight wraps the words of text that contain a term in <em> tags and
// returns a single fragment of at most fragmentSize runes of text around the
// first match. ok is false when no word matched.
func highlight(text string, terms []string) (frag string, ok bool) {
	words := strings.Fields(text)
	marked := make([]bool, len(words))
	first := -1
	for i, w := range words {
		fw := fold(w)
		for _, t := range terms {
			if strings.Contains(fw, t) {
				marked[i] = true
				break
			}
		}
		if marked[i] && first < 0 {
			first = i
		}
	}
	if first < 0 {
		return "", false
	}

	start := 0
	if textLen(words[:first+1]) > fragmentSize {
		start = first
	}
	end := first + 1
	for end < len(words) && textLen(words[start:end+1]) <= fragmentSize {
		end++
	}

	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		if marked[i] {
			out = append(out, "<em>"+words[i]+"</em>")
		} else {
			out = append(out, words[i])
		}
	}
	return strings.Join(out, " "), true
}

// textLen is the rune length of words joined by single spaces.
func textLen(words []string) int {
	if len(words) == 0 {
		return 0
	}
	n := len(words) - 1
	for _, w := range words {
		n += utf8.RuneCountInString(w)
	}
	return n
}

func tokens(q string) []string {
	return strings.Fields(fold(q))
}

// fold lowercases s and strips diacritics. Chains carry state, so each call
// builds its own.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func copyHit(h domain.Hit) domain.Hit {
	out := make(domain.Hit, len(h)+1)
	for k, v := range h {
		out[k] = v
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	f, _ := v.(float64)
	return f
}

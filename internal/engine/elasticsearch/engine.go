// Package elasticsearch is the Elasticsearch backend: index lifecycle, bulk
// loading, search and completion suggestions for items and clients.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/francpeal/buscador/internal/domain"
	apperrors "github.com/francpeal/buscador/pkg/errors"
)

// Config selects the cluster and the index names.
type Config struct {
	Addresses    []string
	Username     string
	Password     string
	ItemsIndex   string
	ClientsIndex string
}

// Engine is an Elasticsearch-backed search engine and rebuild sink.
type Engine struct {
	client  *elasticsearch.Client
	indices map[domain.Entity]string
	logger  *slog.Logger
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	// Each item is keyed by its action name ("index").
	Items []map[string]esBulkItem `json:"items"`
}

type esBulkItem struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// New creates an Engine. No request is made until the first call.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}
	return NewWithClient(client, cfg.ItemsIndex, cfg.ClientsIndex, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *elasticsearch.Client, itemsIndex, clientsIndex string, logger *slog.Logger) *Engine {
	if itemsIndex == "" {
		itemsIndex = string(domain.EntityItem)
	}
	if clientsIndex == "" {
		clientsIndex = string(domain.EntityClient)
	}
	return &Engine{
		client: client,
		indices: map[domain.Entity]string{
			domain.EntityItem:   itemsIndex,
			domain.EntityClient: clientsIndex,
		},
		logger: logger,
	}
}

// IndexName returns the index holding documents of e.
func (e *Engine) IndexName(entity domain.Entity) string {
	return e.indices[entity]
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// Recreate drops the index of entity when it exists and creates it again
// with its mapping. Documents are unsearchable until the reload finishes.
func (e *Engine) Recreate(ctx context.Context, entity domain.Entity) error {
	mapping, ok := indexMapping(entity)
	if !ok {
		return fmt.Errorf("elasticsearch recreate: unknown entity %q", entity)
	}
	index := e.IndexName(entity)

	res, err := e.client.Indices.Exists([]string{index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch recreate: check index exists: %w", err)
	}
	_ = res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		if err := e.deleteIndex(ctx, index); err != nil {
			return err
		}
	case http.StatusNotFound:
	default:
		return fmt.Errorf("elasticsearch recreate: check index exists: unexpected status %s", res.Status())
	}

	res, err = e.client.Indices.Create(
		index,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch create index", res)
	}

	e.logger.InfoContext(ctx, "elasticsearch index created", "index", index)
	return nil
}

func (e *Engine) deleteIndex(ctx context.Context, index string) error {
	res, err := e.client.Indices.Delete([]string{index}, e.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete index", res)
	}

	e.logger.InfoContext(ctx, "elasticsearch index deleted", "index", index)
	return nil
}

// Bulk writes actions to the index of entity with one NDJSON bulk request.
// The first document the cluster rejects is returned as a *domain.BulkWriteError.
func (e *Engine) Bulk(ctx context.Context, entity domain.Entity, actions []domain.BulkAction) error {
	if len(actions) == 0 {
		return nil
	}
	index := e.IndexName(entity)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range actions {
		meta := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": index,
				"_id":    actions[i].ID,
			},
		}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(actions[i].Document); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode document %s: %w", actions[i].ID, err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(index),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch bulk", res)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}

	if bulkResp.Errors {
		if bwe := firstBulkError(entity, bulkResp); bwe != nil {
			return bwe
		}
		return &domain.BulkWriteError{Entity: entity, Reason: "bulk response flagged errors without item detail"}
	}

	e.logger.DebugContext(ctx, "bulk indexed documents", "index", index, "count", len(actions))
	return nil
}

func firstBulkError(entity domain.Entity, resp esBulkResponse) *domain.BulkWriteError {
	for _, item := range resp.Items {
		for _, r := range item {
			if r.Error == nil {
				continue
			}
			return &domain.BulkWriteError{
				Entity:     entity,
				DocumentID: r.ID,
				Status:     r.Status,
				Type:       r.Error.Type,
				Reason:     r.Error.Reason,
			}
		}
	}
	return nil
}

// SearchItems runs an item search. Page and size must already be clamped.
func (e *Engine) SearchItems(ctx context.Context, req *domain.ItemSearchRequest) (*domain.ItemSearchResult, error) {
	resp, err := e.search(ctx, e.IndexName(domain.EntityItem), BuildItemQuery(req))
	if err != nil {
		return nil, err
	}
	return shapeItemResult(resp, req.Page, req.Size), nil
}

// SearchClients runs a client search. Page and size must already be clamped.
func (e *Engine) SearchClients(ctx context.Context, req *domain.ClientSearchRequest) (*domain.ClientSearchResult, error) {
	resp, err := e.search(ctx, e.IndexName(domain.EntityClient), BuildClientQuery(req))
	if err != nil {
		return nil, err
	}
	return shapeClientResult(resp, req.Page, req.Size), nil
}

func (e *Engine) search(ctx context.Context, index string, body map[string]interface{}) (*esSearchResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(index),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, apperrors.Unavailable("elasticsearch", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("elasticsearch search", res)
	}

	resp, err := decodeSearchResponse(res.Body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	return resp, nil
}

func responseError(op string, res *esapi.Response) error {
	var errResp esErrorResponse
	if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}

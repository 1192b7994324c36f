package engine

import (
	"context"

	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/internal/indexer"
)

// Searcher answers search and suggestion requests.
// Implementations may use Elasticsearch, in-memory storage, or other backends.
type Searcher interface {
	// SearchItems runs a faceted item search. Page and size are already clamped.
	SearchItems(ctx context.Context, req *domain.ItemSearchRequest) (*domain.ItemSearchResult, error)

	// SearchClients runs a client search. Page and size are already clamped.
	SearchClients(ctx context.Context, req *domain.ClientSearchRequest) (*domain.ClientSearchResult, error)

	// Suggest returns the first completion group for prefix.
	Suggest(ctx context.Context, e domain.Entity, prefix string) (domain.Suggestion, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// SearchEngine is a Searcher that can also be rebuilt by the indexer.
type SearchEngine interface {
	Searcher
	indexer.Sink
}

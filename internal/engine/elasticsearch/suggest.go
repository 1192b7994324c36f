package elasticsearch

import (
	"context"

	"github.com/francpeal/buscador/internal/domain"
)

// Suggest returns the first completion group for prefix against the suggest
// field of entity, verbatim.
func (e *Engine) Suggest(ctx context.Context, entity domain.Entity, prefix string) (domain.Suggestion, error) {
	resp, err := e.search(ctx, e.IndexName(entity), buildSuggestQuery(prefix))
	if err != nil {
		return nil, err
	}
	return firstSuggestGroup(resp), nil
}

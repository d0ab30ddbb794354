package retrieval

import (
	"context"

	"github.com/looklab/stylist/internal/domain"
	"github.com/looklab/stylist/internal/domain/filters"
	"github.com/looklab/stylist/internal/domain/item"
	"github.com/looklab/stylist/internal/repository/catalog"
)

// Repository defines the datastore contract for retrieval.
type Repository interface {
	SearchKNN(ctx context.Context, vector []float32, f filters.Filters, k int) ([]catalog.ScoredItem, error)
	ListByFilters(ctx context.Context, f filters.Filters, limit int) ([]item.Item, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/looklab/stylist/internal/db"
	"github.com/looklab/stylist/internal/domain"
	"github.com/looklab/stylist/internal/domain/filters"
	"github.com/looklab/stylist/internal/domain/item"
)

// store is the consumer interface for catalog operations.
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// ScoredItem pairs a catalog item with its index-reported similarity score.
type ScoredItem struct {
	Item  item.Item
	Score float64
}

// Repo is the catalog item repository over a Redis JSON + FT index store.
type Repo struct {
	store store
}

// New creates a catalog repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

func indexName() string   { return domain.KeyPrefix + "items:idx" }
func keyPrefix() string   { return domain.KeyPrefix + "items:" }
func itemKey(id string) string { return keyPrefix() + id }

// EnsureIndex creates the item FT index when absent.
func (r *Repo) EnsureIndex(ctx context.Context, dim, hnswM, hnswEF int) error {
	exists, err := r.store.IndexExists(ctx, indexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def := db.NewIndex(indexName()).
		Prefix(keyPrefix()).
		Tag("$.category", "category").
		Tag("$.sub_category", "sub_category").
		Tag("$.brand", "brand").
		Tag("$.colors[*]", "color").
		Tag("$.source", "source").
		VectorHNSW("$.embedding", "vector", dim, db.DistanceCosine, hnswM, hnswEF).
		MustBuild()

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Put upserts a catalog item. Ingestion-side only; the refinement loop never writes.
func (r *Repo) Put(ctx context.Context, it *item.Item) error {
	dto := toDTO(it)
	data, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("marshal item %s: %w", it.ID(), err)
	}
	if err := r.store.JSONSet(ctx, itemKey(it.ID()), "$", data); err != nil {
		return fmt.Errorf("put item %s: %w", it.ID(), err)
	}
	return nil
}

// Get fetches one item by id.
func (r *Repo) Get(ctx context.Context, id string) (item.Item, error) {
	data, err := r.store.JSONGet(ctx, itemKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return item.Item{}, domain.ErrItemNotFound
		}
		return item.Item{}, fmt.Errorf("get item %s: %w", id, err)
	}
	return decodeItem(data)
}

// SearchKNN runs a vector similarity search with the normalized filters
// pushed down as a tag pre-filter on the index scan. Results arrive ordered
// by the backend's similarity score, capped at k.
func (r *Repo) SearchKNN(
	ctx context.Context, vector []float32, f filters.Filters, k int,
) ([]ScoredItem, error) {
	q := &db.KNNQuery{
		IndexName:    indexName(),
		Tags:         filtersToTags(f),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"__vector_score", "$"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: knn: %w", domain.ErrRetrieval, err)
	}

	return parseScoredEntries(sr)
}

// ListByFilters fetches up to limit filter-matching items without scoring,
// for the client-side exhaustive strategy. An empty filter set lists the
// whole pool (capped at limit).
func (r *Repo) ListByFilters(
	ctx context.Context, f filters.Filters, limit int,
) ([]item.Item, error) {
	query := filterQuery(f)

	sr, err := r.store.SearchList(ctx, indexName(), query, 0, limit, []string{"$"})
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", domain.ErrRetrieval, err)
	}

	items := make([]item.Item, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		doc, ok := entry.Fields["$"]
		if !ok {
			continue
		}
		it, err := decodeItem([]byte(doc))
		if err != nil {
			// one unreadable document never fails the batch
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

func parseScoredEntries(sr *db.SearchResult) ([]ScoredItem, error) {
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	scored := make([]ScoredItem, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		doc, ok := entry.Fields["$"]
		if !ok {
			continue
		}
		it, err := decodeItem([]byte(doc))
		if err != nil {
			continue
		}
		scored = append(scored, ScoredItem{Item: it, Score: entry.Score})
	}
	return scored, nil
}

// filtersToTags maps the normalized filter set onto index tag clauses.
func filtersToTags(f filters.Filters) []db.TagFilter {
	var tags []db.TagFilter
	if f.Category() != "" {
		tags = append(tags, db.TagFilter{Field: "category", Value: string(f.Category())})
	}
	if f.SubCategory() != "" {
		tags = append(tags, db.TagFilter{Field: "sub_category", Value: f.SubCategory()})
	}
	if f.Brand() != "" {
		tags = append(tags, db.TagFilter{Field: "brand", Value: f.Brand()})
	}
	if f.ColorHex() != "" {
		tags = append(tags, db.TagFilter{Field: "color", Value: f.ColorHex()})
	}
	return tags
}

// filterQuery renders the filter set as a plain FT.SEARCH query string.
func filterQuery(f filters.Filters) string {
	tags := filtersToTags(f)
	if len(tags) == 0 {
		return "*"
	}
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, fmt.Sprintf("@%s:{%s}", t.Field, escapeTag(t.Value)))
	}
	return strings.Join(parts, " ")
}

var tagValueEscaper = strings.NewReplacer(
	" ", "\\ ",
	"-", "\\-",
	".", "\\.",
	",", "\\,",
	"#", "\\#",
	"'", "\\'",
	"&", "\\&",
	"(", "\\(",
	")", "\\)",
)

func escapeTag(v string) string {
	return tagValueEscaper.Replace(v)
}

package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/looklab/stylist/internal/domain"
	"github.com/looklab/stylist/internal/domain/candidate"
	"github.com/looklab/stylist/internal/domain/filters"
	"github.com/looklab/stylist/internal/domain/item"
)

// Strategy selects the search execution path. Deployment configuration
// decides; callers never pick per request.
type Strategy string

const (
	// StrategyIndex pushes filters down as a pre-filter on the vector
	// index scan and lets the backend score the candidate pool.
	StrategyIndex Strategy = "index"
	// StrategyScan fetches filter-matching items and scores every one
	// client-side with the ranker.
	StrategyScan Strategy = "scan"
)

// Service executes hybrid filtered vector search and produces a ranked
// candidate list for one loop iteration.
type Service struct {
	repo     Repository
	embed    Embedder
	strategy Strategy
	poolSize int
}

// New creates a retrieval service.
func New(repo Repository, embed Embedder, strategy Strategy, candidatePoolSize int) *Service {
	return &Service{repo: repo, embed: embed, strategy: strategy, poolSize: candidatePoolSize}
}

// Search retrieves up to limit candidates matching the filters, ranked by
// fused relevance against the semantic query. styleKey names the precomputed
// style-compatibility score to blend in (usually the profile archetype);
// empty means semantic-only ranking. An empty filter set searches the whole
// pool. Backend failures surface as domain.ErrRetrieval.
func (s *Service) Search(
	ctx context.Context, semanticQuery string, f filters.Filters, styleKey string, limit int,
) ([]candidate.Candidate, error) {
	embResult, err := s.embed.Embed(ctx, semanticQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: vectorize query: %w", domain.ErrRetrieval, err)
	}

	var batch []candidate.Candidate
	switch s.strategy {
	case StrategyScan:
		batch, err = s.searchScan(ctx, embResult.Embedding, f, styleKey)
	default:
		batch, err = s.searchIndex(ctx, embResult.Embedding, f, styleKey)
	}
	if err != nil {
		return nil, err
	}

	sortCandidates(batch)
	if len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

// searchIndex delegates scoring of the candidate pool to the vector index
// and blends the style component on top of the backend's similarity.
func (s *Service) searchIndex(
	ctx context.Context, vector []float32, f filters.Filters, styleKey string,
) ([]candidate.Candidate, error) {
	scored, err := s.repo.SearchKNN(ctx, vector, f, s.poolSize)
	if err != nil {
		return nil, err
	}

	batch := make([]candidate.Candidate, 0, len(scored))
	for i := range scored {
		it := &scored[i].Item
		total, breakdown := fuseBackendScore(scored[i].Score, it, styleKey)
		batch = append(batch, candidate.FromItem(it, total, breakdown))
	}
	return batch, nil
}

// searchScan fetches up to pool-size filter matches and scores each one
// client-side. Items without a stored embedding get one derived on the fly
// from their textual attributes; a single item's embedding failure excludes
// only that item.
func (s *Service) searchScan(
	ctx context.Context, vector []float32, f filters.Filters, styleKey string,
) ([]candidate.Candidate, error) {
	items, err := s.repo.ListByFilters(ctx, f, s.poolSize)
	if err != nil {
		return nil, err
	}

	batch := make([]candidate.Candidate, 0, len(items))
	for i := range items {
		it := &items[i]

		itemVec := it.Embedding()
		if len(itemVec) == 0 {
			embResult, err := s.embed.Embed(ctx, it.EmbeddingText())
			if err != nil {
				continue
			}
			itemVec = embResult.Embedding
		}

		total, breakdown := Score(vector, itemVec, styleScoreOf(it, styleKey))
		batch = append(batch, candidate.FromItem(it, total, breakdown))
	}
	return batch, nil
}

// fuseBackendScore treats the index-reported similarity as the semantic
// component and blends the item's style score when one exists.
func fuseBackendScore(similarity float64, it *item.Item, styleKey string) (float64, map[string]float64) {
	semantic := clamp01(similarity)
	breakdown := map[string]float64{"semantic": semantic}

	score := styleScoreOf(it, styleKey)
	if score == nil {
		return semantic, breakdown
	}

	style := clamp01(*score)
	breakdown["style"] = style
	return weightSemantic*semantic + weightStyle*style, breakdown
}

func styleScoreOf(it *item.Item, styleKey string) *float64 {
	if styleKey == "" {
		return nil
	}
	v, ok := it.StyleScore(styleKey)
	if !ok {
		return nil
	}
	return &v
}

// sortCandidates orders by score descending with an explicit ascending id
// tie-break, so rankings reproduce bit-exactly across backends.
func sortCandidates(batch []candidate.Candidate) {
	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].Score() != batch[j].Score() {
			return batch[i].Score() > batch[j].Score()
		}
		return batch[i].ID() < batch[j].ID()
	})
}

package analyze

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/looklab/stylist/internal/domain"
	"github.com/looklab/stylist/internal/domain/filters"
	"github.com/looklab/stylist/internal/llmjson"
	"github.com/looklab/stylist/internal/metrics"
)

const systemPrompt = `You are a fashion search query analyzer. Convert the ` +
	`user's request into structured search parameters. Respond with a single ` +
	`JSON object and nothing else:
{
  "filters": {
    "category": "TOP|BOTTOM|SHOE|ACCESSORY|OUTERWEAR|DRESS or omit",
    "sub_category": "specific garment type or omit",
    "brand": "brand name or omit",
    "color_hex": "#RRGGBB or omit"
  },
  "semantic_query": "a short descriptive phrase capturing style, occasion and mood",
  "needs_profile": true or false
}
Set needs_profile to true when the request depends on the user's personal ` +
	`taste (e.g. "something I would like", "matching my style").`

// Result is what one analysis pass hands the loop controller. Fallback marks
// the conservative degraded path taken when the model's output could not be
// parsed; callers branch on the flag instead of catching errors.
type Result struct {
	Filters       filters.Filters
	SemanticQuery string
	NeedsProfile  bool
	Fallback      bool
}

// Service turns a natural-language request plus refinement feedback into
// normalized filters and a semantic query, via the LLM collaborator.
type Service struct {
	llm    domain.Completer
	logger *zap.Logger
}

// New creates an analysis service.
func New(llm domain.Completer, logger *zap.Logger) *Service {
	return &Service{llm: llm, logger: logger}
}

type analysisDTO struct {
	Filters       map[string]any `json:"filters"`
	SemanticQuery string         `json:"semantic_query"`
	NeedsProfile  bool           `json:"needs_profile"`
}

// Analyze produces filters and a semantic query for one loop iteration. The
// first iteration sees only the raw request; later iterations also see the
// prior filters and the verifier's refinement suggestions. Model output that
// cannot be parsed degrades to the conservative fallback: no filters, the raw
// query as-is, and a profile request.
func (s *Service) Analyze(
	ctx context.Context, userQuery string, iteration int,
	priorFilters filters.Filters, refinementSuggestions string,
) Result {
	userMessage := buildUserMessage(userQuery, iteration, priorFilters, refinementSuggestions)

	raw, err := s.llm.Complete(ctx, systemPrompt, userMessage)
	if err != nil {
		s.logger.Warn("query analysis degraded to fallback",
			zap.Int("iteration", iteration), zap.Error(err))
		metrics.LoopFallbacksTotal.WithLabelValues("analysis_parse").Inc()
		return fallbackResult(userQuery)
	}

	var dto analysisDTO
	if err := llmjson.Unmarshal(raw, &dto); err != nil {
		s.logger.Warn("query analysis output unparseable",
			zap.Int("iteration", iteration), zap.Error(err))
		metrics.LoopFallbacksTotal.WithLabelValues("analysis_parse").Inc()
		return fallbackResult(userQuery)
	}

	semanticQuery := strings.TrimSpace(dto.SemanticQuery)
	if semanticQuery == "" {
		semanticQuery = userQuery
	}

	// Model-produced filters are never trusted before normalization.
	return Result{
		Filters:       filters.Normalize(dto.Filters),
		SemanticQuery: semanticQuery,
		NeedsProfile:  dto.NeedsProfile,
	}
}

// fallbackResult prefers fetching more context over searching blind.
func fallbackResult(userQuery string) Result {
	return Result{
		Filters:       filters.Filters{},
		SemanticQuery: userQuery,
		NeedsProfile:  true,
		Fallback:      true,
	}
}

func buildUserMessage(
	userQuery string, iteration int, priorFilters filters.Filters, suggestions string,
) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User request: %s", userQuery)

	if iteration > 0 && suggestions != "" {
		fmt.Fprintf(&b, "\n\nThis is refinement attempt %d.", iteration+1)
		fmt.Fprintf(&b, "\nPrevious filters: %s", priorFilters.String())
		fmt.Fprintf(&b, "\nThe previous results were insufficient. Adjust per this feedback: %s", suggestions)
	}

	return b.String()
}

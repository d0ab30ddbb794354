package verify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/looklab/stylist/internal/domain"
	"github.com/looklab/stylist/internal/domain/candidate"
	"github.com/looklab/stylist/internal/domain/filters"
	"github.com/looklab/stylist/internal/domain/profile"
	"github.com/looklab/stylist/internal/llmjson"
	"github.com/looklab/stylist/internal/metrics"
)

const systemPrompt = `You are a fashion recommendation verifier. Judge which ` +
	`of the candidate items genuinely fit the user's request and profile. ` +
	`Respond with a single JSON object and nothing else:
{
  "valid_item_ids": ["id", ...],
  "refinement_suggestions": "how to improve the search, or null when the results fit"
}
Only include ids from the candidate list. Suggest refinements when few or no ` +
	`candidates fit.`

// maxDescriptionLen caps each candidate description in the judgment prompt.
const maxDescriptionLen = 160

// Result is the verdict for one candidate batch. ValidItemIDs is always a
// subset of the batch's ids. Fallback marks the degraded score-based path
// taken when the judgment model was unavailable or unparseable.
type Result struct {
	ValidItemIDs          []string
	IsSufficient          bool
	RefinementSuggestions string
	Fallback              bool
}

// Service validates retrieved candidates against the request and the user's
// style profile.
type Service struct {
	llm        domain.Completer
	minResults int
	logger     *zap.Logger
}

// New creates a verification service. minResults is the sufficiency
// threshold: fewer accepted candidates than this triggers another loop
// iteration.
func New(llm domain.Completer, minResults int, logger *zap.Logger) *Service {
	return &Service{llm: llm, minResults: minResults, logger: logger}
}

type verdictDTO struct {
	ValidItemIDs          []string `json:"valid_item_ids"`
	RefinementSuggestions *string  `json:"refinement_suggestions"`
}

// Verify judges a candidate batch. An empty batch short-circuits to a
// deterministic rule-based suggestion without consulting the model; zero
// candidates is mechanically diagnosable from the active filters alone.
func (s *Service) Verify(
	ctx context.Context, userQuery string, candidates []candidate.Candidate,
	userProfile *profile.Profile, f filters.Filters,
) Result {
	if len(candidates) == 0 {
		return Result{
			ValidItemIDs:          []string{},
			IsSufficient:          false,
			RefinementSuggestions: zeroCandidateSuggestion(f),
		}
	}

	userMessage := buildUserMessage(userQuery, candidates, userProfile)

	raw, err := s.llm.Complete(ctx, systemPrompt, userMessage)
	if err != nil {
		s.logger.Warn("verification degraded to score fallback", zap.Error(err))
		metrics.LoopFallbacksTotal.WithLabelValues("verification").Inc()
		return s.scoreFallback(candidates)
	}

	var dto verdictDTO
	if err := llmjson.Unmarshal(raw, &dto); err != nil {
		s.logger.Warn("verification output unparseable", zap.Error(err))
		metrics.LoopFallbacksTotal.WithLabelValues("verification").Inc()
		return s.scoreFallback(candidates)
	}

	validIDs := containedIDs(dto.ValidItemIDs, candidates)

	var suggestions string
	if dto.RefinementSuggestions != nil {
		suggestions = strings.TrimSpace(*dto.RefinementSuggestions)
	}

	return Result{
		ValidItemIDs:          validIDs,
		IsSufficient:          len(validIDs) >= s.minResults,
		RefinementSuggestions: suggestions,
	}
}

// scoreFallback accepts the top-scored candidates up to the sufficiency
// threshold, treating the ranking as a good-enough relevance proxy while
// verification is unavailable.
func (s *Service) scoreFallback(candidates []candidate.Candidate) Result {
	ranked := make([]candidate.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score() > ranked[j].Score()
	})

	n := s.minResults
	if n > len(ranked) {
		n = len(ranked)
	}

	validIDs := candidate.IDs(ranked[:n])
	return Result{
		ValidItemIDs: validIDs,
		IsSufficient: len(validIDs) >= s.minResults,
		Fallback:     true,
	}
}

// containedIDs keeps only ids present in the batch, preserving the model's
// order and dropping duplicates. Models hallucinate ids; never trust them.
func containedIDs(claimed []string, candidates []candidate.Candidate) []string {
	known := make(map[string]bool, len(candidates))
	for i := range candidates {
		known[candidates[i].ID()] = true
	}

	valid := make([]string, 0, len(claimed))
	for _, id := range claimed {
		if known[id] {
			valid = append(valid, id)
			known[id] = false
		}
	}
	return valid
}

// zeroCandidateSuggestion builds refinement advice from the active filters.
// The narrowest constraints are the first to suggest dropping.
func zeroCandidateSuggestion(f filters.Filters) string {
	active := f.Active()
	if len(active) == 0 {
		return "No items matched the query. Broaden the search with a more general description."
	}

	drops := make([]string, 0, len(active))
	for _, field := range active {
		switch field {
		case "category":
			drops = append(drops, fmt.Sprintf("the category filter (%s)", f.Category()))
		case "sub_category":
			drops = append(drops, fmt.Sprintf("the sub-category filter (%s)", f.SubCategory()))
		case "brand":
			drops = append(drops, fmt.Sprintf("the brand filter (%s)", f.Brand()))
		case "color_hex":
			drops = append(drops, fmt.Sprintf("the color filter (%s)", f.ColorHex()))
		}
	}
	return "No items matched the current filters. Try removing " + strings.Join(drops, " or ") + "."
}

func buildUserMessage(
	userQuery string, candidates []candidate.Candidate, userProfile *profile.Profile,
) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User request: %s\n", userQuery)

	if userProfile != nil {
		fmt.Fprintf(&b, "\nUser profile: %s\n", userProfile.Describe())
	}

	b.WriteString("\nCandidates:\n")
	for i := range candidates {
		attrs := candidates[i].Attributes()
		fmt.Fprintf(&b, "- id=%s name=%q category=%s", candidates[i].ID(), attrs.Name, attrs.Category)
		if attrs.SubCategory != "" {
			fmt.Fprintf(&b, " sub=%s", attrs.SubCategory)
		}
		if attrs.Brand != "" {
			fmt.Fprintf(&b, " brand=%s", attrs.Brand)
		}
		if len(attrs.Colors) > 0 {
			fmt.Fprintf(&b, " colors=%s", strings.Join(attrs.Colors, ","))
		}
		if attrs.Description != "" {
			fmt.Fprintf(&b, " description=%q", truncate(attrs.Description, maxDescriptionLen))
		}
		b.WriteByte('\n')
	}

	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

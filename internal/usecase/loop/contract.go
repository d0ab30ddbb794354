package loop

import (
	"context"

	"github.com/looklab/stylist/internal/domain/candidate"
	"github.com/looklab/stylist/internal/domain/filters"
	"github.com/looklab/stylist/internal/domain/profile"
	"github.com/looklab/stylist/internal/usecase/analyze"
	"github.com/looklab/stylist/internal/usecase/verify"
)

// Analyzer produces filters and a semantic query for one iteration.
type Analyzer interface {
	Analyze(ctx context.Context, userQuery string, iteration int,
		priorFilters filters.Filters, refinementSuggestions string) analyze.Result
}

// Retriever executes the ranked candidate search.
type Retriever interface {
	Search(ctx context.Context, semanticQuery string, f filters.Filters,
		styleKey string, limit int) ([]candidate.Candidate, error)
}

// Verifier judges a candidate batch against the request and profile.
type Verifier interface {
	Verify(ctx context.Context, userQuery string, candidates []candidate.Candidate,
		userProfile *profile.Profile, f filters.Filters) verify.Result
}

// ProfileReader loads user style profiles.
type ProfileReader interface {
	Get(ctx context.Context, userID string) (profile.Profile, error)
}

package loop

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/looklab/stylist/internal/metrics"
)

// Outcome is the terminal result of one refinement run. It is always
// well-formed: backend degradation inside the loop (LLM outage, empty
// results, retrieval failure) never surfaces as an error, only context
// cancellation does.
type Outcome struct {
	ItemIDs    []string
	Message    string
	Iterations int
	Metadata   map[string]any
}

// Controller drives the bounded analyze → search → verify refinement cycle
// for one request at a time. Each request owns its own State; the controller
// itself is stateless and safe for concurrent use.
type Controller struct {
	analyzer      Analyzer
	retriever     Retriever
	verifier      Verifier
	profiles      ProfileReader
	maxIterations int
	limit         int
	logger        *zap.Logger
}

// NewController creates a refinement loop controller. maxIterations bounds
// the number of analyze/search/verify cycles; limit caps the candidate list
// per search.
func NewController(
	analyzer Analyzer, retriever Retriever, verifier Verifier, profiles ProfileReader,
	maxIterations, limit int, logger *zap.Logger,
) *Controller {
	return &Controller{
		analyzer:      analyzer,
		retriever:     retriever,
		verifier:      verifier,
		profiles:      profiles,
		maxIterations: maxIterations,
		limit:         limit,
		logger:        logger,
	}
}

// Run executes the refinement loop to its terminal state and returns the
// final verdict. The loop always terminates within maxIterations cycles.
func (c *Controller) Run(ctx context.Context, userQuery, userID, sessionID string) (Outcome, error) {
	st := NewState(userQuery, userID, sessionID)
	log := c.logger.With(zap.String("session_id", sessionID), zap.String("user_id", userID))

	for {
		if err := ctx.Err(); err != nil {
			return Outcome{}, fmt.Errorf("refinement loop aborted: %w", err)
		}

		st = c.analyzeStep(ctx, st, log)

		if st.shouldFetchProfile() {
			st = c.fetchProfileStep(ctx, st, log)
		}

		st = c.searchStep(ctx, st, log)
		st = c.verifyStep(ctx, st, log)

		lastAttempt := st.iteration >= c.maxIterations-1
		if st.sufficient || lastAttempt {
			st = st.withPhase(Responding)
			return c.respond(st, log), nil
		}

		metrics.LoopIterationsTotal.WithLabelValues("retry").Inc()
		st = st.nextIteration()
	}
}

func (c *Controller) analyzeStep(ctx context.Context, st State, log *zap.Logger) State {
	st = st.withPhase(Analyzing)

	res := c.analyzer.Analyze(ctx, st.userQuery, st.iteration, st.filters, st.suggestions)

	log.Debug("analysis complete",
		zap.Int("iteration", st.iteration),
		zap.String("filters", res.Filters.String()),
		zap.Bool("fallback", res.Fallback))

	return st.withAnalysis(res.Filters, res.SemanticQuery, res.NeedsProfile, res.Fallback)
}

// fetchProfileStep loads the style profile. Failure leaves the profile nil
// and proceeds; the profile is an enrichment, not a blocker.
func (c *Controller) fetchProfileStep(ctx context.Context, st State, log *zap.Logger) State {
	st = st.withPhase(FetchingProfile)

	p, err := c.profiles.Get(ctx, st.userID)
	if err != nil {
		log.Debug("profile unavailable, proceeding without", zap.Error(err))
		return st.withProfile(nil)
	}
	return st.withProfile(&p)
}

// searchStep retrieves candidates. A backend failure degrades to an empty
// batch for this iteration so the verifier's zero-candidate path keeps the
// loop moving.
func (c *Controller) searchStep(ctx context.Context, st State, log *zap.Logger) State {
	st = st.withPhase(Searching)

	batch, err := c.retriever.Search(ctx, st.semanticQuery, st.filters, c.styleKey(st), c.limit)
	if err != nil {
		log.Warn("retrieval failed, treating as zero candidates",
			zap.Int("iteration", st.iteration), zap.Error(err))
		metrics.LoopFallbacksTotal.WithLabelValues("retrieval").Inc()
		st = st.withRetrievalFailure()
		batch = nil
	}

	return st.withCandidates(batch)
}

func (c *Controller) verifyStep(ctx context.Context, st State, log *zap.Logger) State {
	st = st.withPhase(Verifying)

	res := c.verifier.Verify(ctx, st.userQuery, st.candidates, st.profile, st.filters)

	log.Debug("verification complete",
		zap.Int("iteration", st.iteration),
		zap.Int("candidates", len(st.candidates)),
		zap.Int("valid", len(res.ValidItemIDs)),
		zap.Bool("sufficient", res.IsSufficient))

	return st.withVerdict(res.ValidItemIDs, res.IsSufficient, res.RefinementSuggestions, res.Fallback)
}

// styleKey names the item style score used for ranking fusion: the profile
// archetype when one is loaded.
func (c *Controller) styleKey(st State) string {
	if st.profile == nil {
		return ""
	}
	return st.profile.Archetype()
}

func (c *Controller) respond(st State, log *zap.Logger) Outcome {
	exhausted := !st.sufficient

	outcome := "sufficient"
	if exhausted {
		outcome = "exhausted"
	}
	metrics.LoopIterationsTotal.WithLabelValues(outcome).Inc()
	metrics.LoopRunsTotal.WithLabelValues(outcome).Inc()

	var message string
	if exhausted && st.suggestions != "" {
		message = st.suggestions
	}

	log.Info("refinement loop finished",
		zap.Int("iterations", st.iteration+1),
		zap.Int("item_count", len(st.validIDs)),
		zap.Bool("exhausted", exhausted))

	itemIDs := st.validIDs
	if itemIDs == nil {
		itemIDs = []string{}
	}

	return Outcome{
		ItemIDs:    itemIDs,
		Message:    message,
		Iterations: st.iteration + 1,
		Metadata: map[string]any{
			"exhausted":                 exhausted,
			"final_filters":             st.filters.String(),
			"profile_fetched":           st.profileFetched,
			"zero_candidate_iterations": st.zeroCandidateIterations,
			"analysis_fallbacks":        st.analysisFallbacks,
			"verification_fallbacks":    st.verificationFallbacks,
			"retrieval_failures":        st.retrievalFailures,
		},
	}
}

package loop

import (
	"github.com/looklab/stylist/internal/domain/candidate"
	"github.com/looklab/stylist/internal/domain/filters"
	"github.com/looklab/stylist/internal/domain/profile"
)

// Phase is one node of the refinement state machine.
type Phase string

const (
	// Analyzing turns the request plus feedback into filters and a query.
	Analyzing Phase = "ANALYZING"
	// FetchingProfile loads the user's style profile, first iteration only.
	FetchingProfile Phase = "FETCHING_PROFILE"
	// Searching retrieves and ranks candidates.
	Searching Phase = "SEARCHING"
	// Verifying judges the candidate batch.
	Verifying Phase = "VERIFYING"
	// Responding is the terminal phase.
	Responding Phase = "RESPONDING"
)

// State is the immutable per-request refinement state. Each node produces a
// new value via the with* methods; nothing mutates in place, so an iteration
// never observes a later iteration's writes. One request owns one State
// lineage with no cross-request sharing.
type State struct {
	phase     Phase
	iteration int

	userQuery string
	userID    string
	sessionID string

	filters       filters.Filters
	semanticQuery string
	needsProfile  bool

	profile        *profile.Profile
	profileFetched bool

	candidates  []candidate.Candidate
	validIDs    []string
	suggestions string
	sufficient  bool

	// degraded-mode accumulators, reported as terminal metadata
	zeroCandidateIterations int
	analysisFallbacks       int
	verificationFallbacks   int
	retrievalFailures       int
}

// NewState creates the initial state for one request.
func NewState(userQuery, userID, sessionID string) State {
	return State{
		phase:     Analyzing,
		userQuery: userQuery,
		userID:    userID,
		sessionID: sessionID,
	}
}

// Phase returns the current state-machine node.
func (s State) Phase() Phase { return s.phase }

// Iteration returns the zero-based refinement iteration.
func (s State) Iteration() int { return s.iteration }

// Filters returns the active search filters.
func (s State) Filters() filters.Filters { return s.filters }

// SemanticQuery returns the active semantic query.
func (s State) SemanticQuery() string { return s.semanticQuery }

// Profile returns the fetched style profile, nil when absent.
func (s State) Profile() *profile.Profile { return s.profile }

// Candidates returns the current iteration's candidate batch.
func (s State) Candidates() []candidate.Candidate { return s.candidates }

// ValidItemIDs returns the verifier-accepted ids of the current iteration.
func (s State) ValidItemIDs() []string { return s.validIDs }

// Suggestions returns the verifier's refinement feedback.
func (s State) Suggestions() string { return s.suggestions }

func (s State) withPhase(p Phase) State {
	s.phase = p
	return s
}

func (s State) withAnalysis(f filters.Filters, semanticQuery string, needsProfile, fallback bool) State {
	s.filters = f
	s.semanticQuery = semanticQuery
	s.needsProfile = needsProfile
	if fallback {
		s.analysisFallbacks++
	}
	return s
}

func (s State) withProfile(p *profile.Profile) State {
	s.profile = p
	s.profileFetched = true
	return s
}

func (s State) withCandidates(batch []candidate.Candidate) State {
	s.candidates = batch
	if len(batch) == 0 {
		s.zeroCandidateIterations++
	}
	return s
}

func (s State) withRetrievalFailure() State {
	s.retrievalFailures++
	return s
}

func (s State) withVerdict(validIDs []string, sufficient bool, suggestions string, fallback bool) State {
	s.validIDs = validIDs
	s.sufficient = sufficient
	s.suggestions = suggestions
	if fallback {
		s.verificationFallbacks++
	}
	return s
}

// nextIteration loops back to analysis. Iteration only ever increases.
func (s State) nextIteration() State {
	s.iteration++
	s.phase = Analyzing
	s.candidates = nil
	return s
}

// shouldFetchProfile implements the guard: only on the first iteration, only
// when the analyzer asked for it, only when not already fetched.
func (s State) shouldFetchProfile() bool {
	return s.needsProfile && s.profile == nil && s.iteration == 0 && !s.profileFetched
}

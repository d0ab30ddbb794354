package verify

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/looklab/stylist/internal/domain/candidate"
	"github.com/looklab/stylist/internal/domain/filters"
	"github.com/looklab/stylist/internal/domain/item"
	"github.com/looklab/stylist/internal/domain/profile"
)

type mockCompleter struct {
	response    string
	err         error
	called      bool
	lastMessage string
}

func (m *mockCompleter) Complete(_ context.Context, _, userMessage string) (string, error) {
	m.called = true
	m.lastMessage = userMessage
	return m.response, m.err
}

func cand(id string, score float64) candidate.Candidate {
	return candidate.New(id, item.Commerce, candidate.Attributes{
		Name:     "name-" + id,
		Category: "TOP",
	}, score, map[string]float64{"semantic": score})
}

func TestVerify_ZeroCandidatesNeverCallsLLM(t *testing.T) {
	llm := &mockCompleter{}
	svc := New(llm, 3, zap.NewNop())
	f := filters.Normalize(map[string]any{"category": "TOP"})

	res := svc.Verify(context.Background(), "a top", nil, nil, f)

	if llm.called {
		t.Error("zero candidates must not consult the LLM")
	}
	if res.IsSufficient {
		t.Error("zero candidates cannot be sufficient")
	}
	if len(res.ValidItemIDs) != 0 {
		t.Errorf("valid ids = %v, want none", res.ValidItemIDs)
	}
	if !strings.Contains(res.RefinementSuggestions, "category") {
		t.Errorf("suggestion %q must mention the category filter", res.RefinementSuggestions)
	}
}

func TestVerify_ZeroCandidatesNoFilters(t *testing.T) {
	svc := New(&mockCompleter{}, 3, zap.NewNop())

	res := svc.Verify(context.Background(), "q", nil, nil, filters.Filters{})

	if !strings.Contains(res.RefinementSuggestions, "Broaden") {
		t.Errorf("suggestion %q must advise broadening the query", res.RefinementSuggestions)
	}
}

func TestVerify_AcceptsLLMVerdict(t *testing.T) {
	llm := &mockCompleter{
		response: `{"valid_item_ids":["b","a","c"],"refinement_suggestions":null}`,
	}
	svc := New(llm, 3, zap.NewNop())
	batch := []candidate.Candidate{cand("a", 0.9), cand("b", 0.8), cand("c", 0.7), cand("d", 0.6)}

	res := svc.Verify(context.Background(), "q", batch, nil, filters.Filters{})

	if !res.IsSufficient {
		t.Error("3 accepted of threshold 3 must be sufficient")
	}
	if want := []string{"b", "a", "c"}; !reflect.DeepEqual(res.ValidItemIDs, want) {
		t.Errorf("valid ids = %v, want %v", res.ValidItemIDs, want)
	}
	if res.Fallback {
		t.Error("clean verdict must not be marked as fallback")
	}
}

func TestVerify_DropsHallucinatedIDs(t *testing.T) {
	llm := &mockCompleter{
		response: `{"valid_item_ids":["a","ghost","a","z"],"refinement_suggestions":"none"}`,
	}
	svc := New(llm, 1, zap.NewNop())
	batch := []candidate.Candidate{cand("a", 0.9)}

	res := svc.Verify(context.Background(), "q", batch, nil, filters.Filters{})

	if want := []string{"a"}; !reflect.DeepEqual(res.ValidItemIDs, want) {
		t.Errorf("valid ids = %v, want %v", res.ValidItemIDs, want)
	}
}

func TestVerify_InsufficientBelowThreshold(t *testing.T) {
	llm := &mockCompleter{
		response: `{"valid_item_ids":["a"],"refinement_suggestions":"try other brands"}`,
	}
	svc := New(llm, 3, zap.NewNop())
	batch := []candidate.Candidate{cand("a", 0.9), cand("b", 0.8)}

	res := svc.Verify(context.Background(), "q", batch, nil, filters.Filters{})

	if res.IsSufficient {
		t.Error("1 accepted of threshold 3 must not be sufficient")
	}
	if res.RefinementSuggestions != "try other brands" {
		t.Errorf("suggestions = %q", res.RefinementSuggestions)
	}
}

func TestVerify_ScoreFallbackOnLLMError(t *testing.T) {
	llm := &mockCompleter{err: errors.New("provider down")}
	svc := New(llm, 2, zap.NewNop())
	batch := []candidate.Candidate{cand("low", 0.1), cand("high", 0.9), cand("mid", 0.5)}

	res := svc.Verify(context.Background(), "q", batch, nil, filters.Filters{})

	if !res.Fallback {
		t.Fatal("LLM failure must take the score fallback")
	}
	if want := []string{"high", "mid"}; !reflect.DeepEqual(res.ValidItemIDs, want) {
		t.Errorf("valid ids = %v, want top-2 by score %v", res.ValidItemIDs, want)
	}
	if !res.IsSufficient {
		t.Error("2 accepted of threshold 2 must be sufficient")
	}
}

func TestVerify_ScoreFallbackFewerCandidatesThanThreshold(t *testing.T) {
	llm := &mockCompleter{response: "not json at all"}
	svc := New(llm, 3, zap.NewNop())
	batch := []candidate.Candidate{cand("only", 0.9)}

	res := svc.Verify(context.Background(), "q", batch, nil, filters.Filters{})

	if !res.Fallback {
		t.Fatal("unparseable verdict must take the score fallback")
	}
	if len(res.ValidItemIDs) != 1 {
		t.Errorf("valid ids = %v, want exactly the single candidate", res.ValidItemIDs)
	}
	if res.IsSufficient {
		t.Error("1 accepted of threshold 3 must not be sufficient")
	}
}

func TestVerify_ProfileContextInPrompt(t *testing.T) {
	llm := &mockCompleter{
		response: `{"valid_item_ids":["a"],"refinement_suggestions":null}`,
	}
	svc := New(llm, 1, zap.NewNop())
	p := profile.New("classic", 0.9, 0.1, []string{"navy"}, []string{"Acme"}, []string{"neon"})
	batch := []candidate.Candidate{cand("a", 0.9)}

	svc.Verify(context.Background(), "q", batch, &p, filters.Filters{})

	for _, want := range []string{"classic", "formal", "muted", "navy", "Acme", "neon"} {
		if !strings.Contains(llm.lastMessage, want) {
			t.Errorf("prompt missing profile detail %q", want)
		}
	}
}

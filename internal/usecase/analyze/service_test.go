package analyze

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/looklab/stylist/internal/domain/filters"
	"github.com/looklab/stylist/internal/domain/taxonomy"
)

type mockCompleter struct {
	response    string
	err         error
	lastMessage string
}

func (m *mockCompleter) Complete(_ context.Context, _, userMessage string) (string, error) {
	m.lastMessage = userMessage
	return m.response, m.err
}

func TestAnalyze_ParsesCleanJSON(t *testing.T) {
	llm := &mockCompleter{
		response: `{"filters":{"category":"TOP","brand":"Acme"},"semantic_query":"casual blue top","needs_profile":false}`,
	}
	svc := New(llm, zap.NewNop())

	res := svc.Analyze(context.Background(), "a blue top", 0, filters.Filters{}, "")

	if res.Fallback {
		t.Fatal("clean JSON must not take the fallback path")
	}
	if res.Filters.Category() != taxonomy.Top {
		t.Errorf("category = %q", res.Filters.Category())
	}
	if res.Filters.Brand() != "Acme" {
		t.Errorf("brand = %q", res.Filters.Brand())
	}
	if res.SemanticQuery != "casual blue top" {
		t.Errorf("semantic query = %q", res.SemanticQuery)
	}
	if res.NeedsProfile {
		t.Error("needs_profile should be false")
	}
}

func TestAnalyze_StripsMarkdownFences(t *testing.T) {
	llm := &mockCompleter{
		response: "```json\n{\"filters\":{\"category\":\"BOTTOM\"},\"semantic_query\":\"jeans\",\"needs_profile\":true}\n```",
	}
	svc := New(llm, zap.NewNop())

	res := svc.Analyze(context.Background(), "jeans", 0, filters.Filters{}, "")

	if res.Fallback {
		t.Fatal("fenced JSON must not take the fallback path")
	}
	if res.Filters.Category() != taxonomy.Bottom {
		t.Errorf("category = %q", res.Filters.Category())
	}
	if !res.NeedsProfile {
		t.Error("needs_profile should be true")
	}
}

func TestAnalyze_ExtractsObjectFromProse(t *testing.T) {
	llm := &mockCompleter{
		response: `Sure! Here is the analysis: {"filters":{},"semantic_query":"warm coat","needs_profile":false} I hope that helps.`,
	}
	svc := New(llm, zap.NewNop())

	res := svc.Analyze(context.Background(), "warm coat", 0, filters.Filters{}, "")

	if res.Fallback {
		t.Fatal("prose-wrapped JSON must not take the fallback path")
	}
	if res.SemanticQuery != "warm coat" {
		t.Errorf("semantic query = %q", res.SemanticQuery)
	}
}

func TestAnalyze_FallbackOnUnparseableOutput(t *testing.T) {
	llm := &mockCompleter{response: "I cannot answer in JSON today."}
	svc := New(llm, zap.NewNop())

	res := svc.Analyze(context.Background(), "red dress", 0, filters.Filters{}, "")

	if !res.Fallback {
		t.Fatal("unparseable output must take the fallback path")
	}
	if !res.Filters.IsEmpty() {
		t.Errorf("fallback filters = %v, want empty", res.Filters)
	}
	if res.SemanticQuery != "red dress" {
		t.Errorf("semantic query = %q, want the raw request", res.SemanticQuery)
	}
	if !res.NeedsProfile {
		t.Error("fallback must request the profile")
	}
}

func TestAnalyze_FallbackOnCompleterError(t *testing.T) {
	llm := &mockCompleter{err: errors.New("provider down")}
	svc := New(llm, zap.NewNop())

	res := svc.Analyze(context.Background(), "red dress", 0, filters.Filters{}, "")

	if !res.Fallback {
		t.Fatal("completer failure must take the fallback path")
	}
}

func TestAnalyze_NormalizesModelFilters(t *testing.T) {
	// lowercase category, bogus color: normalization canonicalizes one and
	// drops the other.
	llm := &mockCompleter{
		response: `{"filters":{"category":"top","sub_category":"t-shirt","color_hex":"00ff00"},"semantic_query":"tee","needs_profile":false}`,
	}
	svc := New(llm, zap.NewNop())

	res := svc.Analyze(context.Background(), "tee", 0, filters.Filters{}, "")

	if res.Filters.Category() != taxonomy.Top {
		t.Errorf("category = %q, want TOP", res.Filters.Category())
	}
	if res.Filters.SubCategory() != "T-Shirt" {
		t.Errorf("sub_category = %q, want T-Shirt", res.Filters.SubCategory())
	}
	if res.Filters.ColorHex() != "" {
		t.Errorf("color_hex = %q, want dropped", res.Filters.ColorHex())
	}
}

func TestAnalyze_RefinementContextInLaterIterations(t *testing.T) {
	llm := &mockCompleter{
		response: `{"filters":{},"semantic_query":"any top","needs_profile":false}`,
	}
	svc := New(llm, zap.NewNop())
	prior := filters.Normalize(map[string]any{"category": "TOP"})

	svc.Analyze(context.Background(), "a top", 1, prior, "try removing the category filter")

	if !strings.Contains(llm.lastMessage, "try removing the category filter") {
		t.Errorf("refinement suggestions missing from prompt: %q", llm.lastMessage)
	}
	if !strings.Contains(llm.lastMessage, "TOP") {
		t.Errorf("prior filters missing from prompt: %q", llm.lastMessage)
	}
}

func TestAnalyze_FirstIterationOmitsRefinementContext(t *testing.T) {
	llm := &mockCompleter{
		response: `{"filters":{},"semantic_query":"q","needs_profile":false}`,
	}
	svc := New(llm, zap.NewNop())

	svc.Analyze(context.Background(), "a top", 0, filters.Filters{}, "")

	if strings.Contains(llm.lastMessage, "refinement attempt") {
		t.Errorf("first iteration must not mention refinement: %q", llm.lastMessage)
	}
}

func TestAnalyze_EmptySemanticQueryFallsBackToRequest(t *testing.T) {
	llm := &mockCompleter{
		response: `{"filters":{},"semantic_query":"","needs_profile":false}`,
	}
	svc := New(llm, zap.NewNop())

	res := svc.Analyze(context.Background(), "linen shirt", 0, filters.Filters{}, "")

	if res.SemanticQuery != "linen shirt" {
		t.Errorf("semantic query = %q, want the raw request", res.SemanticQuery)
	}
}

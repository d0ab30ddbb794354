package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/looklab/stylist/internal/domain"
	"github.com/looklab/stylist/internal/domain/item"
	"github.com/looklab/stylist/internal/domain/profile"
	healthuc "github.com/looklab/stylist/internal/usecase/health"
	"github.com/looklab/stylist/internal/usecase/loop"
)

// --- Mocks ---

type mockRecommender struct {
	outcome    loop.Outcome
	err        error
	gotQuery   string
	gotUserID  string
	gotSession string
}

func (m *mockRecommender) Run(_ context.Context, q, uid, sid string) (loop.Outcome, error) {
	m.gotQuery, m.gotUserID, m.gotSession = q, uid, sid
	return m.outcome, m.err
}

type mockItems struct {
	item item.Item
	err  error
	put  *item.Item
}

func (m *mockItems) Put(_ context.Context, it *item.Item) error {
	m.put = it
	return m.err
}

func (m *mockItems) Get(_ context.Context, _ string) (item.Item, error) {
	return m.item, m.err
}

type mockProfiles struct {
	p   profile.Profile
	err error
}

func (m *mockProfiles) Get(_ context.Context, _ string) (profile.Profile, error) {
	return m.p, m.err
}

func (m *mockProfiles) Put(_ context.Context, _ string, _ *profile.Profile) error {
	return m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func newTestRouter(rec Recommender, items ItemStore, profiles ProfileStore, health HealthService) http.Handler {
	s := NewServer(rec, items, profiles, health, zap.NewNop())
	r := chirouter.NewRouter()
	s.RegisterRoutes(r)
	return r
}

// --- Tests ---

func TestCreateRecommendations_OK(t *testing.T) {
	rec := &mockRecommender{outcome: loop.Outcome{
		ItemIDs:    []string{"a", "b"},
		Iterations: 2,
		Metadata:   map[string]any{"exhausted": false},
	}}
	router := newTestRouter(rec, &mockItems{}, &mockProfiles{}, &mockHealth{})

	body := `{"query":"a blue top","user_id":"u1","session_id":"s1"}`
	req := httptest.NewRequest("POST", "/v1/recommendations", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if rec.gotQuery != "a blue top" || rec.gotUserID != "u1" || rec.gotSession != "s1" {
		t.Errorf("recommender got %q/%q/%q", rec.gotQuery, rec.gotUserID, rec.gotSession)
	}

	var resp struct {
		ItemIDs    []string `json:"item_ids"`
		Iterations int      `json:"iterations"`
		SessionID  string   `json:"session_id"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.ItemIDs) != 2 || resp.Iterations != 2 || resp.SessionID != "s1" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCreateRecommendations_GeneratesSessionID(t *testing.T) {
	rec := &mockRecommender{outcome: loop.Outcome{ItemIDs: []string{}}}
	router := newTestRouter(rec, &mockItems{}, &mockProfiles{}, &mockHealth{})

	req := httptest.NewRequest("POST", "/v1/recommendations", strings.NewReader(`{"query":"q"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rec.gotSession == "" {
		t.Error("a missing session id must be generated")
	}
}

func TestCreateRecommendations_MissingQuery(t *testing.T) {
	router := newTestRouter(&mockRecommender{}, &mockItems{}, &mockProfiles{}, &mockHealth{})

	req := httptest.NewRequest("POST", "/v1/recommendations", strings.NewReader(`{"user_id":"u1"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestCreateRecommendations_InvalidBody(t *testing.T) {
	router := newTestRouter(&mockRecommender{}, &mockItems{}, &mockProfiles{}, &mockHealth{})

	req := httptest.NewRequest("POST", "/v1/recommendations", strings.NewReader(`{not json`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestCreateRecommendations_InternalError(t *testing.T) {
	rec := &mockRecommender{err: errors.New("datastore unreachable")}
	router := newTestRouter(rec, &mockItems{}, &mockProfiles{}, &mockHealth{})

	req := httptest.NewRequest("POST", "/v1/recommendations", strings.NewReader(`{"query":"q"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestUpsertItem_OK(t *testing.T) {
	items := &mockItems{}
	router := newTestRouter(&mockRecommender{}, items, &mockProfiles{}, &mockHealth{})

	body := `{"source":"commerce","name":"Slim Jeans","category":"BOTTOM","sub_category":"Jeans"}`
	req := httptest.NewRequest("PUT", "/v1/items/item-1", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if items.put == nil || items.put.ID() != "item-1" {
		t.Errorf("stored item = %v", items.put)
	}
}

func TestGetItem_NotFound(t *testing.T) {
	items := &mockItems{err: domain.ErrItemNotFound}
	router := newTestRouter(&mockRecommender{}, items, &mockProfiles{}, &mockHealth{})

	req := httptest.NewRequest("GET", "/v1/items/missing", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}

	var errResp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp["code"] != codeItemNotFound {
		t.Errorf("code = %q", errResp["code"])
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	profiles := &mockProfiles{err: domain.ErrProfileNotFound}
	router := newTestRouter(&mockRecommender{}, &mockItems{}, profiles, &mockHealth{})

	req := httptest.NewRequest("GET", "/v1/profiles/u1", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestUpsertProfile_OK(t *testing.T) {
	router := newTestRouter(&mockRecommender{}, &mockItems{}, &mockProfiles{}, &mockHealth{})

	body := `{"archetype":"classic","formal":0.8,"colorful":0.2}`
	req := httptest.NewRequest("PUT", "/v1/profiles/u1", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestHealthCheck_Degraded503(t *testing.T) {
	health := &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckError},
	}}
	router := newTestRouter(&mockRecommender{}, &mockItems{}, &mockProfiles{}, health)

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestHealthCheck_OK(t *testing.T) {
	health := &mockHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}}
	router := newTestRouter(&mockRecommender{}, &mockItems{}, &mockProfiles{}, health)

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

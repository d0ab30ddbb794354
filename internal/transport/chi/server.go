package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/looklab/stylist/internal/domain"
	"github.com/looklab/stylist/internal/domain/item"
	"github.com/looklab/stylist/internal/domain/profile"
	healthuc "github.com/looklab/stylist/internal/usecase/health"
	"github.com/looklab/stylist/internal/usecase/loop"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeItemNotFound     = "item_not_found"
	codeProfileNotFound  = "profile_not_found"
	codeInternalError    = "internal_error"
)

// Recommender runs the refinement loop for one request.
type Recommender interface {
	Run(ctx context.Context, userQuery, userID, sessionID string) (loop.Outcome, error)
}

// ItemStore reads and writes catalog items (ingestion surface).
type ItemStore interface {
	Put(ctx context.Context, it *item.Item) error
	Get(ctx context.Context, id string) (item.Item, error)
}

// ProfileStore reads and writes user style profiles.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (profile.Profile, error)
	Put(ctx context.Context, userID string, p *profile.Profile) error
}

// HealthService aggregates component health checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API surface over the refinement loop and its stores.
type Server struct {
	recommender Recommender
	items       ItemStore
	profiles    ProfileStore
	health      HealthService
	logger      *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	recommender Recommender, items ItemStore, profiles ProfileStore,
	health HealthService, logger *zap.Logger,
) *Server {
	return &Server{
		recommender: recommender,
		items:       items,
		profiles:    profiles,
		health:      health,
		logger:      logger,
	}
}

// RegisterRoutes mounts all API routes on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/v1/recommendations", s.CreateRecommendations)
	r.Put("/v1/items/{id}", s.UpsertItem)
	r.Get("/v1/items/{id}", s.GetItem)
	r.Put("/v1/profiles/{userId}", s.UpsertProfile)
	r.Get("/v1/profiles/{userId}", s.GetProfile)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type recommendationRequest struct {
	Query     string `json:"query"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type recommendationResponse struct {
	ItemIDs    []string       `json:"item_ids"`
	Message    string         `json:"message,omitempty"`
	Iterations int            `json:"iterations"`
	SessionID  string         `json:"session_id"`
	Metadata   map[string]any `json:"metadata"`
}

// CreateRecommendations handles POST /v1/recommendations.
func (s *Server) CreateRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	outcome, err := s.recommender.Run(r.Context(), req.Query, req.UserID, req.SessionID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recommendationResponse{
		ItemIDs:    outcome.ItemIDs,
		Message:    outcome.Message,
		Iterations: outcome.Iterations,
		SessionID:  req.SessionID,
		Metadata:   outcome.Metadata,
	})
}

type itemRequest struct {
	Source      string             `json:"source"`
	Name        string             `json:"name"`
	Category    string             `json:"category"`
	SubCategory string             `json:"sub_category"`
	Brand       string             `json:"brand"`
	Colors      []string           `json:"colors"`
	Description string             `json:"description"`
	Embedding   []float32          `json:"embedding"`
	StyleScores map[string]float64 `json:"style_scores"`
}

type itemResponse struct {
	ID          string             `json:"id"`
	Source      string             `json:"source"`
	Name        string             `json:"name"`
	Category    string             `json:"category,omitempty"`
	SubCategory string             `json:"sub_category,omitempty"`
	Brand       string             `json:"brand,omitempty"`
	Colors      []string           `json:"colors,omitempty"`
	Description string             `json:"description,omitempty"`
	StyleScores map[string]float64 `json:"style_scores,omitempty"`
}

// UpsertItem handles PUT /v1/items/{id}.
func (s *Server) UpsertItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	it, err := item.New(id, item.Source(req.Source), req.Name, req.Category,
		req.SubCategory, req.Brand, req.Colors, req.Description,
		req.Embedding, req.StyleScores)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	if err := s.items.Put(r.Context(), &it); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, itemToResponse(&it))
}

// GetItem handles GET /v1/items/{id}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, itemToResponse(&it))
}

type profileRequest struct {
	Archetype      string   `json:"archetype"`
	Formal         float64  `json:"formal"`
	Colorful       float64  `json:"colorful"`
	FavoriteColors []string `json:"favorite_colors"`
	FavoriteBrands []string `json:"favorite_brands"`
	Dislikes       []string `json:"dislikes"`
}

// UpsertProfile handles PUT /v1/profiles/{userId}.
func (s *Server) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	p := profile.New(req.Archetype, req.Formal, req.Colorful,
		req.FavoriteColors, req.FavoriteBrands, req.Dislikes)

	if err := s.profiles.Put(r.Context(), userID, &p); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileToResponse(&p))
}

// GetProfile handles GET /v1/profiles/{userId}.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileToResponse(&p))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))

	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, codeItemNotFound, domain.ErrItemNotFound.Error())
	case errors.Is(err, domain.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, codeProfileNotFound, domain.ErrProfileNotFound.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, codeInternalError, "request timed out")
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func itemToResponse(it *item.Item) itemResponse {
	return itemResponse{
		ID:          it.ID(),
		Source:      string(it.Source()),
		Name:        it.Name(),
		Category:    it.Category(),
		SubCategory: it.SubCategory(),
		Brand:       it.Brand(),
		Colors:      it.Colors(),
		Description: it.Description(),
		StyleScores: it.StyleScores(),
	}
}

func profileToResponse(p *profile.Profile) map[string]any {
	return map[string]any{
		"archetype":       p.Archetype(),
		"formal":          p.Formal(),
		"colorful":        p.Colorful(),
		"favorite_colors": p.FavoriteColors(),
		"favorite_brands": p.FavoriteBrands(),
		"dislikes":        p.Dislikes(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

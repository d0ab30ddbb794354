// Package stylist embeds the fashion recommendation loop in-process: a
// Redis-backed catalog, an embedding provider, and an LLM-driven
// analyze/search/verify refinement cycle behind one Client.
//
//	client, _ := stylist.New(
//	    stylist.WithRedis("localhost:6379", ""),
//	    stylist.WithEmbedder(emb),
//	    stylist.WithCompleter(llm),
//	)
//	defer client.Close()
//
//	_ = client.PutItem(ctx, stylist.Item{ID: "sku-1", Category: "TOP"})
//	rec, _ := client.Recommend(ctx, "linen shirt for a summer wedding", "user-7", "")
package stylist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dbRedis "github.com/looklab/stylist/internal/db/redis"
	"github.com/looklab/stylist/internal/domain"
	"github.com/looklab/stylist/internal/domain/item"
	"github.com/looklab/stylist/internal/domain/profile"
	catalogrepo "github.com/looklab/stylist/internal/repository/catalog"
	profilerepo "github.com/looklab/stylist/internal/repository/profile"
	analyzeuc "github.com/looklab/stylist/internal/usecase/analyze"
	loopuc "github.com/looklab/stylist/internal/usecase/loop"
	retrievaluc "github.com/looklab/stylist/internal/usecase/retrieval"
	verifyuc "github.com/looklab/stylist/internal/usecase/verify"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the embedded stylist entry point.
type Client struct {
	store    *dbRedis.Store
	items    *catalogrepo.Repo
	profiles *profilerepo.Repo
	loop     *loopuc.Controller
}

// New creates a stylist Client, connects to the database, and ensures the
// catalog index exists.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorDimensions:  512,
		hnswM:             32,
		hnswEFConstruct:   400,
		candidatePoolSize: 100,
		resultLimit:       10,
		maxIterations:     3,
		minResults:        3,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("stylist: database address required (use WithRedis)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("stylist: embedder required (use WithEmbedder)")
	}
	if cfg.completer == nil {
		return nil, errors.New("stylist: completer required (use WithCompleter)")
	}

	if cfg.keyPrefix != "" {
		domain.KeyPrefix = cfg.keyPrefix
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("stylist: create redis store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("stylist: database not ready: %w", err)
	}

	c, err := wireClient(store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(store *dbRedis.Store, cfg *clientConfig) (*Client, error) {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	items := catalogrepo.New(store)
	ctx := context.Background()
	if err := items.EnsureIndex(ctx, cfg.vectorDimensions, cfg.hnswM, cfg.hnswEFConstruct); err != nil {
		return nil, fmt.Errorf("stylist: ensure catalog index: %w", err)
	}
	profiles := profilerepo.New(store)

	emb := &embedderAdapter{inner: cfg.embedder}
	llm := &completerAdapter{inner: cfg.completer}

	strategy := retrievaluc.StrategyIndex
	if cfg.scanRetrieval {
		strategy = retrievaluc.StrategyScan
	}

	retriever := retrievaluc.New(items, emb, strategy, cfg.candidatePoolSize)
	analyzer := analyzeuc.New(llm, logger)
	verifier := verifyuc.New(llm, cfg.minResults, logger)
	controller := loopuc.NewController(
		analyzer, retriever, verifier, profiles,
		cfg.maxIterations, cfg.resultLimit, logger,
	)

	return &Client{
		store:    store,
		items:    items,
		profiles: profiles,
		loop:     controller,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Recommend runs the refinement loop for a user query. sessionID may be
// empty; a fresh one is generated and returned on the Recommendation.
func (c *Client) Recommend(ctx context.Context, query, userID, sessionID string) (Recommendation, error) {
	if query == "" {
		return Recommendation{}, errors.New("stylist: query is required")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	out, err := c.loop.Run(ctx, query, userID, sessionID)
	if err != nil {
		return Recommendation{}, fmt.Errorf("recommend: %w", err)
	}
	return Recommendation{
		SessionID:  sessionID,
		ItemIDs:    out.ItemIDs,
		Message:    out.Message,
		Iterations: out.Iterations,
		Metadata:   out.Metadata,
	}, nil
}

// PutItem validates and upserts a catalog item.
func (c *Client) PutItem(ctx context.Context, it Item) error {
	domIt, err := itemFromAPI(it)
	if err != nil {
		return err
	}
	if err := c.items.Put(ctx, &domIt); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// GetItem loads a catalog item by id. Returns ErrItemNotFound when absent.
func (c *Client) GetItem(ctx context.Context, id string) (Item, error) {
	domIt, err := c.items.Get(ctx, id)
	if err != nil {
		return Item{}, fmt.Errorf("get item: %w", err)
	}
	return itemToAPI(&domIt), nil
}

// PutProfile upserts a user's style profile.
func (c *Client) PutProfile(ctx context.Context, userID string, p Profile) error {
	domP := profileFromAPI(p)
	if err := c.profiles.Put(ctx, userID, &domP); err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

// GetProfile loads a user's style profile. Returns ErrProfileNotFound when
// absent.
func (c *Client) GetProfile(ctx context.Context, userID string) (Profile, error) {
	domP, err := c.profiles.Get(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profileToAPI(&domP), nil
}

// ErrItemNotFound reports a missing catalog item.
var ErrItemNotFound = domain.ErrItemNotFound

// ErrProfileNotFound reports a missing style profile.
var ErrProfileNotFound = domain.ErrProfileNotFound

// --- Converters ---

func itemFromAPI(it Item) (item.Item, error) {
	domIt, err := item.New(
		it.ID, item.Source(it.Source), it.Name,
		it.Category, it.SubCategory, it.Brand,
		it.Colors, it.Description,
		it.Embedding, it.StyleScores,
	)
	if err != nil {
		return item.Item{}, fmt.Errorf("stylist: %w", err)
	}
	return domIt, nil
}

func itemToAPI(it *item.Item) Item {
	return Item{
		ID:          it.ID(),
		Source:      string(it.Source()),
		Name:        it.Name(),
		Category:    it.Category(),
		SubCategory: it.SubCategory(),
		Brand:       it.Brand(),
		Colors:      it.Colors(),
		Description: it.Description(),
		Embedding:   it.Embedding(),
		StyleScores: it.StyleScores(),
	}
}

func profileFromAPI(p Profile) profile.Profile {
	return profile.New(
		p.Archetype, p.Formal, p.Colorful,
		p.FavoriteColors, p.FavoriteBrands, p.Dislikes,
	)
}

func profileToAPI(p *profile.Profile) Profile {
	return Profile{
		Archetype:      p.Archetype(),
		Formal:         p.Formal(),
		Colorful:       p.Colorful(),
		FavoriteColors: p.FavoriteColors(),
		FavoriteBrands: p.FavoriteBrands(),
		Dislikes:       p.Dislikes(),
	}
}

// embedderAdapter wraps the public Embedder to satisfy internal
// domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// completerAdapter wraps the public Completer to satisfy internal
// domain.Completer.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	reply, err := a.inner.Complete(ctx, systemPrompt, userMessage)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	return reply, nil
}

package stylist

import "context"

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Completer is a chat-completion provider. The client sends a system prompt
// and a user message and expects the raw model reply.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Item is one catalog entry: a wardrobe, commerce, or web garment with its
// attributes and optional precomputed vector and style scores.
type Item struct {
	ID          string
	Source      string // "wardrobe", "commerce", or "web"; defaults to "commerce"
	Name        string
	Category    string
	SubCategory string
	Brand       string
	Colors      []string // hex codes, e.g. "#1a2b3c"
	Description string
	Embedding   []float32
	StyleScores map[string]float64
}

// Profile is a user's style profile. Sliders are clamped to [0,1].
type Profile struct {
	Archetype      string
	Formal         float64
	Colorful       float64
	FavoriteColors []string
	FavoriteBrands []string
	Dislikes       []string
}

// Recommendation is the terminal result of one refinement run.
type Recommendation struct {
	SessionID  string
	ItemIDs    []string
	Message    string
	Iterations int
	Metadata   map[string]any
}

package item

import (
	"fmt"
	"strings"
)

// Source identifies where a catalog item came from.
type Source string

const (
	// Wardrobe items belong to the user's own closet.
	Wardrobe Source = "wardrobe"
	// Commerce items come from partner shop feeds.
	Commerce Source = "commerce"
	// Web items were scraped from open listings.
	Web Source = "web"
)

// descriptionEmbedLimit caps how much free text feeds the on-the-fly
// embedding fallback.
const descriptionEmbedLimit = 512

// Item is one catalog entry with its attributes and optional precomputed
// vectors and style compatibility scores.
type Item struct {
	id          string
	source      Source
	name        string
	category    string
	subCategory string
	brand       string
	colors      []string
	description string
	embedding   []float32
	styleScores map[string]float64
}

// New validates and creates a catalog item.
func New(
	id string, source Source, name, category, subCategory, brand string,
	colors []string, description string,
	embedding []float32, styleScores map[string]float64,
) (Item, error) {
	if id == "" {
		return Item{}, fmt.Errorf("item id is required")
	}
	if source == "" {
		source = Commerce
	}
	return Item{
		id:          id,
		source:      source,
		name:        name,
		category:    category,
		subCategory: subCategory,
		brand:       brand,
		colors:      colors,
		description: description,
		embedding:   embedding,
		styleScores: styleScores,
	}, nil
}

// ID returns the stable item identifier.
func (i *Item) ID() string { return i.id }

// Source returns the item provenance.
func (i *Item) Source() Source { return i.source }

// Name returns the display name.
func (i *Item) Name() string { return i.name }

// Category returns the garment category.
func (i *Item) Category() string { return i.category }

// SubCategory returns the garment sub-category.
func (i *Item) SubCategory() string { return i.subCategory }

// Brand returns the brand name.
func (i *Item) Brand() string { return i.brand }

// Colors returns the color hex codes.
func (i *Item) Colors() []string { return i.colors }

// Description returns the free-text description.
func (i *Item) Description() string { return i.description }

// Embedding returns the precomputed vector, nil when absent.
func (i *Item) Embedding() []float32 { return i.embedding }

// StyleScores returns all precomputed style compatibility scores keyed by
// style context (nil when the item has none).
func (i *Item) StyleScores() map[string]float64 { return i.styleScores }

// StyleScore returns the precomputed compatibility score for the given style
// context key (for example a seasonal palette name). ok is false when the
// item has no score for that context.
func (i *Item) StyleScore(styleKey string) (float64, bool) {
	if styleKey == "" || i.styleScores == nil {
		return 0, false
	}
	s, ok := i.styleScores[styleKey]
	return s, ok
}

// EmbeddingText concatenates the textual attributes into the string fed to
// the embedder when no precomputed vector is stored.
func (i *Item) EmbeddingText() string {
	desc := i.description
	if len(desc) > descriptionEmbedLimit {
		desc = desc[:descriptionEmbedLimit]
	}
	parts := []string{i.name, i.category, i.subCategory, i.brand}
	parts = append(parts, i.colors...)
	parts = append(parts, desc)

	fields := parts[:0]
	for _, p := range parts {
		if p != "" {
			fields = append(fields, p)
		}
	}
	return strings.Join(fields, " ")
}

package candidate

import "github.com/looklab/stylist/internal/domain/item"

// Candidate is one retrieved item with its fused relevance score and the
// per-component breakdown the ranker produced. Candidates live for a single
// refinement iteration; nothing persists them.
type Candidate struct {
	id        string
	source    item.Source
	attrs     Attributes
	score     float64
	breakdown map[string]float64
}

// Attributes carries the raw item attributes the verifier presents to the
// judgment model.
type Attributes struct {
	Name        string
	Category    string
	SubCategory string
	Brand       string
	Colors      []string
	Description string
}

// New creates a candidate.
func New(id string, source item.Source, attrs Attributes, score float64, breakdown map[string]float64) Candidate {
	return Candidate{id: id, source: source, attrs: attrs, score: score, breakdown: breakdown}
}

// FromItem builds a candidate from a catalog item and its score.
func FromItem(it *item.Item, score float64, breakdown map[string]float64) Candidate {
	return New(it.ID(), it.Source(), Attributes{
		Name:        it.Name(),
		Category:    it.Category(),
		SubCategory: it.SubCategory(),
		Brand:       it.Brand(),
		Colors:      it.Colors(),
		Description: it.Description(),
	}, score, breakdown)
}

// ID returns the stable item identifier, unique within one retrieval batch.
func (c *Candidate) ID() string { return c.id }

// Source returns the item provenance.
func (c *Candidate) Source() item.Source { return c.source }

// Attributes returns the raw item attributes.
func (c *Candidate) Attributes() Attributes { return c.attrs }

// Score returns the fused relevance score.
func (c *Candidate) Score() float64 { return c.score }

// Breakdown returns the named ranking sub-scores ("semantic", "style").
// Callers rely on this for explaining rankings.
func (c *Candidate) Breakdown() map[string]float64 { return c.breakdown }

// IDs collects the identifiers of a candidate batch.
func IDs(batch []Candidate) []string {
	ids := make([]string, len(batch))
	for i := range batch {
		ids[i] = batch[i].id
	}
	return ids
}

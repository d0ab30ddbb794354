package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/looklab/stylist/internal/domain/item"
)

// itemDTO is the JSON document layout for a catalog item in Redis.
type itemDTO struct {
	ID          string             `json:"id"`
	Source      string             `json:"source"`
	Name        string             `json:"name"`
	Category    string             `json:"category"`
	SubCategory string             `json:"sub_category,omitempty"`
	Brand       string             `json:"brand,omitempty"`
	Colors      []string           `json:"colors,omitempty"`
	Description string             `json:"description,omitempty"`
	Embedding   []float32          `json:"embedding,omitempty"`
	StyleScores map[string]float64 `json:"style_scores,omitempty"`
}

func toDTO(it *item.Item) itemDTO {
	return itemDTO{
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

func (d *itemDTO) toDomain() (item.Item, error) {
	it, err := item.New(
		d.ID, item.Source(d.Source), d.Name, d.Category, d.SubCategory,
		d.Brand, d.Colors, d.Description, d.Embedding, d.StyleScores,
	)
	if err != nil {
		return item.Item{}, fmt.Errorf("item %q: %w", d.ID, err)
	}
	return it, nil
}

// decodeItem parses a JSON.GET / FT.SEARCH "$" payload into an item.
// JSON.GET with a path returns an array wrapper; plain "$" returns the object.
func decodeItem(data []byte) (item.Item, error) {
	var dto itemDTO
	if err := json.Unmarshal(data, &dto); err == nil && dto.ID != "" {
		return dto.toDomain()
	}

	var wrapped []itemDTO
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return item.Item{}, fmt.Errorf("decode item document: %w", err)
	}
	if len(wrapped) == 0 {
		return item.Item{}, fmt.Errorf("decode item document: empty payload")
	}
	return wrapped[0].toDomain()
}

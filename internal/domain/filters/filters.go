package filters

import (
	"fmt"
	"strings"

	"github.com/looklab/stylist/internal/domain/taxonomy"
)

// Filters is a normalized, immutable constraint set extracted from a user
// request. Absent fields mean "no constraint"; invalid raw values are never
// stored, they are dropped during Normalize.
type Filters struct {
	category    taxonomy.Category
	subCategory string
	brand       string
	colorHex    string
}

// Normalize validates a loosely-typed raw filter map and keeps only the
// fields that resolve against the taxonomy. Malformed fields are silently
// dropped: under-filtering a search beats rejecting the whole request.
func Normalize(raw map[string]any) Filters {
	var f Filters

	if cat, ok := taxonomy.ParseCategory(rawString(raw, "category")); ok {
		f.category = cat
	}

	if sub := rawString(raw, "sub_category"); sub != "" {
		if f.category != "" {
			if canonical, ok := taxonomy.CanonicalSubCategory(f.category, sub); ok {
				f.subCategory = canonical
			}
		} else if canonical, ok := taxonomy.CanonicalSubCategoryAny(sub); ok {
			f.subCategory = canonical
		}
	}

	if brand := strings.TrimSpace(rawString(raw, "brand")); brand != "" {
		f.brand = brand
	}

	if color := strings.TrimSpace(rawString(raw, "color_hex")); isColorHex(color) {
		f.colorHex = color
	}

	return f
}

// Category returns the category constraint ("" when absent).
func (f Filters) Category() taxonomy.Category { return f.category }

// SubCategory returns the canonical sub-category constraint ("" when absent).
func (f Filters) SubCategory() string { return f.subCategory }

// Brand returns the brand constraint ("" when absent).
func (f Filters) Brand() string { return f.brand }

// ColorHex returns the color constraint ("" when absent).
func (f Filters) ColorHex() string { return f.colorHex }

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	return f.category == "" && f.subCategory == "" && f.brand == "" && f.colorHex == ""
}

// ToRawMap converts back to the loose representation handed to the LLM as
// prior-filter context. Normalize(f.ToRawMap()) == f.
func (f Filters) ToRawMap() map[string]any {
	raw := make(map[string]any, 4)
	if f.category != "" {
		raw["category"] = string(f.category)
	}
	if f.subCategory != "" {
		raw["sub_category"] = f.subCategory
	}
	if f.brand != "" {
		raw["brand"] = f.brand
	}
	if f.colorHex != "" {
		raw["color_hex"] = f.colorHex
	}
	return raw
}

// Active returns the names of the set fields, for refinement suggestions.
func (f Filters) Active() []string {
	var active []string
	if f.category != "" {
		active = append(active, "category")
	}
	if f.subCategory != "" {
		active = append(active, "sub_category")
	}
	if f.brand != "" {
		active = append(active, "brand")
	}
	if f.colorHex != "" {
		active = append(active, "color_hex")
	}
	return active
}

// String returns a compact debug representation.
func (f Filters) String() string {
	if f.IsEmpty() {
		return "{}"
	}
	return fmt.Sprintf("{category:%s sub:%s brand:%s color:%s}",
		f.category, f.subCategory, f.brand, f.colorHex)
}

// isColorHex accepts only "#RRGGBB" shaped values: a leading '#' followed by
// six characters.
func isColorHex(s string) bool {
	return len(s) == 7 && s[0] == '#'
}

// rawString pulls a string field out of a loosely-typed map. Accepts the
// common LLM-output aliases for the key (camelCase vs snake_case).
func rawString(raw map[string]any, key string) string {
	if v, ok := raw[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if alias := camelAlias(key); alias != key {
		if v, ok := raw[alias]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func camelAlias(key string) string {
	switch key {
	case "sub_category":
		return "subCategory"
	case "color_hex":
		return "colorHex"
	}
	return key
}

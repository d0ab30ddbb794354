package taxonomy

import "strings"

// Category is one of the fixed top-level garment categories.
type Category string

// Fixed category set. Unknown values are never stored.
const (
	Top       Category = "TOP"
	Bottom    Category = "BOTTOM"
	Shoe      Category = "SHOE"
	Accessory Category = "ACCESSORY"
	Outerwear Category = "OUTERWEAR"
	Dress     Category = "DRESS"
)

// All returns every known category.
func All() []Category {
	return []Category{Top, Bottom, Shoe, Accessory, Outerwear, Dress}
}

// ParseCategory resolves a raw string into a known category, case-insensitively.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(raw)))
	switch c {
	case Top, Bottom, Shoe, Accessory, Outerwear, Dress:
		return c, true
	}
	return "", false
}

// subCategories maps each category to its canonical sub-category names.
var subCategories = map[Category][]string{
	Top:       {"T-Shirt", "Shirt", "Blouse", "Sweater", "Hoodie", "Tank Top", "Polo"},
	Bottom:    {"Jeans", "Trousers", "Shorts", "Skirt", "Leggings", "Chinos"},
	Shoe:      {"Sneakers", "Boots", "Loafers", "Heels", "Sandals", "Flats"},
	Accessory: {"Bag", "Belt", "Hat", "Scarf", "Sunglasses", "Watch", "Jewelry"},
	Outerwear: {"Jacket", "Coat", "Blazer", "Trench Coat", "Puffer", "Cardigan"},
	Dress:     {"Midi Dress", "Maxi Dress", "Mini Dress", "Shirt Dress", "Slip Dress"},
}

// SubCategories returns the canonical sub-category list for a category.
func SubCategories(c Category) []string {
	return subCategories[c]
}

// CanonicalSubCategory matches raw against the category's sub-category list,
// case-insensitively, and returns the canonical casing. The first match wins.
func CanonicalSubCategory(c Category, raw string) (string, bool) {
	return matchSubCategory(subCategories[c], raw)
}

// CanonicalSubCategoryAny matches raw against the union of all categories'
// sub-category lists, used when the category itself did not resolve.
func CanonicalSubCategoryAny(raw string) (string, bool) {
	for _, c := range All() {
		if canonical, ok := matchSubCategory(subCategories[c], raw); ok {
			return canonical, true
		}
	}
	return "", false
}

func matchSubCategory(known []string, raw string) (string, bool) {
	needle := strings.TrimSpace(raw)
	for _, s := range known {
		if strings.EqualFold(s, needle) {
			return s, true
		}
	}
	return "", false
}

package profile

import (
	"fmt"
	"strings"
)

// Profile is a user's style profile: archetype, preference sliders, and
// explicit likes/dislikes. It is an enrichment for analysis and verification,
// never a hard requirement — the loop runs without one.
type Profile struct {
	archetype      string
	formal         float64
	colorful       float64
	favoriteColors []string
	favoriteBrands []string
	dislikes       []string
}

// New validates and creates a profile. Sliders are clamped to [0,1].
func New(
	archetype string, formal, colorful float64,
	favoriteColors, favoriteBrands, dislikes []string,
) Profile {
	return Profile{
		archetype:      strings.TrimSpace(archetype),
		formal:         clamp01(formal),
		colorful:       clamp01(colorful),
		favoriteColors: favoriteColors,
		favoriteBrands: favoriteBrands,
		dislikes:       dislikes,
	}
}

// Archetype returns the style archetype (for example "classic", "street").
func (p *Profile) Archetype() string { return p.archetype }

// Formal returns the formal-preference slider in [0,1].
func (p *Profile) Formal() float64 { return p.formal }

// Colorful returns the colorful-preference slider in [0,1].
func (p *Profile) Colorful() float64 { return p.colorful }

// FavoriteColors returns the preferred color names or hex codes.
func (p *Profile) FavoriteColors() []string { return p.favoriteColors }

// FavoriteBrands returns the preferred brands.
func (p *Profile) FavoriteBrands() []string { return p.favoriteBrands }

// Dislikes returns the negative constraints.
func (p *Profile) Dislikes() []string { return p.dislikes }

// Describe renders the profile as the descriptive context paragraph handed
// to the LLM collaborators. Sliders map to coarse labels rather than raw
// numbers.
func (p *Profile) Describe() string {
	var b strings.Builder
	if p.archetype != "" {
		fmt.Fprintf(&b, "Style archetype: %s. ", p.archetype)
	}
	fmt.Fprintf(&b, "Dress code: %s. Palette: %s.",
		sliderLabel(p.formal, "casual", "balanced", "formal"),
		sliderLabel(p.colorful, "muted", "mixed", "colorful"))
	if len(p.favoriteColors) > 0 {
		fmt.Fprintf(&b, " Favorite colors: %s.", strings.Join(p.favoriteColors, ", "))
	}
	if len(p.favoriteBrands) > 0 {
		fmt.Fprintf(&b, " Favorite brands: %s.", strings.Join(p.favoriteBrands, ", "))
	}
	if len(p.dislikes) > 0 {
		fmt.Fprintf(&b, " Avoid: %s.", strings.Join(p.dislikes, ", "))
	}
	return b.String()
}

func sliderLabel(v float64, low, mid, high string) string {
	switch {
	case v < 0.34:
		return low
	case v < 0.67:
		return mid
	default:
		return high
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/looklab/stylist/internal/db"
	"github.com/looklab/stylist/internal/domain"
	"github.com/looklab/stylist/internal/domain/profile"
)

type store interface {
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONSet(ctx context.Context, key, path string, data []byte) error
}

// Repo reads and writes user style profiles stored as JSON documents.
type Repo struct {
	store store
}

// New creates a profile repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

func profileKey(userID string) string {
	return domain.KeyPrefix + "profiles:" + userID
}

type profileDTO struct {
	Archetype      string   `json:"archetype,omitempty"`
	Formal         float64  `json:"formal"`
	Colorful       float64  `json:"colorful"`
	FavoriteColors []string `json:"favorite_colors,omitempty"`
	FavoriteBrands []string `json:"favorite_brands,omitempty"`
	Dislikes       []string `json:"dislikes,omitempty"`
}

// Get fetches the profile for a user. A user without one yields
// domain.ErrProfileNotFound; the caller decides whether that is fatal.
func (r *Repo) Get(ctx context.Context, userID string) (profile.Profile, error) {
	if userID == "" {
		return profile.Profile{}, domain.ErrProfileNotFound
	}

	data, err := r.store.JSONGet(ctx, profileKey(userID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return profile.Profile{}, domain.ErrProfileNotFound
		}
		return profile.Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}

	return decodeProfile(data)
}

// Put upserts the profile for a user.
func (r *Repo) Put(ctx context.Context, userID string, p *profile.Profile) error {
	if userID == "" {
		return errors.New("user id is required")
	}

	dto := profileDTO{
		Archetype:      p.Archetype(),
		Formal:         p.Formal(),
		Colorful:       p.Colorful(),
		FavoriteColors: p.FavoriteColors(),
		FavoriteBrands: p.FavoriteBrands(),
		Dislikes:       p.Dislikes(),
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("marshal profile %s: %w", userID, err)
	}
	if err := r.store.JSONSet(ctx, profileKey(userID), "$", data); err != nil {
		return fmt.Errorf("put profile %s: %w", userID, err)
	}
	return nil
}

func decodeProfile(data []byte) (profile.Profile, error) {
	payload := data
	// JSON.GET with a root path wraps the document in a one-element array.
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) == 1 {
		payload = arr[0]
	}

	var dto profileDTO
	if err := json.Unmarshal(payload, &dto); err != nil {
		return profile.Profile{}, fmt.Errorf("decode profile: %w", err)
	}

	return profile.New(dto.Archetype, dto.Formal, dto.Colorful,
		dto.FavoriteColors, dto.FavoriteBrands, dto.Dislikes), nil
}

package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/looklab/stylist/internal/db"
	"github.com/looklab/stylist/internal/domain"
)

type mockStore struct {
	jsonGetFn func(ctx context.Context, key string, paths ...string) ([]byte, error)
	jsonSetFn func(ctx context.Context, key, path string, data []byte) error
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	return m.jsonGetFn(ctx, key, paths...)
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	return m.jsonSetFn(ctx, key, path, data)
}

func TestGet_DecodesProfile(t *testing.T) {
	store := &mockStore{
		jsonGetFn: func(_ context.Context, key string, _ ...string) ([]byte, error) {
			if key != domain.KeyPrefix+"profiles:user-1" {
				t.Errorf("key = %q", key)
			}
			return []byte(`[{"archetype":"classic","formal":0.8,"colorful":0.2,"favorite_brands":["Acme"]}]`), nil
		},
	}

	p, err := New(store).Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Archetype() != "classic" {
		t.Errorf("archetype = %q", p.Archetype())
	}
	if p.Formal() != 0.8 {
		t.Errorf("formal = %v", p.Formal())
	}
	if got := p.FavoriteBrands(); len(got) != 1 || got[0] != "Acme" {
		t.Errorf("brands = %v", got)
	}
}

func TestGet_UnwrappedDocument(t *testing.T) {
	store := &mockStore{
		jsonGetFn: func(context.Context, string, ...string) ([]byte, error) {
			return []byte(`{"archetype":"street","formal":0.1,"colorful":0.9}`), nil
		},
	}

	p, err := New(store).Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Archetype() != "street" {
		t.Errorf("archetype = %q", p.Archetype())
	}
}

func TestGet_MissingProfile(t *testing.T) {
	store := &mockStore{
		jsonGetFn: func(context.Context, string, ...string) ([]byte, error) {
			return nil, db.ErrKeyNotFound
		},
	}

	_, err := New(store).Get(context.Background(), "user-1")
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestGet_EmptyUserID(t *testing.T) {
	_, err := New(&mockStore{}).Get(context.Background(), "")
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("err = %v, want ErrProfileNotFound", err)
	}
}

package redis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/looklab/stylist/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- json.go tests ---

func TestJSONSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "JSON.SET" && cmd[1] == "stylist:items:w1" && cmd[2] == "$"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.JSONSet(context.Background(), "stylist:items:w1", "$", []byte(`{"id":"w1"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJSONGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "JSON.GET"
		})).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.JSONGet(context.Background(), "stylist:profiles:u1")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

// --- search.go tests ---

func TestSearchKNN_FilterPushdownAndScore(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "FT.SEARCH" || cmd[1] != "stylist:items:idx" {
				return false
			}
			// tag pre-filter must wrap the KNN clause
			return strings.HasPrefix(cmd[2], "(@category:{TOP})=>[KNN 5 @vector $BLOB]")
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("stylist:items:c42"),
			mock.RedisArray(
				mock.RedisString("__vector_score"), mock.RedisString("0.25"),
				mock.RedisString("$"), mock.RedisString(`{"id":"c42"}`),
			),
		)))

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "stylist:items:idx",
		Tags:         []db.TagFilter{{Field: "category", Value: "TOP"}},
		Vector:       []float32{0.1, 0.2},
		K:            5,
		ReturnFields: []string{"__vector_score", "$"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(res.Entries))
	}
	e := res.Entries[0]
	if e.Key != "stylist:items:c42" {
		t.Errorf("unexpected key %q", e.Key)
	}
	// distance 0.25 -> similarity 0.75
	if e.Score != 0.75 {
		t.Errorf("expected score 0.75, got %v", e.Score)
	}
	if _, ok := e.Fields["__vector_score"]; ok {
		t.Error("score field should be stripped from fields")
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	s := NewStoreForTest(c)

	tests := []struct {
		name string
		q    *db.KNNQuery
	}{
		{"missing index", &db.KNNQuery{Vector: []float32{1}, K: 1}},
		{"missing vector", &db.KNNQuery{IndexName: "idx", K: 1}},
		{"non-positive k", &db.KNNQuery{IndexName: "idx", Vector: []float32{1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.SearchKNN(context.Background(), tc.q); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSearchKNN_BackendError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.ErrorResult(errors.New("index is loading")))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx", Vector: []float32{1}, K: 1,
	})
	var dberr *db.Error
	if !errors.As(err, &dberr) || dberr.Op != db.OpSearch {
		t.Fatalf("expected db.Error with FT.SEARCH op, got %v", err)
	}
}

func TestSearchList_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "*"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	res, err := s.SearchList(context.Background(), "idx", "*", 0, 10, []string{"$"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 0 || len(res.Entries) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestBuildTagFilters(t *testing.T) {
	tests := []struct {
		name string
		tags []db.TagFilter
		want string
	}{
		{"empty", nil, ""},
		{
			"single",
			[]db.TagFilter{{Field: "category", Value: "TOP"}},
			"@category:{TOP}",
		},
		{
			"multiple are conjunctive",
			[]db.TagFilter{{Field: "category", Value: "TOP"}, {Field: "brand", Value: "Acme"}},
			"@category:{TOP} @brand:{Acme}",
		},
		{
			"special characters escaped",
			[]db.TagFilter{{Field: "brand", Value: "A-B C"}},
			`@brand:{A\-B\ C}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildTagFilters(tc.tags); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

// --- index.go tests ---

func TestCreateIndex_Args(t *testing.T) {
	def := db.NewIndex("stylist:items:idx").
		Prefix("stylist:items:").
		Tag("$.category", "category").
		Tag("$.brand", "brand").
		VectorHNSW("$.embedding", "vector", 512, db.DistanceCosine, 32, 400).
		MustBuild()

	args, err := buildCreateArgs(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"stylist:items:idx ON JSON PREFIX 1 stylist:items:",
		"$.category AS category TAG",
		"$.embedding AS vector VECTOR HNSW",
		"DIM 512",
		"DISTANCE_METRIC COSINE",
		"M 32",
		"EF_CONSTRUCTION 400",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("FT.CREATE args missing %q in %q", want, joined)
		}
	}
}

func TestIndexExists_False(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "stylist:items:idx")).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	s := NewStoreForTest(c)
	exists, err := s.IndexExists(context.Background(), "stylist:items:idx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected false")
	}
}

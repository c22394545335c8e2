package brain

import (
	"context"
	"testing"

	"github.com/plauderbot/plauderbot/pkg/textnorm"
)

func newTestRetriever(t *testing.T) (*retriever, *Store) {
	t.Helper()
	store := newTestStore(t)
	return &retriever{store: store, norm: textnorm.New(true, nil)}, store
}

func seedKeys(t *testing.T, store *Store, keys ...string) {
	t.Helper()
	ctx := context.Background()
	for i, k := range keys {
		if err := store.AddPair(ctx, k, "antwort", int64(1000*(i+1)), 0); err != nil {
			t.Fatalf("AddPair %q: %v", k, err)
		}
	}
}

func TestNearestKeysPositiveAndDescending(t *testing.T) {
	ret, store := newTestRetriever(t)
	ctx := context.Background()
	seedKeys(t, store,
		"katze schläft sofa",
		"hund bellt laut",
		"katze frisst futter",
	)

	out, err := ret.nearestKeys(ctx, "katze schläft", 6)
	if err != nil {
		t.Fatalf("nearestKeys: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(out), out)
	}
	if out[0].Key != "katze schläft sofa" {
		t.Fatalf("best candidate should share both terms, got %q", out[0].Key)
	}
	for i, c := range out {
		if c.Score <= 0 {
			t.Fatalf("candidate %d has non-positive score: %+v", i, c)
		}
		if i > 0 && out[i-1].Score < c.Score {
			t.Fatalf("candidates not sorted descending: %+v", out)
		}
	}
}

func TestNearestKeysRespectsTopK(t *testing.T) {
	ret, store := newTestRetriever(t)
	seedKeys(t, store,
		"katze eins",
		"katze zwei",
		"katze drei",
		"katze vier",
	)

	out, err := ret.nearestKeys(context.Background(), "katze", 2)
	if err != nil {
		t.Fatalf("nearestKeys: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected topK=2, got %d", len(out))
	}
}

func TestNearestKeysUnknownTermsMatchNothing(t *testing.T) {
	ret, store := newTestRetriever(t)
	seedKeys(t, store, "katze schläft sofa")

	out, err := ret.nearestKeys(context.Background(), "xylophonorchester", 6)
	if err != nil {
		t.Fatalf("nearestKeys: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("unknown term must match nothing, got %+v", out)
	}
}

func TestNearestKeysEmptyStore(t *testing.T) {
	ret, _ := newTestRetriever(t)
	out, err := ret.nearestKeys(context.Background(), "katze", 6)
	if err != nil {
		t.Fatalf("nearestKeys: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("empty store must yield no candidates, got %+v", out)
	}
}

func TestSimilarityZeroWhenDisjoint(t *testing.T) {
	ret, store := newTestRetriever(t)
	ctx := context.Background()
	seedKeys(t, store, "katze schläft sofa", "hund bellt laut")

	score, err := ret.similarity(ctx, "katze schläft", "hund bellt")
	if err != nil {
		t.Fatalf("similarity: %v", err)
	}
	if score != 0 {
		t.Fatalf("disjoint texts must score zero, got %f", score)
	}

	score, err = ret.similarity(ctx, "katze schläft", "katze schläft sofa")
	if err != nil {
		t.Fatalf("similarity: %v", err)
	}
	if score <= 0 {
		t.Fatalf("overlapping texts must score positive, got %f", score)
	}
}

func TestSubstringDocumentFrequency(t *testing.T) {
	ret, store := newTestRetriever(t)
	ctx := context.Background()
	seedKeys(t, store, "haus kaufen", "hausboot mieten", "auto fahren")

	// "haus" is contained in both "haus kaufen" and "hausboot mieten".
	df, err := store.CountKeysContaining(ctx, "haus")
	if err != nil {
		t.Fatalf("CountKeysContaining: %v", err)
	}
	if df != 2 {
		t.Fatalf("substring df should be 2, got %d", df)
	}

	idf, err := ret.idf(ctx, "haus", map[string]float64{})
	if err != nil {
		t.Fatalf("idf: %v", err)
	}
	if idf <= 0 {
		t.Fatalf("present term must have positive idf, got %f", idf)
	}

	idf, err = ret.idf(ctx, "zeppelin", map[string]float64{})
	if err != nil {
		t.Fatalf("idf: %v", err)
	}
	if idf != 0 {
		t.Fatalf("absent term must have zero idf, got %f", idf)
	}
}

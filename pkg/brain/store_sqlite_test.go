package brain

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "brain.sqlite"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMessageRoundTripAndMerge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	msg := Message{ID: "m1", Content: "hallo zusammen", AuthorID: "a", ChannelID: "c", TS: 1000}
	if err := store.UpsertMessage(ctx, msg); err != nil {
		t.Fatalf("UpsertMessage: %v", err)
	}

	got, err := store.GetMessage(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got != msg {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
	}

	if err := store.MergeMessage(ctx, "m1", "hallo zusammen leute", 2000); err != nil {
		t.Fatalf("MergeMessage: %v", err)
	}
	got, err = store.GetMessage(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMessage after merge: %v", err)
	}
	if got.Content != "hallo zusammen leute" || got.TS != 2000 {
		t.Fatalf("merge not applied: %+v", got)
	}

	if _, err := store.GetMessage(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestRecentMessagesNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"m1", "m2", "m3"} {
		msg := Message{ID: id, Content: "text " + id, AuthorID: "a", ChannelID: "c", TS: int64(1000 * (i + 1))}
		if err := store.UpsertMessage(ctx, msg); err != nil {
			t.Fatalf("UpsertMessage %s: %v", id, err)
		}
	}
	if err := store.UpsertMessage(ctx, Message{ID: "other", Content: "x", AuthorID: "a", ChannelID: "elsewhere", TS: 9999}); err != nil {
		t.Fatalf("UpsertMessage other channel: %v", err)
	}

	recent, err := store.RecentMessages(ctx, "c", 2)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(recent))
	}
	if recent[0].ID != "m3" || recent[1].ID != "m2" {
		t.Fatalf("wrong order: %s, %s", recent[0].ID, recent[1].ID)
	}
}

func TestAddPairEvictsOldestBeyondCap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := store.AddPair(ctx, "key", string(rune('a'+i-1)), int64(i*1000), 3); err != nil {
			t.Fatalf("AddPair %d: %v", i, err)
		}
	}

	pairs, err := store.Replies(ctx, "key")
	if err != nil {
		t.Fatalf("Replies: %v", err)
	}
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs after eviction, got %d", len(pairs))
	}
	for _, p := range pairs {
		if p.TS < 3000 {
			t.Fatalf("old pair survived eviction: %+v", p)
		}
	}
}

func TestTransitionsAccumulateAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.BumpTransition(ctx, "p", "wort"); err != nil {
			t.Fatalf("BumpTransition: %v", err)
		}
	}
	if err := store.BumpTransition(ctx, "p", "anders"); err != nil {
		t.Fatalf("BumpTransition: %v", err)
	}

	rows, err := store.Transitions(ctx, "p")
	if err != nil {
		t.Fatalf("Transitions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(rows))
	}
	if rows[0].Next != "anders" || rows[0].Count != 1 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Next != "wort" || rows[1].Count != 3 {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestRandomTokenSkipsMarkers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.RandomToken(ctx); err != nil || ok {
		t.Fatalf("empty chain: ok=%v err=%v", ok, err)
	}

	if err := store.BumpTransition(ctx, startMarker, "einzig"); err != nil {
		t.Fatalf("BumpTransition: %v", err)
	}
	if err := store.BumpTransition(ctx, "einzig", endMarker); err != nil {
		t.Fatalf("BumpTransition: %v", err)
	}

	tok, ok, err := store.RandomToken(ctx)
	if err != nil || !ok {
		t.Fatalf("RandomToken: ok=%v err=%v", ok, err)
	}
	if tok != "einzig" {
		t.Fatalf("expected einzig, got %q", tok)
	}
}

func TestSweepPairCaps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		if err := store.AddPair(ctx, "a", "r", int64(i), 0); err != nil {
			t.Fatalf("AddPair: %v", err)
		}
	}
	for i := 1; i <= 2; i++ {
		if err := store.AddPair(ctx, "b", "r", int64(i), 0); err != nil {
			t.Fatalf("AddPair: %v", err)
		}
	}

	removed, err := store.SweepPairCaps(ctx, 4)
	if err != nil {
		t.Fatalf("SweepPairCaps: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	pairsA, err := store.Replies(ctx, "a")
	if err != nil {
		t.Fatalf("Replies a: %v", err)
	}
	pairsB, err := store.Replies(ctx, "b")
	if err != nil {
		t.Fatalf("Replies b: %v", err)
	}
	if len(pairsA) != 4 || len(pairsB) != 2 {
		t.Fatalf("unexpected counts after sweep: a=%d b=%d", len(pairsA), len(pairsB))
	}
}

func TestResetModelKeepsMessagesAndPairs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertMessage(ctx, Message{ID: "m1", Content: "hallo", AuthorID: "a", ChannelID: "c", TS: 1000}); err != nil {
		t.Fatalf("UpsertMessage: %v", err)
	}
	if err := store.AddPair(ctx, "hallo", "servus", 1000, 10); err != nil {
		t.Fatalf("AddPair: %v", err)
	}
	if err := store.BumpTransition(ctx, "hallo", "welt"); err != nil {
		t.Fatalf("BumpTransition: %v", err)
	}

	if err := store.ResetModel(ctx); err != nil {
		t.Fatalf("ResetModel: %v", err)
	}

	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Transitions != 0 || st.Vocabulary != 0 {
		t.Fatalf("model not wiped: %+v", st)
	}
	if st.Messages != 1 || st.Pairs != 1 {
		t.Fatalf("messages or pairs lost: %+v", st)
	}
}

func TestStatsCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertMessage(ctx, Message{ID: "m1", Content: "x", TS: 1}); err != nil {
		t.Fatalf("UpsertMessage: %v", err)
	}
	if err := store.AddPair(ctx, "k", "r", 1, 0); err != nil {
		t.Fatalf("AddPair: %v", err)
	}
	if err := store.BumpTransition(ctx, "p", "wort"); err != nil {
		t.Fatalf("BumpTransition: %v", err)
	}

	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Messages != 1 || st.Pairs != 1 || st.ParentKeys != 1 || st.Transitions != 1 || st.Vocabulary != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

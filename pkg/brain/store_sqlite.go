package brain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the persistent backing for messages, reply pairs and the
// n-gram transition table.
type Store struct {
	db *sql.DB
}

// NewStore creates/opens the brain database at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create brain db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process bot. One shared connection avoids writer lock
	// contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA temp_store=MEMORY;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			author_id TEXT NOT NULL DEFAULT '',
			channel_id TEXT NOT NULL DEFAULT '',
			reply_to_id TEXT NOT NULL DEFAULT '',
			ts INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS messages_channel_ts_idx ON messages(channel_id, ts DESC);`,
		`CREATE TABLE IF NOT EXISTS pairs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			parent_key TEXT NOT NULL,
			reply TEXT NOT NULL,
			ts INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS pairs_parent_key_idx ON pairs(parent_key, ts DESC);`,
		`CREATE TABLE IF NOT EXISTS markov (
			prefix TEXT NOT NULL,
			next TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY(prefix, next)
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema failed on %q: %w", trimSQL(stmt), err)
		}
	}
	return nil
}

func trimSQL(sql string) string {
	line := strings.TrimSpace(sql)
	if len(line) > 96 {
		return line[:96] + "..."
	}
	return line
}

func nowMS() int64 { return time.Now().UnixMilli() }

// UpsertMessage stores a message record, replacing any record with
// the same id.
func (s *Store) UpsertMessage(ctx context.Context, m Message) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO messages(id, content, author_id, channel_id, reply_to_id, ts)
VALUES(?, ?, ?, ?, ?, ?)`, m.ID, m.Content, m.AuthorID, m.ChannelID, m.ReplyToID, m.TS)
	if err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	return nil
}

// GetMessage returns a stored message by id, or sql.ErrNoRows when
// the id is unknown.
func (s *Store) GetMessage(ctx context.Context, id string) (Message, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, content, author_id, channel_id, reply_to_id, ts
FROM messages WHERE id = ?`, id)
	var m Message
	if err := row.Scan(&m.ID, &m.Content, &m.AuthorID, &m.ChannelID, &m.ReplyToID, &m.TS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, sql.ErrNoRows
		}
		return Message{}, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// MergeMessage rewrites content and timestamp of an existing record
// in place. Used when a follow-up burst from the same author folds
// into its predecessor.
func (s *Store) MergeMessage(ctx context.Context, id, content string, ts int64) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE messages SET content = ?, ts = ? WHERE id = ?`, content, ts, id)
	if err != nil {
		return fmt.Errorf("merge message: %w", err)
	}
	return nil
}

// RecentMessages lists the newest messages of a channel, newest first.
func (s *Store) RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, content, author_id, channel_id, reply_to_id, ts
FROM messages
WHERE channel_id = ?
ORDER BY ts DESC, id DESC
LIMIT ?`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Content, &m.AuthorID, &m.ChannelID, &m.ReplyToID, &m.TS); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

// AddPair appends a parent-key/reply pair. When maxPerKey is positive
// the oldest pairs beyond the cap are evicted in the same call.
func (s *Store) AddPair(ctx context.Context, parentKey, reply string, ts int64, maxPerKey int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add pair begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO pairs(parent_key, reply, ts) VALUES(?, ?, ?)`, parentKey, reply, ts); err != nil {
		return fmt.Errorf("add pair insert: %w", err)
	}

	if maxPerKey > 0 {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM pairs
WHERE parent_key = ?
AND id NOT IN (
	SELECT id FROM pairs
	WHERE parent_key = ?
	ORDER BY ts DESC, id DESC
	LIMIT ?
)`, parentKey, parentKey, maxPerKey); err != nil {
			return fmt.Errorf("add pair evict: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add pair commit: %w", err)
	}
	return nil
}

// Replies returns all stored replies for a parent key.
func (s *Store) Replies(ctx context.Context, parentKey string) ([]Pair, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT reply, ts FROM pairs WHERE parent_key = ?`, parentKey)
	if err != nil {
		return nil, fmt.Errorf("replies: %w", err)
	}
	defer rows.Close()

	out := []Pair{}
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.Reply, &p.TS); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pairs: %w", err)
	}
	return out, nil
}

// DistinctParentKeys lists every distinct parent key, the document
// set for retrieval.
func (s *Store) DistinctParentKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT parent_key FROM pairs`)
	if err != nil {
		return nil, fmt.Errorf("distinct parent keys: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan parent key: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parent keys: %w", err)
	}
	return out, nil
}

// LatestPairTS returns the newest pair timestamp for a key. The bool
// is false when the key has no pairs.
func (s *Store) LatestPairTS(ctx context.Context, parentKey string) (int64, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT ts FROM pairs WHERE parent_key = ? ORDER BY ts DESC LIMIT 1`, parentKey)
	var ts int64
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("latest pair ts: %w", err)
	}
	return ts, true, nil
}

// CountKeysContaining counts distinct parent keys containing term as
// a substring. This is the document frequency used by retrieval.
func (s *Store) CountKeysContaining(ctx context.Context, term string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(DISTINCT parent_key) FROM pairs WHERE parent_key LIKE ?`, "%"+term+"%")
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count keys containing: %w", err)
	}
	return n, nil
}

// CountDistinctKeys returns the total number of distinct parent keys.
func (s *Store) CountDistinctKeys(ctx context.Context) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT parent_key) FROM pairs`)
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count distinct keys: %w", err)
	}
	return n, nil
}

// BumpTransition increments the count of a (prefix, next) edge,
// inserting it on first sight.
func (s *Store) BumpTransition(ctx context.Context, prefix, next string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO markov(prefix, next, count) VALUES(?, ?, 1)
ON CONFLICT(prefix, next) DO UPDATE SET count = count + 1`, prefix, next)
	if err != nil {
		return fmt.Errorf("bump transition: %w", err)
	}
	return nil
}

// Transitions returns every observed continuation of a prefix.
func (s *Store) Transitions(ctx context.Context, prefix string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT next, count FROM markov WHERE prefix = ? ORDER BY next`, prefix)
	if err != nil {
		return nil, fmt.Errorf("transitions: %w", err)
	}
	defer rows.Close()

	out := []Transition{}
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.Next, &t.Count); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}

// TransitionCount returns the total number of stored edges.
func (s *Store) TransitionCount(ctx context.Context) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM markov`)
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("transition count: %w", err)
	}
	return n, nil
}

// RandomToken picks one uniformly random trained token. The bool is
// false on an empty chain.
func (s *Store) RandomToken(ctx context.Context) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT next FROM markov WHERE next NOT IN ('<s>', '</s>') ORDER BY RANDOM() LIMIT 1`)
	var tok string
	if err := row.Scan(&tok); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("random token: %w", err)
	}
	return tok, true, nil
}

// VocabularySize counts distinct trained tokens, markers excluded.
func (s *Store) VocabularySize(ctx context.Context) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(DISTINCT next) FROM markov WHERE next NOT IN ('<s>', '</s>')`)
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("vocabulary size: %w", err)
	}
	return n, nil
}

// HasToken reports whether a token already appears in the chain.
func (s *Store) HasToken(ctx context.Context, token string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT 1 FROM markov WHERE next = ? LIMIT 1`, token)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("has token: %w", err)
	}
	return true, nil
}

// ResetModel wipes the trained chain. Messages and pairs survive;
// only transitions and vocabulary are deleted.
func (s *Store) ResetModel(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM markov`); err != nil {
		return fmt.Errorf("reset model: %w", err)
	}
	return nil
}

// SweepPairCaps evicts pairs beyond maxPerKey for every key and
// returns the number of rows removed. Run from maintenance.
func (s *Store) SweepPairCaps(ctx context.Context, maxPerKey int) (int64, error) {
	if maxPerKey <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
DELETE FROM pairs
WHERE id NOT IN (
	SELECT id FROM (
		SELECT id, ROW_NUMBER() OVER (PARTITION BY parent_key ORDER BY ts DESC, id DESC) AS rn
		FROM pairs
	) WHERE rn <= ?
)`, maxPerKey)
	if err != nil {
		return 0, fmt.Errorf("sweep pair caps: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Stats gathers table counts for status output and maintenance logs.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`)
	if err := row.Scan(&st.Messages); err != nil {
		return Stats{}, fmt.Errorf("stats messages: %w", err)
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pairs`)
	if err := row.Scan(&st.Pairs); err != nil {
		return Stats{}, fmt.Errorf("stats pairs: %w", err)
	}
	var err error
	if st.ParentKeys, err = s.CountDistinctKeys(ctx); err != nil {
		return Stats{}, err
	}
	if st.Transitions, err = s.TransitionCount(ctx); err != nil {
		return Stats{}, err
	}
	if st.Vocabulary, err = s.VocabularySize(ctx); err != nil {
		return Stats{}, err
	}
	return st, nil
}

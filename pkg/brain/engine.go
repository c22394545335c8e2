package brain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/plauderbot/plauderbot/pkg/logger"
	"github.com/plauderbot/plauderbot/pkg/textnorm"
)

// lastMessage is the per-channel tail record driving burst merging
// and adjacency pairing. Only non-reply messages land here.
type lastMessage struct {
	id       string
	content  string
	authorID string
	ts       int64
}

const lastMessageCacheSize = 512

// Engine is the organic reply engine: it learns conversation
// structure from ingested messages and produces replies by pair
// retrieval with an n-gram fallback.
type Engine struct {
	store *Store
	norm  *textnorm.Normalizer
	chain *Chain
	ret   *retriever
	opts  Options

	rngMu sync.Mutex
	rng   *rand.Rand

	lastMsg *lru.Cache[string, lastMessage]
}

// New builds an engine over an opened store. A nil rng gets a
// time-seeded source; tests pass a fixed seed to pin branch
// selection.
func New(store *Store, opts Options, rng *rand.Rand) (*Engine, error) {
	opts = opts.withDefaults()
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	cache, err := lru.New[string, lastMessage](lastMessageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create last-message cache: %w", err)
	}
	norm := textnorm.New(opts.Lowercase, nil)
	return &Engine{
		store:   store,
		norm:    norm,
		chain:   newChain(store, norm, opts.Order, opts.MaxVocabulary),
		ret:     &retriever{store: store, norm: norm},
		opts:    opts,
		rng:     rng,
		lastMsg: cache,
	}, nil
}

// Options returns the effective (defaulted) options.
func (e *Engine) Options() Options { return e.opts }

func (e *Engine) randFloat() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64()
}

func (e *Engine) randIntn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}

// Learn ingests one message: cleans it, merges same-author bursts,
// stores it, trains the chain and derives a conversation pair from
// an explicit reply or from channel adjacency. Empty content after
// cleaning is ignored. Must be called in arrival order per channel.
func (e *Engine) Learn(ctx context.Context, msg Message) error {
	if msg.ID == "" {
		return nil
	}
	ts := msg.TS
	if ts == 0 {
		ts = nowMS()
	}
	clean := e.norm.Clean(msg.Content)
	if clean == "" {
		return nil
	}

	if msg.ChannelID != "" && msg.ReplyToID == "" {
		if last, ok := e.lastMsg.Get(msg.ChannelID); ok &&
			last.authorID == msg.AuthorID &&
			ts-last.ts < e.opts.MergeWindowMS {
			merged := strings.TrimSpace(last.content + " " + clean)
			if err := e.store.MergeMessage(ctx, last.id, merged, ts); err != nil {
				return err
			}
			e.lastMsg.Add(msg.ChannelID, lastMessage{id: last.id, content: merged, authorID: last.authorID, ts: ts})
			return nil
		}
	}

	if err := e.store.UpsertMessage(ctx, Message{
		ID: msg.ID, Content: clean, AuthorID: msg.AuthorID,
		ChannelID: msg.ChannelID, ReplyToID: msg.ReplyToID, TS: ts,
	}); err != nil {
		return err
	}
	if err := e.chain.Train(ctx, clean); err != nil {
		return err
	}

	if msg.ReplyToID != "" {
		parent, err := e.store.GetMessage(ctx, msg.ReplyToID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		if key := e.norm.CanonicalKey(parent.Content); key != "" {
			return e.store.AddPair(ctx, key, clean, ts, e.opts.MaxPairsPerKey)
		}
		return nil
	}

	if msg.ChannelID != "" {
		if err := e.pairByAdjacency(ctx, msg.ID, msg.AuthorID, msg.ChannelID, clean, ts); err != nil {
			return err
		}
		e.lastMsg.Add(msg.ChannelID, lastMessage{id: msg.ID, content: clean, authorID: msg.AuthorID, ts: ts})
	}
	return nil
}

// pairByAdjacency scans the channel's recent messages for the best
// cross-author candidate by similarity. Newest-first scan with a
// strict comparison, so among equal scores the most recent wins.
// Nothing scoring above zero means no pair for this ingestion.
func (e *Engine) pairByAdjacency(ctx context.Context, msgID, authorID, channelID, clean string, ts int64) error {
	recent, err := e.store.RecentMessages(ctx, channelID, e.opts.LookbackN+1)
	if err != nil {
		return err
	}

	bestKey := ""
	bestScore := 0.0
	seen := 0
	for _, cand := range recent {
		if cand.ID == msgID || cand.AuthorID == authorID {
			continue
		}
		if seen++; seen > e.opts.LookbackN {
			break
		}
		score, err := e.ret.similarity(ctx, clean, cand.Content)
		if err != nil {
			return err
		}
		if score > bestScore {
			if key := e.norm.CanonicalKey(cand.Content); key != "" {
				bestScore = score
				bestKey = key
			}
		}
	}
	if bestKey == "" {
		return nil
	}
	return e.store.AddPair(ctx, bestKey, clean, ts, e.opts.MaxPairsPerKey)
}

// GenerateSentence produces one reply for the input. Retrieval first:
// the best stored key by similarity plus recency boost, if above
// threshold, answers either with a remixed micro-model sample or a
// decay/length weighted verbatim reply. Anything else falls back to
// the seeded n-gram walk. An empty string means the engine has
// nothing to say yet.
func (e *Engine) GenerateSentence(ctx context.Context, input string) (string, error) {
	now := nowMS()
	query := e.norm.Clean(input)
	if query == "" {
		return e.fallback(ctx, "")
	}

	candidates, err := e.ret.nearestKeys(ctx, query, e.opts.TopK)
	if err != nil {
		return "", err
	}

	bestKey := ""
	bestScore := math.Inf(-1)
	for _, c := range candidates {
		boost, err := e.recencyBoost(ctx, c.Key, now)
		if err != nil {
			return "", err
		}
		if final := c.Score + boost; final > bestScore {
			bestScore = final
			bestKey = c.Key
		}
	}

	if bestKey != "" && bestScore >= e.opts.SimilarityThreshold {
		pool, err := e.store.Replies(ctx, bestKey)
		if err != nil {
			return "", err
		}
		if len(pool) > 0 {
			if len(pool) >= 3 && e.randFloat() < 0.4 {
				micro := NewMicroChain(e.opts.Order)
				for _, p := range pool {
					micro.Train(p.Reply)
				}
				e.rngMu.Lock()
				raw := micro.Sample(e.opts.MaxLen, e.opts.Temperature, e.rng)
				e.rngMu.Unlock()
				out, err := e.polish(ctx, raw)
				if err != nil {
					return "", err
				}
				if out != "" {
					return out, nil
				}
			}
			idx := e.sampleWeightedIndex(pool, now)
			return e.polish(ctx, pool[idx].Reply)
		}
	}

	return e.fallback(ctx, query)
}

// fallback walks the persistent chain, optionally steered onto the
// seed's tail, and nudges in one rare query token about half the
// time so unusual inputs leave a trace in the answer.
func (e *Engine) fallback(ctx context.Context, seed string) (string, error) {
	walkSeed := seed
	if !e.opts.SteerToInput {
		walkSeed = ""
	}
	e.rngMu.Lock()
	out, err := e.chain.Generate(ctx, walkSeed, e.opts.MaxLen, e.opts.Temperature, e.rng)
	e.rngMu.Unlock()
	if err != nil {
		return "", err
	}

	if e.opts.SteerToInput && seed != "" {
		rare := []string{}
		for _, tok := range e.norm.Tokenize(seed) {
			df, err := e.store.CountKeysContaining(ctx, tok)
			if err != nil {
				return "", err
			}
			if df < 2 {
				rare = append(rare, tok)
			}
		}
		if len(rare) > 0 && e.randFloat() < 0.5 {
			pick := rare[e.randIntn(len(rare))]
			if !strings.Contains(out, pick) {
				out = out + " " + pick
			}
		}
	}

	return e.polish(ctx, out)
}

// recencyBoost adds up to 0.05 for keys used recently, fading
// linearly to zero over the prefer-recent window. Keys without pairs
// get nothing.
func (e *Engine) recencyBoost(ctx context.Context, key string, now int64) (float64, error) {
	latest, ok, err := e.store.LatestPairTS(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok || e.opts.PreferRecentMS <= 0 {
		return 0, nil
	}
	age := now - latest
	if age <= 0 {
		return 0.05, nil
	}
	frac := math.Max(0, 1-float64(age)/float64(e.opts.PreferRecentMS))
	return 0.05 * frac, nil
}

// sampleWeightedIndex draws a reply index weighted by exponential
// age decay and a mild length boost, with a floor so every reply
// stays reachable.
func (e *Engine) sampleWeightedIndex(pool []Pair, now int64) int {
	weights := make([]float64, len(pool))
	sum := 0.0
	for i, p := range pool {
		age := math.Max(0, float64(now-p.TS))
		decay := math.Pow(0.5, age/float64(e.opts.DecayHalfLifeMS))
		lenBoost := math.Min(1.5, math.Sqrt(math.Max(5, float64(utf8.RuneCountInString(p.Reply))))/8)
		weights[i] = 1e-3 + decay*lenBoost
		sum += weights[i]
	}
	r := e.randFloat() * sum
	for i := range weights {
		r -= weights[i]
		if r <= 0 {
			return i
		}
	}
	return e.randIntn(len(pool))
}

// Maintenance enforces the per-key pair cap and logs learned-state
// counters. Run from the nightly cron.
func (e *Engine) Maintenance(ctx context.Context) error {
	evicted, err := e.store.SweepPairCaps(ctx, e.opts.MaxPairsPerKey)
	if err != nil {
		return err
	}
	st, err := e.store.Stats(ctx)
	if err != nil {
		return err
	}
	logger.InfoCF("brain", "maintenance done", map[string]any{
		"evicted_pairs": evicted,
		"messages":      st.Messages,
		"pairs":         st.Pairs,
		"parent_keys":   st.ParentKeys,
		"transitions":   st.Transitions,
		"vocabulary":    st.Vocabulary,
	})
	if e.opts.MaxVocabulary > 0 && st.Vocabulary >= int64(e.opts.MaxVocabulary) {
		logger.WarnCF("brain", "vocabulary cap reached, new tokens are gated", map[string]any{
			"vocabulary": st.Vocabulary,
			"cap":        e.opts.MaxVocabulary,
		})
	}
	return nil
}

// ResetModel drops every trained transition. Stored messages and
// pairs are kept, so the chain can be rebuilt from them if needed.
func (e *Engine) ResetModel(ctx context.Context) error {
	if err := e.store.ResetModel(ctx); err != nil {
		return err
	}
	logger.WarnC("brain", "markov model reset")
	return nil
}

// Stats exposes the store counters.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	return e.store.Stats(ctx)
}

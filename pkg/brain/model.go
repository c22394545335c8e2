package brain

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/plauderbot/plauderbot/pkg/textnorm"
)

const (
	startMarker = "<s>"
	endMarker   = "</s>"
	prefixSep   = "\x01"

	// Hard ceiling on generation steps so a walk over a cyclic chain
	// always terminates.
	maxWalkSteps = 64
)

// Chain is the persistent n-gram model over tokenized sentences.
// Prefixes are (order-1) tokens joined by a non-printable separator;
// sentences are padded with start markers and closed with one end
// marker before training.
type Chain struct {
	store         *Store
	norm          *textnorm.Normalizer
	order         int
	maxVocabulary int
}

func newChain(store *Store, norm *textnorm.Normalizer, order, maxVocabulary int) *Chain {
	if order < 2 {
		order = 2
	}
	if order > 4 {
		order = 4
	}
	return &Chain{store: store, norm: norm, order: order, maxVocabulary: maxVocabulary}
}

// Train records the transition counts of one cleaned sentence. Too
// short a sentence (token count <= order) contributes nothing. Once
// the vocabulary exceeds its soft cap, transitions that would
// introduce an unseen token are skipped.
func (c *Chain) Train(ctx context.Context, text string) error {
	toks := c.norm.Tokenize(text)
	if len(toks) <= c.order {
		return nil
	}

	gate := false
	if c.maxVocabulary > 0 {
		size, err := c.store.VocabularySize(ctx)
		if err != nil {
			return err
		}
		gate = size >= int64(c.maxVocabulary)
	}

	seq := make([]string, 0, c.order-1+len(toks)+1)
	for i := 0; i < c.order-1; i++ {
		seq = append(seq, startMarker)
	}
	seq = append(seq, toks...)
	seq = append(seq, endMarker)

	for i := 0; i+c.order-1 <= len(seq)-1; i++ {
		next := seq[i+c.order-1]
		if gate && next != startMarker && next != endMarker {
			known, err := c.store.HasToken(ctx, next)
			if err != nil {
				return err
			}
			if !known {
				continue
			}
		}
		prefix := strings.Join(seq[i:i+c.order-1], prefixSep)
		if err := c.store.BumpTransition(ctx, prefix, next); err != nil {
			return err
		}
	}
	return nil
}

// Generate walks the chain into a raw sentence of at most maxLen
// characters. When a seed is given, the walk is steered onto the
// longest trailing token suffix of the seed that has trained
// continuations; otherwise it starts from the start-marker prefix.
// Returns "" when the chain has nothing for the starting prefix.
func (c *Chain) Generate(ctx context.Context, seed string, maxLen int, temperature float64, rng *rand.Rand) (string, error) {
	var prefix []string
	if seed != "" {
		toks := c.norm.Tokenize(seed)
		for k := c.order - 1; k >= 1; k-- {
			if len(toks) < k {
				continue
			}
			tail := toks[len(toks)-k:]
			rows, err := c.store.Transitions(ctx, strings.Join(tail, prefixSep))
			if err != nil {
				return "", err
			}
			if len(rows) > 0 {
				prefix = tail
				break
			}
		}
	}
	if len(prefix) == 0 {
		prefix = make([]string, c.order-1)
		for i := range prefix {
			prefix[i] = startMarker
		}
	}

	acc := []string{}
	for steps := 0; steps < maxWalkSteps; steps++ {
		rows, err := c.store.Transitions(ctx, strings.Join(prefix, prefixSep))
		if err != nil {
			return "", err
		}
		if len(rows) == 0 {
			break
		}
		next := sampleTransition(rows, temperature, rng)
		if next == "" || next == endMarker {
			break
		}
		if next != startMarker {
			acc = append(acc, next)
		}
		prefix = append(prefix[1:], next)
		if utf8.RuneCountInString(strings.Join(acc, " ")) >= maxLen {
			break
		}
	}
	return strings.Join(acc, " "), nil
}

// sampleTransition draws one continuation by roulette over counts
// sharpened by temperature. Low temperature favors frequent edges.
func sampleTransition(rows []Transition, temperature float64, rng *rand.Rand) string {
	if len(rows) == 0 {
		return ""
	}
	exp := 1 / math.Max(0.05, temperature)
	weights := make([]float64, len(rows))
	sum := 0.0
	for i, row := range rows {
		weights[i] = math.Pow(float64(row.Count), exp)
		sum += weights[i]
	}
	r := rng.Float64() * sum
	for i := range rows {
		r -= weights[i]
		if r <= 0 {
			return rows[i].Next
		}
	}
	return rows[len(rows)-1].Next
}

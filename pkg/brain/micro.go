package brain

import (
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var reMicroStrip = regexp.MustCompile(`[^\p{L}\p{N}'_\-\s]`)

// MicroChain is a throwaway in-memory n-gram model. The engine
// builds one per remix from a handful of candidate replies, samples
// a single sentence and discards it. Unlike the persistent chain it
// keeps stopwords, since its corpus is already curated.
type MicroChain struct {
	order int
	next  map[string]map[string]int
}

func NewMicroChain(order int) *MicroChain {
	if order < 2 {
		order = 2
	}
	if order > 4 {
		order = 4
	}
	return &MicroChain{order: order, next: map[string]map[string]int{}}
}

// Train adds one sentence to the model.
func (m *MicroChain) Train(text string) {
	toks := strings.Fields(reMicroStrip.ReplaceAllString(strings.ToLower(text), " "))
	if len(toks) <= m.order {
		return
	}
	seq := make([]string, 0, m.order-1+len(toks)+1)
	for i := 0; i < m.order-1; i++ {
		seq = append(seq, startMarker)
	}
	seq = append(seq, toks...)
	seq = append(seq, endMarker)

	for i := 0; i+m.order-1 <= len(seq)-1; i++ {
		prefix := strings.Join(seq[i:i+m.order-1], prefixSep)
		row, ok := m.next[prefix]
		if !ok {
			row = map[string]int{}
			m.next[prefix] = row
		}
		row[seq[i+m.order-1]]++
	}
}

// Sample walks the model into a raw sentence of at most maxLen
// characters. Empty when the model has no start transitions.
func (m *MicroChain) Sample(maxLen int, temperature float64, rng *rand.Rand) string {
	prefix := make([]string, m.order-1)
	for i := range prefix {
		prefix[i] = startMarker
	}

	acc := []string{}
	for steps := 0; steps < maxWalkSteps; steps++ {
		row, ok := m.next[strings.Join(prefix, prefixSep)]
		if !ok || len(row) == 0 {
			break
		}
		next := sampleTransition(sortedTransitions(row), temperature, rng)
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
	return strings.Join(acc, " ")
}

// sortedTransitions flattens a count map in token order so sampling
// with a seeded generator stays reproducible.
func sortedTransitions(row map[string]int) []Transition {
	out := make([]Transition, 0, len(row))
	for tok, count := range row {
		out = append(out, Transition{Next: tok, Count: int64(count)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Next < out[j].Next })
	return out
}

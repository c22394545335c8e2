// Package textnorm normalizes chat messages into the cleaned form and
// token stream the reply engine stores and retrieves by. Cleaning is
// total and idempotent: any input maps to a string, and cleaning a
// cleaned string changes nothing.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	reFenced     = regexp.MustCompile("(?s)```.*?```")
	reInlineCode = regexp.MustCompile("`[^`]*`")
	reURL        = regexp.MustCompile(`(?i)https?://[\w.-]+(?:/[\w\-._~:/?#\[\]@!$&'()*+,;=.]+)?`)
	reRoleRef    = regexp.MustCompile(`<@&?\d+>`)
	reChannelRef = regexp.MustCompile(`<#!?\d+>`)
	reNewlines   = regexp.MustCompile(`[\n\r]+`)
	reSpaces     = regexp.MustCompile(`\s{2,}`)
	reNonToken   = regexp.MustCompile(`[^\p{L}\p{N}'_\-\s]`)
	reTokenTrim  = regexp.MustCompile(`^[_'\-]+|[_'\-]+$`)
)

// Normalizer cleans and tokenizes text with a fixed stopword set.
type Normalizer struct {
	lowercase bool
	stopwords map[string]struct{}
}

// New builds a Normalizer. A nil stopword set falls back to the
// default German set.
func New(lowercase bool, stopwords map[string]struct{}) *Normalizer {
	if stopwords == nil {
		stopwords = GermanStopwords()
	}
	return &Normalizer{lowercase: lowercase, stopwords: stopwords}
}

// Clean strips code blocks, URLs, role and channel references, and
// collapses whitespace. With lowercasing enabled the result is
// lowercased. Empty or markup-only input yields "".
func (n *Normalizer) Clean(s string) string {
	if s == "" {
		return ""
	}
	t := reFenced.ReplaceAllString(s, " ")
	t = reInlineCode.ReplaceAllString(t, " ")
	t = reURL.ReplaceAllString(t, " ")
	t = reRoleRef.ReplaceAllString(t, " ")
	t = reChannelRef.ReplaceAllString(t, " ")
	t = reNewlines.ReplaceAllString(t, " ")
	t = reSpaces.ReplaceAllString(t, " ")
	t = strings.TrimSpace(t)
	if n.lowercase {
		t = strings.ToLower(t)
	}
	return t
}

// Tokenize splits a string into content words. Punctuation becomes
// whitespace, tokens keep letters, digits, apostrophes, underscores
// and hyphens, leading/trailing connector runs are trimmed, and
// stopwords are dropped.
func (n *Normalizer) Tokenize(s string) []string {
	raw := strings.Fields(reNonToken.ReplaceAllString(s, " "))
	toks := make([]string, 0, len(raw))
	for _, w := range raw {
		base := reTokenTrim.ReplaceAllString(w, "")
		if base == "" {
			continue
		}
		if _, stop := n.stopwords[base]; stop {
			continue
		}
		toks = append(toks, base)
	}
	return toks
}

// CanonicalKey reduces a string to its retrieval key: the token
// stream joined by single spaces. Inputs differing only in
// punctuation, casing (when lowercasing) or stopwords share a key.
func (n *Normalizer) CanonicalKey(s string) string {
	return strings.Join(n.Tokenize(s), " ")
}

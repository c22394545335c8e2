package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanStripsMarkupAndCollapses(t *testing.T) {
	n := New(true, nil)

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"fenced code", "schau mal ```const x = 1;\nconsole.log(x)``` an", "schau mal an"},
		{"inline code", "benutz `rm -rf` bloß nicht", "benutz bloß nicht"},
		{"url", "guck https://example.com/a/b?q=1 dir das an", "guck dir das an"},
		{"role ref", "hey <@&123456> aufwachen", "hey aufwachen"},
		{"channel ref", "ab nach <#987654> damit", "ab nach damit"},
		{"newlines and runs", "erste  zeile\n\nzweite\r\nzeile", "erste zeile zweite zeile"},
		{"lowercasing", "HALLO Welt", "hallo welt"},
		{"empty", "", ""},
		{"markup only", "```nur code```", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, n.Clean(tc.in))
		})
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	n := New(true, nil)
	inputs := []string{
		"Hallo WELT, wie ```code``` läuft es bei <@&1234> heute? https://x.de/y",
		"   viele    leerzeichen   ",
		"plain text ohne markup",
	}
	for _, in := range inputs {
		once := n.Clean(in)
		require.Equal(t, once, n.Clean(once))
	}
}

func TestTokenizeDropsStopwordsAndTrimsConnectors(t *testing.T) {
	n := New(true, nil)

	toks := n.Tokenize("der hund läuft schnell und die katze schläft")
	assert.Equal(t, []string{"hund", "läuft", "schnell", "katze", "schläft"}, toks)

	toks = n.Tokenize("--hallo-- 'welt' __test__")
	assert.Equal(t, []string{"hallo", "welt", "test"}, toks)

	toks = n.Tokenize("und oder aber")
	assert.Empty(t, toks)

	toks = n.Tokenize("")
	assert.Empty(t, toks)
}

func TestTokenizeKeepsInnerConnectors(t *testing.T) {
	n := New(true, nil)
	toks := n.Tokenize("geht's e-mail snake_case")
	assert.Equal(t, []string{"geht's", "e-mail", "snake_case"}, toks)
}

func TestCanonicalKeyStability(t *testing.T) {
	n := New(true, nil)
	a := n.CanonicalKey("Wie geht es dir, mein Freund?")
	b := n.CanonicalKey("wie geht es dir mein freund")
	require.Equal(t, a, b)
	assert.Equal(t, "geht freund", a)
}

func TestCustomStopwords(t *testing.T) {
	n := New(true, map[string]struct{}{"foo": {}})
	assert.Equal(t, []string{"der", "bar"}, n.Tokenize("der foo bar"))
}

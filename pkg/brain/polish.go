package brain

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reTerminalPunct = regexp.MustCompile(`[.!?…]$`)
	reMassMention   = regexp.MustCompile(`@everyone|@here`)
	rePolishRole    = regexp.MustCompile(`<@&?\d+>`)
	rePolishChannel = regexp.MustCompile(`<#!?\d+>`)
	rePolishUser    = regexp.MustCompile(`<@!?(\d+)>`)
)

// polish finalizes a raw generation: trims, closes the sentence with
// punctuation, sanitizes mentions, pads a too-short answer with one
// random trained token and truncates a too-long one with an
// ellipsis. An empty raw string stays empty.
func (e *Engine) polish(ctx context.Context, out string) (string, error) {
	t := strings.TrimSpace(out)
	if t == "" {
		return "", nil
	}
	if !reTerminalPunct.MatchString(t) {
		t += "."
	}
	if e.opts.SanitizeMentions {
		t = reMassMention.ReplaceAllString(t, "everyone")
		t = rePolishRole.ReplaceAllString(t, "")
		t = rePolishChannel.ReplaceAllString(t, "")
		t = rePolishUser.ReplaceAllStringFunc(t, func(m string) string {
			id := rePolishUser.FindStringSubmatch(m)[1]
			if len(id) > 4 {
				id = id[len(id)-4:]
			}
			return "@u" + id
		})
	}
	if utf8.RuneCountInString(t) < e.opts.MinLen {
		extra, ok, err := e.store.RandomToken(ctx)
		if err != nil {
			return "", err
		}
		if ok {
			t = strings.TrimSpace(t + " " + extra)
		}
	}
	if runes := []rune(t); len(runes) > e.opts.MaxLen {
		t = string(runes[:e.opts.MaxLen-1]) + "…"
	}
	return t, nil
}

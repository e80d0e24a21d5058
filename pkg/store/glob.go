package store

import "github.com/gobwas/glob"

// MatchGlob implements the search(glob) wildcard rules of §4.3: `*` is a
// greedy wildcard that must consume one or more characters, and `-` is a
// literal. gobwas/glob treats a bare `*` as "zero or more of any rune", so
// each `*` in pattern is rewritten to `?*` ("exactly one rune, then zero or
// more") before compiling — this is the one-or-more variant the spec calls
// for, without hand-rolling a matcher.
func MatchGlob(pattern, name string) bool {
	rewritten := rewriteStars(pattern)
	g, err := glob.Compile(rewritten)
	if err != nil {
		// An unparsable pattern matches nothing rather than panicking the
		// caller; no error is reported for invalid glob syntax.
		return false
	}
	return g.Match(name)
}

func rewriteStars(pattern string) string {
	out := make([]byte, 0, len(pattern)*2)
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c == '*' {
			out = append(out, '?', '*')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// Package substitute replaces byte patterns with their replacements using a
// greedy left-to-right scan over a fixed table.
package substitute

import (
	"bytes"
	"sync"
)

// Pair maps a pattern to its replacement. Both are opaque byte strings.
type Pair struct {
	Pattern     []byte
	Replacement []byte
}

// Table is an ordered list of pairs. When several patterns match at the same
// position the one listed first wins.
type Table []Pair

// NewTable builds a table from alternating pattern/replacement strings.
func NewTable(pairs ...string) Table {
	if len(pairs)%2 != 0 {
		panic("substitute: odd number of table arguments")
	}
	t := make(Table, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		t = append(t, Pair{Pattern: []byte(pairs[i]), Replacement: []byte(pairs[i+1])})
	}
	return t
}

// Apply scans input from position 0. At each position the first pattern that
// is a prefix of the remaining input is replaced and the cursor skips the
// pattern's length; otherwise one byte is copied. Consumed bytes are never
// examined again. Empty patterns never match.
func (t Table) Apply(input []byte) []byte {
	out := make([]byte, 0, len(input))

	for from := 0; from < len(input); {
		rest := input[from:]
		matched := false
		for _, p := range t {
			if len(p.Pattern) > 0 && bytes.HasPrefix(rest, p.Pattern) {
				out = append(out, p.Replacement...)
				from += len(p.Pattern)
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, rest[0])
			from++
		}
	}

	return out
}

// Substitute applies table to input.
func Substitute(input []byte, table Table) []byte {
	return table.Apply(input)
}

// Emoji returns the table used by the emojify unit. It is built on first use
// and shared read-only afterwards.
var Emoji = sync.OnceValue(func() Table {
	return NewTable(
		"agent", "\U0001F575\uFE0F",
		"allow", "\U0001F44D",
		"cloud", "\u2601\uFE0F",
		"container", "\U0001F4E6",
		"docker", "\U0001F433",
		"eye", "\U0001F441",
		"hash", "#\uFE0F\u20E3",
		"host", "\U0001F4BB",
		"id", "\U0001FAAA",
		"image", "\U0001F5BC",
		"kubernetes", "\U0001F9D1\u200D\u2708\uFE0F",
		"label", "\U0001F3F7",
		"log", "\U0001FAB5",
		"message", "\u2709\uFE0F",
		"path", "\U0001F6E3",
		"pod", "\U0001F6F0",
		"space", "\U0001F680",
		"stream", "\U0001F6BF",
		"time", "\u23F0",
		"user", "\U0001F9D1",
	)
})

// UserAgent returns the table applied to user-agent strings. Patterns that
// share a prefix with a shorter one are listed first.
var UserAgent = sync.OnceValue(func() Table {
	return NewTable(
		"Android", "\U0001F916",
		"Apple", "\U0001F34F",
		"ARM", "\U0001F9BE",
		"Build", "\U0001F3D7",
		"Chromium", "\u2699\uFE0F",
		"Chrome", "\U0001F6DE",
		"Edge", "\U0001F30A",
		"Fedora", "\U0001F3A9",
		"Firefox", "\U0001F98A",
		"Gecko", "\U0001F98E",
		"Iceweasel", "\u2744\uFE0F",
		"IE", "\U0001FA90",
		"J2ME", "\u2615\uFE0F",
		"Linux", "\U0001F427",
		"Macintosh", "\U0001F34E",
		"Mobile", "\U0001F4F1",
		"Mozilla", "\U0001F996",
		"Opera", "\U0001F369",
		"Phone", "\u260E\uFE0F",
		"Presto", "\U0001FA84",
		"Safari", "\U0001F9ED",
		"Touch", "\U0001F590",
		"Trident", "\U0001F531",
		"Vivaldi", "\U0001F3BB",
		"Web", "\U0001F578",
		"Windows", "\U0001FA9F",
	)
})

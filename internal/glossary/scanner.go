package glossary

import (
	"strings"
	"unicode"

	ac "github.com/petar-dambovaliev/aho-corasick"
)

// Hit is one trigger occurrence in scanned text. Start and End are byte offsets.
type Hit struct {
	Trigger string `json:"trigger"`
	EntryID string `json:"entryId"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Scanner finds every known trigger in a text in a single pass.
type Scanner struct {
	cache    *TermMapCache
	patterns []string
	ac       *ac.AhoCorasick
}

// ScannerOptions controls how triggers are matched in text.
type ScannerOptions struct {
	// WholeWords rejects hits that sit inside a longer word.
	WholeWords bool
}

// NewScanner compiles the triggers of c into an automaton. Text is folded the
// same way triggers are, and the longest trigger wins at each position.
func NewScanner(c *TermMapCache, opts ScannerOptions) *Scanner {
	s := &Scanner{cache: c, patterns: c.Terms()}
	if len(s.patterns) == 0 {
		return s
	}
	builder := ac.NewAhoCorasickBuilder(ac.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  opts.WholeWords,
		MatchKind:            ac.LeftMostLongestMatch,
	})
	built := builder.Build(s.patterns)
	s.ac = &built
	return s
}

// Scan returns non-overlapping trigger hits in text order.
func (s *Scanner) Scan(text string) []Hit {
	out := make([]Hit, 0)
	if s == nil || s.ac == nil || text == "" {
		return out
	}
	folded, offsets := fold(text)
	for _, m := range s.ac.FindAll(folded) {
		idx := m.Pattern()
		if idx < 0 || idx >= len(s.patterns) {
			continue
		}
		trigger := s.patterns[idx]
		out = append(out, Hit{
			Trigger: trigger,
			EntryID: s.cache.TermMap[trigger],
			Start:   offsets[m.Start()],
			End:     offsets[m.End()],
		})
	}
	return out
}

// fold lower-cases text rune by rune, as Normalize does, and maps every byte
// of the result back to the offset of the rune it came from.
func fold(text string) (string, []int) {
	var b strings.Builder
	b.Grow(len(text))
	offsets := make([]int, 0, len(text)+1)
	for i, r := range text {
		n, _ := b.WriteRune(unicode.ToLower(r))
		for k := 0; k < n; k++ {
			offsets = append(offsets, i)
		}
	}
	offsets = append(offsets, len(text))
	return b.String(), offsets
}

// Patterns is the number of triggers compiled into the scanner.
func (s *Scanner) Patterns() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

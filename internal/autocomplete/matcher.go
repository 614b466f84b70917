package autocomplete

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultLimit is the number of completions returned when none is given.
const DefaultLimit = 8

// Matcher completes the last word of a query against a word list,
// ignoring case. Words starting with the typed text rank before words
// that merely contain it; otherwise the list order is kept.
type Matcher struct {
	words  []string
	folded []string
	limit  int
	fold   cases.Caser
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithLimit sets the maximum number of completions returned.
func WithLimit(n int) MatcherOption {
	return func(m *Matcher) {
		if n > 0 {
			m.limit = n
		}
	}
}

// NewMatcher creates a matcher over words.
func NewMatcher(words []string, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		words: words,
		limit: DefaultLimit,
		fold:  cases.Fold(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.folded = make([]string, len(words))
	for i, w := range words {
		m.folded[i] = m.fold.String(w)
	}
	return m
}

// Len returns the number of candidate words.
func (m *Matcher) Len() int {
	return len(m.words)
}

// Complete returns full replacement texts for input. Each completion is
// input with its last whitespace-separated word replaced by a candidate.
// Nothing is completed while the last word is empty.
func (m *Matcher) Complete(input string) []string {
	head, last := splitLast(input)
	if last == "" {
		return nil
	}

	needle := m.fold.String(last)
	var prefixed, contained []string
	for i, w := range m.folded {
		if len(prefixed) >= m.limit {
			break
		}
		switch {
		case strings.HasPrefix(w, needle):
			prefixed = append(prefixed, head+m.words[i])
		case len(contained) < m.limit && strings.Contains(w, needle):
			contained = append(contained, head+m.words[i])
		}
	}

	results := append(prefixed, contained...)
	if len(results) > m.limit {
		results = results[:m.limit]
	}
	return results
}

// splitLast splits input into everything up to the last word, normalised
// to single spaces and ending in a space, and the last word itself.
// Trailing whitespace means a new word has not been started yet.
func splitLast(input string) (head, last string) {
	words := strings.Fields(input)
	if len(words) == 0 {
		return "", ""
	}
	if strings.TrimRight(input, " \t") != input {
		return strings.Join(words, " ") + " ", ""
	}

	last = words[len(words)-1]
	if len(words) > 1 {
		head = strings.Join(words[:len(words)-1], " ") + " "
	}
	return head, last
}

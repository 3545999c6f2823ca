// Package lexicon holds the static index of domain terms with
// plain-language definitions and complexity weights.
package lexicon

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zombar/readassist/internal/models"
)

// Entry is one lexicon record. Weight is the term's contribution to
// the complexity score, in [0,1]; higher means harder.
type Entry struct {
	Definition string
	Weight     float64
}

// Index maps lowercase domain terms to their entries. Matching is
// case-insensitive; the canonical lowercase term is what gets
// surfaced, so casing variants in the source collapse to one match.
type Index struct {
	entries  map[string]Entry
	patterns map[string]*regexp.Regexp
}

// New returns an index over the built-in medical term set.
func New() *Index {
	return NewWithEntries(medicalTerms())
}

// NewWithEntries builds an index over a custom entry set. Used by
// tests and by callers that load an alternative domain lexicon.
func NewWithEntries(entries map[string]Entry) *Index {
	idx := &Index{
		entries:  entries,
		patterns: make(map[string]*regexp.Regexp, len(entries)),
	}
	for term := range entries {
		// Word-boundary match so "monitor" does not hit "monitoring
		// station" partials like "admonitory".
		idx.patterns[term] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
	}
	return idx
}

// Len reports the number of indexed terms.
func (idx *Index) Len() int { return len(idx.entries) }

// Lookup returns the entry for a term, matched case-insensitively.
func (idx *Index) Lookup(term string) (Entry, bool) {
	e, ok := idx.entries[strings.ToLower(term)]
	return e, ok
}

// FindTerms scans text and returns one TermMatch per distinct term
// found, ordered by first occurrence in the text.
func (idx *Index) FindTerms(text string) []models.TermMatch {
	if text == "" {
		return nil
	}

	type hit struct {
		match models.TermMatch
		pos   int
	}
	var hits []hit

	for term, re := range idx.patterns {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		entry := idx.entries[term]
		hits = append(hits, hit{
			match: models.TermMatch{
				Term:       term,
				Definition: entry.Definition,
				Weight:     entry.Weight,
			},
			pos: loc[0],
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		// Longer term wins the tie so "side effects" sorts ahead of a
		// hypothetical "side" entry starting at the same offset.
		return len(hits[i].match.Term) > len(hits[j].match.Term)
	})

	matches := make([]models.TermMatch, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, h.match)
	}
	return matches
}

// Gloss returns the inline plain-language gloss for a term, e.g.
// `dosage (how much medicine to take)`.
func (idx *Index) Gloss(term string) string {
	entry, ok := idx.Lookup(term)
	if !ok {
		return term
	}
	return term + " (" + entry.Definition + ")"
}

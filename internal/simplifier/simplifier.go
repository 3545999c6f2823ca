// Package simplifier produces the accessibility rewrite of a text.
// It delegates to the external language-model collaborator when one is
// configured and the response validates; every other path lands on the
// deterministic rule-based rewrite. Degrading to the rule-based path
// is never an error from the caller's point of view.
package simplifier

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/zombar/readassist/internal/lexicon"
	"github.com/zombar/readassist/internal/models"
)

const (
	// LongSentenceWords is the split threshold for the rule-based
	// rewrite.
	LongSentenceWords = 15

	// minFragmentWords guards against runaway fragmentation: a split
	// never leaves a fragment shorter than this, so re-simplifying
	// already-simplified output is stable.
	minFragmentWords = 4
)

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

// conjunctions are the words a long sentence may be split at.
var conjunctions = map[string]bool{
	"and": true, "but": true, "because": true, "which": true,
	"while": true, "although": true, "so": true, "or": true,
}

// LLMClient is the contract of the external language-model
// collaborator. Its internals are opaque; only this boundary matters.
type LLMClient interface {
	Simplify(ctx context.Context, text string) (string, error)
}

// Simplifier rewrites text for readability.
type Simplifier struct {
	lex    *lexicon.Index
	llm    LLMClient
	logger *slog.Logger
}

// New creates a rule-based-only simplifier.
func New(lex *lexicon.Index) *Simplifier {
	return NewWithLLM(lex, nil)
}

// NewWithLLM creates a simplifier that tries the language-model
// collaborator first. A nil client disables the LLM path.
func NewWithLLM(lex *lexicon.Index, llm LLMClient) *Simplifier {
	return &Simplifier{lex: lex, llm: llm, logger: slog.Default()}
}

// Enabled reports whether the LLM path is configured.
func (s *Simplifier) Enabled() bool { return s.llm != nil }

// Simplify rewrites text. knownTerm reports whether the user already
// had a term explained; those terms are not re-glossed by the
// rule-based path. The complexity result supplies term matches and
// the safety spans that must round-trip near-verbatim.
func (s *Simplifier) Simplify(ctx context.Context, text string, cr models.ComplexityResult, knownTerm func(string) bool) models.SimplificationResult {
	if s.llm != nil {
		rewritten, err := s.llm.Simplify(ctx, text)
		if err == nil && validateRewrite(text, rewritten, cr.Safety) {
			return models.SimplificationResult{
				Text:   rewritten,
				Method: models.MethodLLM,
			}
		}
		if err != nil {
			s.logger.Warn("llm simplification failed, falling back to rule-based", "error", err)
		} else {
			s.logger.Warn("llm simplification rejected by validation, falling back to rule-based",
				"rewritten_len", len(rewritten))
		}
		return models.SimplificationResult{
			Text:     s.ruleBased(text, cr, knownTerm),
			Method:   models.MethodRuleBased,
			Fallback: true,
		}
	}

	return models.SimplificationResult{
		Text:   s.ruleBased(text, cr, knownTerm),
		Method: models.MethodRuleBased,
	}
}

// ruleBased is the deterministic rewrite: gloss unfamiliar lexicon
// terms inline, split overlong sentences at conjunctions, and leave
// safety spans structurally intact.
func (s *Simplifier) ruleBased(text string, cr models.ComplexityResult, knownTerm func(string) bool) string {
	var out []string
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		sentence := strings.TrimSpace(text[loc[0]:loc[1]])
		if sentence == "" {
			continue
		}

		glossed := s.glossTerms(sentence, cr.Terms, knownTerm)

		if overlapsSafety(cr.Safety, loc[0], loc[1]) {
			// Safety-critical sentence: glossing adds words but never
			// deletes or reorders; splitting is off the table.
			out = append(out, glossed)
			continue
		}
		out = append(out, splitLong(glossed)...)
	}
	return strings.Join(out, " ")
}

// glossTerms appends a plain-language gloss after the first occurrence
// of each unfamiliar term. A term whose definition already appears in
// the sentence is skipped, which keeps repeated simplification stable.
func (s *Simplifier) glossTerms(sentence string, terms []models.TermMatch, knownTerm func(string) bool) string {
	lower := strings.ToLower(sentence)
	for _, t := range terms {
		if knownTerm != nil && knownTerm(t.Term) {
			continue
		}
		if strings.Contains(lower, strings.ToLower(t.Definition)) {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t.Term) + `\b`)
		loc := re.FindStringIndex(sentence)
		if loc == nil {
			continue
		}
		sentence = sentence[:loc[1]] + " (" + t.Definition + ")" + sentence[loc[1]:]
		lower = strings.ToLower(sentence)
	}
	return sentence
}

// splitLong breaks a sentence exceeding the long threshold at the
// conjunction nearest its midpoint, recursively. Sentences at or below
// the long threshold are returned untouched by construction.
func splitLong(sentence string) []string {
	words := strings.Fields(sentence)
	if len(words) <= LongSentenceWords {
		return []string{sentence}
	}

	idx := splitPoint(words)
	if idx < 0 {
		return []string{sentence}
	}

	first := strings.TrimRight(strings.Join(words[:idx], " "), " ,;") + "."
	rest := capitalize(strings.Join(words[idx+1:], " "))

	var out []string
	out = append(out, splitLong(first)...)
	out = append(out, splitLong(rest)...)
	return out
}

// splitPoint picks the conjunction index closest to the midpoint that
// leaves both halves at least minFragmentWords long. Returns -1 when
// no usable conjunction exists: an unbroken 40-word list is left alone
// rather than chopped mid-clause.
func splitPoint(words []string) int {
	mid := len(words) / 2
	best := -1
	for i, w := range words {
		if i < minFragmentWords || len(words)-i-1 < minFragmentWords {
			continue
		}
		if !conjunctions[strings.ToLower(strings.Trim(w, ",.;:"))] {
			continue
		}
		if best == -1 || abs(i-mid) < abs(best-mid) {
			best = i
		}
	}
	return best
}

// overlapsSafety reports whether a sentence span intersects any
// highlight span.
func overlapsSafety(highlights []models.SafetyHighlight, start, end int) bool {
	for _, h := range highlights {
		if h.Start < end && start < h.End {
			return true
		}
	}
	return false
}

// validateRewrite decides whether an LLM payload is usable: non-empty,
// not error-shaped, not structurally worse than the input, and every
// safety-critical token still present verbatim.
func validateRewrite(original, rewritten string, highlights []models.SafetyHighlight) bool {
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return false
	}
	if len(rewritten) > 2*len(original)+200 {
		return false
	}

	lower := strings.ToLower(rewritten)
	for _, prefix := range []string{"error", "i cannot", "i can't", "i'm sorry", "sorry,"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}

	if avgSentenceWords(rewritten) > maxf(avgSentenceWords(original), LongSentenceWords)+2 {
		return false
	}

	for _, h := range highlights {
		for _, token := range criticalTokens(h.Text) {
			if !strings.Contains(lower, token) {
				return false
			}
		}
	}
	return true
}

var (
	numberRe    = regexp.MustCompile(`\d+(\.\d+)?`)
	frequencyRe = regexp.MustCompile(`(?i)\b(daily|twice|once|hourly|weekly|mg|ml|mcg|hours?|days?|weeks?)\b`)
)

// criticalTokens extracts the dosage numbers and frequency units of a
// safety span. These must survive any rewrite unchanged.
func criticalTokens(span string) []string {
	var tokens []string
	tokens = append(tokens, numberRe.FindAllString(span, -1)...)
	for _, m := range frequencyRe.FindAllString(span, -1) {
		tokens = append(tokens, strings.ToLower(m))
	}
	return tokens
}

func avgSentenceWords(text string) float64 {
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return 0
	}
	total := 0
	for _, s := range sentences {
		total += len(strings.Fields(s))
	}
	return float64(total) / float64(len(sentences))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Package scorer combines lexicon hits and structural risk indicators
// into a complexity score and an independent confidence score.
package scorer

import (
	"regexp"
	"strings"

	"github.com/zombar/readassist/internal/lexicon"
	"github.com/zombar/readassist/internal/models"
	"github.com/zombar/readassist/internal/patterns"
)

// Banding thresholds. A score sitting exactly on a boundary classifies
// into the lower band, so low is [0, 0.30], moderate is (0.30, 0.60],
// high is (0.60, 1]. These are part of the tested contract.
const (
	BandLowMax      = 0.30
	BandModerateMax = 0.60
)

// Band labels.
const (
	BandLow      = "low"
	BandModerate = "moderate"
	BandHigh     = "high"
)

// Weighting constants for the complexity sum. Term presence carries a
// fixed base so a single hard term registers even in a short text.
const (
	termBase        = 0.15
	termWeightScale = 0.25
	termFactorMax   = 0.45
	longSentence    = 15.0
	lengthFactorMax = 0.30
	structuralScale = 0.25
)

// Confidence constants. Confidence starts at a neutral base and moves
// with signal quality: lexicon coverage and text length raise it,
// structural ambiguity lowers it.
const (
	confBase            = 0.50
	confCoverageScale   = 0.30
	confLengthScale     = 0.20
	confStructuralDrag  = 0.40
	confNoSignal        = 0.05
	complexityNoSignal  = 0.50
)

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

// Scorer scores raw text. It never fails: unscorable input degrades to
// a neutral complexity with near-zero confidence.
type Scorer struct {
	lex *lexicon.Index
}

// New creates a Scorer over the given lexicon.
func New(lex *lexicon.Index) *Scorer {
	return &Scorer{lex: lex}
}

// Score produces the complexity assessment for text. Input length
// validation happens upstream in the orchestrator; Score itself
// accepts anything.
func (s *Scorer) Score(text string) models.ComplexityResult {
	words := strings.Fields(text)
	terms := s.lex.FindTerms(text)
	indicators := patterns.Detect(text)

	if len(words) == 0 || !hasLetters(text) {
		// No extractable signal: neutral difficulty, no certainty.
		return models.ComplexityResult{
			Complexity: complexityNoSignal,
			Confidence: confNoSignal,
			Band:       BandModerate,
			Terms:      terms,
			Indicators: indicators,
		}
	}

	complexity := clamp01(termFactor(terms) + lengthFactor(text, len(words)) +
		structuralScale*indicators.Composite())

	confidence := clamp01(confBase +
		confCoverageScale*coverageFactor(len(terms), len(words)) +
		confLengthScale*lengthSignal(len(words)) -
		confStructuralDrag*indicators.Composite())

	return models.ComplexityResult{
		Complexity: complexity,
		Confidence: confidence,
		Band:       Band(complexity),
		Terms:      terms,
		Indicators: indicators,
	}
}

// Band classifies a complexity score. Boundary values go to the lower
// band for deterministic behavior.
func Band(complexity float64) string {
	switch {
	case complexity <= BandLowMax:
		return BandLow
	case complexity <= BandModerateMax:
		return BandModerate
	default:
		return BandHigh
	}
}

// termFactor grows with the number and weight of lexicon hits, with a
// base bump for any hit at all.
func termFactor(terms []models.TermMatch) float64 {
	if len(terms) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range terms {
		sum += t.Weight
	}
	f := termBase + termWeightScale*sum
	if f > termFactorMax {
		f = termFactorMax
	}
	return f
}

// lengthFactor rewards shorter sentences with a lower contribution and
// saturates once the average sentence exceeds the long threshold.
func lengthFactor(text string, wordCount int) float64 {
	sentences := sentenceRe.FindAllString(text, -1)
	n := len(sentences)
	if n == 0 {
		n = 1
	}
	avg := float64(wordCount) / float64(n)
	if avg > longSentence {
		return lengthFactorMax
	}
	return avg / longSentence * (lengthFactorMax / 2)
}

// coverageFactor is lexicon density: distinct terms per word, scaled
// so one term in every four words saturates.
func coverageFactor(termCount, wordCount int) float64 {
	if wordCount == 0 {
		return 0
	}
	return clamp01(4 * float64(termCount) / float64(wordCount))
}

// lengthSignal saturates at 40 words: beyond that, more text does not
// make the assessment any more trustworthy.
func lengthSignal(wordCount int) float64 {
	return clamp01(float64(wordCount) / 40)
}

func hasLetters(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}) >= 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

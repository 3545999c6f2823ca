// Package patterns detects structural risk indicators in raw text:
// signals that a passage is hard to decode independently of any
// domain vocabulary.
package patterns

import (
	"math"
	"regexp"
	"strings"

	"github.com/zombar/readassist/internal/models"
)

var (
	wordRe     = regexp.MustCompile(`[A-Za-z]+`)
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// reversal-prone letters: mirror-image glyphs readers commonly flip.
const reversalLetters = "bdpq"

// transposition-prone clusters: letter sequences readers commonly
// reorder or collapse (rn/m, ei/ie swaps, silent gh, ph digraph).
var transposeClusters = []string{"rn", "ei", "ie", "gh", "ph"}

// Detect scans text and returns per-indicator strengths in [0,1].
// Pure function; empty input yields all zeros.
func Detect(text string) models.RiskIndicators {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return models.RiskIndicators{}
	}

	return models.RiskIndicators{
		ReversalDensity:      reversalDensity(words),
		TranspositionDensity: transpositionDensity(words),
		WordRarity:           wordRarity(words),
		SentenceVariance:     sentenceVariance(text),
	}
}

// reversalDensity is the proportion of words containing mirror-image
// letters.
func reversalDensity(words []string) float64 {
	hits := 0
	for _, w := range words {
		if strings.ContainsAny(w, reversalLetters) {
			hits++
		}
	}
	return clamp01(float64(hits) / float64(len(words)))
}

// transpositionDensity is the proportion of words of four or more
// letters containing a transposition-prone cluster.
func transpositionDensity(words []string) float64 {
	candidates := 0
	hits := 0
	for _, w := range words {
		if len(w) < 4 {
			continue
		}
		candidates++
		for _, cluster := range transposeClusters {
			if strings.Contains(w, cluster) {
				hits++
				break
			}
		}
	}
	if candidates == 0 {
		return 0
	}
	return clamp01(float64(hits) / float64(candidates))
}

// wordRarity approximates average word rarity from length and
// syllable count. There is no frequency table here; long polysyllabic
// words stand in for rare ones, which holds up well for instructional
// prose.
func wordRarity(words []string) float64 {
	total := 0.0
	for _, w := range words {
		syllables := countSyllables(w)
		rarity := 0.35*float64(syllables-1) + 0.1*math.Max(0, float64(len(w)-5))
		total += clamp01(rarity)
	}
	return clamp01(total / float64(len(words)))
}

// sentenceVariance is the coefficient of variation of sentence word
// counts, clamped to [0,1]. Wildly uneven sentence lengths make a
// passage harder to track.
func sentenceVariance(text string) float64 {
	var lengths []float64
	for _, s := range sentenceRe.FindAllString(text, -1) {
		n := len(strings.Fields(s))
		if n > 0 {
			lengths = append(lengths, float64(n))
		}
	}
	if len(lengths) < 2 {
		return 0
	}

	mean := 0.0
	for _, l := range lengths {
		mean += l
	}
	mean /= float64(len(lengths))

	variance := 0.0
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	variance /= float64(len(lengths))

	return clamp01(math.Sqrt(variance) / mean)
}

// countSyllables counts syllables in a single word by vowel groups,
// with a silent-e adjustment.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	if word == "" {
		return 0
	}

	count := 0
	prevWasVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevWasVowel {
			count++
		}
		prevWasVowel = isVowel
	}

	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
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

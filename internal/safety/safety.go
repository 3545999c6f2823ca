// Package safety isolates sentences carrying safety-critical
// directives: dosage, frequency, warnings, contraindications.
package safety

import (
	"regexp"
	"strings"

	"github.com/zombar/readassist/internal/models"
)

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

// Cue categories. A sentence matching any cue becomes a highlight; the
// first matching cue is recorded for context.
var (
	// dosageRe matches explicit quantities: "2 tablets", "500 mg",
	// "one capsule", "take 1".
	dosageRe = regexp.MustCompile(`(?i)\b(\d+(\.\d+)?\s*(mg|ml|mcg|g|units?|tablets?|capsules?|drops?|puffs?)|take\s+\d+|(one|two|three)\s+(tablets?|capsules?|pills?|doses?|drops?))\b`)

	// frequencyRe matches scheduling language.
	frequencyRe = regexp.MustCompile(`(?i)\b(daily|twice|once|hourly|weekly|every\s+\d+\s+(hours?|days?|weeks?)|at\s+bedtime|with\s+(food|meals?|water)|before\s+meals?|after\s+meals?|on\s+an\s+empty\s+stomach)\b`)

	// warningRe matches warning and escalation language.
	warningRe = regexp.MustCompile(`(?i)\b(warning|caution|danger|emergency|immediately|stop\s+taking|do\s+not|don't|avoid|seek\s+medical|call\s+your\s+(doctor|physician)|contact\s+your\s+(doctor|physician)|overdose)\b`)

	// contraRe matches contraindication language.
	contraRe = regexp.MustCompile(`(?i)\b(contraindicat\w*|should\s+not\s+be\s+(taken|used)|not\s+recommended|allergic|pregnan\w*|interact\w*)\b`)
)

type cue struct {
	name string
	re   *regexp.Regexp
}

var cues = []cue{
	{"dosage", dosageRe},
	{"frequency", frequencyRe},
	{"warning", warningRe},
	{"contraindication", contraRe},
}

// Extract returns safety highlights in source order. Spans flagged by
// multiple cues are emitted once; deduplication is by exact span
// equality only.
func Extract(text string) []models.SafetyHighlight {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var highlights []models.SafetyHighlight
	seen := make(map[[2]int]bool)

	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		sentence := text[loc[0]:loc[1]]
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}

		matched := ""
		for _, c := range cues {
			if c.re.MatchString(sentence) {
				matched = c.name
				break
			}
		}
		if matched == "" {
			continue
		}

		// Span offsets refer to the trimmed sentence within the source.
		start := loc[0] + strings.Index(sentence, trimmed)
		end := start + len(trimmed)
		key := [2]int{start, end}
		if seen[key] {
			continue
		}
		seen[key] = true

		highlights = append(highlights, models.SafetyHighlight{
			Text:  trimmed,
			Start: start,
			End:   end,
			Cue:   matched,
		})
	}

	return highlights
}

// Covers reports whether the byte range [start, end) of the source
// text falls inside any highlight span.
func Covers(highlights []models.SafetyHighlight, start, end int) bool {
	for _, h := range highlights {
		if start >= h.Start && end <= h.End {
			return true
		}
	}
	return false
}

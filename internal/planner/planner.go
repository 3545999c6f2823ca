// Package planner maps a complexity assessment and a user profile to
// concrete presentation directives. Pure function of its inputs:
// identical inputs always produce identical directives.
package planner

import (
	"fmt"

	"github.com/zombar/readassist/internal/models"
)

// Threshold constants. Recorded severity shifts the audio and contrast
// thresholds down, so a user with known difficulties gets support at
// lower complexity. Low confidence widens the net the same way:
// uncertain assessments err toward more support.
const (
	audioThreshold    = 0.45
	contrastThreshold = 0.55
	severityShift     = 0.10
	lowConfidence     = 0.40

	baseFontPx     = 16
	moderateFontPx = 18
	highFontPx     = 20

	baseLineHeight     = 1.4
	moderateLineHeight = 1.6
	highLineHeight     = 1.8

	normalPace  = 1.0
	slowPace    = 0.9
	slowestPace = 0.8
)

// Plan derives presentation directives from a complexity result and
// the profile snapshot current at analysis time.
func Plan(cr models.ComplexityResult, profile models.UserProfile) models.PresentationDirectives {
	shift := severityShift * float64(profile.Severity.Rank())

	// Uncertain assessments are treated one notch more conservatively.
	effective := cr.Complexity
	if cr.Confidence < lowConfidence {
		effective += severityShift
	}

	visual := models.VisualAdaptations{
		FontSize:    fmt.Sprintf("%dpx", fontSize(effective, profile.Severity)),
		LineHeight:  lineHeight(effective, profile.Severity),
		ColorScheme: models.ColorSchemeDefault,
	}
	if effective >= contrastThreshold-shift {
		visual.ColorScheme = models.ColorSchemeHighContrast
	}

	audio := models.AudioSuggestions{ReadingSpeed: normalPace}
	if effective >= audioThreshold-shift {
		audio.ShouldReadAloud = true
		audio.ReadingSpeed = slowPace
		if effective >= contrastThreshold || profile.Severity.Rank() >= models.SeverityModerate.Rank() {
			audio.ReadingSpeed = slowestPace
		}
	}

	return models.PresentationDirectives{Visual: visual, Audio: audio}
}

func fontSize(effective float64, severity models.Severity) int {
	size := baseFontPx
	switch {
	case effective >= 0.60:
		size = highFontPx
	case effective >= 0.30:
		size = moderateFontPx
	}
	// A severe profile never drops below the moderate size regardless
	// of how easy one particular text is.
	if severity == models.SeveritySevere && size < moderateFontPx {
		size = moderateFontPx
	}
	return size
}

func lineHeight(effective float64, severity models.Severity) float64 {
	lh := baseLineHeight
	switch {
	case effective >= 0.60:
		lh = highLineHeight
	case effective >= 0.30:
		lh = moderateLineHeight
	}
	if severity == models.SeveritySevere && lh < moderateLineHeight {
		lh = moderateLineHeight
	}
	return lh
}

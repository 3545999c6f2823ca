package planner

import (
	"testing"

	"github.com/zombar/readassist/internal/models"
)

func baseProfile() models.UserProfile {
	return models.UserProfile{ID: "u1", Severity: models.SeverityUnknown}
}

func TestPlanLowComplexity(t *testing.T) {
	cr := models.ComplexityResult{Complexity: 0.15, Confidence: 0.8}

	d := Plan(cr, baseProfile())

	if d.Visual.FontSize != "16px" {
		t.Errorf("expected 16px, got %q", d.Visual.FontSize)
	}
	if d.Visual.LineHeight != 1.4 {
		t.Errorf("expected 1.4 line height, got %f", d.Visual.LineHeight)
	}
	if d.Visual.ColorScheme != models.ColorSchemeDefault {
		t.Errorf("expected default scheme, got %q", d.Visual.ColorScheme)
	}
	if d.Audio.ShouldReadAloud {
		t.Error("easy text should not suggest read-aloud")
	}
	if d.Audio.ReadingSpeed != 1.0 {
		t.Errorf("expected normal pace, got %f", d.Audio.ReadingSpeed)
	}
}

func TestPlanHighComplexity(t *testing.T) {
	cr := models.ComplexityResult{Complexity: 0.75, Confidence: 0.8}

	d := Plan(cr, baseProfile())

	if d.Visual.FontSize != "20px" {
		t.Errorf("expected 20px, got %q", d.Visual.FontSize)
	}
	if d.Visual.LineHeight != 1.8 {
		t.Errorf("expected 1.8 line height, got %f", d.Visual.LineHeight)
	}
	if d.Visual.ColorScheme != models.ColorSchemeHighContrast {
		t.Errorf("expected high contrast, got %q", d.Visual.ColorScheme)
	}
	if !d.Audio.ShouldReadAloud {
		t.Error("hard text should suggest read-aloud")
	}
	if d.Audio.ReadingSpeed >= 1.0 {
		t.Errorf("hard text should slow the pace, got %f", d.Audio.ReadingSpeed)
	}
}

func TestSeverityLowersThresholds(t *testing.T) {
	cr := models.ComplexityResult{Complexity: 0.40, Confidence: 0.8}

	without := Plan(cr, baseProfile())
	if without.Audio.ShouldReadAloud {
		t.Fatal("0.40 without recorded severity should not trigger audio")
	}

	moderate := baseProfile()
	moderate.Severity = models.SeverityModerate
	with := Plan(cr, moderate)
	if !with.Audio.ShouldReadAloud {
		t.Error("moderate severity should pull the audio threshold down")
	}
}

func TestLowConfidenceErrsTowardSupport(t *testing.T) {
	// 0.42 sits below the audio threshold, but an uncertain assessment
	// is treated one notch more conservatively.
	certain := Plan(models.ComplexityResult{Complexity: 0.42, Confidence: 0.8}, baseProfile())
	uncertain := Plan(models.ComplexityResult{Complexity: 0.42, Confidence: 0.2}, baseProfile())

	if certain.Audio.ShouldReadAloud {
		t.Error("confident mid-range assessment should not trigger audio")
	}
	if !uncertain.Audio.ShouldReadAloud {
		t.Error("uncertain assessment should err toward more support")
	}
}

func TestSevereProfileFontFloor(t *testing.T) {
	severe := baseProfile()
	severe.Severity = models.SeveritySevere

	d := Plan(models.ComplexityResult{Complexity: 0.10, Confidence: 0.9}, severe)

	if d.Visual.FontSize != "18px" {
		t.Errorf("severe profile should never drop below 18px, got %q", d.Visual.FontSize)
	}
	if d.Visual.LineHeight < 1.6 {
		t.Errorf("severe profile should never drop below 1.6 line height, got %f", d.Visual.LineHeight)
	}
}

func TestPlanDeterministic(t *testing.T) {
	cr := models.ComplexityResult{Complexity: 0.55, Confidence: 0.6}
	p := baseProfile()
	p.Severity = models.SeverityMild

	first := Plan(cr, p)
	second := Plan(cr, p)

	if first != second {
		t.Errorf("planning not deterministic: %+v vs %+v", first, second)
	}
}

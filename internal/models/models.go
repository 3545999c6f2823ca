package models

import "time"

// Severity describes the recorded reading-difficulty level of a user.
type Severity string

const (
	SeverityUnknown  Severity = "unknown"
	SeverityNone     Severity = "none"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// ParseSeverity maps a string onto a Severity, defaulting to unknown.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityNone, SeverityMild, SeverityModerate, SeveritySevere:
		return Severity(s)
	default:
		return SeverityUnknown
	}
}

// Rank returns the ordinal position of a severity, with unknown and
// none both at zero. Used for threshold shifting.
func (s Severity) Rank() int {
	switch s {
	case SeverityMild:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	default:
		return 0
	}
}

// Method identifies which simplification path produced a rewrite.
type Method string

const (
	MethodLLM       Method = "llm"
	MethodRuleBased Method = "rule-based"
)

// ColorScheme is a presentation directive for the consuming renderer.
type ColorScheme string

const (
	ColorSchemeDefault      ColorScheme = "default"
	ColorSchemeHighContrast ColorScheme = "high_contrast"
)

// AnalysisRequest is the input to one analysis cycle.
type AnalysisRequest struct {
	Text        string       `json:"text"`
	UserContext *UserContext `json:"user_context,omitempty"`
}

// UserContext carries the caller-supplied profile identity and an
// optional prior-severity hint used only when the profile is new.
type UserContext struct {
	ProfileID     string `json:"profile_id"`
	PriorSeverity string `json:"prior_severity,omitempty"`
}

// TermMatch is a domain term found in the text with its plain-language
// definition. Unique per distinct term, ordered by first occurrence.
type TermMatch struct {
	Term       string  `json:"term"`
	Definition string  `json:"definition"`
	Weight     float64 `json:"-"`
}

// SafetyHighlight is a contiguous span of the source text carrying a
// safety-critical directive. The original text is retained verbatim.
type SafetyHighlight struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Cue   string `json:"cue"`
}

// RiskIndicators are the structural signals produced by the pattern
// detector. Each value is in [0,1].
type RiskIndicators struct {
	ReversalDensity      float64 `json:"reversal_density"`
	TranspositionDensity float64 `json:"transposition_density"`
	WordRarity           float64 `json:"word_rarity"`
	SentenceVariance     float64 `json:"sentence_variance"`
}

// Composite folds the four indicators into one structural-risk value
// in [0,1]. Rarity carries the most weight since long rare words are
// the strongest difficulty signal for the target population.
func (r RiskIndicators) Composite() float64 {
	return 0.35*r.WordRarity + 0.25*r.ReversalDensity +
		0.20*r.TranspositionDensity + 0.20*r.SentenceVariance
}

// ComplexityResult is the scored assessment of one text.
// Complexity and Confidence are independent axes: confidence reflects
// signal quality, not difficulty.
type ComplexityResult struct {
	Complexity float64           `json:"complexity_score"`
	Confidence float64           `json:"confidence"`
	Band       string            `json:"band"` // low, moderate, high
	Terms      []TermMatch       `json:"terms"`
	Safety     []SafetyHighlight `json:"safety_highlights"`
	Indicators RiskIndicators    `json:"indicators"`
}

// SimplificationResult is the rewrite produced by the simplifier.
// Invariant: Method is MethodLLM only when the external call succeeded
// and its payload validated; any failure forces MethodRuleBased with
// Fallback set.
type SimplificationResult struct {
	Text     string `json:"simplified_text"`
	Method   Method `json:"method"`
	Fallback bool   `json:"fallback"`
}

// VisualAdaptations are the font and color directives for the renderer.
type VisualAdaptations struct {
	FontSize    string      `json:"font_size"`
	LineHeight  float64     `json:"line_height"`
	ColorScheme ColorScheme `json:"color_scheme"`
}

// AudioSuggestions tell the renderer whether and how to read aloud.
type AudioSuggestions struct {
	ShouldReadAloud bool    `json:"should_read_aloud"`
	ReadingSpeed    float64 `json:"reading_speed"`
}

// PresentationDirectives bundle everything the consuming UI needs to
// render an adapted view. Derived deterministically, no randomness.
type PresentationDirectives struct {
	Visual VisualAdaptations `json:"visual_adaptations"`
	Audio  AudioSuggestions  `json:"audio_suggestions"`
}

// UserProfile is the accumulated accessibility state for one identity.
// Owned exclusively by the profile store; everything handed out is a
// snapshot.
type UserProfile struct {
	ID            string    `json:"id"`
	Severity      Severity  `json:"severity"`
	TextsAnalyzed int       `json:"texts_read"`
	KnownTerms    []string  `json:"known_terms"`
	Comprehension float64   `json:"comprehension_rate"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Knows reports whether a term is already in the cumulative set.
func (p *UserProfile) Knows(term string) bool {
	for _, t := range p.KnownTerms {
		if t == term {
			return true
		}
	}
	return false
}

// UserProgress is the profile excerpt echoed in every analysis result.
type UserProgress struct {
	TextsRead         int     `json:"texts_read"`
	ComprehensionRate float64 `json:"comprehension_rate"`
}

// AnalysisResult is the sole externally visible output of a cycle.
type AnalysisResult struct {
	ID               string            `json:"id,omitempty"`
	OriginalText     string            `json:"original_text"`
	ComplexityScore  float64           `json:"complexity_score"`
	Confidence       float64           `json:"confidence"`
	Band             string            `json:"band"`
	TermsFound       []TermMatch       `json:"medical_terms_found"`
	SafetyHighlights []string          `json:"safety_highlights"`
	SimplifiedText   string            `json:"simplified_text"`
	AnalysisMethod   Method            `json:"analysis_method"`
	LLMEnabled       bool              `json:"llm_enabled"`
	Visual           VisualAdaptations `json:"visual_adaptations"`
	Audio            AudioSuggestions  `json:"audio_suggestions"`
	Progress         UserProgress      `json:"user_progress"`
	CreatedAt        time.Time         `json:"created_at,omitempty"`
}

// Package agent orchestrates the full analysis cycle: validate the
// request, assess complexity and safety, produce a simplified rewrite,
// derive presentation directives and fold the outcome back into the
// user's profile. The cycle moves through a fixed sequence of stages
// and either completes all of them or rejects the input up front;
// collaborator failures downgrade the result, they never abort it.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/readassist/internal/lexicon"
	"github.com/zombar/readassist/internal/models"
	"github.com/zombar/readassist/internal/planner"
	"github.com/zombar/readassist/internal/profile"
	"github.com/zombar/readassist/internal/safety"
	"github.com/zombar/readassist/internal/scorer"
	"github.com/zombar/readassist/internal/simplifier"
	"github.com/zombar/readassist/pkg/metrics"
)

// Input bounds, enforced before any collaborator runs.
const (
	MinTextLength = 10
	MaxTextLength = 10000
)

// DefaultProfileID is used when the caller supplies no user context.
const DefaultProfileID = "default"

// ErrInvalidInput marks requests rejected during validation. Callers
// can map it to a client error with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Cycle stages, logged as each one completes.
const (
	stageReceived       = "received"
	stageValidated      = "validated"
	stageScored         = "scored"
	stageSimplified     = "simplified"
	stagePlanned        = "planned"
	stageProfileUpdated = "profile_updated"
	stageReturned       = "returned"
	stageRejected       = "rejected"
)

// Agent runs analysis cycles. Safe for concurrent use.
type Agent struct {
	scorer     *scorer.Scorer
	simplifier *simplifier.Simplifier
	profiles   *profile.Store
	metrics    *metrics.BusinessMetrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Config assembles an Agent. Lexicon and Profiles are required; a nil
// LLM disables the enrichment path entirely, leaving every analysis on
// the rule-based method.
type Config struct {
	Lexicon  *lexicon.Index
	Profiles *profile.Store
	LLM      simplifier.LLMClient
	Metrics  *metrics.BusinessMetrics
	Logger   *slog.Logger
}

// New creates an Agent from cfg.
func New(cfg Config) *Agent {
	lex := cfg.Lexicon
	if lex == nil {
		lex = lexicon.New()
	}
	profiles := cfg.Profiles
	if profiles == nil {
		profiles = profile.NewStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var simp *simplifier.Simplifier
	if cfg.LLM != nil {
		simp = simplifier.NewWithLLM(lex, cfg.LLM)
	} else {
		simp = simplifier.New(lex)
	}

	return &Agent{
		scorer:     scorer.New(lex),
		simplifier: simp,
		profiles:   profiles,
		metrics:    cfg.Metrics,
		logger:     logger,
		tracer:     otel.Tracer("readassist/agent"),
	}
}

// LLMEnabled reports whether the enrichment path is configured.
func (a *Agent) LLMEnabled() bool {
	return a.simplifier.Enabled()
}

// Profiles exposes the profile store for read endpoints.
func (a *Agent) Profiles() *profile.Store {
	return a.profiles
}

// Analyze runs one full cycle over req and returns the assembled
// result. The only error it returns is a validation failure wrapping
// ErrInvalidInput; everything past validation completes with degraded
// output instead of failing.
func (a *Agent) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	return a.AnalyzeWithCommit(ctx, req, nil)
}

// AnalyzeWithCommit runs a cycle like Analyze but invokes persist with
// the assembled result inside the profile's commit section: the profile
// only advances if persist succeeds. A caller that stores results
// durably can therefore retry a failed write without counting the same
// analysis twice. A persist failure is returned as an error and leaves
// the profile untouched. A nil persist commits unconditionally.
func (a *Agent) AnalyzeWithCommit(ctx context.Context, req models.AnalysisRequest, persist func(*models.AnalysisResult) error) (*models.AnalysisResult, error) {
	start := time.Now()

	ctx, span := a.tracer.Start(ctx, "agent.analyze")
	defer span.End()

	a.stage(ctx, stageReceived)

	text := strings.TrimSpace(req.Text)
	if runes := utf8.RuneCountInString(text); runes < MinTextLength {
		return nil, a.reject(ctx, fmt.Errorf("text must be at least %d characters: %w", MinTextLength, ErrInvalidInput))
	} else if runes > MaxTextLength {
		return nil, a.reject(ctx, fmt.Errorf("text exceeds %d characters: %w", MaxTextLength, ErrInvalidInput))
	}
	a.stage(ctx, stageValidated)

	profileID := DefaultProfileID
	hint := models.SeverityUnknown
	if req.UserContext != nil {
		if req.UserContext.ProfileID != "" {
			profileID = req.UserContext.ProfileID
		}
		hint = models.ParseSeverity(req.UserContext.PriorSeverity)
	}
	prof := a.profiles.Ensure(profileID, hint)

	// Scoring and safety extraction are independent reads of the same
	// text, so they run in parallel.
	crCh := make(chan models.ComplexityResult, 1)
	go func() {
		crCh <- a.scorer.Score(text)
	}()
	highlights := safety.Extract(text)
	cr := <-crCh
	cr.Safety = highlights

	span.SetAttributes(
		attribute.Float64("analysis.complexity", cr.Complexity),
		attribute.Float64("analysis.confidence", cr.Confidence),
		attribute.String("analysis.band", cr.Band),
		attribute.Int("analysis.terms", len(cr.Terms)),
		attribute.Int("analysis.safety_highlights", len(highlights)),
	)
	a.stage(ctx, stageScored)

	// The known-term snapshot is taken before simplification so a
	// concurrent update to the same profile cannot change which glosses
	// this cycle suppresses.
	known := prof
	sim := a.simplifier.Simplify(ctx, text, cr, known.Knows)
	if sim.Fallback {
		a.logger.WarnContext(ctx, "simplification fell back to rule-based path", "profile_id", profileID)
		if a.metrics != nil {
			a.metrics.SimplificationFallbacks.Inc()
		}
	}
	a.stage(ctx, stageSimplified)

	directives := planner.Plan(cr, prof)
	a.stage(ctx, stagePlanned)

	// llm_enabled reports whether the LLM actually produced this
	// result, so a caller can show degraded-mode status after a
	// fallback.
	result := &models.AnalysisResult{
		OriginalText:     text,
		ComplexityScore:  cr.Complexity,
		Confidence:       cr.Confidence,
		Band:             cr.Band,
		TermsFound:       cr.Terms,
		SafetyHighlights: highlightTexts(highlights),
		SimplifiedText:   sim.Text,
		AnalysisMethod:   sim.Method,
		LLMEnabled:       sim.Method == models.MethodLLM,
		Visual:           directives.Visual,
		Audio:            directives.Audio,
		CreatedAt:        time.Now().UTC(),
	}

	outcome := profile.Outcome{
		Complexity:     cr.Complexity,
		Confidence:     cr.Confidence,
		StructuralRisk: cr.Indicators.Composite(),
		Terms:          cr.Terms,
	}
	var commit func(models.UserProfile) error
	if persist != nil {
		commit = func(p models.UserProfile) error {
			result.Progress = models.UserProgress{
				TextsRead:         p.TextsAnalyzed,
				ComprehensionRate: p.Comprehension,
			}
			return persist(result)
		}
	}
	updated, err := a.profiles.UpdateWith(profileID, outcome, commit)
	if err != nil {
		a.logger.ErrorContext(ctx, "result persistence failed, profile not advanced",
			"profile_id", profileID, "error", err)
		if a.metrics != nil {
			a.metrics.AnalysesTotal.WithLabelValues(string(sim.Method), "error").Inc()
		}
		return nil, err
	}
	result.Progress = models.UserProgress{
		TextsRead:         updated.TextsAnalyzed,
		ComprehensionRate: updated.Comprehension,
	}
	a.stage(ctx, stageProfileUpdated)

	if a.metrics != nil {
		a.metrics.AnalysesTotal.WithLabelValues(string(sim.Method), "success").Inc()
		a.metrics.TermsSurfacedTotal.Add(float64(len(cr.Terms)))
		a.metrics.ProfileUpdatesTotal.Inc()
		a.metrics.ObserveDurationWithExemplar(ctx, a.metrics.AnalysisDuration, time.Since(start).Seconds(), "success")
	}

	a.stage(ctx, stageReturned)
	a.logger.InfoContext(ctx, "analysis complete",
		"profile_id", profileID,
		"band", cr.Band,
		"complexity", cr.Complexity,
		"confidence", cr.Confidence,
		"method", sim.Method,
		"terms", len(cr.Terms),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (a *Agent) reject(ctx context.Context, err error) error {
	a.stage(ctx, stageRejected)
	if a.metrics != nil {
		a.metrics.AnalysesTotal.WithLabelValues("none", "rejected").Inc()
	}
	a.logger.InfoContext(ctx, "analysis rejected", "error", err)
	return err
}

func (a *Agent) stage(ctx context.Context, s string) {
	a.logger.DebugContext(ctx, "analysis stage", "stage", s)
}

func highlightTexts(highlights []models.SafetyHighlight) []string {
	out := make([]string, 0, len(highlights))
	for _, h := range highlights {
		out = append(out, h.Text)
	}
	return out
}

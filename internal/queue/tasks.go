package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/readassist/internal/agent"
	"github.com/zombar/readassist/internal/models"
)

// handleAnalyze runs a queued analysis cycle and stores the result.
func (w *Worker) handleAnalyze(ctx context.Context, t *asynq.Task) error {
	var payload AnalyzePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %w", err)
	}

	// Calculate queue wait time
	var queueWaitTime time.Duration
	if payload.EnqueuedAt > 0 {
		enqueuedTime := time.Unix(0, payload.EnqueuedAt)
		queueWaitTime = time.Since(enqueuedTime)
	}

	w.logger.Info("processing queued analysis",
		"analysis_id", payload.AnalysisID,
		"text_length", len(payload.Text),
		"profile_id", payload.ProfileID,
		"queue_wait_seconds", queueWaitTime.Seconds(),
	)

	ctx, span := w.startTaskSpan(ctx, payload, queueWaitTime)
	if span != nil {
		defer span.End()
	}

	req := models.AnalysisRequest{Text: payload.Text}
	if payload.ProfileID != "" || payload.PriorSeverity != "" {
		req.UserContext = &models.UserContext{
			ProfileID:     payload.ProfileID,
			PriorSeverity: payload.PriorSeverity,
		}
	}

	profileID := payload.ProfileID
	if profileID == "" {
		profileID = agent.DefaultProfileID
	}

	// The result is stored inside the profile commit: a failed write
	// retries the whole task without advancing texts_read a second time.
	result, err := w.agent.AnalyzeWithCommit(ctx, req, func(res *models.AnalysisResult) error {
		res.ID = payload.AnalysisID
		return w.db.SaveAnalysis(payload.AnalysisID, profileID, res)
	})
	if err != nil {
		if errors.Is(err, agent.ErrInvalidInput) {
			// Retrying cannot change the input.
			w.logger.Warn("queued analysis rejected",
				"analysis_id", payload.AnalysisID, "error", err)
			return fmt.Errorf("rejected: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	w.logger.Info("queued analysis complete",
		"analysis_id", payload.AnalysisID,
		"band", result.Band,
		"method", result.AnalysisMethod,
	)
	return nil
}

// startTaskSpan recreates the trace context captured at enqueue time
// so the consumer span joins the producer's trace.
func (w *Worker) startTaskSpan(ctx context.Context, payload AnalyzePayload, wait time.Duration) (context.Context, trace.Span) {
	if payload.TraceID == "" || payload.SpanID == "" {
		return ctx, nil
	}

	traceID, err := trace.TraceIDFromHex(payload.TraceID)
	if err != nil {
		return ctx, nil
	}
	spanID, err := trace.SpanIDFromHex(payload.SpanID)
	if err != nil {
		return ctx, nil
	}

	remoteSpanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	ctx = trace.ContextWithRemoteSpanContext(ctx, remoteSpanCtx)

	ctx, span := otel.Tracer("readassist/queue").Start(ctx, "asynq.task.analyze",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("task.type", TypeAnalyze),
			attribute.String("analysis.id", payload.AnalysisID),
			attribute.Int("text.length", len(payload.Text)),
			attribute.Float64("queue.wait_time_seconds", wait.Seconds()),
			attribute.Int64("enqueued_at", payload.EnqueuedAt),
		),
	)

	span.AddEvent("task_processing_started", trace.WithAttributes(
		attribute.Float64("wait_time_seconds", wait.Seconds()),
	))

	return ctx, span
}

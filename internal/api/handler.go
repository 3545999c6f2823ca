package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zombar/readassist/internal/agent"
	"github.com/zombar/readassist/internal/database"
	"github.com/zombar/readassist/internal/models"
	"github.com/zombar/readassist/pkg/logging"
	"github.com/zombar/readassist/pkg/tracing"
)

// QueueClient enqueues analysis work for background processing.
type QueueClient interface {
	EnqueueAnalyze(ctx context.Context, analysisID string, req models.AnalysisRequest) (string, error)
}

// Handler handles HTTP requests
type Handler struct {
	db          *database.DB
	agent       *agent.Agent
	queueClient QueueClient
	mux         *http.ServeMux
	logger      *slog.Logger
}

// NewHandler creates a new API handler with CORS support and metrics.
// db must be non-nil; every handler reaches it. queueClient may be
// nil, which disables the async endpoint.
func NewHandler(db *database.DB, ag *agent.Agent, queueClient QueueClient) http.Handler {
	h := &Handler{
		db:          db,
		agent:       ag,
		queueClient: queueClient,
		mux:         http.NewServeMux(),
		logger:      slog.Default(),
	}

	h.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(h.mux)
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("/metrics", promhttp.Handler())
	h.mux.HandleFunc("/api/analyze", h.handleAnalyze)
	h.mux.HandleFunc("/api/analyze/async", h.handleAnalyzeAsync)
	h.mux.HandleFunc("/api/jobs/", h.handleJobStatus)
	h.mux.HandleFunc("/api/analyses", h.handleListAnalyses)
	h.mux.HandleFunc("/api/analyses/", h.handleAnalysisOperations)
	h.mux.HandleFunc("/api/profiles/", h.handleProfile)
	h.mux.HandleFunc("/api/overview", h.handleOverview)
	h.mux.HandleFunc("/health", h.handleHealth)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"status":      "ok",
		"llm_enabled": h.agent.LLMEnabled(),
		"time":        time.Now().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleAnalyze runs a full analysis cycle synchronously and returns
// the assembled result.
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tracing.SetSpanAttributes(r.Context(),
		attribute.Int("text.length", len(req.Text)))

	result, err := h.agent.Analyze(r.Context(), req)
	if err != nil {
		if errors.Is(err, agent.ErrInvalidInput) {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result.ID = generateID()
	profileID := agent.DefaultProfileID
	if req.UserContext != nil && req.UserContext.ProfileID != "" {
		profileID = req.UserContext.ProfileID
	}
	if err := h.db.SaveAnalysis(result.ID, profileID, result); err != nil {
		// The analysis itself succeeded; history is best-effort.
		tracing.SetSpanAttributes(r.Context(), attribute.String("history.error", err.Error()))
	}

	respondJSON(w, result, http.StatusOK)
}

// handleAnalyzeAsync queues an analysis and returns a job id.
func (h *Handler) handleAnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.queueClient == nil {
		respondError(w, "Background processing is not configured", http.StatusServiceUnavailable)
		return
	}

	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	runes := utf8.RuneCountInString(strings.TrimSpace(req.Text))
	if runes < agent.MinTextLength || runes > agent.MaxTextLength {
		respondError(w, fmt.Sprintf("Text must be between %d and %d characters", agent.MinTextLength, agent.MaxTextLength), http.StatusBadRequest)
		return
	}

	tracing.SetSpanAttributes(r.Context(),
		attribute.Int("text.length", len(req.Text)))

	analysisID := generateID()
	taskID, err := h.queueClient.EnqueueAnalyze(r.Context(), analysisID, req)
	if err != nil {
		respondError(w, fmt.Sprintf("Failed to enqueue analysis: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"job_id":  analysisID,
		"task_id": taskID,
		"status":  "queued",
		"message": "Analysis queued for processing",
	}, http.StatusAccepted)
}

// handleJobStatus reports on a queued analysis by its job id.
func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := r.URL.Path[len("/api/jobs/"):]
	if idx := strings.Index(jobID, "/"); idx != -1 {
		jobID = jobID[:idx]
	}

	if jobID == "" {
		respondError(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	analysis, err := h.db.GetAnalysis(jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSON(w, map[string]interface{}{
				"job_id":  jobID,
				"status":  "pending",
				"message": "Analysis not found - it may still be queued or has expired",
			}, http.StatusNotFound)
			return
		}
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"job_id":   jobID,
		"status":   "completed",
		"analysis": analysis,
	}, http.StatusOK)
}

// handleListAnalyses handles listing stored analyses with pagination
func (h *Handler) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 10
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	resultChan := make(chan []*models.AnalysisResult)
	errorChan := make(chan error)

	go func() {
		analyses, err := h.db.ListAnalyses(limit, offset)
		if err != nil {
			errorChan <- err
			return
		}
		resultChan <- analyses
	}()

	select {
	case analyses := <-resultChan:
		respondJSON(w, analyses, http.StatusOK)
	case err := <-errorChan:
		respondError(w, err.Error(), http.StatusInternalServerError)
	case <-time.After(30 * time.Second):
		respondError(w, "Request timeout", http.StatusRequestTimeout)
	}
}

// handleAnalysisOperations handles GET and DELETE for specific analyses
func (h *Handler) handleAnalysisOperations(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/api/analyses/"):]
	if id == "" {
		respondError(w, "Analysis ID is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getAnalysis(w, id)
	case http.MethodDelete:
		h.deleteAnalysis(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// getAnalysis retrieves a specific analysis
func (h *Handler) getAnalysis(w http.ResponseWriter, id string) {
	resultChan := make(chan *models.AnalysisResult)
	errorChan := make(chan error)

	go func() {
		analysis, err := h.db.GetAnalysis(id)
		if err != nil {
			errorChan <- err
			return
		}
		resultChan <- analysis
	}()

	select {
	case analysis := <-resultChan:
		respondJSON(w, analysis, http.StatusOK)
	case err := <-errorChan:
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, "analysis not found", http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
	case <-time.After(30 * time.Second):
		respondError(w, "Request timeout", http.StatusRequestTimeout)
	}
}

// deleteAnalysis deletes a specific analysis
func (h *Handler) deleteAnalysis(w http.ResponseWriter, id string) {
	errorChan := make(chan error)
	doneChan := make(chan bool)

	go func() {
		if err := h.db.DeleteAnalysis(id); err != nil {
			errorChan <- err
			return
		}
		doneChan <- true
	}()

	select {
	case <-doneChan:
		w.WriteHeader(http.StatusNoContent)
	case err := <-errorChan:
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, "analysis not found", http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
	case <-time.After(30 * time.Second):
		respondError(w, "Request timeout", http.StatusRequestTimeout)
	}
}

// handleProfile returns the current profile snapshot for an id.
func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Path[len("/api/profiles/"):]
	if idx := strings.Index(id, "/"); idx != -1 {
		id = id[:idx]
	}
	if id == "" {
		respondError(w, "Profile ID is required", http.StatusBadRequest)
		return
	}

	if !h.agent.Profiles().Exists(id) {
		respondError(w, "profile not found", http.StatusNotFound)
		return
	}

	respondJSON(w, h.agent.Profiles().Get(id), http.StatusOK)
}

// handleOverview summarizes all known profiles.
func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	profiles, err := h.db.ListProfiles()
	if err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	totalTexts := 0
	totalTerms := 0
	for _, p := range profiles {
		totalTexts += p.TextsAnalyzed
		totalTerms += len(p.KnownTerms)
	}

	respondJSON(w, map[string]interface{}{
		"profiles":      profiles,
		"profile_count": len(profiles),
		"texts_read":    totalTexts,
		"terms_learned": totalTerms,
		"llm_enabled":   h.agent.LLMEnabled(),
	}, http.StatusOK)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// generateID generates a UUID for an analysis
func generateID() string {
	uuid := make([]byte, 16)
	_, err := rand.Read(uuid)
	if err != nil {
		return time.Now().Format("20060102150405") + "-" + strconv.FormatInt(time.Now().UnixNano()%1000000, 10)
	}

	uuid[6] = (uuid[6] & 0x0f) | 0x40
	uuid[8] = (uuid[8] & 0x3f) | 0x80

	return fmt.Sprintf("%s-%s-%s-%s-%s",
		hex.EncodeToString(uuid[0:4]),
		hex.EncodeToString(uuid[4:6]),
		hex.EncodeToString(uuid[6:8]),
		hex.EncodeToString(uuid[8:10]),
		hex.EncodeToString(uuid[10:16]))
}

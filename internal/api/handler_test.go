package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zombar/readassist/internal/agent"
	"github.com/zombar/readassist/internal/database"
	"github.com/zombar/readassist/internal/models"
	"github.com/zombar/readassist/internal/profile"
)

func setupHandler(t *testing.T) (http.Handler, *database.DB) {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	ag := agent.New(agent.Config{
		Profiles: profile.NewStoreWithPersister(db),
	})

	return NewHandler(db, ag, nil), db
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAnalyzeEndpoint(t *testing.T) {
	h, _ := setupHandler(t)

	w := postJSON(t, h, "/api/analyze", models.AnalysisRequest{
		Text:        "Take 2 tablets by mouth twice daily with food.",
		UserContext: &models.UserContext{ProfileID: "u1"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result models.AnalysisResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if result.Band != "moderate" {
		t.Errorf("expected moderate band, got %q", result.Band)
	}
	if result.SimplifiedText == "" {
		t.Error("simplified_text should not be empty")
	}
	if result.LLMEnabled {
		t.Error("llm_enabled should be false in this configuration")
	}
	if result.ID == "" {
		t.Error("expected a generated analysis id")
	}
}

func TestAnalyzeEndpointRejectsShortText(t *testing.T) {
	h, _ := setupHandler(t)

	w := postJSON(t, h, "/api/analyze", models.AnalysisRequest{Text: "Hi"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected an error message")
	}
}

func TestAnalyzeEndpointRejectsBadJSON(t *testing.T) {
	h, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAnalyzeEndpointMethodNotAllowed(t *testing.T) {
	h, _ := setupHandler(t)

	if w := get(h, "/api/analyze"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestAnalyzeStoresHistory(t *testing.T) {
	h, db := setupHandler(t)

	w := postJSON(t, h, "/api/analyze", models.AnalysisRequest{
		Text: "Monitor your blood pressure each morning.",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var result models.AnalysisResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	stored, err := db.GetAnalysis(result.ID)
	if err != nil {
		t.Fatalf("expected stored analysis: %v", err)
	}
	if stored.OriginalText != "Monitor your blood pressure each morning." {
		t.Errorf("stored text mismatch: %q", stored.OriginalText)
	}
}

func TestAsyncEndpointUnavailableWithoutQueue(t *testing.T) {
	h, _ := setupHandler(t)

	w := postJSON(t, h, "/api/analyze/async", models.AnalysisRequest{
		Text: "Take 2 tablets by mouth twice daily with food.",
	})

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a queue, got %d", w.Code)
	}
}

type fakeQueue struct {
	lastID string
	err    error
}

func (f *fakeQueue) EnqueueAnalyze(ctx context.Context, analysisID string, req models.AnalysisRequest) (string, error) {
	f.lastID = analysisID
	return "task-1", f.err
}

func TestAsyncEndpointEnqueues(t *testing.T) {
	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	q := &fakeQueue{}
	ag := agent.New(agent.Config{Profiles: profile.NewStore()})
	h := NewHandler(db, ag, q)

	w := postJSON(t, h, "/api/analyze/async", models.AnalysisRequest{
		Text: "Take 2 tablets by mouth twice daily with food.",
	})

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "queued" {
		t.Errorf("expected queued status, got %v", body["status"])
	}
	if body["job_id"] != q.lastID {
		t.Errorf("job id mismatch: %v vs %v", body["job_id"], q.lastID)
	}
}

func TestAsyncEndpointValidates(t *testing.T) {
	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	q := &fakeQueue{err: errors.New("should not be called")}
	ag := agent.New(agent.Config{Profiles: profile.NewStore()})
	h := NewHandler(db, ag, q)

	w := postJSON(t, h, "/api/analyze/async", models.AnalysisRequest{Text: "Hi"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if q.lastID != "" {
		t.Error("invalid input must not be enqueued")
	}
}

func TestAsyncEndpointCountsCharactersNotBytes(t *testing.T) {
	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	q := &fakeQueue{err: errors.New("should not be called")}
	ag := agent.New(agent.Config{Profiles: profile.NewStore()})
	h := NewHandler(db, ag, q)

	// Five characters, fifteen bytes: still under the minimum length.
	w := postJSON(t, h, "/api/analyze/async", models.AnalysisRequest{Text: "薬を飲んで"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for short multibyte text, got %d", w.Code)
	}
	if q.lastID != "" {
		t.Error("invalid input must not be enqueued")
	}
}

func TestServerErrorsAreLogged(t *testing.T) {
	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	db.Close()

	var buf bytes.Buffer
	h := &Handler{
		db:     db,
		agent:  agent.New(agent.Config{Profiles: profile.NewStore()}),
		mux:    http.NewServeMux(),
		logger: slog.New(slog.NewJSONHandler(&buf, nil)),
	}
	h.setupRoutes()

	w := get(h.mux, "/api/jobs/job-1")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from a failed store, got %d", w.Code)
	}
	if !strings.Contains(buf.String(), "http_error") {
		t.Errorf("expected a structured http_error entry, got %q", buf.String())
	}
}

func TestProfileEndpoint(t *testing.T) {
	h, _ := setupHandler(t)

	if w := get(h, "/api/profiles/u7"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unseen profile, got %d", w.Code)
	}

	w := postJSON(t, h, "/api/analyze", models.AnalysisRequest{
		Text:        "Check the dosage with your pharmacist before starting.",
		UserContext: &models.UserContext{ProfileID: "u7"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("analyze failed: %d", w.Code)
	}

	w = get(h, "/api/profiles/u7")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after analysis, got %d", w.Code)
	}

	var p models.UserProfile
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if p.TextsAnalyzed != 1 {
		t.Errorf("expected texts_read 1, got %d", p.TextsAnalyzed)
	}
	if !p.Knows("dosage") {
		t.Errorf("expected dosage among known terms, got %v", p.KnownTerms)
	}
}

func TestJobStatusPending(t *testing.T) {
	h, _ := setupHandler(t)

	w := get(h, "/api/jobs/unknown-job")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "pending" {
		t.Errorf("expected pending status, got %v", body["status"])
	}
}

func TestListAnalysesEndpoint(t *testing.T) {
	h, _ := setupHandler(t)

	for i := 0; i < 3; i++ {
		w := postJSON(t, h, "/api/analyze", models.AnalysisRequest{
			Text: "Drink plenty of water with every meal today.",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("analyze failed: %d", w.Code)
		}
	}

	w := get(h, "/api/analyses?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var results []models.AnalysisResult
	if err := json.NewDecoder(w.Body).Decode(&results); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestOverviewEndpoint(t *testing.T) {
	h, _ := setupHandler(t)

	w := postJSON(t, h, "/api/analyze", models.AnalysisRequest{
		Text:        "Monitor your blood pressure each morning.",
		UserContext: &models.UserContext{ProfileID: "u8"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("analyze failed: %d", w.Code)
	}

	w = get(h, "/api/overview")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode overview: %v", err)
	}
	if body["profile_count"].(float64) < 1 {
		t.Errorf("expected at least one profile, got %v", body["profile_count"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := setupHandler(t)

	w := get(h, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected ok status, got %v", body["status"])
	}
	if body["llm_enabled"] != false {
		t.Errorf("expected llm_enabled false, got %v", body["llm_enabled"])
	}
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/readassist/internal/agent"
	"github.com/zombar/readassist/internal/database"
	"github.com/zombar/readassist/internal/profile"
)

func newTestWorker(t *testing.T) *Worker {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	ag := agent.New(agent.Config{Profiles: profile.NewStoreWithPersister(db)})

	// The Redis address is never dialed: handlers are invoked directly.
	return NewWorker(WorkerConfig{RedisAddr: "localhost:6379", Concurrency: 1}, db, ag)
}

func analyzeTask(t *testing.T, payload AnalyzePayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(TypeAnalyze, data)
}

func TestHandleAnalyze(t *testing.T) {
	w := newTestWorker(t)

	task := analyzeTask(t, AnalyzePayload{
		AnalysisID: "job-1",
		Text:       "Take 2 tablets by mouth twice daily with food.",
		ProfileID:  "u1",
	})

	require.NoError(t, w.handleAnalyze(context.Background(), task))

	stored, err := w.db.GetAnalysis("job-1")
	require.NoError(t, err)
	assert.Equal(t, "moderate", stored.Band)
	assert.NotEmpty(t, stored.SimplifiedText)
	assert.Equal(t, 1, w.agent.Profiles().Get("u1").TextsAnalyzed)
}

func TestHandleAnalyzeInvalidInputSkipsRetry(t *testing.T) {
	w := newTestWorker(t)

	task := analyzeTask(t, AnalyzePayload{
		AnalysisID: "job-2",
		Text:       "Hi",
	})

	err := w.handleAnalyze(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "validation failures must not be retried")

	_, err = w.db.GetAnalysis("job-2")
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func TestHandleAnalyzeSaveFailureLeavesProfileUntouched(t *testing.T) {
	brokenDB, err := database.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, brokenDB.Migrate())
	require.NoError(t, brokenDB.Close())

	liveDB, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { liveDB.Close() })
	require.NoError(t, liveDB.Migrate())

	ag := agent.New(agent.Config{Profiles: profile.NewStore()})
	broken := NewWorker(WorkerConfig{RedisAddr: "localhost:6379", Concurrency: 1}, brokenDB, ag)
	live := NewWorker(WorkerConfig{RedisAddr: "localhost:6379", Concurrency: 1}, liveDB, ag)

	payload := AnalyzePayload{
		AnalysisID: "job-3",
		Text:       "Take 2 tablets by mouth twice daily with food.",
		ProfileID:  "u2",
	}

	err = broken.handleAnalyze(context.Background(), analyzeTask(t, payload))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry), "storage failures should be retried")
	assert.Equal(t, 0, ag.Profiles().Get("u2").TextsAnalyzed,
		"a failed save must not advance texts_read")

	// The retry lands on a healthy store and counts the analysis once.
	require.NoError(t, live.handleAnalyze(context.Background(), analyzeTask(t, payload)))

	stored, err := liveDB.GetAnalysis("job-3")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Progress.TextsRead)
	assert.Equal(t, 1, ag.Profiles().Get("u2").TextsAnalyzed)
}

func TestHandleAnalyzeBadPayload(t *testing.T) {
	w := newTestWorker(t)

	task := asynq.NewTask(TypeAnalyze, []byte("{not json"))
	err := w.handleAnalyze(context.Background(), task)
	require.Error(t, err)
}

package events_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stretchr/testify/assert"

	"github.com/designduel/grading-pipeline/internal/contract"
	"github.com/designduel/grading-pipeline/internal/events"
	"github.com/designduel/grading-pipeline/internal/storage/models"
	"github.com/designduel/grading-pipeline/internal/storage/sqlite"
	"github.com/designduel/grading-pipeline/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console", "stdout"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestLog(t *testing.T) (*events.Log, string) {
	t.Helper()

	db, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))

	require.NoError(t, db.UpsertProblem(context.Background(), &models.Problem{
		ID: "p1", Title: "Design a URL Shortener", Difficulty: "medium", Prompt: "...",
	}))

	submissionID := "sub-1"
	require.NoError(t, db.InsertSubmission(context.Background(), &models.Submission{
		ID: submissionID, ProblemID: "p1", Status: models.SubmissionQueued,
	}))

	return events.NewLog(db), submissionID
}

func TestLog_OrdinalsAreMonotonicAndGapFree(t *testing.T) {
	log, submissionID := newTestLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, submissionID, contract.StatusQueued, "", "queued", 0))
	require.NoError(t, log.Append(ctx, submissionID, contract.StatusProcessing, "", "transcribing", 0.1))
	require.NoError(t, log.Append(ctx, submissionID, contract.StatusClarify, "clarify", "grading clarify", 0.3))

	all, err := log.Since(ctx, submissionID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	for i, e := range all {
		assert.Equal(t, i+1, e.Ordinal)
	}
}

func TestLog_SinceReturnsOnlyNewerEvents(t *testing.T) {
	log, submissionID := newTestLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, submissionID, contract.StatusQueued, "", "queued", 0))
	require.NoError(t, log.Append(ctx, submissionID, contract.StatusProcessing, "", "transcribing", 0.1))

	first, err := log.Since(ctx, submissionID, 0)
	require.NoError(t, err)
	require.Len(t, first, 2)

	onlyNew, err := log.Since(ctx, submissionID, first[0].Ordinal)
	require.NoError(t, err)
	require.Len(t, onlyNew, 1)
	assert.Equal(t, contract.StatusProcessing, onlyNew[0].Status)
}

func TestLog_ExactlyOneTerminalEvent(t *testing.T) {
	log, submissionID := newTestLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, submissionID, contract.StatusQueued, "", "queued", 0))
	require.NoError(t, log.Append(ctx, submissionID, contract.StatusComplete, "", "done", 1.0))

	all, err := log.Since(ctx, submissionID, 0)
	require.NoError(t, err)

	terminalCount := 0
	for _, e := range all {
		if e.Status.IsTerminal() {
			terminalCount++
		}
	}
	assert.Equal(t, 1, terminalCount)
}

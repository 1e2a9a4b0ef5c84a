// Package events wraps the append-only Event Log for submission progress:
// internal/storage/sqlite is the durable backing store, this package owns
// ordinal bookkeeping semantics and the read-side polling used by the SSE
// stream handler.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/designduel/grading-pipeline/internal/contract"
	"github.com/designduel/grading-pipeline/internal/metrics"
	"github.com/designduel/grading-pipeline/internal/storage/models"
	"github.com/designduel/grading-pipeline/internal/storage/sqlite"
)

type Event struct {
	SubmissionID string
	Ordinal      int
	Status       contract.StreamStatus
	Phase        string
	Message      string
	Progress     float64
	CreatedAt    time.Time
}

type Log struct {
	db *sqlite.Client
}

func NewLog(db *sqlite.Client) *Log {
	return &Log{db: db}
}

// Append adds the next event for a submission. Once a terminal status
// (complete or failed) has been appended for a submission, the caller must
// never append again: the pipeline driver enforces this by returning
// immediately after its terminal write.
func (l *Log) Append(ctx context.Context, submissionID string, status contract.StreamStatus, phase, message string, progress float64) error {
	e := &models.GradingEvent{
		SubmissionID: submissionID,
		Status:       models.SubmissionStatus(status),
		Phase:        phase,
		Message:      message,
		Progress:     progress,
		CreatedAt:    time.Now(),
	}

	if err := l.db.AppendEvent(ctx, e); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	metrics.EventsAppendedTotal.WithLabelValues(string(status)).Inc()
	return nil
}

// Since returns every event for submissionID with ordinal strictly greater
// than afterOrdinal, in ordinal order — the shape an SSE resume-from-offset
// client needs.
func (l *Log) Since(ctx context.Context, submissionID string, afterOrdinal int) ([]Event, error) {
	rows, err := l.db.ListEvents(ctx, submissionID, afterOrdinal)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, Event{
			SubmissionID: r.SubmissionID,
			Ordinal:      r.Ordinal,
			Status:       contract.StreamStatus(r.Status),
			Phase:        r.Phase,
			Message:      r.Message,
			Progress:     r.Progress,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out, nil
}

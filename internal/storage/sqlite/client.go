// Package sqlite is the sole persistence layer for the grading pipeline: the
// Submission Registry, Problem Catalog, Event Log, and Result Store all live
// in one SQLite database, schema-versioned by internal/storage/migrations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/designduel/grading-pipeline/internal/storage/migrations"
	"github.com/designduel/grading-pipeline/internal/storage/models"
	"github.com/designduel/grading-pipeline/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Serialize writers: the pipeline driver is single-flight per submission
	// but many submissions can be in flight at once, so cap the pool rather
	// than hit SQLITE_BUSY under concurrent event appends.
	db.SetMaxOpenConns(1)

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Migrate(ctx context.Context) error {
	if err := migrations.Up(ctx, c.db); err != nil {
		return err
	}
	logger.Info("SQLite schema migrated")
	return nil
}

// MigrateDown reverts every applied migration, leaving an empty database.
// Used only by the gradectl admin CLI; the API server never calls this.
func (c *Client) MigrateDown(ctx context.Context) error {
	if err := migrations.DownAll(ctx, c.db); err != nil {
		return err
	}
	logger.Info("SQLite schema reverted")
	return nil
}

// --- Problem Catalog ---

func (c *Client) UpsertProblem(ctx context.Context, p *models.Problem) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO problems (id, title, difficulty, prompt, constraints, rubric_definition, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			difficulty = excluded.difficulty,
			prompt = excluded.prompt,
			constraints = excluded.constraints,
			rubric_definition = excluded.rubric_definition
	`, p.ID, p.Title, p.Difficulty, p.Prompt, p.Constraints, p.RubricDefinition, p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert problem: %w", err)
	}
	return nil
}

func (c *Client) GetProblem(ctx context.Context, id string) (*models.Problem, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, title, difficulty, prompt, constraints, rubric_definition, created_at
		FROM problems WHERE id = ?
	`, id)

	var p models.Problem
	var createdAt int64
	if err := row.Scan(&p.ID, &p.Title, &p.Difficulty, &p.Prompt, &p.Constraints, &p.RubricDefinition, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("problem %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to get problem: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

func (c *Client) ListProblems(ctx context.Context) ([]*models.Problem, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, title, difficulty, prompt, constraints, rubric_definition, created_at
		FROM problems ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}
	defer rows.Close()

	var out []*models.Problem
	for rows.Next() {
		var p models.Problem
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Title, &p.Difficulty, &p.Prompt, &p.Constraints, &p.RubricDefinition, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan problem: %w", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &p)
	}
	return out, rows.Err()
}

// --- Submission Registry ---

func (c *Client) InsertSubmission(ctx context.Context, s *models.Submission) error {
	phaseTimes, err := json.Marshal(s.PhaseTimes)
	if err != nil {
		return fmt.Errorf("failed to marshal phase times: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO submissions (id, problem_id, status, current_phase, phase_times, created_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.ProblemID, s.Status, s.CurrentPhase, string(phaseTimes), s.CreatedAt.Unix(), s.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func (c *Client) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, problem_id, status, current_phase, phase_times, created_at, completed_at, error_message
		FROM submissions WHERE id = ?
	`, id)
	return scanSubmission(row)
}

func scanSubmission(row *sql.Row) (*models.Submission, error) {
	var s models.Submission
	var createdAt int64
	var completedAt sql.NullInt64
	var phaseTimes string

	if err := row.Scan(&s.ID, &s.ProblemID, &s.Status, &s.CurrentPhase, &phaseTimes, &createdAt, &completedAt, &s.ErrorMessage); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("submission not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	s.CreatedAt = time.Unix(createdAt, 0)
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		s.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(phaseTimes), &s.PhaseTimes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal phase times: %w", err)
	}
	return &s, nil
}

// UpdateStatus transitions a submission's status and current phase. Callers
// (internal/pipeline) are responsible for only ever moving status forward;
// this method does not itself enforce the state machine.
func (c *Client) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus, phase string, errMsg string) error {
	var completedAt interface{}
	if status == models.SubmissionComplete || status == models.SubmissionFailed {
		completedAt = time.Now().Unix()
	}

	_, err := c.db.ExecContext(ctx, `
		UPDATE submissions SET status = ?, current_phase = ?, error_message = ?, completed_at = COALESCE(?, completed_at)
		WHERE id = ?
	`, status, phase, errMsg, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update submission status: %w", err)
	}
	return nil
}

// DeleteSubmission removes a submission and, via ON DELETE CASCADE, every
// artifact, transcript, event, and result row owned by it. This is the only
// destruction path for a submission: nothing else in the pipeline ever
// deletes a row.
func (c *Client) DeleteSubmission(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	return nil
}

func (c *Client) UpdatePhaseTimes(ctx context.Context, id string, phaseTimes map[string]float64) error {
	data, err := json.Marshal(phaseTimes)
	if err != nil {
		return fmt.Errorf("failed to marshal phase times: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `UPDATE submissions SET phase_times = ? WHERE id = ?`, string(data), id)
	if err != nil {
		return fmt.Errorf("failed to update phase times: %w", err)
	}
	return nil
}

// --- Artifacts ---

func (c *Client) InsertArtifact(ctx context.Context, a *models.SubmissionArtifact) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO submission_artifacts (
			id, submission_id, phase,
			canvas_storage_path, canvas_mime, canvas_hash, canvas_size_bytes,
			audio_storage_path, audio_mime, audio_hash, audio_size_bytes,
			created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(submission_id, phase) DO UPDATE SET
			canvas_storage_path = excluded.canvas_storage_path,
			canvas_mime = excluded.canvas_mime,
			canvas_hash = excluded.canvas_hash,
			canvas_size_bytes = excluded.canvas_size_bytes,
			audio_storage_path = excluded.audio_storage_path,
			audio_mime = excluded.audio_mime,
			audio_hash = excluded.audio_hash,
			audio_size_bytes = excluded.audio_size_bytes
	`, a.ID, a.SubmissionID, a.Phase,
		a.CanvasStoragePath, a.CanvasMIME, a.CanvasHash, a.CanvasSizeBytes,
		nullableString(a.AudioStoragePath), nullableString(a.AudioMIME), nullableString(a.AudioHash), nullableInt64(a.HasAudio, a.AudioSizeBytes),
		a.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt64(present bool, v int64) interface{} {
	if !present {
		return nil
	}
	return v
}

func (c *Client) ListArtifacts(ctx context.Context, submissionID string) ([]*models.SubmissionArtifact, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, submission_id, phase,
		       canvas_storage_path, canvas_mime, canvas_hash, canvas_size_bytes,
		       audio_storage_path, audio_mime, audio_hash, audio_size_bytes,
		       created_at
		FROM submission_artifacts WHERE submission_id = ?
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var out []*models.SubmissionArtifact
	for rows.Next() {
		var a models.SubmissionArtifact
		var createdAt int64
		var audioPath, audioMIME, audioHash sql.NullString
		var audioSize sql.NullInt64
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.Phase,
			&a.CanvasStoragePath, &a.CanvasMIME, &a.CanvasHash, &a.CanvasSizeBytes,
			&audioPath, &audioMIME, &audioHash, &audioSize,
			&createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		a.CreatedAt = time.Unix(createdAt, 0)
		if audioPath.Valid {
			a.AudioStoragePath = audioPath.String
			a.AudioMIME = audioMIME.String
			a.AudioHash = audioHash.String
			a.AudioSizeBytes = audioSize.Int64
			a.HasAudio = true
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// --- Transcripts ---

func (c *Client) InsertTranscript(ctx context.Context, t *models.TranscriptSnippet) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO submission_transcripts (id, submission_id, phase, timestamp_sec, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.SubmissionID, t.Phase, t.TimestampSec, t.Text, t.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert transcript snippet: %w", err)
	}
	return nil
}

func (c *Client) ListTranscripts(ctx context.Context, submissionID, phase string) ([]*models.TranscriptSnippet, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, submission_id, phase, timestamp_sec, text, created_at
		FROM submission_transcripts WHERE submission_id = ? AND phase = ?
		ORDER BY timestamp_sec ASC
	`, submissionID, phase)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var out []*models.TranscriptSnippet
	for rows.Next() {
		var t models.TranscriptSnippet
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.SubmissionID, &t.Phase, &t.TimestampSec, &t.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &t)
	}
	return out, rows.Err()
}

// --- Event Log ---

// AppendEvent assigns the next ordinal for submissionID inside a transaction
// so concurrent appends (there should never be more than one writer per
// submission, but the pool is shared) cannot produce a gap or duplicate.
func (c *Client) AppendEvent(ctx context.Context, e *models.GradingEvent) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin event append transaction: %w", err)
	}
	defer tx.Rollback()

	var maxOrdinal sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(ordinal) FROM grading_events WHERE submission_id = ?`, e.SubmissionID).Scan(&maxOrdinal); err != nil {
		return fmt.Errorf("failed to read max ordinal: %w", err)
	}

	e.Ordinal = int(maxOrdinal.Int64) + 1

	_, err = tx.ExecContext(ctx, `
		INSERT INTO grading_events (submission_id, ordinal, status, phase, message, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.SubmissionID, e.Ordinal, e.Status, e.Phase, e.Message, e.Progress, e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to append grading event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event append: %w", err)
	}

	logger.Debug("Grading event appended",
		zap.String("submission_id", e.SubmissionID),
		zap.Int("ordinal", e.Ordinal),
		zap.String("status", string(e.Status)),
	)
	return nil
}

func (c *Client) ListEvents(ctx context.Context, submissionID string, afterOrdinal int) ([]*models.GradingEvent, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, submission_id, ordinal, status, phase, message, progress, created_at
		FROM grading_events WHERE submission_id = ? AND ordinal > ?
		ORDER BY ordinal ASC
	`, submissionID, afterOrdinal)
	if err != nil {
		return nil, fmt.Errorf("failed to list grading events: %w", err)
	}
	defer rows.Close()

	var out []*models.GradingEvent
	for rows.Next() {
		var e models.GradingEvent
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.SubmissionID, &e.Ordinal, &e.Status, &e.Phase, &e.Message, &e.Progress, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan grading event: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// --- Result Store ---

func (c *Client) UpsertResult(ctx context.Context, submissionID, resultJSON string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO grading_results (submission_id, result_json, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(submission_id) DO UPDATE SET result_json = excluded.result_json
	`, submissionID, resultJSON, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert grading result: %w", err)
	}
	return nil
}

func (c *Client) GetResult(ctx context.Context, submissionID string) (string, error) {
	var resultJSON string
	err := c.db.QueryRowContext(ctx, `SELECT result_json FROM grading_results WHERE submission_id = ?`, submissionID).Scan(&resultJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("result for submission %s not found: %w", submissionID, err)
		}
		return "", fmt.Errorf("failed to get grading result: %w", err)
	}
	return resultJSON, nil
}

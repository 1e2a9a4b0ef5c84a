// Package models holds the plain persistence structs behind the Submission
// Registry, Problem Catalog, and Event Log (§3/§6 of the grading pipeline).
package models

import "time"

// Problem is a read-only catalog entry. The catalog is seeded once (or
// imported, see internal/catalog) and never mutated by the grading pipeline.
type Problem struct {
	ID                string
	Title             string
	Difficulty        string
	Prompt            string
	Constraints       string
	RubricDefinition  string // JSON-encoded rubric weighting/criteria notes
	CreatedAt         time.Time
}

// SubmissionStatus is the v2 lifecycle status stored in the registry. See
// internal/contract for the full StreamStatus enum and legacy mapping.
type SubmissionStatus string

const (
	SubmissionQueued     SubmissionStatus = "queued"
	SubmissionProcessing SubmissionStatus = "processing"
	SubmissionComplete   SubmissionStatus = "complete"
	SubmissionFailed     SubmissionStatus = "failed"
)

// Submission is the single row of record for one candidate's run through the
// pipeline. CurrentPhase and Status move forward only; Status is absorbing
// once it reaches complete or failed.
type Submission struct {
	ID           string
	ProblemID    string
	Status       SubmissionStatus
	CurrentPhase string
	PhaseTimes   map[string]float64 // seconds spent per phase, as reported by the client
	CreatedAt    time.Time
	CompletedAt  *time.Time
	ErrorMessage string
}

// SubmissionArtifact is the one row per (submission, phase) holding the
// required canvas snapshot and the optional audio recording for that phase.
type SubmissionArtifact struct {
	ID                string
	SubmissionID      string
	Phase             string
	CanvasStoragePath string
	CanvasMIME        string
	CanvasHash        string
	CanvasSizeBytes   int64
	AudioStoragePath  string // empty when no audio was uploaded for this phase
	AudioMIME         string
	AudioHash         string
	AudioSizeBytes    int64
	HasAudio          bool
	CreatedAt         time.Time
}

// TranscriptSnippet is one timestamped utterance transcribed for a phase.
type TranscriptSnippet struct {
	ID            string
	SubmissionID  string
	Phase         string
	TimestampSec  float64
	Text          string
	CreatedAt     time.Time
}

// GradingEvent is one append-only row in the Event Log. Ordinal is strictly
// monotonic and gap-free per submission; exactly one event per submission
// carries a terminal status (complete or failed).
type GradingEvent struct {
	ID           int64
	SubmissionID string
	Ordinal      int
	Status       SubmissionStatus
	Phase        string
	Message      string
	Progress     float64
	CreatedAt    time.Time
}

// GradingResult stores the assembled FinalResult v2 payload, persisted once
// the pipeline reaches a terminal success state. It is the durable backing
// for repeat GET /submissions/{id} reads and is never recomputed afterward.
type GradingResult struct {
	SubmissionID string
	ResultJSON   string // contract-exact FinalResult v2, marshaled
	CreatedAt    time.Time
}

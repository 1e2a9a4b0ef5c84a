// Package contract defines the wire-exact FinalResult v2 payload returned by
// GET /submissions/{id}, the legacy v1 status compatibility shims, and the
// Contract Guard that normalizes an assembled result before it ever reaches
// a client or the result store.
package contract

import "time"

type RubricStatus string

const (
	RubricPass    RubricStatus = "pass"
	RubricPartial RubricStatus = "partial"
	RubricFail    RubricStatus = "fail"
)

// Phase is one of the four fixed interview phases, always processed and
// reported in this order.
type Phase string

const (
	PhaseClarify  Phase = "clarify"
	PhaseEstimate Phase = "estimate"
	PhaseDesign   Phase = "design"
	PhaseExplain  Phase = "explain"
)

// PhaseOrder is the fixed, non-negotiable processing and reporting order.
var PhaseOrder = [4]Phase{PhaseClarify, PhaseEstimate, PhaseDesign, PhaseExplain}

type TranscriptSnippet struct {
	TimestampSec float64 `json:"timestamp_sec"`
	Text         string  `json:"text"`
}

type EvidenceItem struct {
	Phase       Phase               `json:"phase"`
	SnapshotURL string              `json:"snapshot_url"`
	Transcripts []TranscriptSnippet `json:"transcripts"`
	Noticed     map[string]string   `json:"noticed,omitempty"`
}

type PhaseScore struct {
	Phase   Phase    `json:"phase"`
	Score   float64  `json:"score" validate:"gte=0,lte=10"`
	Bullets []string `json:"bullets" validate:"min=3,max=6,dive,min=1"`
}

type RubricItem struct {
	Label        string       `json:"label"`
	Description  string       `json:"description"`
	Score        float64      `json:"score"`
	Status       RubricStatus `json:"status"`
	ComputedFrom []Phase      `json:"computed_from"`
}

type RadarDimension struct {
	Skill string  `json:"dimension"`
	Score float64 `json:"score" validate:"gte=0,lte=10"`
	Label string  `json:"label,omitempty"`
}

type StrengthWeakness struct {
	Phase        Phase    `json:"phase"`
	Text         string   `json:"text"`
	TimestampSec *float64 `json:"timestamp_sec,omitempty"`
}

type NextAttemptItem struct {
	WhatWentWrong string   `json:"what_went_wrong" validate:"required"`
	DoNextTime    []string `json:"do_next_time" validate:"min=2,max=3,dive,min=1"`
}

type ReferenceOutlineSection struct {
	Section string   `json:"section"`
	Bullets []string `json:"bullets"`
}

type ReferenceOutline struct {
	Sections []ReferenceOutlineSection `json:"sections"`
}

type ProblemMetadata struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Difficulty string `json:"difficulty"`
}

// FinalResult is the complete, contract-exact grading result. The pipeline
// runs the Contract Guard (guard.go) on every terminal result before
// persisting it; a result that passes Guard satisfies the invariants called
// out in the field comments below.
type FinalResult struct {
	ResultVersion int             `json:"result_version"`
	SubmissionID  string          `json:"submission_id"`
	Problem       ProblemMetadata `json:"problem"`
	PhaseTimes    map[Phase]int   `json:"phase_times"`
	CreatedAt     time.Time       `json:"submitted_at"`
	CompletedAt   *time.Time      `json:"graded_at,omitempty"`

	// PhaseScores always has exactly 4 entries in PhaseOrder.
	PhaseScores []PhaseScore `json:"phase_scores" validate:"len=4,dive"`

	// Evidence always has exactly 4 entries in PhaseOrder.
	Evidence []EvidenceItem `json:"evidence" validate:"len=4"`

	Rubric []RubricItem     `json:"rubric" validate:"min=1,dive"`
	Radar  []RadarDimension `json:"radar" validate:"len=4,dive"` // always exactly 4: clarity, structure, power, wisdom

	OverallScore float64 `json:"overall_score" validate:"gte=0,lte=10"`
	Verdict      string  `json:"verdict" validate:"required,oneof=hire maybe no-hire"`
	Summary      string  `json:"summary" validate:"required"`

	Strengths  []StrengthWeakness `json:"strengths"`
	Weaknesses []StrengthWeakness `json:"weaknesses"`
	Highlights []StrengthWeakness `json:"highlights"`

	// NextAttemptPlan always has exactly 3 entries.
	NextAttemptPlan []NextAttemptItem `json:"next_attempt_plan" validate:"len=3,dive"`
	// FollowUpQuestions always has at least 3 entries.
	FollowUpQuestions []string         `json:"follow_up_questions" validate:"min=3,dive,min=1"`
	ReferenceOutline  ReferenceOutline `json:"reference_outline" validate:"required"`
}

const CurrentResultVersion = 2

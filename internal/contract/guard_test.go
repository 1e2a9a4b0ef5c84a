package contract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designduel/grading-pipeline/internal/contract"
)

// validFinalResult builds a FinalResult whose numbers are mutually
// consistent under internal/rubric's formulas, satisfying every Guard
// check as-is; individual tests mutate a copy to exercise repair/rejection.
func validFinalResult() *contract.FinalResult {
	phaseScores := []contract.PhaseScore{
		{Phase: contract.PhaseClarify, Score: 8.0, Bullets: []string{"clear requirements", "good scope", "asked questions"}},
		{Phase: contract.PhaseEstimate, Score: 7.5, Bullets: []string{"reasonable QPS", "storage math ok", "rounded sanely"}},
		{Phase: contract.PhaseDesign, Score: 6.0, Bullets: []string{"missing cache", "no sharding plan", "basic components present"}},
		{Phase: contract.PhaseExplain, Score: 9.0, Bullets: []string{"clear tradeoffs", "handled follow-ups", "confident delivery"}},
	}

	evidence := []contract.EvidenceItem{
		{Phase: contract.PhaseClarify, SnapshotURL: "/artifacts/a/clarify.png"},
		{Phase: contract.PhaseEstimate, SnapshotURL: "/artifacts/a/estimate.png"},
		{Phase: contract.PhaseDesign, SnapshotURL: "/artifacts/a/design.png"},
		{Phase: contract.PhaseExplain, SnapshotURL: "/artifacts/a/explain.png"},
	}

	radar := []contract.RadarDimension{
		{Skill: "clarity", Label: "Clarity", Score: 0.5*8.0 + 0.2*7.5 + 0.2*6.0 + 0.1*9.0},
		{Skill: "structure", Label: "Structure", Score: 0.6*6.0 + 0.2*9.0 + 0.1*8.0 + 0.1*7.5},
		{Skill: "power", Label: "Power", Score: 0.4*7.5 + 0.4*6.0 + 0.2*9.0},
		{Skill: "wisdom", Label: "Wisdom", Score: 0.6*9.0 + 0.3*6.0 + 0.1*8.0},
	}

	overall := (8.0 + 7.5 + 6.0 + 9.0) / 4.0

	rubricItems := []contract.RubricItem{
		{
			Label: "Requirements & estimation", Description: "clarify + estimate",
			Score: 0.7*8.0 + 0.3*7.5, Status: contract.RubricPartial,
			ComputedFrom: []contract.Phase{contract.PhaseClarify, contract.PhaseEstimate},
		},
		{
			Label: "Design depth", Description: "design + explain",
			Score: 0.6*6.0 + 0.4*9.0, Status: contract.RubricPartial,
			ComputedFrom: []contract.Phase{contract.PhaseDesign, contract.PhaseExplain},
		},
	}
	rubricItems[0].Status = contract.RubricStatus(ruleStatus(rubricItems[0].Score))
	rubricItems[1].Status = contract.RubricStatus(ruleStatus(rubricItems[1].Score))

	sections := make([]contract.ReferenceOutlineSection, 0, 4)
	for _, name := range []string{"Requirements", "Capacity", "High-level design", "Deep dive"} {
		sections = append(sections, contract.ReferenceOutlineSection{
			Section: name,
			Bullets: []string{"point one", "point two", "point three"},
		})
	}

	return &contract.FinalResult{
		ResultVersion: contract.CurrentResultVersion,
		SubmissionID:  "11111111-1111-1111-1111-111111111111",
		Problem:       contract.ProblemMetadata{ID: "p1", Name: "Design a URL Shortener", Difficulty: "medium"},
		PhaseTimes: map[contract.Phase]int{
			contract.PhaseClarify: 300, contract.PhaseEstimate: 300, contract.PhaseDesign: 600, contract.PhaseExplain: 300,
		},
		CreatedAt:    time.Unix(0, 0),
		PhaseScores:  phaseScores,
		Evidence:     evidence,
		Rubric:       rubricItems,
		Radar:        radar,
		OverallScore: overall,
		Verdict:      "hire",
		Summary:      "Strong performance across all phases.",
		NextAttemptPlan: []contract.NextAttemptItem{
			{WhatWentWrong: "Didn't mention sharding.", DoNextTime: []string{"Bring up sharding early.", "Practice data partitioning."}},
			{WhatWentWrong: "Skipped cache discussion.", DoNextTime: []string{"Default to adding a cache layer.", "Explain cache invalidation."}},
			{WhatWentWrong: "Rushed the estimate phase.", DoNextTime: []string{"Slow down on capacity math.", "Double check units."}},
		},
		FollowUpQuestions: []string{"How would you handle a hot key?", "What happens on a cache miss storm?", "How do you roll back a bad deploy?"},
		ReferenceOutline:  contract.ReferenceOutline{Sections: sections},
	}
}

func ruleStatus(score float64) string {
	switch {
	case score >= 8.0:
		return "pass"
	case score >= 5.0:
		return "partial"
	default:
		return "fail"
	}
}

func TestGuard_AcceptsWellFormedResult(t *testing.T) {
	r := validFinalResult()
	require.NoError(t, contract.Guard(r))
}

func TestGuard_RejectsWrongResultVersion(t *testing.T) {
	r := validFinalResult()
	r.ResultVersion = 1
	assert.Error(t, contract.Guard(r))
}

func TestGuard_RepairsVerdictCasing(t *testing.T) {
	r := validFinalResult()
	r.Verdict = "  HIRE  "
	require.NoError(t, contract.Guard(r))
	assert.Equal(t, "hire", r.Verdict)
}

func TestGuard_RepairsScrambledPhaseOrder(t *testing.T) {
	r := validFinalResult()
	r.PhaseScores[0], r.PhaseScores[2] = r.PhaseScores[2], r.PhaseScores[0]
	r.Evidence[1], r.Evidence[3] = r.Evidence[3], r.Evidence[1]

	require.NoError(t, contract.Guard(r))
	for i, want := range contract.PhaseOrder {
		assert.Equal(t, want, r.PhaseScores[i].Phase)
		assert.Equal(t, want, r.Evidence[i].Phase)
	}
}

func TestGuard_TruncatesOverLongBulletsAndPlans(t *testing.T) {
	r := validFinalResult()
	r.PhaseScores[0].Bullets = append(r.PhaseScores[0].Bullets, "extra one", "extra two", "extra three", "extra four")
	r.NextAttemptPlan = append(r.NextAttemptPlan, r.NextAttemptPlan[0])

	require.NoError(t, contract.Guard(r))
	assert.Len(t, r.PhaseScores[0].Bullets, 6)
	assert.Len(t, r.NextAttemptPlan, 3)
}

func TestGuard_RejectsRadarMismatchingRecomputation(t *testing.T) {
	r := validFinalResult()
	r.Radar[0].Score = 0 // clarity way off from the recomputed weighted value

	err := contract.Guard(r)
	assert.Error(t, err)
}

func TestGuard_RejectsOverallScoreMismatch(t *testing.T) {
	r := validFinalResult()
	r.OverallScore = 1.0 // phase scores average to 7.625, not 1.0

	err := contract.Guard(r)
	assert.Error(t, err)
}

func TestGuard_RejectsVerdictNotMatchingOverallScore(t *testing.T) {
	r := validFinalResult()
	r.Verdict = "no-hire" // overall_score of 7.625 must be "hire"

	err := contract.Guard(r)
	assert.Error(t, err)
}

func TestGuard_RejectsRubricStatusMismatch(t *testing.T) {
	r := validFinalResult()
	r.Rubric[0].Status = contract.RubricFail // score is 7.85, which is "partial" not "fail"

	err := contract.Guard(r)
	assert.Error(t, err)
}

func TestGuard_RejectsRubricScoreOutsideComputedFromSpan(t *testing.T) {
	r := validFinalResult()
	r.Rubric[0].Score = 20.0 // clarify=8.0, estimate=7.5, so 20.0 is outside [7.5, 8.0]
	// Status matches 20.0, so only the span check can reject it.
	r.Rubric[0].Status = contract.RubricPass

	err := contract.Guard(r)
	assert.Error(t, err)
}

func TestGuard_RejectsMissingRadarSkill(t *testing.T) {
	r := validFinalResult()
	r.Radar = r.Radar[:3] // drop "wisdom"

	err := contract.Guard(r)
	assert.Error(t, err)
}

func TestGuard_RejectsOutOfBoundsReferenceOutlineSectionCount(t *testing.T) {
	r := validFinalResult()
	r.ReferenceOutline.Sections = r.ReferenceOutline.Sections[:2] // fewer than the required 4

	err := contract.Guard(r)
	assert.Error(t, err)
}

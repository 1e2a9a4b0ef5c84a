package contract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designduel/grading-pipeline/internal/contract"
)

func sampleV1Report() *contract.V1Report {
	return &contract.V1Report{
		SubmissionID: "sub-1",
		ProblemID:    "p1",
		ProblemName:  "Design a URL Shortener",
		Difficulty:   "medium",
		Dimensions: map[string]contract.V1DimensionScore{
			"scoping":  {Score: 8.0, Feedback: "Asked good questions. Covered the core use case.", Strengths: []string{"asked about scale"}, Weaknesses: []string{"missed write-heavy assumption"}},
			"scale":    {Score: 7.5, Feedback: "Reasonable numbers throughout.", Strengths: []string{"good QPS math"}},
			"design":   {Score: 6.0, Feedback: "Covered the basics but skipped caching.", Weaknesses: []string{"no cache layer", "no sharding"}},
			"tradeoff": {Score: 9.0, Strengths: []string{"clear reasoning", "confident"}},
		},
	}
}

func TestUplift_ProducesGuardPassingResult(t *testing.T) {
	result, err := contract.Uplift(sampleV1Report())
	require.NoError(t, err)
	require.NoError(t, contract.Guard(result))
}

func TestUplift_MapsDimensionsToFixedPhaseOrder(t *testing.T) {
	result, err := contract.Uplift(sampleV1Report())
	require.NoError(t, err)

	for i, want := range contract.PhaseOrder {
		assert.Equal(t, want, result.PhaseScores[i].Phase)
	}
	assert.InDelta(t, 8.0, result.PhaseScores[0].Score, 1e-9)  // clarify <- scoping
	assert.InDelta(t, 7.5, result.PhaseScores[1].Score, 1e-9)  // estimate <- scale
	assert.InDelta(t, 6.0, result.PhaseScores[2].Score, 1e-9)  // design <- design
	assert.InDelta(t, 9.0, result.PhaseScores[3].Score, 1e-9)  // explain <- tradeoff
}

func TestUplift_MissingDimensionFails(t *testing.T) {
	v1 := sampleV1Report()
	delete(v1.Dimensions, "tradeoff")

	_, err := contract.Uplift(v1)
	assert.Error(t, err)
}

func TestUplift_NextAttemptPlanHasThreeEntriesWithValidBulletCounts(t *testing.T) {
	result, err := contract.Uplift(sampleV1Report())
	require.NoError(t, err)

	require.Len(t, result.NextAttemptPlan, 3)
	for _, item := range result.NextAttemptPlan {
		assert.GreaterOrEqual(t, len(item.DoNextTime), 2)
		assert.LessOrEqual(t, len(item.DoNextTime), 3)
	}
}

func TestUplift_OverallScoreAndVerdictAgree(t *testing.T) {
	result, err := contract.Uplift(sampleV1Report())
	require.NoError(t, err)

	assert.InDelta(t, (8.0+7.5+6.0+9.0)/4.0, result.OverallScore, 1e-9)
	assert.Equal(t, "hire", result.Verdict)
}

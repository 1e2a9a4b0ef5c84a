package rubric_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designduel/grading-pipeline/internal/rubric"
)

func fourPhaseScores(clarify, estimate, design, explain float64) map[string]float64 {
	return map[string]float64{
		rubric.Clarify:  clarify,
		rubric.Estimate: estimate,
		rubric.Design:   design,
		rubric.Explain:  explain,
	}
}

func TestComputeRadar_FixedWeights(t *testing.T) {
	scores := fourPhaseScores(8.0, 7.5, 6.0, 9.0)

	results, err := rubric.ComputeRadar(scores)
	require.NoError(t, err)
	require.Len(t, results, 4)

	bySkill := make(map[string]float64, 4)
	for _, r := range results {
		bySkill[r.Skill] = r.Score
	}

	assert.InDelta(t, 0.5*8.0+0.2*7.5+0.2*6.0+0.1*9.0, bySkill["clarity"], 1e-9)
	assert.InDelta(t, 0.6*6.0+0.2*9.0+0.1*8.0+0.1*7.5, bySkill["structure"], 1e-9)
	assert.InDelta(t, 0.4*7.5+0.4*6.0+0.2*9.0, bySkill["power"], 1e-9)
	assert.InDelta(t, 0.6*9.0+0.3*6.0+0.1*8.0, bySkill["wisdom"], 1e-9)
}

func TestComputeRadar_MissingPhase(t *testing.T) {
	scores := map[string]float64{rubric.Clarify: 8.0, rubric.Estimate: 7.0, rubric.Design: 6.0}

	_, err := rubric.ComputeRadar(scores)
	assert.Error(t, err)
}

func TestOverallScore_IsMean(t *testing.T) {
	scores := fourPhaseScores(8.0, 6.0, 4.0, 10.0)

	overall, err := rubric.OverallScore(scores)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, overall, 1e-9)
}

func TestVerdict_Thresholds(t *testing.T) {
	assert.Equal(t, "hire", rubric.Verdict(7.5))
	assert.Equal(t, "hire", rubric.Verdict(9.9))
	assert.Equal(t, "maybe", rubric.Verdict(7.49))
	assert.Equal(t, "maybe", rubric.Verdict(5.0))
	assert.Equal(t, "no-hire", rubric.Verdict(4.99))
	assert.Equal(t, "no-hire", rubric.Verdict(0))
}

func TestRubricStatus_Thresholds(t *testing.T) {
	assert.Equal(t, "pass", rubric.RubricStatus(8.0))
	assert.Equal(t, "partial", rubric.RubricStatus(7.99))
	assert.Equal(t, "partial", rubric.RubricStatus(5.0))
	assert.Equal(t, "fail", rubric.RubricStatus(4.99))
}

// TestWeightedAverage_ScenarioExample pins the worked example: clarify=8.0,
// estimate=7.5, design=6.0, explain=9.0 with item weights clarify=0.7,
// estimate=0.3 must score 7.85 and land in the partial band.
func TestWeightedAverage_ScenarioExample(t *testing.T) {
	scores := fourPhaseScores(8.0, 7.5, 6.0, 9.0)
	weights := map[string]float64{rubric.Clarify: 0.7, rubric.Estimate: 0.3}

	score, err := rubric.WeightedAverage(scores, weights)
	require.NoError(t, err)
	assert.InDelta(t, 7.85, score, 1e-9)
	assert.Equal(t, "partial", rubric.RubricStatus(score))
}

func TestWeightedAverage_UnknownPhase(t *testing.T) {
	scores := fourPhaseScores(8.0, 7.5, 6.0, 9.0)
	weights := map[string]float64{"warmup": 1.0}

	_, err := rubric.WeightedAverage(scores, weights)
	assert.Error(t, err)
}

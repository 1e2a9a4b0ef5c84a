// Package rubric implements the deterministic, bit-exact weighted-average
// math behind the Rubric/Radar Aggregator. None of this is delegated to the
// LLM: the model only supplies prose (verdict summary, strengths/weaknesses)
// once these numbers are already fixed.
package rubric

import (
	"fmt"
	"sort"
)

// Phase names mirror internal/contract.Phase as plain strings so this
// package has no dependency on the contract package; callers convert.
const (
	Clarify  = "clarify"
	Estimate = "estimate"
	Design   = "design"
	Explain  = "explain"
)

// RadarSkill is one of the four fixed radar dimensions, always computed and
// reported in this order.
type RadarSkill struct {
	Skill   string
	Label   string
	Weights map[string]float64
}

// radarSkills carries the bit-exact fixed weights from the grading
// specification. These constants are load-bearing: changing them changes
// every previously-issued FinalResult's radar chart retroactively relative
// to a re-grade, so they must never be tuned without a contract version bump.
var radarSkills = []RadarSkill{
	{
		Skill: "clarity", Label: "Clarity",
		Weights: map[string]float64{Clarify: 0.5, Estimate: 0.2, Design: 0.2, Explain: 0.1},
	},
	{
		Skill: "structure", Label: "Structure",
		Weights: map[string]float64{Design: 0.6, Explain: 0.2, Clarify: 0.1, Estimate: 0.1},
	},
	{
		Skill: "power", Label: "Power",
		Weights: map[string]float64{Estimate: 0.4, Design: 0.4, Explain: 0.2},
	},
	{
		Skill: "wisdom", Label: "Wisdom",
		Weights: map[string]float64{Explain: 0.6, Design: 0.3, Clarify: 0.1},
	},
}

type RadarResult struct {
	Skill string
	Score float64
	Label string
}

// ComputeRadar applies the fixed weight table to the four phase scores.
// phaseScores must contain all of Clarify, Estimate, Design, Explain.
func ComputeRadar(phaseScores map[string]float64) ([]RadarResult, error) {
	if err := requireAllPhases(phaseScores); err != nil {
		return nil, err
	}

	out := make([]RadarResult, 0, len(radarSkills))
	for _, rs := range radarSkills {
		var score float64
		for _, phase := range []string{Clarify, Estimate, Design, Explain} {
			score += phaseScores[phase] * rs.Weights[phase]
		}
		out = append(out, RadarResult{Skill: rs.Skill, Score: score, Label: rs.Label})
	}
	return out, nil
}

// OverallScore is the simple mean of the four phase scores.
func OverallScore(phaseScores map[string]float64) (float64, error) {
	if err := requireAllPhases(phaseScores); err != nil {
		return 0, err
	}
	sum := phaseScores[Clarify] + phaseScores[Estimate] + phaseScores[Design] + phaseScores[Explain]
	return sum / 4.0, nil
}

// Verdict maps an overall score to the fixed hire/maybe/no-hire thresholds.
func Verdict(overall float64) string {
	switch {
	case overall >= 7.5:
		return "hire"
	case overall >= 5.0:
		return "maybe"
	default:
		return "no-hire"
	}
}

// RubricStatus maps a weighted rubric item score to pass/partial/fail.
func RubricStatus(score float64) string {
	switch {
	case score >= 8.0:
		return "pass"
	case score >= 5.0:
		return "partial"
	default:
		return "fail"
	}
}

// WeightedAverage computes a rubric item's score from its phase_weights, as
// extracted from the problem's rubric definition (e.g. {"design": 0.7,
// "explain": 0.3}). Weights need not sum to 1 across all four phases, only
// across the phases the item actually names.
func WeightedAverage(phaseScores map[string]float64, phaseWeights map[string]float64) (float64, error) {
	phases := make([]string, 0, len(phaseWeights))
	for phase := range phaseWeights {
		phases = append(phases, phase)
	}
	sort.Strings(phases)

	var score float64
	for _, phase := range phases {
		s, ok := phaseScores[phase]
		if !ok {
			return 0, fmt.Errorf("rubric item references unknown phase %q", phase)
		}
		score += s * phaseWeights[phase]
	}
	return score, nil
}

func requireAllPhases(phaseScores map[string]float64) error {
	for _, p := range []string{Clarify, Estimate, Design, Explain} {
		if _, ok := phaseScores[p]; !ok {
			return fmt.Errorf("phase scores missing required phase %q", p)
		}
	}
	return nil
}

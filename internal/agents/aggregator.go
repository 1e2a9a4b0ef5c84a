package agents

import (
	"context"
	"fmt"
	"math"

	"github.com/designduel/grading-pipeline/internal/contract"
	"github.com/designduel/grading-pipeline/internal/llm"
	"github.com/designduel/grading-pipeline/internal/llmutil"
	"github.com/designduel/grading-pipeline/internal/rubric"
)

// RubricDefinitionItem is one criterion from the problem's stored rubric
// definition: a label, description, and the phase weights used to compute
// its score (e.g. {"design": 0.7, "explain": 0.3}).
type RubricDefinitionItem struct {
	Label        string
	Description  string
	PhaseWeights map[string]float64
}

type RubricRadarInput struct {
	PhaseScores     map[contract.Phase]PhaseAgentOutput
	RubricDefinition []RubricDefinitionItem
}

type RubricRadarOutput struct {
	Rubric       []contract.RubricItem
	Radar        []contract.RadarDimension
	OverallScore float64
	Verdict      string
	Summary      string
}

// summaryLLMOutput is the narrow slice of the synthesis the model actually
// produces; the numeric rubric/radar/verdict fields are computed in Go and
// handed to the model only as context for the summary it writes.
type summaryLLMOutput struct {
	Summary string `json:"summary"`
}

// RubricRadarAggregator computes the deterministic rubric and radar scores
// (see internal/rubric) and asks the model only to narrate the verdict.
type RubricRadarAggregator struct {
	llm *llm.Client
}

func NewRubricRadarAggregator(client *llm.Client) *RubricRadarAggregator {
	return &RubricRadarAggregator{llm: client}
}

func (a *RubricRadarAggregator) Name() string { return "rubric_radar_aggregator" }

func (a *RubricRadarAggregator) Run(ctx context.Context, input interface{}) (interface{}, error) {
	in, ok := input.(RubricRadarInput)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected input type %T", a.Name(), input)
	}

	phaseScores := make(map[string]float64, 4)
	for phase, out := range in.PhaseScores {
		phaseScores[string(phase)] = out.Score
	}

	overall, err := rubric.OverallScore(phaseScores)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name(), err)
	}
	// Rounded to one decimal per the overall_score contract; Guard's
	// recheckMath tolerates the resulting half-unit-in-the-last-place slack
	// against its own unrounded recomputation.
	overall = math.Round(overall*10) / 10

	radarResults, err := rubric.ComputeRadar(phaseScores)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name(), err)
	}
	radar := make([]contract.RadarDimension, 0, len(radarResults))
	for _, r := range radarResults {
		radar = append(radar, contract.RadarDimension{Skill: r.Skill, Score: r.Score, Label: r.Label})
	}

	rubricItems := make([]contract.RubricItem, 0, len(in.RubricDefinition))
	for _, def := range in.RubricDefinition {
		score, err := rubric.WeightedAverage(phaseScores, def.PhaseWeights)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.Name(), err)
		}
		phases := sortedWeightedPhases(def.PhaseWeights)
		rubricItems = append(rubricItems, contract.RubricItem{
			Label:        def.Label,
			Description:  def.Description,
			Score:        score,
			Status:       contract.RubricStatus(rubric.RubricStatus(score)),
			ComputedFrom: phases,
		})
	}

	verdict := rubric.Verdict(overall)

	systemPrompt := `You are the Council Synthesizer. You are given the already-computed overall score, verdict, and radar
dimensions for a system design interview candidate. Write ONLY a 2-3 sentence summary that captures
the candidate's overall performance, notes any critical weakness if the verdict is maybe or no-hire,
and justifies the verdict. Output strict JSON: {"summary": "..."}`

	userPrompt := fmt.Sprintf("Overall score: %.2f\nVerdict: %s\nRadar: %+v\nRubric: %+v",
		overall, verdict, radar, rubricItems)

	resp, err := a.llm.SynthesizeVerdictSummary(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name(), err)
	}

	var parsed summaryLLMOutput
	if err := llmutil.ParseJSON(resp.Content, &parsed); err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name(), err)
	}

	return RubricRadarOutput{
		Rubric:       rubricItems,
		Radar:        radar,
		OverallScore: overall,
		Verdict:      verdict,
		Summary:      parsed.Summary,
	}, nil
}

// sortedWeightedPhases returns the phases a rubric item's weights name, in
// the fixed clarify/estimate/design/explain order, so computed_from is
// reported deterministically regardless of map iteration order.
func sortedWeightedPhases(weights map[string]float64) []contract.Phase {
	out := make([]contract.Phase, 0, len(weights))
	for _, phase := range contract.PhaseOrder {
		if _, ok := weights[string(phase)]; ok {
			out = append(out, phase)
		}
	}
	return out
}

package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/designduel/grading-pipeline/internal/contract"
)

// FinalAssemblerInput collects every prior stage's output plus the request
// metadata needed to build a contract.FinalResult.
type FinalAssemblerInput struct {
	SubmissionID string
	Problem      contract.ProblemMetadata
	PhaseTimes   map[contract.Phase]int
	CreatedAt    time.Time
	CompletedAt  time.Time
	PhaseScores  map[contract.Phase]PhaseAgentOutput
	RubricRadar  RubricRadarOutput
	PlanOutline  PlanOutlineOutput
}

// FinalAssembler builds the complete contract.FinalResult from every prior
// stage's output. It performs no LLM call of its own: by the time this
// stage runs, every piece of prose and every number already exists, so
// assembly is pure structural work, and internal/contract.Guard is the
// single place that re-validates the result it produces.
type FinalAssembler struct{}

func NewFinalAssembler() *FinalAssembler { return &FinalAssembler{} }

func (a *FinalAssembler) Name() string { return "final_assembler" }

func (a *FinalAssembler) Run(ctx context.Context, input interface{}) (interface{}, error) {
	in, ok := input.(FinalAssemblerInput)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected input type %T", a.Name(), input)
	}

	phaseScores := make([]contract.PhaseScore, 0, 4)
	evidence := make([]contract.EvidenceItem, 0, 4)
	var strengths, weaknesses, highlights []contract.StrengthWeakness

	for _, phase := range contract.PhaseOrder {
		out, ok := in.PhaseScores[phase]
		if !ok {
			return nil, fmt.Errorf("%s: missing phase evaluation for %q", a.Name(), phase)
		}

		phaseScores = append(phaseScores, contract.PhaseScore{
			Phase:   phase,
			Score:   out.Score,
			Bullets: out.Bullets,
		})

		evidence = append(evidence, contract.EvidenceItem{
			Phase:       phase,
			SnapshotURL: out.Evidence.SnapshotURL,
			Transcripts: out.Evidence.Transcripts,
			Noticed:     out.Evidence.Noticed,
		})

		strengths = append(strengths, convertObservations(out.Strengths)...)
		weaknesses = append(weaknesses, convertObservations(out.Weaknesses)...)
		highlights = append(highlights, convertObservations(out.Highlights)...)
	}

	completedAt := in.CompletedAt
	result := &contract.FinalResult{
		ResultVersion:     contract.CurrentResultVersion,
		SubmissionID:      in.SubmissionID,
		Problem:           in.Problem,
		PhaseTimes:        in.PhaseTimes,
		CreatedAt:         in.CreatedAt,
		CompletedAt:       &completedAt,
		PhaseScores:       phaseScores,
		Evidence:          evidence,
		Rubric:            in.RubricRadar.Rubric,
		Radar:             in.RubricRadar.Radar,
		OverallScore:      in.RubricRadar.OverallScore,
		Verdict:           in.RubricRadar.Verdict,
		Summary:           in.RubricRadar.Summary,
		Strengths:         strengths,
		Weaknesses:        weaknesses,
		Highlights:        highlights,
		NextAttemptPlan:   in.PlanOutline.NextAttemptPlan,
		FollowUpQuestions: in.PlanOutline.FollowUpQuestions,
		ReferenceOutline:  in.PlanOutline.ReferenceOutline,
	}

	if err := contract.Guard(result); err != nil {
		return nil, fmt.Errorf("%s: assembled result failed contract guard: %w", a.Name(), err)
	}

	return result, nil
}

func convertObservations(in []strengthWeaknessJSON) []contract.StrengthWeakness {
	out := make([]contract.StrengthWeakness, 0, len(in))
	for _, o := range in {
		out = append(out, contract.StrengthWeakness{
			Phase:        o.Phase,
			Text:         o.Text,
			TimestampSec: o.TimestampSec,
		})
	}
	return out
}

package agents

import (
	"context"
	"fmt"

	"github.com/designduel/grading-pipeline/internal/contract"
	"github.com/designduel/grading-pipeline/internal/llm"
	"github.com/designduel/grading-pipeline/internal/llmutil"
)

type PlanOutlineInput struct {
	ProblemPrompt string
	Constraints   string
	PhaseScores   map[contract.Phase]PhaseAgentOutput
	RubricRadar   RubricRadarOutput
}

type PlanOutlineOutput struct {
	NextAttemptPlan   []contract.NextAttemptItem      `json:"next_attempt_plan"`
	FollowUpQuestions []string                        `json:"follow_up_questions"`
	ReferenceOutline  contract.ReferenceOutline        `json:"reference_outline"`
}

// PlanOutlineGenerator produces the improvement plan, follow-up questions,
// and reference outline handed to the candidate alongside their score.
type PlanOutlineGenerator struct {
	llm *llm.Client
}

func NewPlanOutlineGenerator(client *llm.Client) *PlanOutlineGenerator {
	return &PlanOutlineGenerator{llm: client}
}

func (g *PlanOutlineGenerator) Name() string { return "plan_outline_generator" }

func (g *PlanOutlineGenerator) Run(ctx context.Context, input interface{}) (interface{}, error) {
	in, ok := input.(PlanOutlineInput)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected input type %T", g.Name(), input)
	}

	systemPrompt := `You are the Improvement Mentor. Generate actionable guidance for the candidate, given their phase
evaluations and rubric/radar synthesis. Output strict JSON with exactly these keys:
{
  "next_attempt_plan": [{"what_went_wrong": "1-2 sentences", "do_next_time": ["...", "..."]}, ...exactly 3 items, each do_next_time has 2-3 bullets],
  "follow_up_questions": ["...", "...", "..." ...at least 3],
  "reference_outline": {"sections": [{"section": "...", "bullets": ["...", "...", "..."]} ...4 to 6 sections, each with 3-6 bullets]}
}
Be specific to this problem and this candidate's performance; avoid generic advice.`

	userPrompt := fmt.Sprintf(`Problem prompt:
%s

Constraints:
%s

Overall score: %.2f
Verdict: %s
Phase feedback: %+v`,
		in.ProblemPrompt, in.Constraints, in.RubricRadar.OverallScore, in.RubricRadar.Verdict, in.PhaseScores)

	resp, err := g.llm.GeneratePlanOutline(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.Name(), err)
	}

	var out PlanOutlineOutput
	if err := llmutil.ParseJSON(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", g.Name(), err)
	}

	if len(out.NextAttemptPlan) != 3 {
		return nil, fmt.Errorf("%s: expected exactly 3 next_attempt_plan items, got %d", g.Name(), len(out.NextAttemptPlan))
	}
	for i, item := range out.NextAttemptPlan {
		if n := len(item.DoNextTime); n < 2 || n > 3 {
			return nil, fmt.Errorf("%s: next_attempt_plan[%d].do_next_time expected 2-3 bullets, got %d", g.Name(), i, n)
		}
	}
	if len(out.FollowUpQuestions) < 3 {
		return nil, fmt.Errorf("%s: expected at least 3 follow_up_questions, got %d", g.Name(), len(out.FollowUpQuestions))
	}
	if n := len(out.ReferenceOutline.Sections); n < 4 || n > 6 {
		return nil, fmt.Errorf("%s: expected 4-6 reference_outline sections, got %d", g.Name(), n)
	}

	return out, nil
}

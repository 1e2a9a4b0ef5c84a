package agents

import (
	"context"
	"fmt"

	"github.com/designduel/grading-pipeline/internal/contract"
	"github.com/designduel/grading-pipeline/internal/llm"
	"github.com/designduel/grading-pipeline/internal/llmutil"
)

// PhaseEvaluatorInput is everything one phase evaluator needs: its own
// phase's transcript and canvas snapshot, plus the problem statement. It
// never sees the other three phases' artifacts.
type PhaseEvaluatorInput struct {
	Phase         contract.Phase
	ProblemPrompt string
	Constraints   string
	SnapshotURL   string
	Transcripts   []contract.TranscriptSnippet
	PhaseTimeSec  float64
}

// PhaseAgentOutput is the structured result one phase evaluator produces. It
// maps directly onto a contract.PhaseScore + contract.EvidenceItem pair plus
// the strength/weakness/highlight observations the Final Assembler collates.
type PhaseAgentOutput struct {
	Phase      contract.Phase               `json:"phase"`
	Score      float64                      `json:"score"`
	Bullets    []string                     `json:"bullets"`
	Evidence   phaseEvidenceJSON            `json:"evidence"`
	Strengths  []strengthWeaknessJSON       `json:"strengths"`
	Weaknesses []strengthWeaknessJSON       `json:"weaknesses"`
	Highlights []strengthWeaknessJSON       `json:"highlights"`
}

type phaseEvidenceJSON struct {
	Phase       contract.Phase                 `json:"phase"`
	SnapshotURL string                         `json:"snapshot_url"`
	Transcripts []contract.TranscriptSnippet   `json:"transcripts"`
	Noticed     map[string]string              `json:"noticed"`
}

type strengthWeaknessJSON struct {
	Phase        contract.Phase `json:"phase"`
	Text         string         `json:"text"`
	TimestampSec *float64       `json:"timestamp_sec"`
}

// phasePersonas grounds each evaluator's system prompt in the rubric focus
// the spec assigns to that phase.
var phasePersonas = map[contract.Phase]string{
	contract.PhaseClarify:  "Clarification Sage, an expert evaluator of problem scoping and requirements gathering",
	contract.PhaseEstimate: "Estimation Oracle, an expert evaluator of capacity planning and back-of-envelope math",
	contract.PhaseDesign:   "Architecture Arbiter, an expert evaluator of high-level system design",
	contract.PhaseExplain:  "Tradeoff Tribunal, an expert evaluator of tradeoff reasoning and deep dives",
}

// PhaseEvaluator grades exactly one of the four fixed phases.
type PhaseEvaluator struct {
	phase contract.Phase
	llm   *llm.Client
}

func NewPhaseEvaluator(phase contract.Phase, client *llm.Client) *PhaseEvaluator {
	return &PhaseEvaluator{phase: phase, llm: client}
}

func (p *PhaseEvaluator) Name() string {
	return fmt.Sprintf("phase_evaluator:%s", p.phase)
}

func (p *PhaseEvaluator) Run(ctx context.Context, input interface{}) (interface{}, error) {
	in, ok := input.(PhaseEvaluatorInput)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected input type %T", p.Name(), input)
	}
	if in.Phase != p.phase {
		return nil, fmt.Errorf("%s: input phase %q does not match evaluator phase %q", p.Name(), in.Phase, p.phase)
	}

	systemPrompt := fmt.Sprintf(`You are the %s, grading ONLY the %q phase of a system design interview.

Output strict JSON matching this shape (no markdown fences, no commentary):
{
  "phase": %q,
  "score": <0-10 float>,
  "bullets": ["3 to 6 concise feedback bullets"],
  "evidence": {"phase": %q, "snapshot_url": "...", "transcripts": [{"timestamp_sec": 0, "text": "..."}], "noticed": {"strength": "...", "issue": "..."}},
  "strengths": [{"phase": %q, "text": "...", "timestamp_sec": null}],
  "weaknesses": [{"phase": %q, "text": "...", "timestamp_sec": null}],
  "highlights": [{"phase": %q, "text": "...", "timestamp_sec": null}]
}

Rules: exactly 1 evidence item, 3-6 bullets, 1-2 strengths, 1-2 weaknesses, 0-2 highlights.`,
		phasePersonas[p.phase], p.phase, p.phase, p.phase, p.phase, p.phase, p.phase)

	userPrompt := fmt.Sprintf(`Problem prompt:
%s

Constraints:
%s

Time spent on this phase: %.0f seconds

Canvas snapshot URL: %s

Transcript (timestamp_sec, text):
%s`, in.ProblemPrompt, in.Constraints, in.PhaseTimeSec, in.SnapshotURL, renderTranscripts(in.Transcripts))

	resp, err := p.llm.EvaluatePhase(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}

	var out PhaseAgentOutput
	if err := llmutil.ParseJSON(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}

	out.Phase = p.phase
	out.Evidence.Phase = p.phase
	return out, nil
}

func renderTranscripts(snippets []contract.TranscriptSnippet) string {
	if len(snippets) == 0 {
		return "(no audio captured for this phase)"
	}
	out := ""
	for _, s := range snippets {
		out += fmt.Sprintf("[%.1fs] %s\n", s.TimestampSec, s.Text)
	}
	return out
}

package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/designduel/grading-pipeline/internal/rubric"
)

// V1DimensionScore is a single v1 grading dimension (scoping/design/scale/
// tradeoff), the shape legacy clients and any pre-v2 stored reports use.
type V1DimensionScore struct {
	Score      float64
	Feedback   string
	Strengths  []string
	Weaknesses []string
}

// V1Report is a legacy grading report, keyed by dimension name.
type V1Report struct {
	SubmissionID string
	ProblemID    string
	ProblemName  string
	Difficulty   string
	CreatedAt    time.Time
	CompletedAt  *time.Time
	Dimensions   map[string]V1DimensionScore
}

// dimensionToPhase is the best-effort v1-dimension-to-v2-phase mapping used
// only by the uplift path; it is distinct from the legacy status map in
// legacy.go, which translates SSE status values rather than report content.
var dimensionToPhase = map[string]Phase{
	"scoping":  PhaseClarify,
	"design":   PhaseDesign,
	"scale":    PhaseEstimate,
	"tradeoff": PhaseExplain,
}

// Uplift adapts a legacy v1 report into a contract-exact FinalResult. It
// does not run Guard on the result it returns.
func Uplift(v1 *V1Report) (*FinalResult, error) {
	phaseScores := make([]PhaseScore, 0, 4)
	evidence := make([]EvidenceItem, 0, 4)

	for _, phase := range PhaseOrder {
		dimName := phaseToDimension(phase)
		dim, ok := v1.Dimensions[dimName]
		if !ok {
			return nil, fmt.Errorf("uplift: v1 report missing dimension %q for phase %q", dimName, phase)
		}

		phaseScores = append(phaseScores, PhaseScore{
			Phase:   phase,
			Score:   dim.Score,
			Bullets: generatePhaseBullets(dimName, dim),
		})

		evidence = append(evidence, EvidenceItem{
			Phase:       phase,
			SnapshotURL: "",
			Transcripts: nil,
		})
	}

	byPhaseName := make(map[string]float64, len(phaseScores))
	for _, s := range phaseScores {
		byPhaseName[string(s.Phase)] = s.Score
	}

	overall, err := rubric.OverallScore(byPhaseName)
	if err != nil {
		return nil, fmt.Errorf("uplift: %w", err)
	}

	result := &FinalResult{
		ResultVersion: CurrentResultVersion,
		SubmissionID:  v1.SubmissionID,
		Problem: ProblemMetadata{
			ID:         v1.ProblemID,
			Name:       v1.ProblemName,
			Difficulty: v1.Difficulty,
		},
		PhaseTimes:   map[Phase]int{},
		CreatedAt:    v1.CreatedAt,
		CompletedAt:  v1.CompletedAt,
		PhaseScores:  phaseScores,
		Evidence:     evidence,
		OverallScore: overall,
		Verdict:      rubric.Verdict(overall),
		Summary:      fmt.Sprintf("Uplifted from a legacy v1 report; overall score %.1f.", overall),
		NextAttemptPlan: []NextAttemptItem{
			{WhatWentWrong: "Legacy report has no structured improvement plan.", DoNextTime: []string{"Re-run grading to get a full v2 plan.", "Treat this entry as a placeholder, not feedback."}},
			{WhatWentWrong: "Legacy report has no structured improvement plan.", DoNextTime: []string{"Re-run grading to get a full v2 plan.", "Treat this entry as a placeholder, not feedback."}},
			{WhatWentWrong: "Legacy report has no structured improvement plan.", DoNextTime: []string{"Re-run grading to get a full v2 plan.", "Treat this entry as a placeholder, not feedback."}},
		},
		FollowUpQuestions: []string{
			"What would you change about your approach with more time?",
			"Which tradeoff are you least confident about?",
			"How would your design change at 10x scale?",
		},
		ReferenceOutline: ReferenceOutline{
			Sections: defaultReferenceOutlineSections(),
		},
	}

	result.Rubric = uplifyRubric(phaseScores)
	result.Radar = uplifyRadar(result)

	return result, nil
}

func phaseToDimension(phase Phase) string {
	for dim, p := range dimensionToPhase {
		if p == phase {
			return dim
		}
	}
	return ""
}

// generatePhaseBullets mirrors the legacy bullet-padding behavior: prefer up
// to 2 strengths and 2 weaknesses, fall back to splitting free-text
// feedback into sentences, then pad with a placeholder until there are at
// least 3 bullets (the v2 contract's floor), capped at 6.
func generatePhaseBullets(dimName string, dim V1DimensionScore) []string {
	var bullets []string

	for i, s := range dim.Strengths {
		if i >= 2 {
			break
		}
		bullets = append(bullets, "✓ "+s)
	}
	for i, w := range dim.Weaknesses {
		if i >= 2 {
			break
		}
		bullets = append(bullets, "✗ "+w)
	}

	if len(bullets) < 3 && dim.Feedback != "" {
		for _, sentence := range strings.Split(dim.Feedback, ".") {
			if len(bullets) >= 6 {
				break
			}
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			bullets = append(bullets, sentence)
			if len(bullets) >= 3 {
				break
			}
		}
	}

	for len(bullets) < 3 {
		bullets = append(bullets, strings.Title(dimName)+" assessment in progress")
	}
	if len(bullets) > 6 {
		bullets = bullets[:6]
	}
	return bullets
}

func uplifyRubric(scores []PhaseScore) []RubricItem {
	byPhase := make(map[string]float64, len(scores))
	for _, s := range scores {
		byPhase[string(s.Phase)] = s.Score
	}

	item := func(label, description string, phases ...Phase) RubricItem {
		weights := make(map[string]float64, len(phases))
		for _, p := range phases {
			weights[string(p)] = 1.0 / float64(len(phases))
		}
		score, err := rubric.WeightedAverage(byPhase, weights)
		if err != nil {
			score = 0
		}
		return RubricItem{
			Label:        label,
			Description:  description,
			Score:        score,
			Status:       RubricStatus(rubric.RubricStatus(score)),
			ComputedFrom: phases,
		}
	}

	return []RubricItem{
		item("Problem Scoping", "Clarifying requirements and constraints.", PhaseClarify),
		item("Capacity Estimation", "Back-of-envelope scaling math.", PhaseEstimate),
		item("System Design", "High-level architecture and component design.", PhaseDesign),
		item("Tradeoff Reasoning", "Explaining and defending design tradeoffs.", PhaseExplain),
	}
}

func uplifyRadar(r *FinalResult) []RadarDimension {
	byPhase := make(map[string]float64, len(r.PhaseScores))
	for _, s := range r.PhaseScores {
		byPhase[string(s.Phase)] = s.Score
	}

	dims, err := rubric.ComputeRadar(byPhase)
	if err != nil {
		return nil
	}

	out := make([]RadarDimension, 0, len(dims))
	for _, d := range dims {
		out = append(out, RadarDimension{Skill: d.Skill, Score: d.Score, Label: d.Label})
	}
	return out
}

func defaultReferenceOutlineSections() []ReferenceOutlineSection {
	return []ReferenceOutlineSection{
		{Section: "Functional Requirements", Bullets: []string{"Core use cases", "Out-of-scope items", "Assumptions"}},
		{Section: "Capacity Estimation", Bullets: []string{"Traffic estimate", "Storage estimate", "Bandwidth estimate"}},
		{Section: "High-Level Architecture", Bullets: []string{"Client", "API layer", "Storage layer", "Cache layer"}},
		{Section: "Tradeoffs", Bullets: []string{"Consistency vs availability", "Latency vs cost", "Read vs write optimization"}},
	}
}

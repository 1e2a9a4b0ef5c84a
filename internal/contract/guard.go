package contract

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/designduel/grading-pipeline/internal/rubric"
)

var structValidator = validator.New()

// scoreTolerance bounds the slack Guard allows between a stage's reported
// math and its own recomputation, to absorb float rounding on the way
// through JSON without masking a real miscalculation.
const scoreTolerance = 1e-6

// overallScoreTolerance is looser: OverallScore is contractually rounded to
// one decimal place before it reaches FinalResult, so the recomputed exact
// mean and the rounded reported value legitimately differ by up to half a
// unit in the last decimal place.
const overallScoreTolerance = 0.05

// Guard is the last line of defense before a FinalResult is persisted or
// served: it repairs the minor deviations a stage can plausibly produce
// (scrambled ordering, a stray extra bullet, mixed-case verdict), validates
// the struct-level schema, and then checks phase order, radar dimensions and
// the reference outline and rechecks every deterministic computation against
// its own independent recomputation. A result that fails
// Guard is never written to the result store and never reaches a client;
// the submission is marked failed instead (see internal/pipeline).
func Guard(r *FinalResult) error {
	if r.ResultVersion != CurrentResultVersion {
		return fmt.Errorf("contract violation: result_version must be %d, got %d", CurrentResultVersion, r.ResultVersion)
	}

	repair(r)

	if err := structValidator.Struct(r); err != nil {
		return fmt.Errorf("contract violation: %w", err)
	}

	if err := checkPhaseOrder(r); err != nil {
		return err
	}
	if err := checkRadarDimensions(r); err != nil {
		return err
	}
	if err := checkReferenceOutline(r); err != nil {
		return err
	}
	if err := recheckMath(r); err != nil {
		return err
	}

	return nil
}

// repair performs every deterministic normalization Guard is allowed to
// make in place, before validation runs: lowercasing the verdict, sorting
// phase-indexed slices back into fixed order when every required entry is
// present but scrambled, and truncating over-long lists to their documented
// caps. It never pads an under-long "exactly N" list: there is no scratch
// state available here to synthesize a missing item from, so an under-long
// list is left for checkX/struct validation to fail on instead.
func repair(r *FinalResult) {
	r.Verdict = strings.ToLower(strings.TrimSpace(r.Verdict))

	sortByPhaseOrder(r.PhaseScores, func(i int) Phase { return r.PhaseScores[i].Phase })
	sortByPhaseOrder(r.Evidence, func(i int) Phase { return r.Evidence[i].Phase })

	for i := range r.PhaseScores {
		r.PhaseScores[i].Bullets = capStrings(r.PhaseScores[i].Bullets, 6)
	}
	if len(r.NextAttemptPlan) > 3 {
		r.NextAttemptPlan = r.NextAttemptPlan[:3]
	}
	for i := range r.NextAttemptPlan {
		if len(r.NextAttemptPlan[i].DoNextTime) > 3 {
			r.NextAttemptPlan[i].DoNextTime = r.NextAttemptPlan[i].DoNextTime[:3]
		}
	}
	if len(r.ReferenceOutline.Sections) > 6 {
		r.ReferenceOutline.Sections = r.ReferenceOutline.Sections[:6]
	}
	for i := range r.ReferenceOutline.Sections {
		r.ReferenceOutline.Sections[i].Bullets = capStrings(r.ReferenceOutline.Sections[i].Bullets, 6)
	}
}

func capStrings(items []string, max int) []string {
	if len(items) > max {
		return items[:max]
	}
	return items
}

// sortByPhaseOrder stably reorders a phase-indexed slice into PhaseOrder
// when it has exactly 4 entries and they are a permutation of the 4 fixed
// phases; it is a no-op (left for checkPhaseOrder to reject) in any other
// shape, including duplicates or a wrong count.
func sortByPhaseOrder[T any](items []T, phaseOf func(int) Phase) {
	if len(items) != len(PhaseOrder) {
		return
	}
	seen := make(map[Phase]bool, len(items))
	for i := range items {
		seen[phaseOf(i)] = true
	}
	for _, p := range PhaseOrder {
		if !seen[p] {
			return
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return phaseIndex(phaseOf(i)) < phaseIndex(phaseOf(j))
	})
}

func phaseIndex(p Phase) int {
	for i, want := range PhaseOrder {
		if want == p {
			return i
		}
	}
	return len(PhaseOrder)
}

func checkPhaseOrder(r *FinalResult) error {
	for i, want := range PhaseOrder {
		if r.PhaseScores[i].Phase != want {
			return fmt.Errorf("contract violation: phase_scores[%d] must be phase %q, got %q", i, want, r.PhaseScores[i].Phase)
		}
		if r.Evidence[i].Phase != want {
			return fmt.Errorf("contract violation: evidence[%d] must be phase %q, got %q", i, want, r.Evidence[i].Phase)
		}
	}
	return nil
}

var requiredRadarSkills = [4]string{"clarity", "structure", "power", "wisdom"}

func checkRadarDimensions(r *FinalResult) error {
	seen := make(map[string]bool, len(r.Radar))
	for _, d := range r.Radar {
		seen[d.Skill] = true
	}
	for _, skill := range requiredRadarSkills {
		if !seen[skill] {
			return fmt.Errorf("contract violation: radar is missing required skill %q", skill)
		}
	}
	return nil
}

func checkReferenceOutline(r *FinalResult) error {
	n := len(r.ReferenceOutline.Sections)
	if n < 4 || n > 6 {
		return fmt.Errorf("contract violation: reference_outline must have 4-6 sections, got %d", n)
	}
	for _, s := range r.ReferenceOutline.Sections {
		if len(s.Bullets) < 3 || len(s.Bullets) > 6 {
			return fmt.Errorf("contract violation: reference_outline section %q must have 3-6 bullets, got %d", s.Section, len(s.Bullets))
		}
	}
	return nil
}

// recheckMath independently recomputes every number the Rubric/Radar
// Aggregator is supposed to have already computed (internal/rubric is the
// single source of truth for the formulas) and fails the contract if the
// assembled result disagrees beyond float tolerance. The radar weights are
// fixed constants independent of the problem's rubric definition, so radar
// and overall_score can be recomputed byte-for-byte; a rubric item's score
// is a convex combination of only its own computed_from phases, so without
// the original per-item weights Guard can only recheck that it falls within
// the span of those phases' scores and that its status matches its score.
func recheckMath(r *FinalResult) error {
	phaseScores := make(map[string]float64, len(r.PhaseScores))
	for _, ps := range r.PhaseScores {
		phaseScores[string(ps.Phase)] = ps.Score
	}

	wantRadar, err := rubric.ComputeRadar(phaseScores)
	if err != nil {
		return fmt.Errorf("contract violation: radar recheck: %w", err)
	}
	wantBySkill := make(map[string]float64, len(wantRadar))
	for _, d := range wantRadar {
		wantBySkill[d.Skill] = d.Score
	}
	for _, got := range r.Radar {
		want, ok := wantBySkill[got.Skill]
		if !ok {
			continue
		}
		if math.Abs(got.Score-want) > scoreTolerance {
			return fmt.Errorf("contract violation: radar[%s] = %v, recomputed %v", got.Skill, got.Score, want)
		}
	}

	wantOverall, err := rubric.OverallScore(phaseScores)
	if err != nil {
		return fmt.Errorf("contract violation: overall_score recheck: %w", err)
	}
	if math.Abs(r.OverallScore-wantOverall) > overallScoreTolerance {
		return fmt.Errorf("contract violation: overall_score = %v, recomputed mean %v", r.OverallScore, wantOverall)
	}

	wantVerdict := rubric.Verdict(r.OverallScore)
	if r.Verdict != wantVerdict {
		return fmt.Errorf("contract violation: verdict = %q, expected %q for overall_score %v", r.Verdict, wantVerdict, r.OverallScore)
	}

	for _, item := range r.Rubric {
		wantStatus := rubric.RubricStatus(item.Score)
		if string(item.Status) != wantStatus {
			return fmt.Errorf("contract violation: rubric item %q status = %q, expected %q for score %v", item.Label, item.Status, wantStatus, item.Score)
		}

		if len(item.ComputedFrom) == 0 {
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, p := range item.ComputedFrom {
			s, ok := phaseScores[string(p)]
			if !ok {
				continue
			}
			if s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
		}
		if item.Score < lo-scoreTolerance || item.Score > hi+scoreTolerance {
			return fmt.Errorf("contract violation: rubric item %q score %v outside the span [%v, %v] of its computed_from phases", item.Label, item.Score, lo, hi)
		}
	}

	return nil
}

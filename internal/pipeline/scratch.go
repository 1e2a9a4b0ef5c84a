package pipeline

import (
	"sync"

	"github.com/designduel/grading-pipeline/internal/agents"
	"github.com/designduel/grading-pipeline/internal/contract"
)

// scratch is the single-owner working state for one submission's run
// through the pipeline. It is not a generic map: every slot a stage can
// write to is a named field, so a stage that hasn't run yet is a nil field
// rather than a missing map key, and a typo can never silently create a new
// slot. Exactly one goroutine (the driver running this submission) ever
// touches a given scratch instance; it is released on every exit path via
// defer in driver.go.
type scratch struct {
	mu sync.Mutex

	submissionID string
	problem      contract.ProblemMetadata
	phaseTimes   map[contract.Phase]int

	transcripts map[contract.Phase][]contract.TranscriptSnippet
	snapshotURL map[contract.Phase]string

	phaseOutputs map[contract.Phase]agents.PhaseAgentOutput
	rubricRadar  *agents.RubricRadarOutput
	planOutline  *agents.PlanOutlineOutput
	final        *contract.FinalResult
}

func newScratch(submissionID string) *scratch {
	return &scratch{
		submissionID: submissionID,
		phaseTimes:   make(map[contract.Phase]int),
		transcripts:  make(map[contract.Phase][]contract.TranscriptSnippet),
		snapshotURL:  make(map[contract.Phase]string),
		phaseOutputs: make(map[contract.Phase]agents.PhaseAgentOutput),
	}
}

func (s *scratch) setPhaseOutput(phase contract.Phase, out agents.PhaseAgentOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phaseOutputs[phase] = out
}

func (s *scratch) getPhaseOutputs() map[contract.Phase]agents.PhaseAgentOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[contract.Phase]agents.PhaseAgentOutput, len(s.phaseOutputs))
	for k, v := range s.phaseOutputs {
		out[k] = v
	}
	return out
}

// release clears every slot. Called via defer on every exit path from Run so
// a submission's working state never outlives its goroutine.
func (s *scratch) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = nil
	s.snapshotURL = nil
	s.phaseOutputs = nil
	s.rubricRadar = nil
	s.planOutline = nil
	s.final = nil
}

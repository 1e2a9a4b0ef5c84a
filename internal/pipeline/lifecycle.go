package pipeline

import "github.com/designduel/grading-pipeline/internal/storage/models"

// validTransitions encodes the Submission lifecycle state machine: status
// only ever moves forward, and complete/failed are absorbing.
var validTransitions = map[models.SubmissionStatus][]models.SubmissionStatus{
	models.SubmissionQueued:     {models.SubmissionProcessing, models.SubmissionFailed},
	models.SubmissionProcessing: {models.SubmissionComplete, models.SubmissionFailed},
	models.SubmissionComplete:   {},
	models.SubmissionFailed:     {},
}

// CanTransition reports whether moving a submission from `from` to `to` is
// a legal lifecycle step.
func CanTransition(from, to models.SubmissionStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status is an absorbing lifecycle state.
func IsTerminal(status models.SubmissionStatus) bool {
	return status == models.SubmissionComplete || status == models.SubmissionFailed
}

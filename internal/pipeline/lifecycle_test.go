package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/designduel/grading-pipeline/internal/storage/models"
)

func TestCanTransition_ForwardOnly(t *testing.T) {
	assert.True(t, CanTransition(models.SubmissionQueued, models.SubmissionProcessing))
	assert.True(t, CanTransition(models.SubmissionQueued, models.SubmissionFailed))
	assert.True(t, CanTransition(models.SubmissionProcessing, models.SubmissionComplete))
	assert.True(t, CanTransition(models.SubmissionProcessing, models.SubmissionFailed))

	assert.False(t, CanTransition(models.SubmissionProcessing, models.SubmissionQueued))
	assert.False(t, CanTransition(models.SubmissionQueued, models.SubmissionComplete))
}

func TestCanTransition_TerminalStatesAreAbsorbing(t *testing.T) {
	assert.False(t, CanTransition(models.SubmissionComplete, models.SubmissionProcessing))
	assert.False(t, CanTransition(models.SubmissionComplete, models.SubmissionFailed))
	assert.False(t, CanTransition(models.SubmissionFailed, models.SubmissionComplete))
	assert.False(t, CanTransition(models.SubmissionFailed, models.SubmissionQueued))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(models.SubmissionComplete))
	assert.True(t, IsTerminal(models.SubmissionFailed))
	assert.False(t, IsTerminal(models.SubmissionQueued))
	assert.False(t, IsTerminal(models.SubmissionProcessing))
}

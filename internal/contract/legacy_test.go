package contract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/designduel/grading-pipeline/internal/contract"
)

// TestLegacyStatusRoundTrip pins the bijectivity property required of every
// legacy status that has a v2 equivalent: v1 -> v2 -> v1 must be the
// identity.
func TestLegacyStatusRoundTrip(t *testing.T) {
	legacyStatuses := []string{
		contract.LegacyScoping,
		contract.LegacyDesign,
		contract.LegacyScale,
		contract.LegacyTradeoff,
		contract.LegacySynthesizing,
		contract.LegacyComplete,
		contract.LegacyFailed,
	}

	for _, legacy := range legacyStatuses {
		v2, ok := contract.LegacyToV2(legacy)
		assert.Truef(t, ok, "expected %q to map to a v2 status", legacy)

		roundTripped, ok := contract.V2ToLegacy(v2)
		assert.Truef(t, ok, "expected v2 status for %q to map back to legacy", legacy)
		assert.Equalf(t, legacy, roundTripped, "round trip for %q did not return the identity", legacy)
	}
}

func TestLegacyToV2_UnknownStatus(t *testing.T) {
	_, ok := contract.LegacyToV2("bogus")
	assert.False(t, ok)
}

func TestV2ToLegacy_NoLegacyEquivalent(t *testing.T) {
	_, ok := contract.V2ToLegacy(contract.StatusQueued)
	assert.False(t, ok)

	_, ok = contract.V2ToLegacy(contract.StatusProcessing)
	assert.False(t, ok)
}

func TestNormalizeStatusInput_AcceptsEitherFormat(t *testing.T) {
	got, err := contract.NormalizeStatusInput("scoping")
	assert.NoError(t, err)
	assert.Equal(t, contract.StatusClarify, got)

	got, err = contract.NormalizeStatusInput("clarify")
	assert.NoError(t, err)
	assert.Equal(t, contract.StatusClarify, got)
}

func TestNormalizeStatusInput_RejectsUnknown(t *testing.T) {
	_, err := contract.NormalizeStatusInput("not-a-status")
	assert.Error(t, err)
}

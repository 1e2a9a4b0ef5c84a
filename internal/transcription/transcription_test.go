package transcription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences_SplitsOnTerminators(t *testing.T) {
	got := splitSentences("We should cache this. What about sharding? Let's discuss!")
	require.Len(t, got, 3)
	assert.Equal(t, "We should cache this", got[0])
	assert.Equal(t, "What about sharding", got[1])
	assert.Equal(t, "Let's discuss", got[2])
}

func TestSplitSentences_NoTerminatorsReturnsWholeText(t *testing.T) {
	got := splitSentences("just one fragment with no punctuation")
	require.Len(t, got, 1)
	assert.Equal(t, "just one fragment with no punctuation", got[0])
}

func TestSplitSentences_EmptyText(t *testing.T) {
	got := splitSentences("")
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0])
}

func TestChunkTranscript_AssignsNonDecreasingTimestamps(t *testing.T) {
	snippets := chunkTranscript("First point. Second point. Third point.")
	require.Len(t, snippets, 3)

	for i := 1; i < len(snippets); i++ {
		assert.Greater(t, snippets[i].TimestampSec, snippets[i-1].TimestampSec)
	}
	assert.Equal(t, 0.0, snippets[0].TimestampSec)
	assert.InDelta(t, chunkWindowSec, snippets[1].TimestampSec, 1e-9)
	assert.InDelta(t, 2*chunkWindowSec, snippets[2].TimestampSec, 1e-9)
}

func TestChunkTranscript_PreservesText(t *testing.T) {
	snippets := chunkTranscript("Only one sentence here")
	require.Len(t, snippets, 1)
	assert.Equal(t, "Only one sentence here", snippets[0].Text)
}

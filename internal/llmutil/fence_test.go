package llmutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designduel/grading-pipeline/internal/llmutil"
)

func TestStripCodeFences_PlainJSON(t *testing.T) {
	in := `{"summary": "fine"}`
	assert.Equal(t, in, llmutil.StripCodeFences(in))
}

func TestStripCodeFences_JSONFence(t *testing.T) {
	in := "```json\n{\"summary\": \"fine\"}\n```"
	assert.Equal(t, `{"summary": "fine"}`, llmutil.StripCodeFences(in))
}

func TestStripCodeFences_BareFence(t *testing.T) {
	in := "```\n{\"summary\": \"fine\"}\n```"
	assert.Equal(t, `{"summary": "fine"}`, llmutil.StripCodeFences(in))
}

func TestStripCodeFences_UppercaseJSONFence(t *testing.T) {
	in := "```JSON\n{\"summary\": \"fine\"}\n```"
	assert.Equal(t, `{"summary": "fine"}`, llmutil.StripCodeFences(in))
}

func TestParseJSON_FencedObject(t *testing.T) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := llmutil.ParseJSON("```json\n{\"summary\": \"great job\"}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, "great job", out.Summary)
}

func TestParseJSON_InvalidJSONIncludesContentInError(t *testing.T) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := llmutil.ParseJSON("not json at all", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not json at all")
}

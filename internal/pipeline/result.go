package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/designduel/grading-pipeline/internal/contract"
)

func marshalResult(final *contract.FinalResult) (string, error) {
	data, err := json.Marshal(final)
	if err != nil {
		return "", fmt.Errorf("failed to marshal final result: %w", err)
	}
	return string(data), nil
}

// Package agents implements the Phase Panel evaluators, the Rubric/Radar
// narrative synthesizer, the Plan/Outline generator, and the Final
// Assembler as a common polymorphic Agent abstraction. All but the Final
// Assembler call the circuit-breaker-and-retry-wrapped internal/llm client;
// the Final Assembler builds its result in Go without a model call.
package agents

import "context"

// Agent is the shared shape of every grading stage. Each implementation
// receives its inputs as Run's argument and returns its output; the
// pipeline driver stores that output in the matching scratch slot, so Run
// never touches the scratch struct itself.
type Agent interface {
	Name() string
	Run(ctx context.Context, input interface{}) (interface{}, error)
}

package contract

import "fmt"

// Legacy v1 stream status strings, kept only for the compatibility shim
// below. v1 clients predate the clarify/estimate/design/explain phase names.
const (
	LegacyScoping      = "scoping"
	LegacyDesign       = "design"
	LegacyScale        = "scale"
	LegacyTradeoff     = "tradeoff"
	LegacySynthesizing = "synthesizing"
	LegacyComplete     = "complete"
	LegacyFailed       = "failed"
)

var legacyToV2 = map[string]StreamStatus{
	LegacyScoping:      StatusClarify,
	LegacyDesign:       StatusDesign,
	LegacyScale:        StatusEstimate,
	LegacyTradeoff:     StatusExplain,
	LegacySynthesizing: StatusSynthesizing,
	LegacyComplete:     StatusComplete,
	LegacyFailed:       StatusFailed,
}

// v2ToLegacy omits StatusQueued and StatusProcessing: those are v2-only and
// have no legacy equivalent, matching V2ToLegacy's ok=false return.
var v2ToLegacy = map[StreamStatus]string{
	StatusClarify:      LegacyScoping,
	StatusDesign:       LegacyDesign,
	StatusEstimate:     LegacyScale,
	StatusExplain:      LegacyTradeoff,
	StatusSynthesizing: LegacySynthesizing,
	StatusComplete:     LegacyComplete,
	StatusFailed:       LegacyFailed,
}

// LegacyToV2 converts a legacy v1 status string to its v2 equivalent. ok is
// false if legacyStatus is not a recognized v1 value.
func LegacyToV2(legacyStatus string) (status StreamStatus, ok bool) {
	status, ok = legacyToV2[legacyStatus]
	return status, ok
}

// V2ToLegacy converts a v2 status to its legacy v1 string. ok is false for
// StatusQueued and StatusProcessing, which have no v1 equivalent.
func V2ToLegacy(status StreamStatus) (legacy string, ok bool) {
	legacy, ok = v2ToLegacy[status]
	return legacy, ok
}

// NormalizeStatusInput accepts either a v2 status string or a legacy v1
// status string and returns the v2 StreamStatus, mirroring the dual-format
// tolerance API endpoints extend to older frontend clients.
func NormalizeStatusInput(raw string) (StreamStatus, error) {
	if s := StreamStatus(raw); s.Valid() {
		return s, nil
	}

	if s, ok := LegacyToV2(raw); ok {
		return s, nil
	}

	return "", fmt.Errorf("invalid status %q: not a recognized v2 or legacy v1 status", raw)
}

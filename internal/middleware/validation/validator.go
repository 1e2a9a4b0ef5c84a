// Package validation parses and validates the multipart submission intake
// request before a submission row is ever created. Nothing here touches
// persistence: a rejected intake leaves no trace in the registry.
package validation

import (
	"encoding/json"
	"fmt"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/designduel/grading-pipeline/internal/contract"
)

var allowedCanvasMIME = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// PhaseArtifact is one phase's canvas (required) and audio (optional) blob,
// still in memory — the caller is responsible for handing these to the
// artifact store.
type PhaseArtifact struct {
	Phase      contract.Phase
	CanvasData []byte
	CanvasMIME string
	AudioData  []byte
	AudioMIME  string
	HasAudio   bool
}

// Intake is the fully validated, in-memory shape of a submission request.
type Intake struct {
	ProblemID  string
	PhaseTimes map[contract.Phase]int
	Artifacts  map[contract.Phase]PhaseArtifact
}

// Config bounds the sizes this package will accept; MaxFileBytes is the
// per-file cap applied to every canvas and audio upload alike.
type Config struct {
	MaxFileBytes int64
}

// ParseSubmissionIntake reads and validates the multipart submission
// request described in the intake contract: a problem_id field, one
// canvas_<phase> file per phase (required, non-empty, image/png or
// image/jpeg, size-bounded), an optional audio_<phase> file per phase, and
// a phase_times JSON object with exactly the four phase keys mapped to
// non-negative integers.
func ParseSubmissionIntake(c *fiber.Ctx, cfg Config) (*Intake, error) {
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = 10 * 1024 * 1024
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	problemIDs := form.Value["problem_id"]
	if len(problemIDs) != 1 || problemIDs[0] == "" {
		return nil, fmt.Errorf("problem_id is required")
	}

	phaseTimesRaw := form.Value["phase_times"]
	if len(phaseTimesRaw) != 1 || phaseTimesRaw[0] == "" {
		return nil, fmt.Errorf("phase_times is required")
	}
	phaseTimes, err := parsePhaseTimes(phaseTimesRaw[0])
	if err != nil {
		return nil, err
	}

	artifacts := make(map[contract.Phase]PhaseArtifact, len(contract.PhaseOrder))
	for _, phase := range contract.PhaseOrder {
		canvasField := "canvas_" + string(phase)
		files := form.File[canvasField]
		if len(files) != 1 {
			return nil, fmt.Errorf("%s is required", canvasField)
		}
		canvasData, canvasMIME, err := readAndValidateCanvas(files[0], cfg.MaxFileBytes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", canvasField, err)
		}

		artifact := PhaseArtifact{
			Phase:      phase,
			CanvasData: canvasData,
			CanvasMIME: canvasMIME,
		}

		audioField := "audio_" + string(phase)
		if audioFiles := form.File[audioField]; len(audioFiles) == 1 {
			audioData, audioMIME, err := readFile(audioFiles[0], cfg.MaxFileBytes)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", audioField, err)
			}
			if len(audioData) > 0 {
				artifact.AudioData = audioData
				artifact.AudioMIME = audioMIME
				artifact.HasAudio = true
			}
		}

		artifacts[phase] = artifact
	}

	return &Intake{
		ProblemID:  problemIDs[0],
		PhaseTimes: phaseTimes,
		Artifacts:  artifacts,
	}, nil
}

func parsePhaseTimes(raw string) (map[contract.Phase]int, error) {
	var decoded map[string]int
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("phase_times is not valid JSON: %w", err)
	}
	if len(decoded) != len(contract.PhaseOrder) {
		return nil, fmt.Errorf("phase_times must have exactly %d keys, got %d", len(contract.PhaseOrder), len(decoded))
	}

	result := make(map[contract.Phase]int, len(contract.PhaseOrder))
	for _, phase := range contract.PhaseOrder {
		v, ok := decoded[string(phase)]
		if !ok {
			return nil, fmt.Errorf("phase_times missing key %q", phase)
		}
		if v < 0 {
			return nil, fmt.Errorf("phase_times[%q] must be non-negative", phase)
		}
		result[phase] = v
	}
	return result, nil
}

func readAndValidateCanvas(fh *multipart.FileHeader, maxBytes int64) ([]byte, string, error) {
	data, mimeType, err := readFile(fh, maxBytes)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("canvas file is empty")
	}
	if !allowedCanvasMIME[mimeType] {
		return nil, "", fmt.Errorf("unsupported canvas content type %q", mimeType)
	}
	return data, mimeType, nil
}

func readFile(fh *multipart.FileHeader, maxBytes int64) ([]byte, string, error) {
	if fh.Size > maxBytes {
		return nil, "", fmt.Errorf("file exceeds maximum size of %d bytes", maxBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("could not open uploaded file: %w", err)
	}
	defer f.Close()

	data := make([]byte, fh.Size)
	if _, err := f.Read(data); err != nil && len(data) > 0 {
		return nil, "", fmt.Errorf("could not read uploaded file: %w", err)
	}

	mimeType := fh.Header.Get("Content-Type")
	return data, mimeType, nil
}

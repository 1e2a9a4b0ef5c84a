// Package handlers implements the thin Fiber HTTP surface in front of the
// grading pipeline: submission intake, result retrieval, and the SSE
// progress stream. None of the grading semantics live here — every handler
// does request parsing and response shaping, then calls straight into
// internal/pipeline, internal/catalog, and internal/events.
package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/designduel/grading-pipeline/internal/agents"
	"github.com/designduel/grading-pipeline/internal/artifacts"
	cacheredis "github.com/designduel/grading-pipeline/internal/cache/redis"
	"github.com/designduel/grading-pipeline/internal/catalog"
	"github.com/designduel/grading-pipeline/internal/contract"
	"github.com/designduel/grading-pipeline/internal/events"
	"github.com/designduel/grading-pipeline/internal/metrics"
	"github.com/designduel/grading-pipeline/internal/middleware/validation"
	"github.com/designduel/grading-pipeline/internal/pipeline"
	"github.com/designduel/grading-pipeline/internal/storage/models"
	"github.com/designduel/grading-pipeline/internal/storage/sqlite"
	"github.com/designduel/grading-pipeline/internal/transcription"
	"github.com/designduel/grading-pipeline/pkg/logger"
)

// SubmissionHandler wires the intake, result, and stream endpoints to the
// pipeline driver and its backing stores.
type SubmissionHandler struct {
	db         *sqlite.Client
	catalog    *catalog.Catalog
	artifacts  *artifacts.Store
	driver     *pipeline.Driver
	eventLog   *events.Log
	poller     *events.Poller
	cache      *cacheredis.Client
	intakeCfg  validation.Config
}

func NewSubmissionHandler(
	db *sqlite.Client,
	cat *catalog.Catalog,
	store *artifacts.Store,
	driver *pipeline.Driver,
	eventLog *events.Log,
	poller *events.Poller,
	cache *cacheredis.Client,
	maxUploadSizeMiB int,
) *SubmissionHandler {
	return &SubmissionHandler{
		db:        db,
		catalog:   cat,
		artifacts: store,
		driver:    driver,
		eventLog:  eventLog,
		poller:    poller,
		cache:     cache,
		intakeCfg: validation.Config{MaxFileBytes: int64(maxUploadSizeMiB) * 1024 * 1024},
	}
}

// rubricDefinitionJSON is the on-disk shape of Problem.RubricDefinition: an
// ordered list of {label, description, phase_weights}, matching §3's rubric
// definition invariant (phase_weights sums to 1.0 across the four phases).
type rubricDefinitionJSON struct {
	Label        string             `json:"label"`
	Description  string             `json:"description"`
	PhaseWeights map[string]float64 `json:"phase_weights"`
}

// Intake handles POST /submissions: validates the multipart bundle, creates
// the submission + artifact rows, and schedules the grading run. The run
// itself happens on a detached goroutine so intake returns immediately with
// {submission_id}; progress is observed via Stream.
func (h *SubmissionHandler) Intake(c *fiber.Ctx) error {
	ctx := c.Context()

	intake, err := validation.ParseSubmissionIntake(c, h.intakeCfg)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	problem, err := h.catalog.Get(ctx, intake.ProblemID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("unknown problem_id %q", intake.ProblemID))
	}

	var rubricDefs []rubricDefinitionJSON
	if err := json.Unmarshal([]byte(problem.RubricDefinition), &rubricDefs); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "problem catalog entry has malformed rubric definition")
	}

	submissionID := uuid.New().String()
	now := time.Now()

	phaseTimesFloat := make(map[string]float64, len(intake.PhaseTimes))
	for phase, sec := range intake.PhaseTimes {
		phaseTimesFloat[string(phase)] = float64(sec)
	}

	if err := h.db.InsertSubmission(ctx, &models.Submission{
		ID:         submissionID,
		ProblemID:  problem.ID,
		Status:     models.SubmissionQueued,
		PhaseTimes: phaseTimesFloat,
		CreatedAt:  now,
	}); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create submission")
	}

	snapshotURLs := make(map[contract.Phase]string, len(contract.PhaseOrder))
	audioInputs := make([]transcription.AudioInput, 0, len(contract.PhaseOrder))

	for _, phase := range contract.PhaseOrder {
		art := intake.Artifacts[phase]

		canvasPut, err := h.artifacts.Put(ctx, submissionID, string(phase)+"-canvas", art.CanvasData)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to store canvas snapshot")
		}
		metrics.ArtifactsStoredTotal.Inc()

		row := &models.SubmissionArtifact{
			ID:                uuid.New().String(),
			SubmissionID:      submissionID,
			Phase:             string(phase),
			CanvasStoragePath: canvasPut.StoragePath,
			CanvasMIME:        art.CanvasMIME,
			CanvasHash:        canvasPut.ContentHash,
			CanvasSizeBytes:   canvasPut.SizeBytes,
			CreatedAt:         now,
		}

		if art.HasAudio {
			audioPut, err := h.artifacts.Put(ctx, submissionID, string(phase)+"-audio", art.AudioData)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to store audio recording")
			}
			metrics.ArtifactsStoredTotal.Inc()
			row.AudioStoragePath = audioPut.StoragePath
			row.AudioMIME = art.AudioMIME
			row.AudioHash = audioPut.ContentHash
			row.AudioSizeBytes = audioPut.SizeBytes
			row.HasAudio = true
		}

		if err := h.db.InsertArtifact(ctx, row); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to record artifact")
		}

		snapshotURLs[phase] = h.artifacts.URLFor(canvasPut.StoragePath)
		audioInputs = append(audioInputs, transcription.AudioInput{
			Phase:   phase,
			Data:    art.AudioData,
			Present: art.HasAudio,
		})
	}

	rubricDefinition := make([]agents.RubricDefinitionItem, 0, len(rubricDefs))
	for _, d := range rubricDefs {
		rubricDefinition = append(rubricDefinition, agents.RubricDefinitionItem{
			Label:        d.Label,
			Description:  d.Description,
			PhaseWeights: d.PhaseWeights,
		})
	}

	runInput := pipeline.SubmissionInput{
		SubmissionID:     submissionID,
		Problem:          contract.ProblemMetadata{ID: problem.ID, Name: problem.Title, Difficulty: problem.Difficulty},
		ProblemPrompt:    problem.Prompt,
		Constraints:      problem.Constraints,
		RubricDefinition: rubricDefinition,
		PhaseTimes:       intake.PhaseTimes,
		SnapshotURLs:     snapshotURLs,
		Audio:            audioInputs,
		CreatedAt:        now,
	}

	go func() {
		bg := context.Background()
		if _, err := h.driver.Run(bg, runInput); err != nil {
			logger.Warn("Grading run ended in error", zap.String("submission_id", submissionID), zap.Error(err))
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"submission_id": submissionID})
}

// Result handles GET /submissions/:id. Only a terminal, successfully
// cached result is ever returned; a not-yet-terminal submission is
// intentionally reported not-found, since the stream is the path to
// observe progress.
func (h *SubmissionHandler) Result(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	var final contract.FinalResult
	if h.cache != nil {
		if hit, _ := h.cache.GetResult(ctx, id, &final); hit {
			metrics.CacheHits.WithLabelValues("result").Inc()
			return c.JSON(final)
		}
		metrics.CacheMisses.WithLabelValues("result").Inc()
	}

	sub, err := h.db.GetSubmission(ctx, id)
	if err != nil || sub.Status != models.SubmissionComplete {
		return fiber.NewError(fiber.StatusNotFound, "submission not found or not yet complete")
	}

	data, err := h.db.GetResult(ctx, id)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "submission not found or not yet complete")
	}
	if err := json.Unmarshal([]byte(data), &final); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "stored result is corrupt")
	}

	return c.JSON(final)
}

// streamEventJSON is the wire shape of one SSE frame, matching §6's
// {status, message, phase?, progress?, result?} contract.
type streamEventJSON struct {
	Status   string                 `json:"status"`
	Message  string                 `json:"message"`
	Phase    string                 `json:"phase,omitempty"`
	Progress *float64               `json:"progress,omitempty"`
	Result   *contract.FinalResult  `json:"result,omitempty"`
}

// Stream handles GET /submissions/:id/stream: a text/event-stream of every
// event the Event Log has recorded for this submission, replayed from
// ordinal 0 and then polled for new arrivals until a terminal event or the
// stream's own max-duration budget.
func (h *SubmissionHandler) Stream(c *fiber.Ctx) error {
	id := c.Params("id")

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx := context.Background()
		err := h.poller.Poll(ctx, id, 0, func(e events.Event) error {
			frame := streamEventJSON{
				Status:  string(e.Status),
				Message: e.Message,
				Phase:   e.Phase,
			}
			if e.Progress > 0 || e.Status == contract.StatusProcessing {
				p := e.Progress
				frame.Progress = &p
			}
			if e.Status == contract.StatusComplete {
				if data, err := h.db.GetResult(ctx, id); err == nil {
					var final contract.FinalResult
					if json.Unmarshal([]byte(data), &final) == nil {
						frame.Result = &final
					}
				}
			}

			payload, err := json.Marshal(frame)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			logger.Debug("Progress stream ended", zap.String("submission_id", id), zap.Error(err))
		}
	})

	return nil
}

// Package pipeline runs a submission through transcription, the Phase
// Panel, the Rubric/Radar Aggregator, the Plan/Outline Generator, and the
// Final Assembler, emitting progress events at every step and persisting
// exactly one terminal outcome.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/designduel/grading-pipeline/internal/agents"
	cacheredis "github.com/designduel/grading-pipeline/internal/cache/redis"
	"github.com/designduel/grading-pipeline/internal/contract"
	"github.com/designduel/grading-pipeline/internal/events"
	"github.com/designduel/grading-pipeline/internal/llm"
	"github.com/designduel/grading-pipeline/internal/metrics"
	"github.com/designduel/grading-pipeline/internal/storage/models"
	"github.com/designduel/grading-pipeline/internal/storage/sqlite"
	"github.com/designduel/grading-pipeline/internal/transcription"
	"github.com/designduel/grading-pipeline/pkg/logger"
)

// phaseMessages mirror the candidate-facing copy shown in the progress
// stream for each phase. Transcription is reported under "processing": it
// is preparatory work, not one of the four scored phases.
var phaseMessages = map[contract.Phase]string{
	contract.PhaseClarify:  "Evaluating requirements clarification...",
	contract.PhaseEstimate: "Evaluating capacity estimation...",
	contract.PhaseDesign:   "Evaluating system design...",
	contract.PhaseExplain:  "Evaluating tradeoff reasoning...",
}

var phaseProgress = map[contract.Phase]float64{
	contract.PhaseClarify:  0.3,
	contract.PhaseEstimate: 0.5,
	contract.PhaseDesign:   0.7,
	contract.PhaseExplain:  0.85,
}

type Driver struct {
	db            *sqlite.Client
	eventLog      *events.Log
	llmClient     *llm.Client
	transcriber   *transcription.Transcriber
	cache         *cacheredis.Client
	pool          *Pool
	pipelineTimeout time.Duration

	flight singleflight.Group
}

func NewDriver(db *sqlite.Client, eventLog *events.Log, llmClient *llm.Client, transcriber *transcription.Transcriber, cache *cacheredis.Client, pool *Pool, pipelineTimeout time.Duration) *Driver {
	return &Driver{
		db:              db,
		eventLog:        eventLog,
		llmClient:       llmClient,
		transcriber:     transcriber,
		cache:           cache,
		pool:            pool,
		pipelineTimeout: pipelineTimeout,
	}
}

// SubmissionInput is everything the driver needs to grade one submission,
// gathered by the caller from the registry, artifact store, and request
// payload before Run is invoked.
type SubmissionInput struct {
	SubmissionID string
	Problem      contract.ProblemMetadata
	ProblemPrompt string
	Constraints  string
	RubricDefinition []agents.RubricDefinitionItem
	PhaseTimes   map[contract.Phase]int
	SnapshotURLs map[contract.Phase]string
	Audio        []transcription.AudioInput
	CreatedAt    time.Time
}

// Run grades one submission end to end. Only one Run is ever in flight for
// a given submission id at a time: a second call for the same id while the
// first is still running joins the first call's result instead of starting
// a duplicate pipeline.
func (d *Driver) Run(ctx context.Context, in SubmissionInput) (*contract.FinalResult, error) {
	result, err, _ := d.flight.Do(in.SubmissionID, func() (interface{}, error) {
		return d.run(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return result.(*contract.FinalResult), nil
}

func (d *Driver) run(ctx context.Context, in SubmissionInput) (*contract.FinalResult, error) {
	existing, err := d.db.GetSubmission(ctx, in.SubmissionID)
	if err == nil && IsTerminal(existing.Status) {
		// Run is idempotent on a terminal submission: no new events, no state
		// change, just hand back whatever was already persisted (or nothing,
		// for a submission that terminated failed).
		if existing.Status == models.SubmissionComplete {
			return d.loadCachedResult(ctx, in.SubmissionID)
		}
		return nil, NewError(KindAgentExecutionFailed, "already_failed", fmt.Errorf("submission %s already terminated failed", in.SubmissionID))
	}

	if err := d.pool.Acquire(ctx); err != nil {
		return nil, NewError(KindAgentExecutionFailed, "acquire_pool_slot", err)
	}
	defer d.pool.Release()
	metrics.WorkerPoolInUse.Inc()
	defer metrics.WorkerPoolInUse.Dec()

	start := time.Now()
	outcome := "failed"
	defer func() {
		metrics.PipelineDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
	}()

	ctx, cancel := context.WithTimeout(ctx, d.pipelineTimeout)
	defer cancel()

	state := newScratch(in.SubmissionID)
	defer state.release()

	if err := d.db.UpdateStatus(ctx, in.SubmissionID, models.SubmissionProcessing, "", ""); err != nil {
		return nil, NewError(KindPersistenceFailed, "transition_to_processing", err)
	}
	d.emit(ctx, in.SubmissionID, contract.StatusProcessing, "", "Your submission has been queued for grading...", 0.0)

	transcripts, err := d.runTranscription(ctx, in)
	if err != nil {
		return nil, d.fail(ctx, in.SubmissionID, NewError(KindTranscriptionFailed, "transcription", err))
	}
	state.transcripts = transcripts
	d.emit(ctx, in.SubmissionID, contract.StatusProcessing, "", "Transcription complete. Evaluation begins...", 0.2)

	if err := d.runPhasePanel(ctx, in, state); err != nil {
		return nil, d.fail(ctx, in.SubmissionID, err)
	}

	rubricRadar, err := d.runRubricRadar(ctx, in, state)
	if err != nil {
		return nil, d.fail(ctx, in.SubmissionID, err)
	}
	state.rubricRadar = rubricRadar
	d.emit(ctx, in.SubmissionID, contract.StatusSynthesizing, "", "Computing final rubric and verdict...", 0.9)

	planOutline, err := d.runPlanOutline(ctx, in, state)
	if err != nil {
		return nil, d.fail(ctx, in.SubmissionID, err)
	}
	state.planOutline = planOutline

	final, err := d.runFinalAssembler(ctx, in, state)
	if err != nil {
		return nil, d.fail(ctx, in.SubmissionID, err)
	}
	state.final = final

	if err := d.persistResult(ctx, in.SubmissionID, final); err != nil {
		return nil, d.fail(ctx, in.SubmissionID, NewError(KindPersistenceFailed, "persist_result", err))
	}

	if err := d.db.UpdateStatus(ctx, in.SubmissionID, models.SubmissionComplete, "", ""); err != nil {
		return nil, NewError(KindPersistenceFailed, "transition_to_complete", err)
	}
	d.emit(ctx, in.SubmissionID, contract.StatusComplete, "", "Grading complete.", 1.0)

	outcome = "complete"
	metrics.OverallScoreHistogram.Observe(final.OverallScore)
	return final, nil
}

func (d *Driver) runTranscription(ctx context.Context, in SubmissionInput) (map[contract.Phase][]contract.TranscriptSnippet, error) {
	return d.transcriber.TranscribeAll(ctx, in.Audio)
}

func (d *Driver) runPhasePanel(ctx context.Context, in SubmissionInput, state *scratch) error {
	// The four evaluators run concurrently; phase events are still emitted in
	// PhaseOrder, each just before that phase's result is awaited.
	outs := make([]interface{}, len(contract.PhaseOrder))
	errs := make([]error, len(contract.PhaseOrder))
	done := make([]chan struct{}, len(contract.PhaseOrder))
	for i, phase := range contract.PhaseOrder {
		done[i] = make(chan struct{})
		evaluator := agents.NewPhaseEvaluator(phase, d.llmClient)
		input := agents.PhaseEvaluatorInput{
			Phase:         phase,
			ProblemPrompt: in.ProblemPrompt,
			Constraints:   in.Constraints,
			SnapshotURL:   in.SnapshotURLs[phase],
			Transcripts:   state.transcripts[phase],
			PhaseTimeSec:  float64(in.PhaseTimes[phase]),
		}
		go func(i int) {
			defer close(done[i])
			outs[i], errs[i] = evaluator.Run(ctx, input)
		}(i)
	}

	for i, phase := range contract.PhaseOrder {
		d.emit(ctx, in.SubmissionID, contract.StreamStatus(phase), string(phase), phaseMessages[phase], phaseProgress[phase])

		<-done[i]
		out, err := outs[i], errs[i]
		if err != nil {
			return NewError(KindAgentExecutionFailed, fmt.Sprintf("phase_evaluator:%s", phase), err)
		}

		phaseOutput, ok := out.(agents.PhaseAgentOutput)
		if !ok {
			return NewError(KindAgentExecutionFailed, fmt.Sprintf("phase_evaluator:%s", phase), fmt.Errorf("unexpected output type %T", out))
		}
		state.setPhaseOutput(phase, phaseOutput)
	}
	return nil
}

func (d *Driver) runRubricRadar(ctx context.Context, in SubmissionInput, state *scratch) (*agents.RubricRadarOutput, error) {
	aggregator := agents.NewRubricRadarAggregator(d.llmClient)
	out, err := aggregator.Run(ctx, agents.RubricRadarInput{
		PhaseScores:      state.getPhaseOutputs(),
		RubricDefinition: in.RubricDefinition,
	})
	if err != nil {
		return nil, NewError(KindAgentExecutionFailed, "rubric_radar_aggregator", err)
	}
	result, ok := out.(agents.RubricRadarOutput)
	if !ok {
		return nil, NewError(KindAgentExecutionFailed, "rubric_radar_aggregator", fmt.Errorf("unexpected output type %T", out))
	}
	return &result, nil
}

func (d *Driver) runPlanOutline(ctx context.Context, in SubmissionInput, state *scratch) (*agents.PlanOutlineOutput, error) {
	if state.rubricRadar == nil {
		return nil, NewError(KindMissingIntermediate, "plan_outline_generator", fmt.Errorf("rubric_radar output missing"))
	}

	generator := agents.NewPlanOutlineGenerator(d.llmClient)
	out, err := generator.Run(ctx, agents.PlanOutlineInput{
		ProblemPrompt: in.ProblemPrompt,
		Constraints:   in.Constraints,
		PhaseScores:   state.getPhaseOutputs(),
		RubricRadar:   *state.rubricRadar,
	})
	if err != nil {
		return nil, NewError(KindAgentExecutionFailed, "plan_outline_generator", err)
	}
	result, ok := out.(agents.PlanOutlineOutput)
	if !ok {
		return nil, NewError(KindAgentExecutionFailed, "plan_outline_generator", fmt.Errorf("unexpected output type %T", out))
	}
	return &result, nil
}

func (d *Driver) runFinalAssembler(ctx context.Context, in SubmissionInput, state *scratch) (*contract.FinalResult, error) {
	if state.rubricRadar == nil || state.planOutline == nil {
		return nil, NewError(KindMissingIntermediate, "final_assembler", fmt.Errorf("rubric_radar or plan_outline missing"))
	}

	assembler := agents.NewFinalAssembler()
	out, err := assembler.Run(ctx, agents.FinalAssemblerInput{
		SubmissionID: in.SubmissionID,
		Problem:      in.Problem,
		PhaseTimes:   in.PhaseTimes,
		CreatedAt:    in.CreatedAt,
		CompletedAt:  time.Now(),
		PhaseScores:  state.getPhaseOutputs(),
		RubricRadar:  *state.rubricRadar,
		PlanOutline:  *state.planOutline,
	})
	if err != nil {
		return nil, NewError(KindContractViolation, "final_assembler", err)
	}
	result, ok := out.(*contract.FinalResult)
	if !ok {
		return nil, NewError(KindContractViolation, "final_assembler", fmt.Errorf("unexpected output type %T", out))
	}
	return result, nil
}

func (d *Driver) persistResult(ctx context.Context, submissionID string, final *contract.FinalResult) error {
	data, err := marshalResult(final)
	if err != nil {
		return err
	}
	if err := d.db.UpsertResult(ctx, submissionID, data); err != nil {
		return err
	}
	if d.cache != nil {
		if err := d.cache.SetResult(ctx, submissionID, final, 24*time.Hour); err != nil {
			logger.Warn("Failed to cache result, continuing without cache", zap.Error(err))
		}
	}
	return nil
}

// loadCachedResult returns the previously persisted FinalResult for a
// submission that already terminated complete. Run never recomputes it: a
// second Run call for a terminal submission is a pure read.
func (d *Driver) loadCachedResult(ctx context.Context, submissionID string) (*contract.FinalResult, error) {
	data, err := d.db.GetResult(ctx, submissionID)
	if err != nil {
		return nil, NewError(KindPersistenceFailed, "load_cached_result", err)
	}
	var final contract.FinalResult
	if err := json.Unmarshal([]byte(data), &final); err != nil {
		return nil, NewError(KindPersistenceFailed, "load_cached_result", err)
	}
	return &final, nil
}

func (d *Driver) fail(ctx context.Context, submissionID string, err error) error {
	msg := err.Error()
	if updErr := d.db.UpdateStatus(ctx, submissionID, models.SubmissionFailed, "", msg); updErr != nil {
		logger.Error("Failed to record failed status", zap.Error(updErr), zap.String("submission_id", submissionID))
	}
	d.emit(ctx, submissionID, contract.StatusFailed, "", msg, 1.0)
	logger.Error("Grading pipeline failed", zap.String("submission_id", submissionID), zap.Error(err))
	return err
}

func (d *Driver) emit(ctx context.Context, submissionID string, status contract.StreamStatus, phase, message string, progress float64) {
	if err := d.eventLog.Append(ctx, submissionID, status, phase, message, progress); err != nil {
		logger.Error("Failed to append grading event", zap.Error(err), zap.String("submission_id", submissionID))
	}
}

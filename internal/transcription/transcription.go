// Package transcription runs the fan-out transcription stage: each phase's
// recorded audio is transcribed independently, under one shared 120-second
// budget, with an all-or-fail policy for any phase that actually has audio.
package transcription

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/designduel/grading-pipeline/internal/contract"
	"github.com/designduel/grading-pipeline/internal/llm"
	"github.com/designduel/grading-pipeline/pkg/logger"
)

// chunkWindowSec is the nominal duration assigned to each transcribed
// sentence when the provider returns plain text with no word-level
// timestamps of its own. It mirrors the 10-15s chunking the provider itself
// uses internally to window long recordings.
const chunkWindowSec = 12.0

// AudioInput is one phase's recorded audio, if any was captured.
type AudioInput struct {
	Phase contract.Phase
	Data  []byte
	// Present is false when the candidate recorded no audio for this phase;
	// an absent recording is not a failure, it simply yields zero snippets.
	Present bool
}

// Result is the outcome of transcribing one phase's audio.
type Result struct {
	Phase       contract.Phase
	Snippets    []contract.TranscriptSnippet
	Err         error
}

// Transcriber fans a batch of per-phase audio out to the LLM client's
// transcription call and joins on completion (or timeout).
type Transcriber struct {
	llm     *llm.Client
	timeout time.Duration
}

func NewTranscriber(client *llm.Client, timeout time.Duration) *Transcriber {
	return &Transcriber{llm: client, timeout: timeout}
}

// TranscribeAll transcribes every phase with audio present, concurrently,
// under a single shared deadline. If any present phase fails to transcribe,
// the whole stage fails: a partial transcript would silently under-evaluate
// a phase rather than surfacing the failure to the candidate.
func (t *Transcriber) TranscribeAll(ctx context.Context, inputs []AudioInput) (map[contract.Phase][]contract.TranscriptSnippet, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	results := make(chan Result, len(inputs))
	var wg sync.WaitGroup

	for _, in := range inputs {
		if !in.Present {
			results <- Result{Phase: in.Phase, Snippets: nil}
			continue
		}

		wg.Add(1)
		go func(in AudioInput) {
			defer wg.Done()
			snippets, err := t.transcribeOne(ctx, in)
			results <- Result{Phase: in.Phase, Snippets: snippets, Err: err}
		}(in)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[contract.Phase][]contract.TranscriptSnippet, len(inputs))
	var firstErr error
	for r := range results {
		if r.Err != nil && firstErr == nil {
			firstErr = fmt.Errorf("transcription failed for phase %q: %w", r.Phase, r.Err)
		}
		out[r.Phase] = r.Snippets
	}

	if firstErr != nil {
		return nil, firstErr
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("transcription budget exceeded: %w", ctx.Err())
	}

	logger.Info("Transcription stage complete", zap.Int("phases", len(out)))
	return out, nil
}

func (t *Transcriber) transcribeOne(ctx context.Context, in AudioInput) ([]contract.TranscriptSnippet, error) {
	text, err := t.llm.TranscribeAudio(ctx, in.Data, fmt.Sprintf("%s.wav", in.Phase))
	if err != nil {
		return nil, err
	}

	// The whisper transcription API returns plain text, not per-word
	// timestamps, in the default response format this client requests.
	// Sentences are assigned non-decreasing timestamps at the provider's
	// nominal chunk window rather than all collapsing onto timestamp 0.
	if text == "" {
		return nil, nil
	}
	return chunkTranscript(text), nil
}

// chunkTranscript splits a flat transcript into sentence-level snippets and
// assigns each one a non-decreasing timestamp spaced chunkWindowSec apart,
// approximating chunk-start timestamps for a provider that returns none.
func chunkTranscript(text string) []contract.TranscriptSnippet {
	var snippets []contract.TranscriptSnippet
	for i, sentence := range splitSentences(text) {
		snippets = append(snippets, contract.TranscriptSnippet{
			TimestampSec: float64(i) * chunkWindowSec,
			Text:         sentence,
		})
	}
	return snippets
}

func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return out
}

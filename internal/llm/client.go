// Package llm wraps the chat-completion primitive used by the model-backed
// grading stages (phase evaluators, rubric/radar summarizer, plan/outline
// generator) behind a single circuit-breaker-and-retry-guarded client.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/designduel/grading-pipeline/pkg/circuitbreaker"
	"github.com/designduel/grading-pipeline/pkg/logger"
	"github.com/designduel/grading-pipeline/pkg/retry"
)

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func NewClient(apiKey, model string, temperature float32, maxTokens int) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("LLM client initialized", zap.String("model", model))

	return &Client{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

// Complete is the one primitive every agent stage calls through. The caller
// owns the timeout: each pipeline stage derives its own context deadline
// from the transcription/pipeline budgets, so this does not impose one of
// its own beyond a 60-second cap against a hung HTTP round trip.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserPrompt,
		},
	}

	var result *CompletionResponse

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: temperature,
					MaxTokens:   maxTokens,
					ResponseFormat: &openai.ChatCompletionResponseFormat{
						Type: openai.ChatCompletionResponseFormatTypeJSONObject,
					},
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			result = &CompletionResponse{
				Content: resp.Choices[0].Message.Content,
				Usage: Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// EvaluatePhase asks the model to act as the named phase's evaluator. The
// caller supplies the fully rendered prompt (problem + transcript + canvas
// description); the response is expected to be a JSON object matching the
// PhaseAgentOutput shape described in internal/agents, parsed by the caller
// after fence-stripping via internal/llmutil.
func (c *Client) EvaluatePhase(ctx context.Context, systemPrompt, userPrompt string) (*CompletionResponse, error) {
	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.2,
		MaxTokens:    1200,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate phase: %w", err)
	}

	logger.Debug("Phase evaluated", zap.Int("response_length", len(resp.Content)))
	return resp, nil
}

// SynthesizeVerdictSummary asks the model to turn the (already computed,
// deterministic) rubric and radar numbers into verdict prose; the shape of
// the returned JSON is set by the caller's prompt (the Rubric/Radar
// Aggregator asks for a single summary string). The
// numeric rubric and radar scores themselves are never delegated to the
// model; see internal/rubric for the bit-exact weighted math.
func (c *Client) SynthesizeVerdictSummary(ctx context.Context, systemPrompt, userPrompt string) (*CompletionResponse, error) {
	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.3,
		MaxTokens:    800,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize verdict summary: %w", err)
	}

	return resp, nil
}

// GeneratePlanOutline produces the next-attempt plan, follow-up questions,
// and reference outline described in internal/agents' PlanOutline stage.
func (c *Client) GeneratePlanOutline(ctx context.Context, systemPrompt, userPrompt string) (*CompletionResponse, error) {
	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.4,
		MaxTokens:    1500,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan outline: %w", err)
	}

	return resp, nil
}

// AssembleNarrative is a general prose-completion call. No stage in this
// module calls it: the Final Assembler builds FinalResult in Go without a
// model call (see internal/agents/assembler.go).
func (c *Client) AssembleNarrative(ctx context.Context, systemPrompt, userPrompt string) (*CompletionResponse, error) {
	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.2,
		MaxTokens:    600,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble narrative: %w", err)
	}

	return resp, nil
}

// TranscribeAudio delegates to the configured speech-to-text model. Kept on
// this client so the same circuit breaker and retry policy guard both chat
// and transcription calls against the same upstream provider outage.
func (c *Client) TranscribeAudio(ctx context.Context, audio []byte, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var transcript string

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
				Model:    openai.Whisper1,
				FilePath: filename,
				Reader:   io.Reader(bytes.NewReader(audio)),
				Format:   openai.AudioResponseFormatText,
			})
			if err != nil {
				return fmt.Errorf("failed to transcribe audio: %w", err)
			}

			transcript = resp.Text
			return nil
		})
	})

	if err != nil {
		return "", err
	}

	return transcript, nil
}

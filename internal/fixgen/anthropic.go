package fixgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"

// AnthropicConfig holds fix generator configuration.
type AnthropicConfig struct {
	// APIKey overrides the ANTHROPIC_API_KEY environment variable
	APIKey string
	// Model to use (default: DefaultModel)
	Model string
	// Retry configuration (uses defaults if zero)
	Retry RetryConfig
}

// Anthropic generates fixes by asking the Anthropic API. Calls are
// retried with backoff, gated by a circuit breaker, and bounded by a
// concurrency semaphore.
type Anthropic struct {
	client  *anthropic.Client
	model   string
	retry   RetryConfig
	breaker *CircuitBreaker
	sem     *semaphore.Weighted
}

// NewAnthropic creates an API-backed fix generator.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var sem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	return &Anthropic{
		client:  &client,
		model:   model,
		retry:   retry,
		breaker: NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout),
		sem:     sem,
	}, nil
}

// fixResponse is the JSON shape the model is asked to produce.
type fixResponse struct {
	FixedCode   string `json:"fixed_code"`
	Explanation string `json:"explanation"`
}

// GenerateFix asks the API for a corrected version of the file. The
// response must differ from the input; an empty or unchanged result is
// reported as ErrNoFix so the caller counts it as a failed attempt.
func (a *Anthropic) GenerateFix(ctx context.Context, req Request) (*Result, error) {
	prompt := buildFixPrompt(req)

	var response *anthropic.Message
	err := a.retryWithBackoff(ctx, "fix", func(attemptCtx context.Context) error {
		resp, apiErr := a.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: 8192,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fix generation failed: %w", err)
	}

	var responseText string
	for _, block := range response.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	var parsed fixResponse
	if err := json.Unmarshal([]byte(stripCodeFences(responseText)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse fix response: %w", err)
	}

	fixed := parsed.FixedCode
	if strings.TrimSpace(fixed) == "" || fixed == req.Code {
		return nil, ErrNoFix
	}

	return &Result{FixedCode: fixed, Explanation: parsed.Explanation}, nil
}

// buildFixPrompt assembles the repair prompt.
func buildFixPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are repairing a %s source file that fails to compile.\n\n", req.Language)
	fmt.Fprintf(&b, "File: %s\n\n", req.File)
	fmt.Fprintf(&b, "Compiler error:\n%s\n\n", req.ErrorMessage)
	if req.Context != "" {
		fmt.Fprintf(&b, "Additional context:\n%s\n\n", req.Context)
	}
	fmt.Fprintf(&b, "Current file content:\n```%s\n%s\n```\n\n", req.Language, req.Code)
	b.WriteString(`Respond with JSON only, no prose before or after:
{
  "fixed_code": "<the complete corrected file content>",
  "explanation": "<one or two sentences describing the change>"
}

Rules:
- fixed_code must be the ENTIRE file, not a diff or snippet
- Make the smallest change that resolves the compiler error
- Do not reformat or restructure unrelated code`)

	return b.String()
}

// stripCodeFences removes a surrounding markdown code fence if present.
// Models sometimes wrap JSON despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Package llmcall provides LLM call recording and querying for traceability.
// Every LLM API call is recorded with its stage, source file, prompt key and
// hash, response and metrics.
package llmcall

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/shotlist/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	// Unique identifier
	ID string `json:"id" yaml:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	LatencyMs int       `json:"latency_ms" yaml:"latency_ms"`

	// Context references
	Stage  string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Prompt traceability
	PromptKey  string `json:"prompt_key" yaml:"prompt_key"`
	PromptHash string `json:"prompt_hash,omitempty" yaml:"prompt_hash,omitempty"` // SHA-256 of the exact prompt text used

	// Model info
	Provider    string   `json:"provider" yaml:"provider"`
	Model       string   `json:"model" yaml:"model"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// Token usage
	InputTokens  int     `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int     `json:"output_tokens" yaml:"output_tokens"`
	CostUSD      float64 `json:"cost_usd,omitempty" yaml:"cost_usd,omitempty"`
	Attempts     int     `json:"attempts" yaml:"attempts"`

	// Response
	Response string `json:"response" yaml:"response"`

	// Status
	Success   bool   `json:"success" yaml:"success"`
	ErrorType string `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	// Context references (all optional)
	Stage  string
	Source string

	// Prompt identification (required for traceability)
	PromptKey  string
	PromptHash string

	// Request parameters (pointer to distinguish "not set" from "set to 0")
	Temperature *float64
}

type optionsKey struct{}

// WithOptions attaches recording context to ctx. The recorder reads it when
// the provider caller reports a finished call.
func WithOptions(ctx context.Context, opts RecordOptions) context.Context {
	return context.WithValue(ctx, optionsKey{}, opts)
}

// OptionsFrom returns the recording context attached to ctx, if any.
func OptionsFrom(ctx context.Context) RecordOptions {
	opts, _ := ctx.Value(optionsKey{}).(RecordOptions)
	return opts
}

// FromChatResult creates a Call from a ChatResult.
// Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	latency := result.ExecutionTime
	if latency == 0 {
		latency = result.TotalTime
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		LatencyMs:    int(latency.Milliseconds()),
		Stage:        opts.Stage,
		Source:       opts.Source,
		PromptKey:    opts.PromptKey,
		PromptHash:   opts.PromptHash,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		Temperature:  opts.Temperature,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		CostUSD:      result.CostUSD,
		Attempts:     result.Attempts,
		Response:     result.Content,
		Success:      result.Success,
	}

	if !result.Success {
		call.ErrorType = result.ErrorType
		call.Error = result.ErrorMessage
	}

	return call
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const (
	GeminiName         = "gemini"
	GeminiDefaultModel = "gemini-2.5-pro"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// GeminiClient implements LLMClient using the Google GenAI SDK.
type GeminiClient struct {
	client       *genai.Client
	apiKey       string
	defaultModel string
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w: API key is required", GeminiName, ErrAuth)
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = GeminiDefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:       client,
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
	}, nil
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// Chat sends a single generate-content request.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  GeminiName,
		ModelUsed: model,
		Attempts:  1,
	}
	fail := func(err error) (*ChatResult, error) {
		result.Success = false
		result.ErrorType = ErrorType(err)
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, err
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.User()), geminiConfig(req))
	if err != nil {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		return fail(classifyGenAIError(err))
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		reason := "empty response"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return fail(fmt.Errorf("%s: %w: %s", GeminiName, ErrMalformedResponse, reason))
	}

	result.Success = true
	result.Content = text
	if resp.ModelVersion != "" {
		result.ModelUsed = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		result.PromptTokens = int(u.PromptTokenCount)
		result.CompletionTokens = int(u.CandidatesTokenCount)
		result.TotalTokens = int(u.TotalTokenCount)
	}
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime
	return result, nil
}

func geminiConfig(req *ChatRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if sys := req.System(); sys != "" {
		cfg.SystemInstruction = genai.NewContentFromText(sys, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.ResponseFormat != nil {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

// classifyGenAIError maps SDK errors onto the provider error classes.
func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(GeminiName, apiErr.Code, 0, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyStatus(GeminiName, apiErrPtr.Code, 0, apiErrPtr.Message)
	}
	if strings.Contains(strings.ToLower(err.Error()), "api key not valid") {
		return fmt.Errorf("%s: %w: %v", GeminiName, ErrAuth, err)
	}
	return fmt.Errorf("%s: %w: %v", GeminiName, ErrTransient, err)
}

var _ LLMClient = (*GeminiClient)(nil)

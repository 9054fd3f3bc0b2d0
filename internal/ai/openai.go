package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Pricing per 1K tokens, USD. Unknown models fall back to the
// gpt-3.5-turbo rate.
var openAIPricing = map[string]float64{
	"gpt-3.5-turbo": 0.002,
	"gpt-4":         0.03,
	"gpt-4-turbo":   0.01,
	"gpt-4o":        0.005,
	"gpt-4o-mini":   0.00015,
}

const openAIDefaultModel = "gpt-4o-mini"

// OpenAIProvider is a metered hosted backend.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, &AuthError{Provider: "openai", Err: errors.New("API key is required")}
	}
	if model == "" {
		model = openAIDefaultModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) GenerateText(ctx context.Context, prompt string, opts Options) (*Response, error) {
	return p.GenerateChat(ctx, []Message{{Role: openai.ChatMessageRoleUser, Content: prompt}}, opts)
}

func (p *OpenAIProvider) GenerateChat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stop:        opts.Stop,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, p.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: "openai", Err: errors.New("response contained no choices")}
	}

	return &Response{
		Content:    resp.Choices[0].Message.Content,
		Model:      resp.Model,
		Provider:   p.Name(),
		TokensUsed: resp.Usage.TotalTokens,
		Cost:       p.EstimateCost(resp.Usage.TotalTokens, resp.Model),
		Latency:    time.Since(start),
	}, nil
}

func (p *OpenAIProvider) GenerateStructured(ctx context.Context, prompt string, dest interface{}, opts Options) error {
	req := openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a helpful assistant that generates structured JSON data."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return p.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return &ProviderError{Provider: "openai", Err: errors.New("response contained no choices")}
	}

	return decodeStructured(p.Name(), resp.Choices[0].Message.Content, dest)
}

func (p *OpenAIProvider) Models() []ModelInfo {
	return []ModelInfo{
		{Name: "gpt-3.5-turbo", ContextLength: 4096, CostPer1KTokens: 0.002, Description: "Fast and cost-effective"},
		{Name: "gpt-4", ContextLength: 8192, CostPer1KTokens: 0.03, Description: "Most capable legacy model"},
		{Name: "gpt-4-turbo", ContextLength: 128000, CostPer1KTokens: 0.01, Description: "GPT-4 with large context"},
		{Name: "gpt-4o", ContextLength: 128000, CostPer1KTokens: 0.005, Description: "Flagship multimodal model"},
		{Name: "gpt-4o-mini", ContextLength: 128000, CostPer1KTokens: 0.00015, Description: "Affordable small model"},
	}
}

func (p *OpenAIProvider) EstimateCost(tokens int, model string) float64 {
	if model == "" {
		model = p.model
	}
	costPer1K, ok := openAIPricing[model]
	if !ok {
		costPer1K = openAIPricing["gpt-3.5-turbo"]
	}
	return float64(tokens) / 1000 * costPer1K
}

// CountTokens approximates at roughly four characters per token, which
// is close enough for budget checks without shipping a tokenizer.
func (p *OpenAIProvider) CountTokens(text string) int {
	return len(text) / 4
}

func (p *OpenAIProvider) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return &AuthError{Provider: "openai", Err: err}
		case 429:
			return &RateLimitError{Provider: "openai", Err: err}
		case 400, 404, 422:
			return &InvalidRequestError{Provider: "openai", Err: err}
		}
		return &ProviderError{Provider: "openai", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Provider: "openai", Err: err}
	}
	return &ProviderError{Provider: "openai", Err: fmt.Errorf("request failed: %w", err)}
}

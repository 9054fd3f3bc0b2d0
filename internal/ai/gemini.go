package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var geminiPricing = map[string]float64{
	"gemini-1.5-flash": 0.00015,
	"gemini-1.5-pro":   0.0025,
	"gemini-2.0-flash": 0.0002,
}

const geminiDefaultModel = "gemini-1.5-flash"

// GeminiProvider is a metered hosted backend over the Google
// generative-ai SDK.
type GeminiProvider struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

func NewGeminiProvider(apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, &AuthError{Provider: "gemini", Err: errors.New("API key is required")}
	}
	if model == "" {
		model = geminiDefaultModel
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Err: fmt.Errorf("failed to create client: %w", err)}
	}

	m := client.GenerativeModel(model)
	m.SetTemperature(0.7)
	m.SetTopP(0.95)

	return &GeminiProvider{client: client, model: m, modelName: model}, nil
}

func (p *GeminiProvider) Close() {
	p.client.Close()
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) GenerateText(ctx context.Context, prompt string, opts Options) (*Response, error) {
	start := time.Now()
	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, p.mapError(err)
	}
	return p.toResponse(resp, start)
}

func (p *GeminiProvider) GenerateChat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	if len(messages) == 0 {
		return nil, &InvalidRequestError{Provider: "gemini", Err: errors.New("no messages")}
	}

	cs := p.model.StartChat()
	for _, m := range messages[:len(messages)-1] {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(messages[len(messages)-1].Content))
	if err != nil {
		return nil, p.mapError(err)
	}
	return p.toResponse(resp, start)
}

func (p *GeminiProvider) GenerateStructured(ctx context.Context, prompt string, dest interface{}, opts Options) error {
	resp, err := p.GenerateText(ctx, structuredPrompt(prompt), opts)
	if err != nil {
		return err
	}
	return decodeStructured(p.Name(), resp.Content, dest)
}

func (p *GeminiProvider) Models() []ModelInfo {
	return []ModelInfo{
		{Name: "gemini-1.5-flash", ContextLength: 1000000, CostPer1KTokens: 0.00015, Description: "Fast, long context"},
		{Name: "gemini-1.5-pro", ContextLength: 2000000, CostPer1KTokens: 0.0025, Description: "Highest quality"},
		{Name: "gemini-2.0-flash", ContextLength: 1000000, CostPer1KTokens: 0.0002, Description: "Latest flash model"},
	}
}

func (p *GeminiProvider) EstimateCost(tokens int, model string) float64 {
	if model == "" {
		model = p.modelName
	}
	costPer1K, ok := geminiPricing[model]
	if !ok {
		costPer1K = geminiPricing[geminiDefaultModel]
	}
	return float64(tokens) / 1000 * costPer1K
}

func (p *GeminiProvider) CountTokens(text string) int {
	return len(text) / 4
}

func (p *GeminiProvider) toResponse(resp *genai.GenerateContentResponse, start time.Time) (*Response, error) {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	if text.Len() == 0 {
		return nil, &ProviderError{Provider: "gemini", Err: errors.New("response contained no text")}
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &Response{
		Content:    text.String(),
		Model:      p.modelName,
		Provider:   p.Name(),
		TokensUsed: tokens,
		Cost:       p.EstimateCost(tokens, p.modelName),
		Latency:    time.Since(start),
	}, nil
}

func (p *GeminiProvider) mapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return &AuthError{Provider: "gemini", Err: err}
		case 429:
			return &RateLimitError{Provider: "gemini", Err: err}
		case 400, 404:
			return &InvalidRequestError{Provider: "gemini", Err: err}
		}
		return &ProviderError{Provider: "gemini", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Provider: "gemini", Err: err}
	}
	return &ProviderError{Provider: "gemini", Err: err}
}

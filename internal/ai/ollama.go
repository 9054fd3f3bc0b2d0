package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const ollamaDefaultModel = "llama3"

// OllamaProvider talks to a self-hosted Ollama server over its local
// HTTP API. Zero marginal cost; token counts are approximated from
// character length.
type OllamaProvider struct {
	baseURL string
	model   string
	httpc   *http.Client
}

func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	if baseURL == "" {
		return nil, &InvalidRequestError{Provider: "ollama", Err: errors.New("base URL is required")}
	}
	if model == "" {
		model = ollamaDefaultModel
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpc:   &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaOptions struct {
	Temperature float32  `json:"temperature,omitempty"`
	TopP        float32  `json:"top_p,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

func (p *OllamaProvider) GenerateText(ctx context.Context, prompt string, opts Options) (*Response, error) {
	payload := struct {
		Model   string        `json:"model"`
		Prompt  string        `json:"prompt"`
		Stream  bool          `json:"stream"`
		Options ollamaOptions `json:"options"`
	}{
		Model:  p.model,
		Prompt: prompt,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			NumPredict:  opts.MaxTokens,
			Stop:        opts.Stop,
		},
	}

	var out struct {
		Response        string `json:"response"`
		Done            bool   `json:"done"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}

	start := time.Now()
	if err := p.post(ctx, "/api/generate", payload, &out); err != nil {
		return nil, err
	}

	return &Response{
		Content:    out.Response,
		Model:      p.model,
		Provider:   p.Name(),
		TokensUsed: out.PromptEvalCount + out.EvalCount,
		Cost:       0, // self-hosted
		Latency:    time.Since(start),
	}, nil
}

func (p *OllamaProvider) GenerateChat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	payload := struct {
		Model    string        `json:"model"`
		Messages []Message     `json:"messages"`
		Stream   bool          `json:"stream"`
		Options  ollamaOptions `json:"options"`
	}{
		Model:    p.model,
		Messages: messages,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	}

	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		PromptEvalCount int `json:"prompt_eval_count"`
		EvalCount       int `json:"eval_count"`
	}

	start := time.Now()
	if err := p.post(ctx, "/api/chat", payload, &out); err != nil {
		return nil, err
	}

	return &Response{
		Content:    out.Message.Content,
		Model:      p.model,
		Provider:   p.Name(),
		TokensUsed: out.PromptEvalCount + out.EvalCount,
		Cost:       0,
		Latency:    time.Since(start),
	}, nil
}

func (p *OllamaProvider) GenerateStructured(ctx context.Context, prompt string, dest interface{}, opts Options) error {
	resp, err := p.GenerateText(ctx, structuredPrompt(prompt), opts)
	if err != nil {
		return err
	}
	return decodeStructured(p.Name(), resp.Content, dest)
}

func (p *OllamaProvider) Models() []ModelInfo {
	return []ModelInfo{
		{Name: "llama3", ContextLength: 8192, CostPer1KTokens: 0, Description: "Meta Llama 3 - general purpose"},
		{Name: "mistral", ContextLength: 8192, CostPer1KTokens: 0, Description: "Mistral 7B - fast and capable"},
		{Name: "mixtral", ContextLength: 32768, CostPer1KTokens: 0, Description: "Mixtral 8x7B - very capable"},
	}
}

// EstimateCost is always zero for a self-hosted backend.
func (p *OllamaProvider) EstimateCost(tokens int, model string) float64 { return 0 }

func (p *OllamaProvider) CountTokens(text string) int {
	return len(text) / 4
}

// ListLocalModels returns the models pulled on the local server.
func (p *OllamaProvider) ListLocalModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, p.mapError(err)
	}
	defer resp.Body.Close()

	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &ProviderError{Provider: "ollama", Err: err}
	}

	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (p *OllamaProvider) post(ctx context.Context, path string, payload, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &InvalidRequestError{Provider: "ollama", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &InvalidRequestError{Provider: "ollama", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return p.mapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
			return &InvalidRequestError{Provider: "ollama", Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
		}
		return &ProviderError{Provider: "ollama", Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &ProviderError{Provider: "ollama", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (p *OllamaProvider) mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Provider: "ollama", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Provider: "ollama", Err: err}
	}
	return &ProviderError{Provider: "ollama", Err: fmt.Errorf("connection error: %w", err)}
}

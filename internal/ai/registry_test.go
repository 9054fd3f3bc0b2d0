package ai

import (
	"strings"
	"testing"
)

func TestRegistry_BuiltinBackends(t *testing.T) {
	r := NewRegistry()

	available := r.Available()
	if len(available) != 3 {
		t.Fatalf("expected 3 built-in backends, got %v", available)
	}

	p, err := r.New("ollama", Settings{BaseURL: "http://localhost:11434"})
	if err != nil {
		t.Fatalf("ollama constructor failed: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("unexpected provider name %q", p.Name())
	}
}

func TestRegistry_UnknownProvider(t *testing.T) {
	r := NewRegistry()

	_, err := r.New("skynet", Settings{})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "skynet") {
		t.Errorf("error should name the unknown provider: %v", err)
	}
}

func TestRegistry_MissingCredentialsRejected(t *testing.T) {
	r := NewRegistry()

	if _, err := r.New("openai", Settings{}); err == nil {
		t.Error("openai without API key should fail construction")
	}
	if _, err := r.New("ollama", Settings{}); err == nil {
		t.Error("ollama without base URL should fail construction")
	}
}

func TestRegistry_CustomBackend(t *testing.T) {
	r := NewRegistry()
	r.Register("scripted", func(s Settings) (Provider, error) {
		return &scriptedProvider{}, nil
	})

	p, err := r.New("scripted", Settings{})
	if err != nil {
		t.Fatalf("custom constructor failed: %v", err)
	}
	if p.Name() != "scripted" {
		t.Errorf("unexpected name %q", p.Name())
	}
}

func TestOpenAIEstimateCost(t *testing.T) {
	p := &OpenAIProvider{model: "gpt-4"}

	tests := []struct {
		model    string
		tokens   int
		expected float64
	}{
		{"gpt-4", 1000, 0.03},
		{"gpt-4o-mini", 2000, 0.0003},
		{"", 1000, 0.03},               // falls back to configured model
		{"unknown-model", 1000, 0.002}, // unknown models use base rate
	}

	for _, tc := range tests {
		got := p.EstimateCost(tc.tokens, tc.model)
		if got != tc.expected {
			t.Errorf("EstimateCost(%d, %q) = %v, want %v", tc.tokens, tc.model, got, tc.expected)
		}
	}
}

func TestOllamaCostIsZero(t *testing.T) {
	p, err := NewOllamaProvider("http://localhost:11434", "")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.EstimateCost(1_000_000, "mixtral"); got != 0 {
		t.Errorf("self-hosted cost should be 0, got %v", got)
	}
}

func TestCountTokensHeuristic(t *testing.T) {
	p, _ := NewOllamaProvider("http://localhost:11434", "")
	text := strings.Repeat("word ", 100) // 500 chars
	if got := p.CountTokens(text); got != 125 {
		t.Errorf("expected 125 tokens for 500 chars, got %d", got)
	}
}

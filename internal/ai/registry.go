package ai

import (
	"fmt"
	"sort"
)

// Settings is the provider-agnostic construction config.
type Settings struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Constructor builds one backend from settings.
type Constructor func(s Settings) (Provider, error)

// Registry maps a configuration name to a backend constructor.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns a registry with the built-in backends registered.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}

	r.Register("openai", func(s Settings) (Provider, error) {
		return NewOpenAIProvider(s.APIKey, s.Model)
	})
	r.Register("gemini", func(s Settings) (Provider, error) {
		return NewGeminiProvider(s.APIKey, s.Model)
	})
	r.Register("ollama", func(s Settings) (Provider, error) {
		return NewOllamaProvider(s.BaseURL, s.Model)
	})

	return r
}

func (r *Registry) Register(name string, ctor Constructor) {
	r.constructors[name] = ctor
}

// New builds the named backend.
func (r *Registry) New(name string, s Settings) (Provider, error) {
	ctor, ok := r.constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown AI provider %q (available: %v)", name, r.Available())
	}
	return ctor(s)
}

func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package services

import (
	"context"
	"fmt"
	"strings"

	"vidforge-backend/internal/ai"
)

// ScriptResult is the structured output of a script generation call.
type ScriptResult struct {
	Script            string   `json:"script"`
	Tags              []string `json:"tags"`
	EstimatedDuration int      `json:"estimated_duration"`
}

// IdeaResult is a complete video idea for a channel niche.
type IdeaResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Script      string   `json:"script"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
}

// ContentService turns video titles and channel niches into scripts
// and metadata via whichever AI backend is configured.
type ContentService struct {
	provider  ai.Provider
	retryer   *ai.Retryer
	maxTokens int
}

func NewContentService(provider ai.Provider, retryer *ai.Retryer, maxTokens int) *ContentService {
	return &ContentService{provider: provider, retryer: retryer, maxTokens: maxTokens}
}

// GenerateScript produces a narration script plus tags for an existing
// video draft. targetSeconds sizes the script at roughly 150 spoken
// words per minute.
func (s *ContentService) GenerateScript(ctx context.Context, title, description string, targetSeconds int) (*ScriptResult, error) {
	prompt := buildScriptPrompt(title, description, targetSeconds)

	var result ScriptResult
	err := s.retryer.GenerateStructured(ctx, s.provider, prompt, &result, ai.Options{MaxTokens: s.maxTokens})
	if err != nil {
		return nil, fmt.Errorf("script generation: %w", err)
	}
	if strings.TrimSpace(result.Script) == "" {
		return nil, fmt.Errorf("script generation: %s returned an empty script", s.provider.Name())
	}
	if result.EstimatedDuration <= 0 {
		result.EstimatedDuration = estimateSpokenSeconds(result.Script)
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	return &result, nil
}

// GenerateCompleteIdea produces a full video concept for a niche,
// ready to be saved as a draft.
func (s *ContentService) GenerateCompleteIdea(ctx context.Context, niche string, targetSeconds int) (*IdeaResult, error) {
	prompt := buildIdeaPrompt(niche, targetSeconds)

	var result IdeaResult
	err := s.retryer.GenerateStructured(ctx, s.provider, prompt, &result, ai.Options{MaxTokens: s.maxTokens})
	if err != nil {
		return nil, fmt.Errorf("idea generation: %w", err)
	}
	if strings.TrimSpace(result.Title) == "" || strings.TrimSpace(result.Script) == "" {
		return nil, fmt.Errorf("idea generation: %s returned an incomplete idea", s.provider.Name())
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	return &result, nil
}

func buildScriptPrompt(title, description string, targetSeconds int) string {
	var b strings.Builder

	b.WriteString("You are an expert YouTube scriptwriter. Write a complete narration script for the video described below.\n\n")

	targetWords := targetSeconds * 150 / 60
	b.WriteString(fmt.Sprintf("Length: The script must run approximately %d seconds when spoken, about %d words.\n", targetSeconds, targetWords))
	b.WriteString("Structure: Open with a hook in the first two sentences, develop the topic in clear segments, close with a call to action.\n")
	b.WriteString("Style: Conversational, energetic, no stage directions, no scene markers. Narration text only.\n\n")

	b.WriteString(`JSON schema:
{"script": "string", "tags": ["tag1","tag2","tag3","tag4","tag5"], "estimated_duration": seconds_as_int}
`)

	b.WriteString("\n---VIDEO---\n")
	b.WriteString("Title: " + title + "\n")
	if description != "" {
		b.WriteString("Description: " + description + "\n")
	}
	b.WriteString("---END---\n")

	return b.String()
}

func buildIdeaPrompt(niche string, targetSeconds int) string {
	var b strings.Builder

	b.WriteString("You are a YouTube content strategist. Invent one compelling video concept for the channel niche below and write its full script.\n\n")

	b.WriteString(fmt.Sprintf("Niche: %s\n", niche))
	targetWords := targetSeconds * 150 / 60
	b.WriteString(fmt.Sprintf("Length: The script must run approximately %d seconds when spoken, about %d words.\n", targetSeconds, targetWords))
	b.WriteString("The title must be under 70 characters and optimized for search. The description must be 2-3 sentences.\n\n")

	b.WriteString(`JSON schema:
{"title": "string", "description": "string", "script": "string", "tags": ["tag1","tag2","tag3","tag4","tag5"], "category": "string"}
`)

	return b.String()
}

func estimateSpokenSeconds(script string) int {
	words := len(strings.Fields(script))
	seconds := words * 60 / 150
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

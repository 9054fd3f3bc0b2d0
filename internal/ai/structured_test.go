package ai

import (
	"errors"
	"testing"
)

func TestDecodeStructured(t *testing.T) {
	type idea struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}

	tests := []struct {
		name    string
		content string
	}{
		{"bare json", `{"title":"Deep Sea Mysteries","tags":["ocean","science"]}`},
		{"json fence", "```json\n{\"title\":\"Deep Sea Mysteries\",\"tags\":[\"ocean\",\"science\"]}\n```"},
		{"plain fence", "```\n{\"title\":\"Deep Sea Mysteries\",\"tags\":[\"ocean\",\"science\"]}\n```"},
		{"preamble noise", "Here is your JSON:\n{\"title\":\"Deep Sea Mysteries\",\"tags\":[\"ocean\",\"science\"]}\nEnjoy!"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var dest idea
			if err := decodeStructured("test", tc.content, &dest); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if dest.Title != "Deep Sea Mysteries" {
				t.Errorf("unexpected title %q", dest.Title)
			}
			if len(dest.Tags) != 2 {
				t.Errorf("expected 2 tags, got %v", dest.Tags)
			}
		})
	}
}

func TestDecodeStructured_ParseFailure(t *testing.T) {
	var dest struct {
		Title string `json:"title"`
	}

	err := decodeStructured("test", "I am sorry, I cannot produce JSON today.", &dest)
	if err == nil {
		t.Fatal("expected parse error")
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if parseErr.Provider != "test" {
		t.Errorf("unexpected provider %q", parseErr.Provider)
	}
	if parseErr.Raw == "" {
		t.Error("parse error should carry the raw content for diagnostics")
	}
}

func TestStripFences(t *testing.T) {
	got := stripFences("```json\n{\"a\":1}\n```")
	if got != `{"a":1}` {
		t.Errorf("unexpected result %q", got)
	}
}

package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedProvider fails with the queued errors before succeeding.
type scriptedProvider struct {
	errs  []error
	calls int
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) GenerateText(ctx context.Context, prompt string, opts Options) (*Response, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &Response{Content: "ok", Provider: s.Name()}, nil
}

func (s *scriptedProvider) GenerateChat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	return s.GenerateText(ctx, "", opts)
}

func (s *scriptedProvider) GenerateStructured(ctx context.Context, prompt string, dest interface{}, opts Options) error {
	_, err := s.GenerateText(ctx, prompt, opts)
	return err
}

func (s *scriptedProvider) Models() []ModelInfo                       { return nil }
func (s *scriptedProvider) EstimateCost(tokens int, m string) float64 { return 0 }
func (s *scriptedProvider) CountTokens(text string) int               { return len(text) / 4 }

func TestRetryer_TransientFailuresThenSuccess(t *testing.T) {
	p := &scriptedProvider{errs: []error{
		&TimeoutError{Provider: "scripted", Err: errors.New("deadline")},
		&RateLimitError{Provider: "scripted", Err: errors.New("slow down")},
	}}

	var slept []time.Duration
	r := NewRetryer(3)
	r.Sleep = func(d time.Duration) { slept = append(slept, d) }

	resp, err := r.GenerateText(context.Background(), p, "prompt", Options{})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if p.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", p.calls)
	}

	// Exponential backoff: 1s then 2s.
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("expected backoffs [1s 2s], got %v", slept)
	}
}

func TestRetryer_ExhaustsBudget(t *testing.T) {
	p := &scriptedProvider{errs: []error{
		&TimeoutError{Provider: "scripted", Err: errors.New("t1")},
		&TimeoutError{Provider: "scripted", Err: errors.New("t2")},
		&TimeoutError{Provider: "scripted", Err: errors.New("t3")},
	}}

	r := NewRetryer(3)
	r.Sleep = func(time.Duration) {}

	_, err := r.GenerateText(context.Background(), p, "prompt", Options{})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Errorf("expected last TimeoutError, got %T", err)
	}
	if p.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", p.calls)
	}
}

func TestRetryer_TerminalErrorNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"auth", &AuthError{Provider: "scripted", Err: errors.New("bad key")}},
		{"invalid request", &InvalidRequestError{Provider: "scripted", Err: errors.New("bad prompt")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &scriptedProvider{errs: []error{tc.err}}
			r := NewRetryer(3)
			r.Sleep = func(d time.Duration) {
				t.Errorf("unexpected backoff sleep %v for terminal error", d)
			}

			_, err := r.GenerateText(context.Background(), p, "prompt", Options{})
			if err == nil {
				t.Fatal("expected error")
			}
			if p.calls != 1 {
				t.Errorf("terminal error should not be retried, got %d attempts", p.calls)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"rate limit", &RateLimitError{Provider: "x", Err: errors.New("429")}, true},
		{"timeout", &TimeoutError{Provider: "x", Err: errors.New("slow")}, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"auth", &AuthError{Provider: "x", Err: errors.New("401")}, false},
		{"invalid request", &InvalidRequestError{Provider: "x", Err: errors.New("400")}, false},
		{"generic", &ProviderError{Provider: "x", Err: errors.New("boom")}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.expected {
				t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.expected)
			}
		})
	}
}

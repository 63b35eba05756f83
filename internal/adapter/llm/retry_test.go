package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"readyscriptpro/internal/domain"
)

// fakeProvider returns queued errors before succeeding.
type fakeProvider struct {
	errs  []error
	calls int
	resp  *domain.ChatResponse
}

func (f *fakeProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &domain.ChatResponse{Message: domain.Message{Role: domain.RoleAssistant, Content: "ok"}}, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func TestRetryProviderSucceedsAfterTransientErrors(t *testing.T) {
	inner := &fakeProvider{errs: []error{domain.ErrRateLimit, domain.ErrUpstreamServer}}
	p := NewRetryProvider(inner, 3, newTestLogger())

	resp, err := p.Chat(context.Background(), domain.ChatRequest{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "ok" {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryProviderExhaustsAttempts(t *testing.T) {
	inner := &fakeProvider{errs: []error{
		domain.ErrUpstreamServer, domain.ErrUpstreamServer, domain.ErrUpstreamServer,
	}}
	p := NewRetryProvider(inner, 3, newTestLogger())

	_, err := p.Chat(context.Background(), domain.ChatRequest{})
	if !errors.Is(err, domain.ErrUpstreamServer) {
		t.Errorf("error = %v, want ErrUpstreamServer", err)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryProviderDoesNotRetryFatalErrors(t *testing.T) {
	for _, fatal := range []error{
		domain.ErrAuthInvalid,
		domain.ErrCreditsExhausted,
		domain.ErrProtocol,
		domain.ErrMissingAPIKey,
	} {
		inner := &fakeProvider{errs: []error{fatal}}
		p := NewRetryProvider(inner, 3, newTestLogger())

		_, err := p.Chat(context.Background(), domain.ChatRequest{})
		if !errors.Is(err, fatal) {
			t.Errorf("error = %v, want %v", err, fatal)
		}
		if inner.calls != 1 {
			t.Errorf("%v: calls = %d, want 1 (no retry)", fatal, inner.calls)
		}
	}
}

func TestRetryProviderHonorsContextCancel(t *testing.T) {
	inner := &fakeProvider{errs: []error{domain.ErrRateLimit, domain.ErrRateLimit}}
	p := NewRetryProvider(inner, 3, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Chat(ctx, domain.ChatRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestRetryBackoffBounds(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		base := baseRetryDelay * time.Duration(1<<uint(attempt))
		if base > maxRetryDelay {
			base = maxRetryDelay
		}
		for i := 0; i < 20; i++ {
			d := retryBackoff(attempt)
			if d < base {
				t.Fatalf("attempt %d: delay %v below base %v", attempt, d, base)
			}
			if d > base+base/4 {
				t.Fatalf("attempt %d: delay %v exceeds base+25%% (%v)", attempt, d, base+base/4)
			}
		}
	}
}

func TestRetryBackoffGrows(t *testing.T) {
	if retryBackoff(0) >= 2*baseRetryDelay {
		t.Error("attempt 0 delay should stay near the base delay")
	}
	// Large attempts cap out.
	if d := retryBackoff(20); d > maxRetryDelay+maxRetryDelay/4 {
		t.Errorf("capped delay = %v, want <= %v", d, maxRetryDelay+maxRetryDelay/4)
	}
}

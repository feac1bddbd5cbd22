package gen

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testInvoker(adapter Adapter, sleeps *[]time.Duration) *Invoker {
	inv := NewInvoker(map[Provider]Adapter{ProviderGeminiText: adapter}, zerolog.New(io.Discard))
	inv.sleep = func(ctx context.Context, d time.Duration) error {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
		return nil
	}
	return inv
}

func textRequest(maxRetries int) Request {
	return Request{
		Provider:   ProviderGeminiText,
		Modality:   ModalityText,
		Prompt:     "storyboard for episode 12",
		Timeout:    50 * time.Millisecond,
		MaxRetries: maxRetries,
		RequestID:  "req-1",
	}
}

func TestInvokeSucceedsFirstAttempt(t *testing.T) {
	adapter := AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		return &Response{Text: "hello", MIMEType: "text/plain"}, nil
	})
	res, err := testInvoker(adapter, nil).Invoke(context.Background(), textRequest(3))
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if res.Text != "hello" || res.Attempt != 0 {
		t.Fatalf("got text=%q attempt=%d, want %q attempt=0", res.Text, res.Attempt, "hello")
	}
}

func TestInvokeRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	adapter := AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		calls++
		if calls <= 2 {
			return nil, Transient(errors.New("status 503"))
		}
		return &Response{Text: "recovered"}, nil
	})
	var sleeps []time.Duration
	res, err := testInvoker(adapter, &sleeps).Invoke(context.Background(), textRequest(3))
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if res.Attempt != 2 {
		t.Fatalf("Attempt = %d, want 2", res.Attempt)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Fatalf("sleep[%d] = %v, want %v", i, sleeps[i], want[i])
		}
	}
}

func TestInvokeTimeoutCountsAsRetryable(t *testing.T) {
	calls := 0
	adapter := AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		calls++
		if calls <= 2 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &Response{Text: "third time"}, nil
	})
	res, err := testInvoker(adapter, nil).Invoke(context.Background(), textRequest(3))
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if res.Attempt != 2 {
		t.Fatalf("Attempt = %d, want 2", res.Attempt)
	}
}

type stalledStream struct{}

func (stalledStream) Next(ctx context.Context) (*Chunk, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledStream) Close() error { return nil }

func TestInvokeStreamStallCountsAsRetryable(t *testing.T) {
	calls := 0
	adapter := AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		calls++
		return &Response{Stream: stalledStream{}}, nil
	})
	req := textRequest(2)
	req.Timeout = 30 * time.Millisecond
	_, err := testInvoker(adapter, nil).Invoke(context.Background(), req)
	if err == nil {
		t.Fatal("Invoke returned nil error")
	}
	ge := AsError(err)
	if ge == nil || ge.Kind != KindExhausted {
		t.Fatalf("error = %v, want kind %q", err, KindExhausted)
	}
	if calls != 3 {
		t.Fatalf("attempts = %d, want maxRetries+1 = 3", calls)
	}
}

func TestInvokeExhaustsAfterMaxRetries(t *testing.T) {
	calls := 0
	adapter := AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		calls++
		return nil, Transient(errors.New("status 500"))
	})
	_, err := testInvoker(adapter, nil).Invoke(context.Background(), textRequest(2))
	if err == nil {
		t.Fatal("Invoke returned nil error")
	}
	ge := AsError(err)
	if ge == nil || ge.Kind != KindExhausted {
		t.Fatalf("error = %v, want kind %q", err, KindExhausted)
	}
	if calls != 3 {
		t.Fatalf("attempts = %d, want maxRetries+1 = 3", calls)
	}
}

func TestInvokeTerminalErrorNotRetried(t *testing.T) {
	calls := 0
	adapter := AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		calls++
		return nil, Terminal(errors.New("status 400: bad prompt"))
	})
	_, err := testInvoker(adapter, nil).Invoke(context.Background(), textRequest(5))
	ge := AsError(err)
	if ge == nil || ge.Kind != KindTerminal {
		t.Fatalf("error = %v, want kind %q", err, KindTerminal)
	}
	if calls != 1 {
		t.Fatalf("attempts = %d, want 1", calls)
	}
}

func TestInvokeUnknownProvider(t *testing.T) {
	inv := testInvoker(AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		return &Response{Text: "x"}, nil
	}), nil)
	req := textRequest(0)
	req.Provider = Provider("nonexistent")
	_, err := inv.Invoke(context.Background(), req)
	ge := AsError(err)
	if ge == nil || ge.Kind != KindTerminal {
		t.Fatalf("error = %v, want kind %q", err, KindTerminal)
	}
}

func TestInvokeCancelledContextStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	adapter := AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		cancel()
		return nil, Transient(errors.New("status 503"))
	})
	inv := NewInvoker(map[Provider]Adapter{ProviderGeminiText: adapter}, zerolog.New(io.Discard))
	_, err := inv.Invoke(ctx, textRequest(5))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{9, 10 * time.Second},
	}
	for _, tc := range cases {
		if got := backoffDelay(tc.attempt); got != tc.want {
			t.Fatalf("backoffDelay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

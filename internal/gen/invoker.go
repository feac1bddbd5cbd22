package gen

import (
	"context"
	"fmt"
	"time"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
)

const (
	backoffBase = time.Second
	backoffCap  = 10 * time.Second

	defaultTimeout = 60 * time.Second
)

// Adapter is the contract implemented by every provider client. The adapter
// must honor ctx where its transport allows; where it cannot, the invoker
// abandons the call and discards any late response.
type Adapter interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, req Request) (*Response, error)

func (f AdapterFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Invoker runs provider calls under a per-attempt deadline with capped
// exponential backoff between attempts. It holds no per-request state and is
// safe for concurrent use.
type Invoker struct {
	adapters map[Provider]Adapter
	logger   infra.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewInvoker wires the provider adapters. The logger receives one trace
// envelope per finished invocation.
func NewInvoker(adapters map[Provider]Adapter, logger infra.Logger) *Invoker {
	return &Invoker{
		adapters: adapters,
		logger:   logger,
		sleep:    sleepContext,
	}
}

type attemptOutcome struct {
	resp *Response
	err  error
}

// Invoke executes the request, retrying transient and timeout failures up to
// req.MaxRetries times. The deadline is a logical abandonment: the underlying
// HTTP call may still be in flight after the invoker has moved on, and its
// late result is discarded, never applied over a newer attempt's outcome.
func (inv *Invoker) Invoke(ctx context.Context, req Request) (*Result, error) {
	adapter, ok := inv.adapters[req.Provider]
	if !ok {
		return nil, Terminal(fmt.Errorf("no adapter for provider %q", req.Provider))
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var lastErr error
	for attempt := 0; attempt <= req.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := inv.sleep(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}

		res, err := inv.attempt(ctx, adapter, req, timeout, attempt)
		if err == nil {
			res.Attempt = attempt
			inv.logEnvelope(req, res, nil)
			return res, nil
		}
		if !Retryable(err) {
			inv.logEnvelope(req, nil, err)
			return nil, err
		}
		lastErr = err
		inv.logger.Warn().
			Str("provider", string(req.Provider)).
			Str("request_id", req.RequestID).
			Int("attempt", attempt).
			Err(err).
			Msg("gen: attempt failed")
	}

	exhausted := Exhausted(req.MaxRetries, lastErr)
	inv.logEnvelope(req, nil, exhausted)
	return nil, exhausted
}

func (inv *Invoker) attempt(ctx context.Context, adapter Adapter, req Request, timeout time.Duration, attempt int) (*Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan attemptOutcome, 1)
	go func() {
		resp, err := adapter.Generate(attemptCtx, req)
		done <- attemptOutcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if attemptCtx.Err() != nil && ctx.Err() == nil {
				return nil, Timeout(attempt)
			}
			if ge := AsError(out.err); ge != nil {
				ge.Attempt = attempt
				return nil, ge
			}
			return nil, &Error{Kind: KindTransient, Message: out.err.Error(), Attempt: attempt, cause: out.err}
		}
		res, accErr := Accumulate(attemptCtx, req.Modality, out.resp)
		if accErr != nil && attemptCtx.Err() != nil && ctx.Err() == nil {
			// Deadline fired mid-drain; absorb it like any other timeout.
			return nil, Timeout(attempt)
		}
		return res, accErr
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, Timeout(attempt)
	}
}

func (inv *Invoker) logEnvelope(req Request, res *Result, err error) {
	env := NewEnvelope(req, res, err)
	evt := inv.logger.Info()
	if err != nil {
		evt = inv.logger.Error()
	}
	evt.Interface("envelope", env).Msg("gen: invocation finished")
}

// backoffDelay returns min(1s * 2^(attempt-1), 10s) for attempt >= 1.
func backoffDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	shift := attempt - 1
	if shift > 4 {
		return backoffCap
	}
	d := backoffBase << shift
	if d > backoffCap {
		d = backoffCap
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

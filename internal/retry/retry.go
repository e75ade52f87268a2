// Package retry implements the pipeline's node-level retry policy: capped
// exponential backoff with multiplicative jitter, driven through
// sethvargo/go-retry's attempt loop, layered with the outcome- and
// panic-aware semantics the pipeline engine needs (Retry status, retryable
// errors, handler panics, and allow_partial exhaustion handling).
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/stencila/attractor/internal/outcome"
)

// Backoff describes the exponential-backoff shape: delay(n) = initial *
// factor^(n-1), capped at max, then optionally scaled by a uniform random
// factor in [0.5, 1.5) to avoid synchronized retries across branches.
type Backoff struct {
	InitialMS int
	Factor    float64
	MaxMS     int
	Jitter    bool
}

// Policy is a node's full retry configuration: how many attempts total
// (the first try plus every retry), and the backoff shape between them.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
}

// NonePolicy never retries: one attempt, fail immediately.
func NonePolicy() Policy {
	return Policy{MaxAttempts: 1}
}

// StandardPolicy is the default-reach-for preset: 5 attempts, 200ms base,
// doubling, jittered.
func StandardPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Backoff:     Backoff{InitialMS: 200, Factor: 2, MaxMS: 5000, Jitter: true},
	}
}

// AggressivePolicy retries harder and longer than Standard: 5 attempts,
// 500ms base, doubling, jittered.
func AggressivePolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Backoff:     Backoff{InitialMS: 500, Factor: 2, MaxMS: 10000, Jitter: true},
	}
}

// LinearPolicy holds the delay constant across attempts: 3 attempts, flat
// 500ms, no jitter.
func LinearPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Backoff{InitialMS: 500, Factor: 1, MaxMS: 500, Jitter: false},
	}
}

// PatientPolicy widens quickly over few attempts: 3 attempts, 2s base,
// tripling, jittered.
func PatientPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Backoff{InitialMS: 2000, Factor: 3, MaxMS: 20000, Jitter: true},
	}
}

// Presets maps the preset names the stylesheet and node attributes accept
// onto their Policy values.
var Presets = map[string]func() Policy{
	"none":       NonePolicy,
	"standard":   StandardPolicy,
	"aggressive": AggressivePolicy,
	"linear":     LinearPolicy,
	"patient":    PatientPolicy,
}

// retryableError marks an error returned by a handler as worth retrying,
// distinct from an error the handler considers permanent. Handlers build one
// via RetryableError; the executor never retries a bare error.
type retryableError struct{ err error }

// RetryableError wraps err so Execute treats it the same way as an
// Outcome{Status: Retry}: eligible for another attempt if attempts remain.
func RetryableError(err error) error {
	return &retryableError{err: err}
}

func (r *retryableError) Error() string { return r.err.Error() }
func (r *retryableError) Unwrap() error { return r.err }

func isRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// expBackoff is a goretry.Backoff computing the capped-exponential-plus-
// jitter delay described by Backoff. It never reports itself exhausted;
// goretry.WithMaxRetries is layered on top to bound the attempt count.
type expBackoff struct {
	cfg     Backoff
	attempt int
}

func (b *expBackoff) Next() (time.Duration, bool) {
	b.attempt++
	factor := b.cfg.Factor
	if factor <= 0 {
		factor = 1
	}
	delayMS := float64(b.cfg.InitialMS) * math.Pow(factor, float64(b.attempt-1))
	if b.cfg.MaxMS > 0 && delayMS > float64(b.cfg.MaxMS) {
		delayMS = float64(b.cfg.MaxMS)
	}
	if b.cfg.Jitter {
		delayMS *= 0.5 + rand.Float64()
	}
	return time.Duration(delayMS) * time.Millisecond, false
}

func buildBackoff(p Policy) goretry.Backoff {
	base := &expBackoff{cfg: p.Backoff}
	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return goretry.WithMaxRetries(uint64(retries), base)
}

// Attempt is one try at producing an Outcome. attempt is 1-based.
type Attempt func(ctx context.Context, attempt int) (outcome.Outcome, error)

// OnRetry is called after an attempt that will be retried, before the
// backoff sleep, reporting the attempt just made and the total allowed.
// Callers use this to emit a StageRetrying event and bump the node's
// retry-count context entry.
type OnRetry func(attempt, maxAttempts int)

// Execute runs fn under policy, retrying on an Outcome{Status: Retry}, a
// RetryableError, or a recovered handler panic, up to policy.MaxAttempts
// tries total. Any other error or outcome status returns immediately.
//
// When retries are exhausted: if allowPartial, returns a PartialSuccess
// noting the retries were exhausted; otherwise returns a Fail (reason
// "handler panicked" if the last attempt panicked, "retries exhausted"
// otherwise). ctx cancellation aborts the backoff sleep and returns ctx.Err().
func Execute(ctx context.Context, policy Policy, allowPartial bool, onRetry OnRetry, fn Attempt) (outcome.Outcome, error) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	backoff := buildBackoff(policy)

	var (
		lastOutcome  outcome.Outcome
		lastPanicked bool
		lastRetry    bool
		attempt      int
	)

	doErr := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		out, callErr, panicked := safeCall(fn, ctx, attempt)
		lastOutcome = out
		lastPanicked = panicked

		retryable := panicked || out.Status == outcome.Retry || (callErr != nil && isRetryable(callErr))
		lastRetry = retryable
		if !retryable {
			return callErr
		}
		if attempt < policy.MaxAttempts && onRetry != nil {
			onRetry(attempt, policy.MaxAttempts)
		}
		if callErr == nil {
			callErr = errors.New(out.Notes)
		}
		return goretry.RetryableError(callErr)
	})

	if doErr == nil {
		return lastOutcome, nil
	}
	if errors.Is(doErr, context.Canceled) || errors.Is(doErr, context.DeadlineExceeded) {
		return outcome.FailWith("retry aborted: " + doErr.Error()), doErr
	}
	if lastPanicked {
		if allowPartial {
			return outcome.PartialSucceed("retries exhausted, accepting partial"), nil
		}
		return outcome.FailWith("handler panicked"), nil
	}
	if lastRetry {
		if allowPartial {
			return outcome.PartialSucceed("retries exhausted, accepting partial"), nil
		}
		return outcome.FailWith("retries exhausted"), nil
	}
	// A non-retryable error stopped the loop outright.
	return outcome.FailWith(doErr.Error()), doErr
}

func safeCall(fn Attempt, ctx context.Context, attempt int) (out outcome.Outcome, err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	out, err = fn(ctx, attempt)
	return
}

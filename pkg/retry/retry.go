// Package retry provides retry with exponential backoff and jitter.
//
// Two execution modes are supported: Do blocks the calling goroutine
// between attempts, while On delegates the waiting to a scheduler, so
// a backoff sequence can be driven deterministically on a virtual
// clock in tests and shares the process's timer machinery in
// production.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"time"

	"rxsched/pkg/closeable"
	"rxsched/pkg/sched"
)

// JitterStrategy defines how delays are randomized.
type JitterStrategy int

const (
	// JitterNone disables jitter; delays follow the backoff curve
	// exactly. Use this for deterministic tests.
	JitterNone JitterStrategy = iota
	// JitterEqual draws uniformly from [delay/2, delay].
	JitterEqual
	// JitterDecorrelated draws uniformly from [delay, 3*delay/2].
	JitterDecorrelated
)

// Config defines the backoff policy.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the
	// first one.
	MaxAttempts int
	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the backoff curve.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff factor, at least 1.
	Multiplier float64
	// JitterStrategy randomizes delays to avoid thundering herds.
	JitterStrategy JitterStrategy
	// Rand is the randomness source for jitter. Defaults to a local
	// source seeded from the wall clock.
	Rand *rand.Rand
	// OnRetry is called before each wait, for observability.
	OnRetry func(attempt int, err error, nextDelay time.Duration)
}

// DefaultConfig returns a sensible policy: 3 attempts, 100ms initial
// delay doubling up to 30s, decorrelated jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   100 * time.Millisecond,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterStrategy: JitterDecorrelated,
	}
}

func (c *Config) normalize() error {
	if c.MaxAttempts <= 0 {
		return errors.New("retry: MaxAttempts must be positive")
	}
	if c.InitialDelay <= 0 {
		return errors.New("retry: InitialDelay must be positive")
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.InitialDelay > c.MaxDelay {
		return errors.New("retry: InitialDelay cannot exceed MaxDelay")
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.Multiplier < 1.0 {
		return errors.New("retry: Multiplier must be >= 1.0")
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return nil
}

// delay returns the backoff delay after the given attempt (1-based).
func (c Config) delay(attempt int) time.Duration {
	d := c.InitialDelay
	for i := 1; i < attempt; i++ {
		if d > time.Duration(float64(c.MaxDelay)/c.Multiplier) {
			return c.MaxDelay
		}
		d = time.Duration(float64(d) * c.Multiplier)
	}
	if d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

func (c Config) jitter(d time.Duration) time.Duration {
	switch c.JitterStrategy {
	case JitterEqual:
		d = d/2 + time.Duration(c.Rand.Int63n(int64(d/2)+1))
	case JitterDecorrelated:
		d = d + time.Duration(c.Rand.Int63n(int64(d/2)+1))
	}
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Op is a retryable unit of work.
type Op func(ctx context.Context) error

// IsRetryable decides whether an error should trigger another attempt.
type IsRetryable func(err error) bool

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	LastError error
	Attempts  int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %d attempts exhausted: %v", e.Attempts, e.LastError)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastError
}

// DefaultRetryable retries timeouts and transient network failures but
// never context cancellation.
func DefaultRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// AlwaysRetryable retries every non-nil error.
func AlwaysRetryable(err error) bool {
	return err != nil
}

// Do runs op with the given policy, sleeping out backoff delays on the
// calling goroutine. The context is checked before every attempt and
// honored during waits.
func Do(ctx context.Context, cfg Config, op Op) error {
	return DoWithRetryable(ctx, cfg, op, DefaultRetryable)
}

// DoWithRetryable is Do with a caller-supplied retryability check.
func DoWithRetryable(ctx context.Context, cfg Config, op Op, retryable IsRetryable) error {
	if err := cfg.normalize(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if !retryable(lastErr) {
			return lastErr
		}

		wait := cfg.jitter(cfg.delay(attempt))
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return &ExhaustedError{LastError: lastErr, Attempts: cfg.MaxAttempts}
}

// On runs op as recursive scheduled steps on s, so backoff waits go
// through the scheduler's clock instead of blocking a goroutine. On a
// virtual scheduler the whole sequence is deterministic.
//
// done receives the final outcome: nil on success, the last error if
// it was not retryable, or an ExhaustedError once attempts run out.
// Closing the returned token abandons the sequence; done is then never
// called.
func On(s sched.Scheduler, cfg Config, op func() error, done func(error)) (closeable.Closeable, error) {
	return OnWithRetryable(s, cfg, op, done, DefaultRetryable)
}

// OnWithRetryable is On with a caller-supplied retryability check.
func OnWithRetryable(s sched.Scheduler, cfg Config, op func() error, done func(error), retryable IsRetryable) (closeable.Closeable, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if done == nil {
		done = func(error) {}
	}

	attempt := 0
	token := s.ScheduleRecursiveAfter(0, func(self func(time.Duration)) {
		attempt++
		err := op()
		if err == nil {
			done(nil)
			return
		}
		if attempt >= cfg.MaxAttempts {
			done(&ExhaustedError{LastError: err, Attempts: attempt})
			return
		}
		if !retryable(err) {
			done(err)
			return
		}

		wait := cfg.jitter(cfg.delay(attempt))
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}
		self(wait)
	})
	return token, nil
}

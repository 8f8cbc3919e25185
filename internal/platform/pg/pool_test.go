package pg

import (
	"context"
	"testing"
	"time"
)

func TestDefaultPoolOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultPoolOptions()

	if opts.MaxConns != 10 {
		t.Errorf("expected MaxConns=10, got %d", opts.MaxConns)
	}
	if opts.MinConns != 1 {
		t.Errorf("expected MinConns=1, got %d", opts.MinConns)
	}
	if opts.PingTimeout != 5*time.Second {
		t.Errorf("expected PingTimeout=5s, got %v", opts.PingTimeout)
	}
}

func TestNewPoolRejectsMalformedDSN(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := NewPool(ctx, "not a dsn at all://"); err == nil {
		t.Error("expected error for malformed DSN")
	}
}

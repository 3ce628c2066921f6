// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsTransientError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: false},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "daemon down", err: errors.New("Cannot connect to the Docker daemon at unix:///var/run/docker.sock"), want: true},
		{name: "pull failure", err: errors.New("error pulling image configuration"), want: true},
		{name: "ordinary build failure", err: errors.New("exit status 1"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsTransientError(tt.err); got != tt.want {
				t.Errorf("IsTransientError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryWithBackoff(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := RetryWithBackoff(context.Background(), cfg, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("RetryWithBackoff() = %v, want nil", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("stops on non-transient error", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		wantErr := errors.New("syntax error in Dockerfile")
		err := RetryWithBackoff(context.Background(), cfg, func() error {
			attempts++
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("RetryWithBackoff() = %v, want %v", err, wantErr)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := RetryWithBackoff(context.Background(), cfg, func() error {
			attempts++
			return errors.New("timeout")
		})
		if err == nil {
			t.Fatal("RetryWithBackoff() = nil, want error")
		}
		if attempts != cfg.MaxAttempts {
			t.Errorf("attempts = %d, want %d", attempts, cfg.MaxAttempts)
		}
	})
}

func TestAddSELinuxLabel(t *testing.T) {
	t.Parallel()

	// Behavior depends on the host; only the already-labeled fast path is
	// host-independent.
	for _, spec := range []string{"/a:/b:z", "/a:/b:ro,z", "/a:/b:Z"} {
		if got := addSELinuxLabel(spec); got != spec {
			t.Errorf("addSELinuxLabel(%q) = %q, want unchanged", spec, got)
		}
	}
}

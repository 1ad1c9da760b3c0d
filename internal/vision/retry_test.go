package vision

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errClass
	}{
		{name: "nil", err: nil, want: classNone},
		{name: "http 429", err: errors.New("googleapi: Error 429: Too Many Requests"), want: classQuota},
		{name: "quota wording", err: errors.New("Quota exceeded for requests"), want: classQuota},
		{name: "resource exhausted", err: errors.New("rpc error: code = ResourceExhausted desc = resource exhausted"), want: classQuota},
		{name: "transport", err: errors.New("dial tcp: connection refused"), want: classTransient},
		{name: "parse", err: fmt.Errorf("wrap: %w", ErrMalformedResponse), want: classParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Fatalf("expected class %d, got %d", tt.want, got)
			}
		})
	}
}

func TestNextState(t *testing.T) {
	tests := []struct {
		name      string
		cur       retryState
		class     errClass
		canRotate bool
		want      retryState
	}{
		{name: "success", cur: stateAttempting, class: classNone, canRotate: true, want: stateSucceeded},
		{name: "quota rotates when possible", cur: stateAttempting, class: classQuota, canRotate: true, want: stateRotating},
		{name: "quota backs off on single key", cur: stateAttempting, class: classQuota, canRotate: false, want: stateBackoff},
		{name: "transient backs off", cur: stateAttempting, class: classTransient, canRotate: true, want: stateBackoff},
		{name: "parse fails immediately", cur: stateAttempting, class: classParse, canRotate: true, want: stateFailed},
		{name: "failed is terminal", cur: stateFailed, class: classNone, canRotate: true, want: stateFailed},
		{name: "succeeded is terminal", cur: stateSucceeded, class: classQuota, canRotate: true, want: stateSucceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextState(tt.cur, tt.class, tt.canRotate); got != tt.want {
				t.Fatalf("expected state %d, got %d", tt.want, got)
			}
		})
	}
}

func TestKeyPoolRotateWraps(t *testing.T) {
	pool := NewKeyPool([]string{"a", "b", "c"})
	if pool.Current() != "a" {
		t.Fatalf("expected initial key a, got %q", pool.Current())
	}
	pool.Rotate()
	pool.Rotate()
	if pool.Current() != "c" {
		t.Fatalf("expected key c after two rotations, got %q", pool.Current())
	}
	if got := pool.Rotate(); got != "a" {
		t.Fatalf("expected rotation to wrap to a, got %q", got)
	}
}

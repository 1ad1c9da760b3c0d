package vision

import (
	"errors"
	"strings"
)

// ErrMalformedResponse means the model's text held no usable JSON object.
// Retrying will not fix a prompt/response mismatch, so this is fatal for the
// request.
var ErrMalformedResponse = errors.New("vision: malformed model response")

// ErrQuotaExhausted means every credential in the pool was exhausted within
// the attempt budget.
var ErrQuotaExhausted = errors.New("vision: all credentials exhausted")

// ErrInvalidImage means the submitted bytes did not decode as a supported
// raster image.
var ErrInvalidImage = errors.New("vision: image could not be decoded")

// errClass partitions upstream failures for the retry engine.
type errClass int

const (
	classNone errClass = iota
	classQuota
	classTransient
	classParse
)

// retryState is one node of the retry state machine.
type retryState int

const (
	stateAttempting retryState = iota
	stateRotating
	stateBackoff
	stateFailed
	stateSucceeded
)

var quotaMarkers = []string{
	"429",
	"quota",
	"rate limit",
	"ratelimit",
	"resource_exhausted",
	"resource exhausted",
	"exceeded",
}

// classify inspects an upstream error for quota/exhaustion markers.
func classify(err error) errClass {
	if err == nil {
		return classNone
	}
	if errors.Is(err, ErrMalformedResponse) {
		return classParse
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return classQuota
		}
	}
	return classTransient
}

// nextState is the pure transition function of the retry loop. canRotate is
// whether the pool has more than one credential; quota failures rotate
// immediately when possible and back off otherwise.
func nextState(cur retryState, class errClass, canRotate bool) retryState {
	if cur == stateFailed || cur == stateSucceeded {
		return cur
	}
	switch class {
	case classNone:
		return stateSucceeded
	case classParse:
		return stateFailed
	case classQuota:
		if canRotate {
			return stateRotating
		}
		return stateBackoff
	default:
		return stateBackoff
	}
}

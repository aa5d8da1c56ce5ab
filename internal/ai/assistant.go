package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Generator is the external text-generation capability used by the scorer and
// the intro generator. A single instance is shared across the process.
type Generator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

var (
	ErrTimeout     = errors.New("timeout")
	ErrAuth        = errors.New("authentication failed")
	ErrRateLimit   = errors.New("rate limited")
	ErrMalformed   = errors.New("malformed response")
	ErrUnavailable = errors.New("unavailable")
)

// Failure is a typed external-capability error. Kind is one of the Err* sentinels.
type Failure struct {
	Kind error
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("ai capability: %s", f.Kind)
	}
	return fmt.Sprintf("ai capability: %s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

// NewFailure wraps err with the given kind unless it is already a Failure.
func NewFailure(kind, err error) error {
	var existing *Failure
	if errors.As(err, &existing) {
		return err
	}
	return &Failure{Kind: kind, Err: err}
}

// Classify returns the failure kind for an arbitrary error.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	return ErrUnavailable
}

// KindName is the stable label used in logs and metrics.
func KindName(err error) string {
	switch Classify(err) {
	case nil:
		return "none"
	case ErrTimeout:
		return "timeout"
	case ErrAuth:
		return "auth"
	case ErrRateLimit:
		return "rate_limit"
	case ErrMalformed:
		return "malformed"
	default:
		return "unavailable"
	}
}

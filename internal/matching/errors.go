package matching

import (
	"context"
	"errors"

	"github.com/spigell/matchmaker/internal/profile"
)

// outcomeFor is the metric label for a failed run.
func outcomeFor(err error) string {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrStore):
		return "store_failure"
	default:
		return "error"
	}
}

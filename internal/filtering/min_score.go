package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/match"
)

const DefaultMinScore = 50

type minScoreFilter struct {
	disabled bool
	reason   string
	min      int
}

// NewMinScore creates a filter that drops candidates scoring at or below the threshold.
func NewMinScore() Filter {
	return &minScoreFilter{min: DefaultMinScore}
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *minScoreFilter) IsEnabled() bool { return !f.disabled }

func (f *minScoreFilter) Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	if cfg.MinScore < match.MinScore || cfg.MinScore > match.MaxScore {
		return fmt.Errorf("min score %d is outside [%d, %d]", cfg.MinScore, match.MinScore, match.MaxScore)
	}
	f.min = cfg.MinScore
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, deps Deps, scored []match.Scored) ([]match.Scored, Step, error) {
	initial := len(scored)
	kept, dropped := keep(scored, func(s match.Scored) bool { return s.Result.Score > f.min })

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding candidates below score threshold",
			zap.Int("min_score", f.min),
			zap.Strings("excluded_candidates", dropped),
			zap.Int("candidates_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *minScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"min_score": strconv.Itoa(f.min)},
	}
}

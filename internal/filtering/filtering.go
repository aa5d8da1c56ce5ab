// Package filtering holds the post-scoring pipeline that decides which scored
// candidates survive into a suggestion list.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/match"
)

// Filter represents a single filtering step applied to scored candidates.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, scored []match.Scored) ([]match.Scored, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	// MinScore is exclusive: candidates scoring at or below it are dropped.
	MinScore          int
	ExcludeCandidates []string
	ExcludeFile       string
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns the standard pipeline in execution order.
func Default() []Filter {
	return []Filter{
		NewMinScore(),
		NewExcludedCandidates(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) error {
	found := false
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
			found = true
		}
	}
	if !found {
		return fmt.Errorf("unknown filter %q", name)
	}
	return nil
}

// excluder is implemented by filters whose drops are known before scoring.
type excluder interface {
	Excluded() []string
}

// ExcludedIDs returns the candidate ids enabled steps will drop regardless of
// score, so selection can skip them up front. Call it after Validate.
func ExcludedIDs(steps []Filter) []string {
	var out []string
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if e, ok := step.(excluder); ok {
			out = append(out, e.Excluded()...)
		}
	}
	return out
}

// Validate prepares every enabled step from cfg. It is called once at startup.
func Validate(cfg *Config, steps []Filter) error {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}
	return nil
}

// Run executes the supplied filters sequentially. Steps only drop entries;
// the relative order of the survivors is preserved.
func Run(ctx context.Context, deps Deps, steps []Filter, scored []match.Scored) ([]match.Scored, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		next, info, err := step.Apply(ctx, deps, scored)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Debug("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		scored = next
	}

	return scored, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep returns the entries for which pred holds, in their original order.
func keep(scored []match.Scored, pred func(match.Scored) bool) ([]match.Scored, []string) {
	kept := make([]match.Scored, 0, len(scored))
	var dropped []string
	for _, s := range scored {
		if pred(s) {
			kept = append(kept, s)
			continue
		}
		dropped = append(dropped, s.Profile.ID)
	}
	return kept, dropped
}

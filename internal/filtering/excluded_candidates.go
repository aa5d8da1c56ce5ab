package filtering

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/match"
)

// ExcludedCandidates is the on-disk format of the operator exclude file.
type ExcludedCandidates struct {
	Items []ExcludedCandidate `json:"items"`
}

type ExcludedCandidate struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

// LoadExcludedCandidates reads an exclude file. An empty file excludes nothing.
func LoadExcludedCandidates(path string) (*ExcludedCandidates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return &ExcludedCandidates{}, nil
	}

	var excluded ExcludedCandidates
	if err := json.Unmarshal(data, &excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

func (e *ExcludedCandidates) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		if id := strings.TrimSpace(item.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

type excludedCandidatesFilter struct {
	disabled bool
	reason   string
	path     string
	ids      map[string]struct{}
}

// NewExcludedCandidates creates a filter that removes candidates blocked by the operator,
// either through configuration or through an exclude file.
func NewExcludedCandidates() Filter {
	return &excludedCandidatesFilter{}
}

func (f *excludedCandidatesFilter) Name() string { return "excluded_candidates" }

func (f *excludedCandidatesFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *excludedCandidatesFilter) IsEnabled() bool { return !f.disabled }

func (f *excludedCandidatesFilter) Validate(cfg *Config) error {
	f.ids = make(map[string]struct{})
	f.path = ""
	if cfg == nil {
		return nil
	}

	for _, id := range cfg.ExcludeCandidates {
		if id = strings.TrimSpace(id); id != "" {
			f.ids[id] = struct{}{}
		}
	}

	f.path = strings.TrimSpace(cfg.ExcludeFile)
	if f.path == "" {
		return nil
	}

	excluded, err := LoadExcludedCandidates(f.path)
	if err != nil {
		return fmt.Errorf("getting excluded candidates from file: %w", err)
	}
	for _, id := range excluded.IDs() {
		f.ids[id] = struct{}{}
	}
	return nil
}

// Excluded returns the blocked ids in sorted order.
func (f *excludedCandidatesFilter) Excluded() []string {
	out := make([]string, 0, len(f.ids))
	for id := range f.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (f *excludedCandidatesFilter) Apply(_ context.Context, deps Deps, scored []match.Scored) ([]match.Scored, Step, error) {
	initial := len(scored)
	if len(f.ids) == 0 {
		return scored, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept, dropped := keep(scored, func(s match.Scored) bool {
		_, blocked := f.ids[s.Profile.ID]
		return !blocked
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding candidates blocked by operator",
			zap.Strings("excluded_candidates", dropped),
			zap.Int("candidates_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *excludedCandidatesFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	details["excluded"] = fmt.Sprint(len(f.ids))
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

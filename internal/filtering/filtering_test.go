package filtering

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/matchmaker/internal/match"
	"github.com/spigell/matchmaker/internal/profile"
)

type entry struct {
	id    string
	score int
}

func scored(entries ...entry) []match.Scored {
	out := make([]match.Scored, 0, len(entries))
	for i, e := range entries {
		out = append(out, match.Scored{
			Candidate: match.Candidate{Profile: &profile.Profile{ID: e.id}, Position: i},
			Result:    match.NewScoreResult(e.score, "", match.SourceFallback),
		})
	}
	return out
}

func ids(s []match.Scored) []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		out = append(out, v.Profile.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMinScoreDropsAtOrBelowThreshold(t *testing.T) {
	t.Parallel()

	steps := []Filter{NewMinScore()}
	if err := Validate(&Config{MinScore: 50}, steps); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	in := scored(entry{"a", 49}, entry{"b", 50}, entry{"c", 51}, entry{"d", 90})
	out, err := Run(context.Background(), Deps{}, steps, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := ids(out); !equal(got, []string{"c", "d"}) {
		t.Fatalf("unexpected survivors: %v", got)
	}
}

func TestMinScoreRejectsOutOfRangeThreshold(t *testing.T) {
	t.Parallel()

	if err := Validate(&Config{MinScore: 101}, []Filter{NewMinScore()}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestExcludedCandidatesFromConfigAndFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "exclude.json")
	if err := os.WriteFile(path, []byte(`{"items":[{"id":"c","reason":"asked to pause"}]}`), 0o600); err != nil {
		t.Fatalf("write exclude file: %v", err)
	}

	core, logs := observer.New(zapcore.InfoLevel)
	steps := Default()
	cfg := &Config{MinScore: 0, ExcludeCandidates: []string{" a "}, ExcludeFile: path}
	if err := Validate(cfg, steps); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	in := scored(entry{"a", 90}, entry{"b", 80}, entry{"c", 70}, entry{"d", 60})
	out, err := Run(context.Background(), Deps{Logger: zap.New(core)}, steps, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := ids(out); !equal(got, []string{"b", "d"}) {
		t.Fatalf("unexpected survivors: %v", got)
	}

	if logs.FilterMessage("excluding candidates blocked by operator").Len() != 1 {
		t.Fatalf("expected exclusion log entry, got %v", logs.All())
	}
}

func TestExcludedCandidatesMissingFile(t *testing.T) {
	t.Parallel()

	err := Validate(&Config{ExcludeFile: filepath.Join(t.TempDir(), "missing.json")}, []Filter{NewExcludedCandidates()})
	if err == nil {
		t.Fatal("expected error for missing exclude file")
	}
}

func TestLoadExcludedCandidatesEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	excluded, err := LoadExcludedCandidates(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(excluded.IDs()) != 0 {
		t.Fatalf("expected no ids, got %v", excluded.IDs())
	}
}

func TestDisabledStepIsSkipped(t *testing.T) {
	t.Parallel()

	steps := Default()
	if err := DisableByName(steps, "min_score", "debug run"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(&Config{MinScore: 50}, steps); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	in := scored(entry{"a", 10}, entry{"b", 20})
	out, err := Run(context.Background(), Deps{}, steps, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected both candidates to survive, got %v", ids(out))
	}

	statuses := Describe(steps)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Enabled || statuses[0].Reason != "debug run" {
		t.Fatalf("unexpected min_score status: %+v", statuses[0])
	}
	if statuses[1].Name != "excluded_candidates" || !statuses[1].Enabled {
		t.Fatalf("unexpected excluded_candidates status: %+v", statuses[1])
	}
}

func TestDisableByNameRejectsUnknownFilter(t *testing.T) {
	t.Parallel()

	if err := DisableByName(Default(), "ai_fit", "typo"); err == nil {
		t.Fatal("expected an error for an unknown filter")
	}
}

func TestExcludedIDs(t *testing.T) {
	t.Parallel()

	steps := Default()
	if err := Validate(&Config{MinScore: 50, ExcludeCandidates: []string{"c2", " c1 ", ""}}, steps); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	got := ExcludedIDs(steps)
	if len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Fatalf("expected [c1 c2], got %v", got)
	}

	if err := DisableByName(steps, "excluded_candidates", "operator override"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ExcludedIDs(steps); len(got) != 0 {
		t.Fatalf("disabled step must not exclude anything, got %v", got)
	}
}

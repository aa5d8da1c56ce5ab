// Package memory provides process-local profile and suggestion stores. They
// back the CLI, local development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/spigell/matchmaker/internal/profile"
)

// ProfileStore keeps profiles in insertion order, which is also the order
// FindByFilter returns them in.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles []*profile.Profile
	byID     map[string]int
}

var _ profile.Store = (*ProfileStore)(nil)

func NewProfileStore(profiles ...*profile.Profile) *ProfileStore {
	s := &ProfileStore{byID: make(map[string]int)}
	s.Add(profiles...)
	return s
}

// Add inserts profiles, replacing any existing profile with the same id in place.
func (s *ProfileStore) Add(profiles ...*profile.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range profiles {
		if p == nil {
			continue
		}
		if idx, ok := s.byID[p.ID]; ok {
			s.profiles[idx] = p.Clone()
			continue
		}
		s.byID[p.ID] = len(s.profiles)
		s.profiles = append(s.profiles, p.Clone())
	}
}

func (s *ProfileStore) FindByID(_ context.Context, id string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", profile.ErrNotFound, id)
	}
	return s.profiles[idx].Clone(), nil
}

func (s *ProfileStore) FindByFilter(ctx context.Context, filter profile.Filter, limit int) ([]*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*profile.Profile
	for _, p := range s.profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !filter.Matches(p) {
			continue
		}
		out = append(out, p.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns a snapshot of every stored profile.
func (s *ProfileStore) All() []*profile.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*profile.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	return out
}

func (s *ProfileStore) Ping(context.Context) error { return nil }

// LoadProfiles reads a JSON array of profiles.
func LoadProfiles(path string) ([]*profile.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var profiles []*profile.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles from %s: %w", path, err)
	}
	return profiles, nil
}

// WriteProfiles stores profiles as an indented JSON array readable by LoadProfiles.
func WriteProfiles(path string, profiles []*profile.Profile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	return nil
}

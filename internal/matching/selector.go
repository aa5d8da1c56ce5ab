// Package matching selects eligible candidates for a customer, scores them
// concurrently and persists the ranked suggestions.
package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/matchmaker/internal/policy"
	"github.com/spigell/matchmaker/internal/profile"
)

const DefaultPoolLimit = 10

// ErrStore marks failures of the profile or suggestion store. They are surfaced
// to callers as internal errors.
var ErrStore = errors.New("store failure")

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// Selector resolves customers and queries the profile store for the
// candidates the matching policy allows.
type Selector struct {
	profiles profile.Store
	policy   *policy.Policy
	poolOnly bool
	excluded []string
}

func NewSelector(profiles profile.Store, p *policy.Policy, candidatePoolOnly bool) *Selector {
	if p == nil {
		p = policy.Default()
	}
	return &Selector{profiles: profiles, policy: p, poolOnly: candidatePoolOnly}
}

// Exclude keeps ids out of every candidate pool so they never take a slot.
func (s *Selector) Exclude(ids ...string) *Selector {
	s.excluded = append(s.excluded, ids...)
	return s
}

// Customer loads the seed profile. Unknown ids yield profile.ErrNotFound.
func (s *Selector) Customer(ctx context.Context, id string) (*profile.Profile, error) {
	customer, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, storeError("find customer", err)
	}
	return customer, nil
}

// Select returns at most limit eligible candidates in store order. A short
// result is returned as is; the filter is never relaxed.
func (s *Selector) Select(ctx context.Context, customer *profile.Profile, limit int) ([]*profile.Profile, error) {
	if limit <= 0 {
		limit = DefaultPoolLimit
	}

	rule, err := s.policy.RuleFor(customer.Gender)
	if err != nil {
		return nil, fmt.Errorf("select candidates for %s: %w", customer.ID, err)
	}

	filter := rule.Eligibility(customer)
	filter.CandidatePoolOnly = s.poolOnly
	filter.ExcludeIDs = append(filter.ExcludeIDs, customer.ID)
	filter.ExcludeIDs = append(filter.ExcludeIDs, s.excluded...)

	candidates, err := s.profiles.FindByFilter(ctx, filter, limit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, storeError("find candidates", err)
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

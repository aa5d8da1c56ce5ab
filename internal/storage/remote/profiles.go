package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spigell/matchmaker/internal/profile"
)

// ProfileStore serves profiles from the CRM. The CRM only filters by gender
// and pool membership; the rest of the eligibility filter is applied locally.
type ProfileStore struct {
	client *Client
}

var _ profile.Store = (*ProfileStore)(nil)

func NewProfileStore(client *Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func (s *ProfileStore) FindByID(ctx context.Context, id string) (*profile.Profile, error) {
	var doc map[string]interface{}

	endpoint := fmt.Sprintf("%s%s/%s", s.client.BaseURL, customersPath, url.PathEscape(id))
	if err := s.client.getJSON(ctx, endpoint, nil, &doc); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", profile.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get customer %s: %w", id, err)
	}

	p, err := decodeProfile(doc)
	if err != nil {
		return nil, fmt.Errorf("decode customer %s: %w", id, err)
	}
	return p, nil
}

func (s *ProfileStore) FindByFilter(ctx context.Context, filter profile.Filter, limit int) ([]*profile.Profile, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(s.client.PerPage))
	if filter.Gender != "" {
		q.Set("gender", string(filter.Gender))
	}
	if filter.CandidatePoolOnly {
		q.Set("is_dummy", "true")
	}

	var (
		out       []*profile.Profile
		decodeErr error
	)

	err := s.client.GetItems(ctx, s.client.BaseURL+customersPath, q, func(items []Item) bool {
		for _, item := range items {
			doc, ok := item.(map[string]interface{})
			if !ok {
				continue
			}

			p, err := decodeProfile(doc)
			if err != nil {
				decodeErr = err
				return false
			}

			if !filter.Matches(p) {
				continue
			}

			out = append(out, p)
			if limit > 0 && len(out) == limit {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode customer: %w", decodeErr)
	}

	return out, nil
}

func (s *ProfileStore) Ping(ctx context.Context) error {
	return s.client.getJSON(ctx, s.client.BaseURL+healthPath, nil, nil)
}

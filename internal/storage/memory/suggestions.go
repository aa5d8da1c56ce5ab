package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/matchmaker/internal/match"
)

type SuggestionStore struct {
	mu    sync.RWMutex
	items []*match.Suggestion
	now   func() time.Time
}

var _ match.Store = (*SuggestionStore)(nil)

func NewSuggestionStore() *SuggestionStore {
	return &SuggestionStore{now: time.Now}
}

func (s *SuggestionStore) Insert(ctx context.Context, sg *match.Suggestion) (string, error) {
	if err := s.InsertAll(ctx, []*match.Suggestion{sg}); err != nil {
		return "", err
	}
	return sg.ID, nil
}

// InsertAll validates every suggestion before appending any of them.
func (s *SuggestionStore) InsertAll(ctx context.Context, suggestions []*match.Suggestion) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, sg := range suggestions {
		if sg == nil || sg.CustomerID == "" || sg.CandidateID == "" {
			return errors.New("suggestion requires customer and candidate ids")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sg := range suggestions {
		if sg.ID == "" {
			sg.ID = uuid.NewString()
		}
		if sg.CreatedAt.IsZero() {
			sg.CreatedAt = s.now().UTC()
		}
		stored := *sg
		s.items = append(s.items, &stored)
	}
	return nil
}

// ListByCustomer returns the customer's suggestions newest first. Within one
// run the higher score comes first, then insertion order.
func (s *SuggestionStore) ListByCustomer(_ context.Context, customerID string, limit int) ([]*match.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*match.Suggestion
	for _, item := range s.items {
		if item.CustomerID != customerID {
			continue
		}
		c := *item
		out = append(out, &c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Score > out[j].Score
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *SuggestionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *SuggestionStore) Ping(context.Context) error { return nil }

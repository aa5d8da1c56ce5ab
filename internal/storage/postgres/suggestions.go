package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/matchmaker/internal/match"
)

const insertSuggestion = `
	INSERT INTO suggestions (id, customer_id, candidate_id, score, explanation, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// SuggestionStore is append-only.
type SuggestionStore struct {
	db  *DB
	now func() time.Time
}

var _ match.Store = (*SuggestionStore)(nil)

func NewSuggestionStore(db *DB) *SuggestionStore {
	return &SuggestionStore{db: db, now: time.Now}
}

func (s *SuggestionStore) Insert(ctx context.Context, sg *match.Suggestion) (string, error) {
	s.prepare(sg)

	if _, err := s.db.db.ExecContext(ctx, insertSuggestion,
		sg.ID, sg.CustomerID, sg.CandidateID, sg.Score, sg.Explanation, sg.CreatedAt,
	); err != nil {
		return "", fmt.Errorf("failed to insert suggestion: %w", err)
	}
	return sg.ID, nil
}

// InsertAll writes the whole batch in one transaction.
func (s *SuggestionStore) InsertAll(ctx context.Context, suggestions []*match.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, sg := range suggestions {
			s.prepare(sg)
			if _, err := tx.ExecContext(ctx, insertSuggestion,
				sg.ID, sg.CustomerID, sg.CandidateID, sg.Score, sg.Explanation, sg.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert suggestion for candidate %s: %w", sg.CandidateID, err)
			}
		}
		return nil
	})
}

func (s *SuggestionStore) prepare(sg *match.Suggestion) {
	if sg.ID == "" {
		sg.ID = uuid.NewString()
	}
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = s.now().UTC()
	}
}

// ListByCustomer returns the customer's suggestions newest first. Within one
// run the higher score comes first.
func (s *SuggestionStore) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*match.Suggestion, error) {
	query := `
		SELECT id, customer_id, candidate_id, score, explanation, created_at
		FROM suggestions
		WHERE customer_id = $1
		ORDER BY created_at DESC, score DESC, id
		LIMIT $2`

	// LIMIT NULL means no limit.
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := s.db.db.QueryContext(ctx, query, customerID, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	defer rows.Close()

	var out []*match.Suggestion
	for rows.Next() {
		var sg match.Suggestion
		if err := rows.Scan(&sg.ID, &sg.CustomerID, &sg.CandidateID, &sg.Score, &sg.Explanation, &sg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		out = append(out, &sg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}

	return out, nil
}

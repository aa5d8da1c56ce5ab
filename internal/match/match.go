package match

import (
	"context"
	"time"

	"github.com/spigell/matchmaker/internal/profile"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Tier is the coarse compatibility class derived from a score.
type Tier string

const (
	TierHigh    Tier = "High"
	TierGood    Tier = "Good"
	TierAverage Tier = "Average"
	TierLimited Tier = "Limited"
)

// TierFor maps a score to its tier. It is the only place the thresholds live.
func TierFor(score int) Tier {
	switch {
	case score >= 80:
		return TierHigh
	case score >= 65:
		return TierGood
	case score >= 50:
		return TierAverage
	default:
		return TierLimited
	}
}

// Label is the canonical explanation prefix presentation code keys off.
func (t Tier) Label() string {
	switch t {
	case TierHigh:
		return "High Potential Match"
	case TierGood:
		return "Good Match"
	case TierAverage:
		return "Average Match"
	default:
		return "Limited Match"
	}
}

// Source tells whether a score came from the external capability.
type Source string

const (
	SourceExternal Source = "External"
	SourceFallback Source = "Fallback"
)

// Clamp bounds a raw score to [MinScore, MaxScore].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

type ScoreResult struct {
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
	Tier        Tier   `json:"tier"`
	Source      Source `json:"source"`
}

// NewScoreResult clamps the score and derives the tier from it.
func NewScoreResult(score int, explanation string, source Source) ScoreResult {
	score = Clamp(score)
	return ScoreResult{
		Score:       score,
		Explanation: explanation,
		Tier:        TierFor(score),
		Source:      source,
	}
}

// Candidate is the transient pairing of a customer with one profile from the
// candidate pool. Position keeps the selection order for stable tie-breaking.
type Candidate struct {
	Customer *profile.Profile
	Profile  *profile.Profile
	Position int
}

// Scored is a candidate together with its resolved score.
type Scored struct {
	Candidate
	Result ScoreResult
	Intro  string
}

// Suggestion is the persisted record of one scoring event.
type Suggestion struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customerId"`
	CandidateID string    `json:"candidateId"`
	Score       int       `json:"score"`
	Explanation string    `json:"explanation"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Ranked is what callers of the engine receive for every retained candidate.
type Ranked struct {
	Suggestion
	CandidateName string `json:"candidateName"`
	Tier          Tier   `json:"tier"`
	Source        Source `json:"source"`
	Intro         string `json:"intro"`
}

// Store persists suggestions. It is append-only from the engine's perspective.
type Store interface {
	Insert(ctx context.Context, s *Suggestion) (string, error)
	// InsertAll writes every suggestion or none of them.
	InsertAll(ctx context.Context, suggestions []*Suggestion) error
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]*Suggestion, error)
}

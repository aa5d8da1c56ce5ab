package scoring

import (
	"github.com/spigell/matchmaker/internal/match"
	"github.com/spigell/matchmaker/internal/policy"
	"github.com/spigell/matchmaker/internal/profile"
)

var fallbackExplanations = map[match.Tier]string{
	match.TierHigh:    "strong alignment on the preferences that matter most for this customer.",
	match.TierGood:    "several of the customer's key preferences line up.",
	match.TierAverage: "some preferences line up while others differ.",
	match.TierLimited: "few of the customer's key preferences line up.",
}

// Fallback is the deterministic rule-based scorer. It performs no I/O and
// always produces a result.
type Fallback struct {
	policy *policy.Policy
}

func NewFallback(p *policy.Policy) *Fallback {
	if p == nil {
		p = policy.Default()
	}
	return &Fallback{policy: p}
}

// Score starts from the policy base score and applies every adjustment of the
// customer's rule that holds for the candidate.
func (f *Fallback) Score(customer, candidate *profile.Profile) match.ScoreResult {
	score := f.policy.BaseScore

	if customer != nil && candidate != nil {
		if rule, err := f.policy.RuleFor(customer.Gender); err == nil {
			for _, adj := range rule.Adjustments {
				if adj.Holds(customer, candidate) {
					score += adj.Points
				}
			}
		}
	}

	score = match.Clamp(score)
	return match.NewScoreResult(score, FallbackExplanation(match.TierFor(score)), match.SourceFallback)
}

// FallbackExplanation is the canned explanation for a tier, prefixed with the tier label.
func FallbackExplanation(t match.Tier) string {
	return t.Label() + ": " + fallbackExplanations[t]
}

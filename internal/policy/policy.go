// Package policy holds the gender-conditioned matching rules shared by the
// candidate selector, the AI prompt and the heuristic fallback scorer.
// Changing who is eligible or how the fallback weighs attributes only touches
// this package.
package policy

import (
	"fmt"

	"github.com/spigell/matchmaker/internal/profile"
)

const DefaultBaseScore = 50

// Adjustment adds Points to the fallback score when Holds is true.
type Adjustment struct {
	Name   string
	Points int
	Holds  func(customer, candidate *profile.Profile) bool
}

// Rule is the policy applied to customers of one gender.
type Rule struct {
	// Eligibility builds the store query for the customer.
	Eligibility func(customer *profile.Profile) profile.Filter
	// Adjustments are applied on top of the base score by the fallback scorer.
	Adjustments []Adjustment
	// Instruction is appended to the compatibility prompt.
	Instruction string
}

type Policy struct {
	BaseScore int
	rules     map[profile.Gender]Rule
}

func New(baseScore int, rules map[profile.Gender]Rule) *Policy {
	copied := make(map[profile.Gender]Rule, len(rules))
	for g, r := range rules {
		copied[g] = r
	}
	return &Policy{BaseScore: baseScore, rules: copied}
}

// RuleFor returns the rule for customers of the given gender.
func (p *Policy) RuleFor(g profile.Gender) (Rule, error) {
	rule, ok := p.rules[g]
	if !ok {
		return Rule{}, fmt.Errorf("no matching rule for gender %q", g)
	}
	return rule, nil
}

// Default is the canonical policy: customers of the first gender look for
// younger, lower-earning, shorter partners with the same view on children;
// customers of the second gender look for shared relocation stance, religion
// and caste.
func Default() *Policy {
	return New(DefaultBaseScore, map[profile.Gender]Rule{
		profile.GenderMale: {
			Eligibility: func(c *profile.Profile) profile.Filter {
				born := c.DateOfBirth
				income := c.Income
				height := c.Height
				kids := c.WantsKids
				return profile.Filter{
					Gender:      c.Gender.Opposite(),
					BornAfter:   &born,
					IncomeBelow: &income,
					HeightBelow: &height,
					WantsKids:   &kids,
				}
			},
			Adjustments: []Adjustment{
				{Name: "younger", Points: 15, Holds: func(c, m *profile.Profile) bool { return m.YoungerThan(c) }},
				{Name: "lower_income", Points: 10, Holds: func(c, m *profile.Profile) bool { return m.Income < c.Income }},
				{Name: "shorter", Points: 10, Holds: func(c, m *profile.Profile) bool { return m.Height < c.Height }},
				{Name: "same_kids_view", Points: 15, Holds: func(c, m *profile.Profile) bool { return m.WantsKids == c.WantsKids }},
			},
			Instruction: "Prioritize partners who are younger, earn less, are shorter, and share the customer's view on having children.",
		},
		profile.GenderFemale: {
			Eligibility: func(c *profile.Profile) profile.Filter {
				relocate := c.OpenToRelocate
				religion := c.Religion
				caste := c.Caste
				return profile.Filter{
					Gender:         c.Gender.Opposite(),
					OpenToRelocate: &relocate,
					Religion:       &religion,
					Caste:          &caste,
				}
			},
			Adjustments: []Adjustment{
				{Name: "older", Points: 10, Holds: func(c, m *profile.Profile) bool { return m.OlderThan(c) }},
				{Name: "income_at_least", Points: 15, Holds: func(c, m *profile.Profile) bool { return m.Income >= c.Income }},
				{Name: "taller", Points: 10, Holds: func(c, m *profile.Profile) bool { return m.Height > c.Height }},
				{Name: "shared_language", Points: 15, Holds: func(c, m *profile.Profile) bool { return m.SharesLanguage(c) }},
			},
			Instruction: "Prioritize compatibility on profession, values, relocation preferences, openness to pets, and shared languages.",
		},
	})
}

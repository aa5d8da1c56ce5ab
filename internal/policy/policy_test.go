package policy

import (
	"testing"
	"time"

	"github.com/spigell/matchmaker/internal/profile"
)

func TestDefaultEligibility(t *testing.T) {
	t.Parallel()

	p := Default()

	male := &profile.Profile{
		ID:          "m1",
		Gender:      profile.GenderMale,
		DateOfBirth: time.Date(1994, 1, 1, 0, 0, 0, 0, time.UTC),
		Income:      800000,
		Height:      180,
		WantsKids:   profile.PreferenceYes,
	}

	rule, err := p.RuleFor(profile.GenderMale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := rule.Eligibility(male)
	if f.Gender != profile.GenderFemale {
		t.Fatalf("expected opposite gender, got %s", f.Gender)
	}
	if f.BornAfter == nil || !f.BornAfter.Equal(male.DateOfBirth) {
		t.Fatalf("expected born-after constraint")
	}
	if f.IncomeBelow == nil || *f.IncomeBelow != 800000 {
		t.Fatalf("expected income constraint")
	}
	if f.HeightBelow == nil || *f.HeightBelow != 180 {
		t.Fatalf("expected height constraint")
	}
	if f.WantsKids == nil || *f.WantsKids != profile.PreferenceYes {
		t.Fatalf("expected kids constraint")
	}
	if f.Religion != nil || f.Caste != nil || f.OpenToRelocate != nil {
		t.Fatalf("unexpected constraints for first gender: %+v", f)
	}

	// The filter captures values, later mutation of the customer must not leak in.
	male.Income = 1
	if *f.IncomeBelow != 800000 {
		t.Fatalf("filter must hold a snapshot of the customer")
	}

	female := &profile.Profile{
		Gender:         profile.GenderFemale,
		OpenToRelocate: profile.PreferenceNo,
		Religion:       "Hindu",
		Caste:          "General",
	}

	rule, err = p.RuleFor(profile.GenderFemale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f = rule.Eligibility(female)
	if f.Gender != profile.GenderMale {
		t.Fatalf("expected opposite gender, got %s", f.Gender)
	}
	if f.OpenToRelocate == nil || *f.OpenToRelocate != profile.PreferenceNo {
		t.Fatalf("expected relocation constraint")
	}
	if f.Religion == nil || *f.Religion != "Hindu" || f.Caste == nil || *f.Caste != "General" {
		t.Fatalf("expected religion and caste constraints")
	}
	if f.BornAfter != nil || f.IncomeBelow != nil || f.HeightBelow != nil || f.WantsKids != nil {
		t.Fatalf("unexpected constraints for second gender: %+v", f)
	}
}

func TestRuleForUnknownGender(t *testing.T) {
	t.Parallel()

	if _, err := Default().RuleFor(profile.Gender("x")); err == nil {
		t.Fatal("expected error for unknown gender")
	}
}

func TestNewCopiesRules(t *testing.T) {
	t.Parallel()

	rules := map[profile.Gender]Rule{profile.GenderMale: {Instruction: "a"}}
	p := New(40, rules)
	rules[profile.GenderFemale] = Rule{Instruction: "b"}

	if _, err := p.RuleFor(profile.GenderFemale); err == nil {
		t.Fatal("policy must not observe later changes to the input map")
	}
	if p.BaseScore != 40 {
		t.Fatalf("unexpected base score %d", p.BaseScore)
	}
}

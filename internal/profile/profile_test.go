package profile

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAge(t *testing.T) {
	t.Parallel()

	p := &Profile{DateOfBirth: date(1994, time.June, 15)}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{name: "before birthday", now: date(2024, time.June, 14), want: 29},
		{name: "on birthday", now: date(2024, time.June, 15), want: 30},
		{name: "after birthday", now: date(2024, time.December, 1), want: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := p.Age(tt.now); got != tt.want {
				t.Fatalf("expected age %d, got %d", tt.want, got)
			}
		})
	}

	if got := (&Profile{}).Age(date(2024, 1, 1)); got != 0 {
		t.Fatalf("expected zero age for unknown dob, got %d", got)
	}
}

func TestParseGender(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]Gender{"male": GenderMale, " F ": GenderFemale, "Female": GenderFemale} {
		got, err := ParseGender(input)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("expected %s for %q, got %s", want, input, got)
		}
	}

	if _, err := ParseGender("other"); err == nil {
		t.Fatal("expected error for unknown gender")
	}

	if GenderMale.Opposite() != GenderFemale || GenderFemale.Opposite() != GenderMale {
		t.Fatal("unexpected opposite gender")
	}
}

func TestSharesLanguage(t *testing.T) {
	t.Parallel()

	a := &Profile{Languages: []string{"English", "Hindi"}}
	b := &Profile{Languages: []string{" hindi", "Tamil"}}
	c := &Profile{Languages: []string{"Marathi"}}

	if !a.SharesLanguage(b) {
		t.Fatal("expected shared language")
	}
	if a.SharesLanguage(c) {
		t.Fatal("expected no shared language")
	}
}

func TestFilterMatches(t *testing.T) {
	t.Parallel()

	income := int64(800000)
	height := 180.0
	kids := PreferenceYes
	born := date(1994, time.January, 1)

	filter := Filter{
		Gender:      GenderFemale,
		BornAfter:   &born,
		IncomeBelow: &income,
		HeightBelow: &height,
		WantsKids:   &kids,
		ExcludeIDs:  []string{"blocked"},
	}

	base := Profile{
		ID:          "c1",
		Gender:      GenderFemale,
		DateOfBirth: date(1997, time.March, 3),
		Income:      600000,
		Height:      165,
		WantsKids:   PreferenceYes,
	}

	tests := []struct {
		name   string
		mutate func(p *Profile)
		want   bool
	}{
		{name: "all predicates hold", mutate: func(*Profile) {}, want: true},
		{name: "wrong gender", mutate: func(p *Profile) { p.Gender = GenderMale }, want: false},
		{name: "same birth date is not younger", mutate: func(p *Profile) { p.DateOfBirth = born }, want: false},
		{name: "equal income", mutate: func(p *Profile) { p.Income = income }, want: false},
		{name: "equal height", mutate: func(p *Profile) { p.Height = height }, want: false},
		{name: "different kids view", mutate: func(p *Profile) { p.WantsKids = PreferenceMaybe }, want: false},
		{name: "excluded id", mutate: func(p *Profile) { p.ID = "blocked" }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := base
			tt.mutate(&p)
			if got := filter.Matches(&p); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	poolOnly := Filter{CandidatePoolOnly: true}
	if poolOnly.Matches(&base) {
		t.Fatal("expected non-pool profile to be rejected")
	}
	if poolOnly.Matches(nil) {
		t.Fatal("expected nil profile to be rejected")
	}
}

package profile

import (
	"strings"
	"time"
)

// Filter describes an eligibility query against the profile store. Nil fields
// are not constrained. All comparisons are strict.
type Filter struct {
	Gender         Gender
	BornAfter      *time.Time
	IncomeBelow    *int64
	HeightBelow    *float64
	WantsKids      *Preference
	OpenToRelocate *Preference
	Religion       *string
	Caste          *string

	CandidatePoolOnly bool
	ExcludeIDs        []string
}

// Matches evaluates the filter against a single profile. Stores without a
// query language (memory, remote post-filtering) rely on it.
func (f Filter) Matches(p *Profile) bool {
	if p == nil {
		return false
	}
	if f.Gender != "" && p.Gender != f.Gender {
		return false
	}
	if f.BornAfter != nil && !p.DateOfBirth.After(*f.BornAfter) {
		return false
	}
	if f.IncomeBelow != nil && p.Income >= *f.IncomeBelow {
		return false
	}
	if f.HeightBelow != nil && p.Height >= *f.HeightBelow {
		return false
	}
	if f.WantsKids != nil && p.WantsKids != *f.WantsKids {
		return false
	}
	if f.OpenToRelocate != nil && p.OpenToRelocate != *f.OpenToRelocate {
		return false
	}
	if f.Religion != nil && !strings.EqualFold(p.Religion, *f.Religion) {
		return false
	}
	if f.Caste != nil && !strings.EqualFold(p.Caste, *f.Caste) {
		return false
	}
	if f.CandidatePoolOnly && !p.IsCandidatePool {
		return false
	}
	for _, id := range f.ExcludeIDs {
		if p.ID == id {
			return false
		}
	}
	return true
}

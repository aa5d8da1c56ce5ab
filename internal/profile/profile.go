package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by stores when a profile id does not resolve.
var ErrNotFound = errors.New("profile not found")

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Opposite returns the other gender of the binary enum.
func (g Gender) Opposite() Gender {
	if g == GenderMale {
		return GenderFemale
	}
	return GenderMale
}

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// ParseGender accepts case-insensitive spellings and the single-letter forms.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale, nil
	case "female", "f":
		return GenderFemale, nil
	default:
		return "", fmt.Errorf("invalid gender %q", s)
	}
}

// Preference is a tri-state answer used by the yes/no/maybe profile flags.
type Preference string

const (
	PreferenceYes   Preference = "Yes"
	PreferenceNo    Preference = "No"
	PreferenceMaybe Preference = "Maybe"
)

func ParsePreference(s string) (Preference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true":
		return PreferenceYes, nil
	case "no", "n", "false":
		return PreferenceNo, nil
	case "maybe", "":
		return PreferenceMaybe, nil
	default:
		return "", fmt.Errorf("invalid preference %q", s)
	}
}

// Profile is one customer or candidate. Profiles are treated as read-only
// snapshots for the duration of a matching run.
type Profile struct {
	ID              string     `json:"id"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Gender          Gender     `json:"gender"`
	DateOfBirth     time.Time  `json:"dateOfBirth"`
	Income          int64      `json:"income"`
	Height          float64    `json:"height"`
	City            string     `json:"city"`
	Country         string     `json:"country"`
	MaritalStatus   string     `json:"maritalStatus"`
	Religion        string     `json:"religion"`
	Caste           string     `json:"caste"`
	Languages       []string   `json:"languages"`
	Degree          string     `json:"degree,omitempty"`
	College         string     `json:"college,omitempty"`
	Company         string     `json:"company,omitempty"`
	Designation     string     `json:"designation,omitempty"`
	WantsKids       Preference `json:"wantsKids"`
	OpenToRelocate  Preference `json:"openToRelocate"`
	OpenToPets      Preference `json:"openToPets"`
	IsCandidatePool bool       `json:"isCandidatePool"`
}

// Age returns the completed years between the date of birth and now.
func (p *Profile) Age(now time.Time) int {
	if p.DateOfBirth.IsZero() {
		return 0
	}
	years := now.Year() - p.DateOfBirth.Year()
	anniversary := p.DateOfBirth.AddDate(years, 0, 0)
	if now.Before(anniversary) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// YoungerThan reports whether p was born strictly after other.
func (p *Profile) YoungerThan(other *Profile) bool {
	return p.DateOfBirth.After(other.DateOfBirth)
}

// OlderThan reports whether p was born strictly before other.
func (p *Profile) OlderThan(other *Profile) bool {
	return p.DateOfBirth.Before(other.DateOfBirth)
}

// SharesLanguage reports whether the two profiles have at least one language in common.
func (p *Profile) SharesLanguage(other *Profile) bool {
	known := make(map[string]struct{}, len(p.Languages))
	for _, l := range p.Languages {
		known[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	for _, l := range other.Languages {
		if _, ok := known[strings.ToLower(strings.TrimSpace(l))]; ok {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so that callers can hold a stable snapshot.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Languages = append([]string(nil), p.Languages...)
	return &c
}

// Store is the read side of the customer profile data store.
type Store interface {
	FindByID(ctx context.Context, id string) (*Profile, error)
	FindByFilter(ctx context.Context, filter Filter, limit int) ([]*Profile, error)
}

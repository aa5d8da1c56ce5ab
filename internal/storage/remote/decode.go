package remote

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/matchmaker/internal/profile"
)

// customer mirrors the CRM document. Field names follow the CRM, not the
// profile model.
type customer struct {
	ID             string             `mapstructure:"_id"`
	FirstName      string             `mapstructure:"firstName"`
	LastName       string             `mapstructure:"lastName"`
	Gender         profile.Gender     `mapstructure:"gender"`
	DOB            time.Time          `mapstructure:"dob"`
	Income         int64              `mapstructure:"income"`
	Height         float64            `mapstructure:"height"`
	City           string             `mapstructure:"city"`
	Country        string             `mapstructure:"country"`
	MaritalStatus  string             `mapstructure:"maritalStatus"`
	Religion       string             `mapstructure:"religion"`
	Caste          string             `mapstructure:"caste"`
	Languages      []string           `mapstructure:"languages"`
	Degree         string             `mapstructure:"degree"`
	College        string             `mapstructure:"college"`
	Company        string             `mapstructure:"company"`
	Designation    string             `mapstructure:"designation"`
	WantKids       profile.Preference `mapstructure:"wantKids"`
	OpenToRelocate profile.Preference `mapstructure:"openToRelocate"`
	OpenToPets     profile.Preference `mapstructure:"openToPets"`
	IsDummy        bool               `mapstructure:"isDummy"`
}

var (
	genderType     = reflect.TypeOf(profile.Gender(""))
	preferenceType = reflect.TypeOf(profile.Preference(""))
)

func decodeProfile(doc map[string]interface{}) (*profile.Profile, error) {
	if doc["_id"] == nil && doc["id"] != nil {
		doc["_id"] = doc["id"]
	}

	var c customer
	cfg := &mapstructure.DecoderConfig{
		Result:           &c,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			enumHook,
			mapstructure.StringToSliceHookFunc(","),
			dateHook,
		),
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, err
	}

	if c.ID == "" {
		return nil, fmt.Errorf("customer document has no id")
	}

	return &profile.Profile{
		ID:              c.ID,
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		Gender:          c.Gender,
		DateOfBirth:     c.DOB,
		Income:          c.Income,
		Height:          c.Height,
		City:            c.City,
		Country:         c.Country,
		MaritalStatus:   c.MaritalStatus,
		Religion:        c.Religion,
		Caste:           c.Caste,
		Languages:       c.Languages,
		Degree:          c.Degree,
		College:         c.College,
		Company:         c.Company,
		Designation:     c.Designation,
		WantsKids:       c.WantKids,
		OpenToRelocate:  c.OpenToRelocate,
		OpenToPets:      c.OpenToPets,
		IsCandidatePool: c.IsDummy,
	}, nil
}

// enumHook normalizes the CRM's free-form gender and yes/no/maybe strings.
func enumHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}

	switch to {
	case genderType:
		return profile.ParseGender(data.(string))
	case preferenceType:
		return profile.ParsePreference(data.(string))
	default:
		return data, nil
	}
}

// dateHook accepts RFC 3339 timestamps and plain dates.
func dateHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}

	s := strings.TrimSpace(data.(string))
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unsupported date %q", s)
}

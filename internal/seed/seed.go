// Package seed generates a synthetic candidate pool for demos and local runs.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/matchmaker/internal/profile"
)

var (
	firstNamesMale = []string{
		"Aarav", "Arjun", "Rohan", "Karan", "Varun", "Siddharth", "Rajesh", "Vikram",
		"Amit", "Rahul", "Pradeep", "Suresh", "Anil", "Deepak", "Manoj", "Ravi",
		"Ashish", "Nitin", "Sandeep", "Ajay", "Vijay", "Akash", "Rohit", "Gaurav",
		"Sachin", "Vishal", "Ankit", "Harsh", "Nikhil", "Shubham",
	}

	firstNamesFemale = []string{
		"Priya", "Ananya", "Shreya", "Kavya", "Aditi", "Nikita", "Pooja", "Meera",
		"Sanya", "Riya", "Divya", "Neha", "Swati", "Rekha", "Sunita", "Geeta",
		"Anjali", "Preeti", "Shikha", "Nisha", "Mamta", "Sita", "Radha", "Kiran",
		"Sapna", "Seema", "Veena", "Lata", "Maya", "Arya",
	}

	lastNames = []string{
		"Sharma", "Gupta", "Agarwal", "Singh", "Kumar", "Jain", "Mehta", "Shah",
		"Patel", "Verma", "Yadav", "Mishra", "Tiwari", "Pandey", "Srivastava", "Joshi",
		"Bansal", "Malhotra", "Chopra", "Kapoor", "Bhatia", "Arora", "Khurana", "Sethi",
		"Aggarwal", "Goyal", "Mittal", "Jindal", "Saxena", "Goel",
	}

	cities = []string{
		"Mumbai", "Delhi", "Bangalore", "Chennai", "Kolkata", "Hyderabad", "Pune", "Ahmedabad",
		"Surat", "Jaipur", "Lucknow", "Kanpur", "Nagpur", "Indore", "Thane", "Bhopal",
		"Visakhapatnam", "Patna", "Vadodara", "Ghaziabad", "Ludhiana", "Agra", "Nashik",
		"Faridabad", "Meerut", "Rajkot", "Varanasi",
	}

	maritalStatuses = []string{"Single", "Divorced", "Widowed"}
	castes          = []string{"General", "OBC", "SC", "ST"}
	religions       = []string{"Hindu", "Muslim", "Christian", "Sikh", "Jain", "Buddhist", "Other"}
	degrees         = []string{"Science", "Arts", "Commerce", "Engineering", "Business Administration"}
	companySuffixes = []string{"Tech", "Solutions", "Enterprises", "Industries", "Group"}
	designations    = []string{"Software Engineer", "Manager", "Analyst", "Consultant", "Specialist"}
	languages       = []string{"English", "Hindi", "Regional"}
	preferences     = []profile.Preference{profile.PreferenceYes, profile.PreferenceNo, profile.PreferenceMaybe}
)

const (
	minBirthYear = 1970
	birthYears   = 30
	minHeight    = 150
	heightRange  = 40
	minIncome    = 500000
	incomeRange  = 1000000
)

type Generator struct {
	rng *rand.Rand
}

// New returns a generator. The same seed always yields the same pool.
func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Pool returns n candidate pool profiles, the first half male and the rest female.
func (g *Generator) Pool(n int) ([]*profile.Profile, error) {
	out := make([]*profile.Profile, 0, n)
	for i := 0; i < n; i++ {
		gender := profile.GenderMale
		if i >= n/2 {
			gender = profile.GenderFemale
		}
		p, err := g.profile(gender)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (g *Generator) profile(gender profile.Gender) (*profile.Profile, error) {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	first := pick(g.rng, firstNamesMale)
	if gender == profile.GenderFemale {
		first = pick(g.rng, firstNamesFemale)
	}
	city := pick(g.rng, cities)

	dob := time.Date(
		minBirthYear+g.rng.Intn(birthYears),
		time.Month(1+g.rng.Intn(12)),
		1+g.rng.Intn(28),
		0, 0, 0, 0, time.UTC,
	)

	return &profile.Profile{
		ID:              id.String(),
		FirstName:       first,
		LastName:        pick(g.rng, lastNames),
		Gender:          gender,
		DateOfBirth:     dob,
		Income:          int64(minIncome + g.rng.Intn(incomeRange)),
		Height:          float64(minHeight + g.rng.Intn(heightRange)),
		City:            city,
		Country:         "India",
		MaritalStatus:   pick(g.rng, maritalStatuses),
		Religion:        pick(g.rng, religions),
		Caste:           pick(g.rng, castes),
		Languages:       []string{pick(g.rng, languages)},
		Degree:          "Bachelor of " + pick(g.rng, degrees),
		College:         "University of " + city,
		Company:         strings.Join([]string{city, pick(g.rng, companySuffixes)}, " "),
		Designation:     pick(g.rng, designations),
		WantsKids:       pick(g.rng, preferences),
		OpenToRelocate:  pick(g.rng, preferences),
		OpenToPets:      pick(g.rng, preferences),
		IsCandidatePool: true,
	}, nil
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}

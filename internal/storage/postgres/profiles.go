package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/matchmaker/internal/profile"
)

const profileColumns = `id, first_name, last_name, gender, date_of_birth, income, height,
	city, country, marital_status, religion, caste, languages, degree, college,
	company, designation, wants_kids, open_to_relocate, open_to_pets, is_candidate_pool`

// ProfileStore reads customer and candidate profiles.
type ProfileStore struct {
	db *DB
}

var _ profile.Store = (*ProfileStore)(nil)

func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) FindByID(ctx context.Context, id string) (*profile.Profile, error) {
	row := s.db.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", profile.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", id, err)
	}
	return p, nil
}

// FindByFilter returns matching profiles in insertion order.
func (s *ProfileStore) FindByFilter(ctx context.Context, filter profile.Filter, limit int) ([]*profile.Profile, error) {
	query, args := filterQuery(filter, limit)

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

// filterQuery translates the eligibility filter into SQL. Comparisons are
// strict; religion and caste compare case-insensitively.
func filterQuery(f profile.Filter, limit int) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Gender != "" {
		add("gender = $%d", string(f.Gender))
	}
	if f.BornAfter != nil {
		add("date_of_birth > $%d", *f.BornAfter)
	}
	if f.IncomeBelow != nil {
		add("income < $%d", *f.IncomeBelow)
	}
	if f.HeightBelow != nil {
		add("height < $%d", *f.HeightBelow)
	}
	if f.WantsKids != nil {
		add("wants_kids = $%d", string(*f.WantsKids))
	}
	if f.OpenToRelocate != nil {
		add("open_to_relocate = $%d", string(*f.OpenToRelocate))
	}
	if f.Religion != nil {
		add("LOWER(religion) = LOWER($%d)", *f.Religion)
	}
	if f.Caste != nil {
		add("LOWER(caste) = LOWER($%d)", *f.Caste)
	}
	if f.CandidatePoolOnly {
		conds = append(conds, "is_candidate_pool")
	}
	if len(f.ExcludeIDs) > 0 {
		placeholders := make([]string, 0, len(f.ExcludeIDs))
		for _, id := range f.ExcludeIDs {
			args = append(args, id)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conds = append(conds, "id NOT IN ("+strings.Join(placeholders, ", ")+")")
	}

	var b strings.Builder
	b.WriteString("SELECT " + profileColumns + " FROM profiles")
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY seq")
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	return b.String(), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*profile.Profile, error) {
	var (
		p                    profile.Profile
		gender               string
		languages            []byte
		kids, relocate, pets string
	)

	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &gender, &p.DateOfBirth, &p.Income, &p.Height,
		&p.City, &p.Country, &p.MaritalStatus, &p.Religion, &p.Caste, &languages, &p.Degree, &p.College,
		&p.Company, &p.Designation, &kids, &relocate, &pets, &p.IsCandidatePool,
	)
	if err != nil {
		return nil, err
	}

	p.Gender = profile.Gender(gender)
	p.WantsKids = profile.Preference(kids)
	p.OpenToRelocate = profile.Preference(relocate)
	p.OpenToPets = profile.Preference(pets)

	if len(languages) > 0 {
		if err := json.Unmarshal(languages, &p.Languages); err != nil {
			return nil, fmt.Errorf("decode languages: %w", err)
		}
	}

	return &p, nil
}

const upsertProfile = `
	INSERT INTO profiles (` + profileColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	ON CONFLICT (id) DO UPDATE SET
		first_name = EXCLUDED.first_name,
		last_name = EXCLUDED.last_name,
		gender = EXCLUDED.gender,
		date_of_birth = EXCLUDED.date_of_birth,
		income = EXCLUDED.income,
		height = EXCLUDED.height,
		city = EXCLUDED.city,
		country = EXCLUDED.country,
		marital_status = EXCLUDED.marital_status,
		religion = EXCLUDED.religion,
		caste = EXCLUDED.caste,
		languages = EXCLUDED.languages,
		degree = EXCLUDED.degree,
		college = EXCLUDED.college,
		company = EXCLUDED.company,
		designation = EXCLUDED.designation,
		wants_kids = EXCLUDED.wants_kids,
		open_to_relocate = EXCLUDED.open_to_relocate,
		open_to_pets = EXCLUDED.open_to_pets,
		is_candidate_pool = EXCLUDED.is_candidate_pool`

// Upsert writes profiles in one transaction. It backs the seed command.
func (s *ProfileStore) Upsert(ctx context.Context, profiles []*profile.Profile) error {
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, p := range profiles {
			languages, err := json.Marshal(nonNil(p.Languages))
			if err != nil {
				return fmt.Errorf("encode languages for %s: %w", p.ID, err)
			}

			_, err = tx.ExecContext(ctx, upsertProfile,
				p.ID, p.FirstName, p.LastName, string(p.Gender), p.DateOfBirth, p.Income, p.Height,
				p.City, p.Country, p.MaritalStatus, p.Religion, p.Caste, string(languages), p.Degree, p.College,
				p.Company, p.Designation, string(p.WantsKids), string(p.OpenToRelocate), string(p.OpenToPets), p.IsCandidatePool,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert profile %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

func (s *ProfileStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

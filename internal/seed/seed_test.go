package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/matchmaker/internal/profile"
)

func TestPoolShape(t *testing.T) {
	pool, err := New(42).Pool(100)
	require.NoError(t, err)
	require.Len(t, pool, 100)

	ids := make(map[string]struct{}, len(pool))
	for i, p := range pool {
		want := profile.GenderMale
		if i >= 50 {
			want = profile.GenderFemale
		}
		assert.Equal(t, want, p.Gender)
		assert.True(t, p.IsCandidatePool)

		year := p.DateOfBirth.Year()
		assert.GreaterOrEqual(t, year, 1970)
		assert.Less(t, year, 2000)
		assert.GreaterOrEqual(t, p.Height, 150.0)
		assert.Less(t, p.Height, 190.0)
		assert.GreaterOrEqual(t, p.Income, int64(500000))
		assert.Less(t, p.Income, int64(1500000))
		assert.NotEmpty(t, p.FirstName)
		assert.Len(t, p.Languages, 1)

		_, dup := ids[p.ID]
		assert.False(t, dup, "duplicate id %s", p.ID)
		ids[p.ID] = struct{}{}
	}
}

func TestPoolIsDeterministicPerSeed(t *testing.T) {
	a, err := New(7).Pool(10)
	require.NoError(t, err)
	b, err := New(7).Pool(10)
	require.NoError(t, err)
	c, err := New(8).Pool(10)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a[0].ID, c[0].ID)
}

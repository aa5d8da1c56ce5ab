package remote

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/profile"
)

func crmDoc(id, gender, dob string, income float64, dummy bool) map[string]interface{} {
	return map[string]interface{}{
		"_id":            id,
		"firstName":      "Name " + id,
		"lastName":       "Last",
		"gender":         gender,
		"dob":            dob,
		"income":         income,
		"height":         "170",
		"languages":      "Hindi,English",
		"wantKids":       "yes",
		"openToRelocate": "No",
		"isDummy":        dummy,
		"email":          "ignored@example.com",
	}
}

type crm struct {
	t        *testing.T
	docs     []map[string]interface{}
	perPage  int
	requests int
	gzip     bool
}

func (c *crm) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.requests++

	if r.Header.Get("Authorization") != "Bearer secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case r.URL.Path == "/health":
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/customers":
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		var filtered []interface{}
		for _, d := range c.docs {
			if g := r.URL.Query().Get("gender"); g != "" && d["gender"] != g {
				continue
			}
			filtered = append(filtered, d)
		}
		start := page * c.perPage
		end := start + c.perPage
		if end > len(filtered) {
			end = len(filtered)
		}
		pages := (len(filtered) + c.perPage - 1) / c.perPage
		c.write(w, map[string]interface{}{
			"items":    filtered[start:end],
			"found":    len(filtered),
			"pages":    pages,
			"page":     page,
			"per_page": c.perPage,
		})
	default:
		id := r.URL.Path[len("/customers/"):]
		for _, d := range c.docs {
			if d["_id"] == id {
				c.write(w, d)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}
}

func (c *crm) write(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if !c.gzip {
		require.NoError(c.t, json.NewEncoder(w).Encode(v))
		return
	}
	w.Header().Set("Content-Encoding", "gzip")
	gz := gzip.NewWriter(w)
	require.NoError(c.t, json.NewEncoder(gz).Encode(v))
	require.NoError(c.t, gz.Close())
}

func newStore(t *testing.T, backend *crm) *ProfileStore {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client := New(zap.NewNop(), srv.URL+"/", "secret")
	client.PerPage = backend.perPage
	return NewProfileStore(client)
}

func TestFindByIDDecodesCRMDocument(t *testing.T) {
	backend := &crm{t: t, perPage: 2, gzip: true, docs: []map[string]interface{}{
		crmDoc("c1", "Female", "1995-08-20", 650000, true),
	}}
	store := newStore(t, backend)

	p, err := store.FindByID(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, "c1", p.ID)
	assert.Equal(t, profile.GenderFemale, p.Gender)
	assert.Equal(t, time.Date(1995, time.August, 20, 0, 0, 0, 0, time.UTC), p.DateOfBirth)
	assert.Equal(t, int64(650000), p.Income)
	assert.Equal(t, 170.0, p.Height)
	assert.Equal(t, []string{"Hindi", "English"}, p.Languages)
	assert.Equal(t, profile.PreferenceYes, p.WantsKids)
	assert.Equal(t, profile.PreferenceNo, p.OpenToRelocate)
	assert.True(t, p.IsCandidatePool)

	_, err = store.FindByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestFindByFilterPaginatesAndFiltersLocally(t *testing.T) {
	var docs []map[string]interface{}
	for i := 0; i < 7; i++ {
		docs = append(docs, crmDoc(fmt.Sprintf("f%d", i), "Female", "1996-01-01", float64(100000*(i+1)), i%2 == 0))
	}
	docs = append(docs, crmDoc("m1", "Male", "1990-01-01", 100000, true))

	backend := &crm{t: t, perPage: 2, docs: docs}
	store := newStore(t, backend)

	income := int64(500000)
	got, err := store.FindByFilter(context.Background(), profile.Filter{
		Gender:      profile.GenderFemale,
		IncomeBelow: &income,
		ExcludeIDs:  []string{"f1"},
	}, 10)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"f0", "f2", "f3"}, ids)
	assert.Equal(t, 4, backend.requests, "all four pages are requested")
}

func TestFindByFilterStopsAtLimit(t *testing.T) {
	var docs []map[string]interface{}
	for i := 0; i < 10; i++ {
		docs = append(docs, crmDoc(fmt.Sprintf("f%d", i), "Female", "1996-01-01", 1, false))
	}

	backend := &crm{t: t, perPage: 2, docs: docs}
	store := newStore(t, backend)

	got, err := store.FindByFilter(context.Background(), profile.Filter{Gender: profile.GenderFemale}, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 2, backend.requests)
}

func TestFindByFilterRejectsBadDocuments(t *testing.T) {
	backend := &crm{t: t, perPage: 5, docs: []map[string]interface{}{
		crmDoc("x1", "Female", "not a date", 1, false),
	}}
	store := newStore(t, backend)

	_, err := store.FindByFilter(context.Background(), profile.Filter{}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode customer")
}

func TestPingAndAuth(t *testing.T) {
	backend := &crm{t: t, perPage: 1}
	store := newStore(t, backend)
	require.NoError(t, store.Ping(context.Background()))

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	unauthorized := NewProfileStore(New(nil, srv.URL, "wrong"))

	_, err := unauthorized.FindByFilter(context.Background(), profile.Filter{}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

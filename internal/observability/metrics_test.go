package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/matchmaker/internal/match"
)

func TestMetricsAreExported(t *testing.T) {
	m, err := New("matchmaker-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	ctx := context.Background()
	m.ObserveScore(ctx, match.SourceExternal, "", 120*time.Millisecond)
	m.ObserveScore(ctx, match.SourceFallback, "timeout", 5*time.Second)
	m.ObserveIntro(ctx, true, time.Millisecond)
	m.ObserveRun(ctx, "ok", 10, 4, time.Second)
	m.ObserveRun(ctx, "not_found", 0, 0, time.Millisecond)

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, " ")
	for _, want := range []string{"scores", "intros", "runs", "run_candidates", "run_retained"} {
		assert.Contains(t, joined, want)
	}

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `failure="timeout"`)
	assert.Contains(t, string(body), `outcome="not_found"`)
}

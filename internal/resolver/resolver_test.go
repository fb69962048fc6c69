package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlandt/touchline/internal/store"
)

// fakeStore is an in-memory FixtureStore for resolver tests. It records
// which query shape was issued and with what arguments.
type fakeStore struct {
	leagueResults []store.FixtureRecord
	dateResults   []store.FixtureRecord
	teamResults   []store.FixtureRecord
	best          *store.FixtureRecord
	err           error

	calls     []string
	dateArgs  [][2]time.Time
	lastQuery string
}

func (f *fakeStore) FixturesByLeague(_ context.Context, query string) ([]store.FixtureRecord, error) {
	f.calls = append(f.calls, "league")
	f.lastQuery = query
	return f.leagueResults, f.err
}

func (f *fakeStore) FixturesByDate(_ context.Context, first, second time.Time) ([]store.FixtureRecord, error) {
	f.calls = append(f.calls, "date")
	f.dateArgs = append(f.dateArgs, [2]time.Time{first, second})
	return f.dateResults, f.err
}

func (f *fakeStore) FixturesByTeams(_ context.Context, query string) ([]store.FixtureRecord, error) {
	f.calls = append(f.calls, "teams")
	f.lastQuery = query
	return f.teamResults, f.err
}

func (f *fakeStore) BestByTeams(_ context.Context, query string) (*store.FixtureRecord, error) {
	f.calls = append(f.calls, "best")
	f.lastQuery = query
	return f.best, f.err
}

func (f *fakeStore) Ping(context.Context) error { return f.err }
func (f *fakeStore) Close() error               { return nil }

func newTestResolver(t *testing.T, fs *fakeStore) *Resolver {
	t.Helper()
	tz, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	r := New(fs, tz)
	r.now = func() time.Time {
		return time.Date(2024, 5, 1, 15, 0, 0, 0, tz)
	}
	return r
}

func fixture(id int64, league, teams string) store.FixtureRecord {
	return store.FixtureRecord{FixtureID: id, LeagueName: league, TeamsVS: teams}
}

func TestClassifyTeamPair(t *testing.T) {
	r := newTestResolver(t, &fakeStore{})

	for _, text := range []string{
		"Arsenal vs Chelsea",
		"Arsenal VS Chelsea",
		"arsenal v.s. chelsea",
		"曼联对阵利物浦",
	} {
		q := r.Classify(text)
		assert.Equal(t, ModeTeamPair, q.Mode, "text: %s", text)
	}
}

func TestClassifyDatePhrase(t *testing.T) {
	r := newTestResolver(t, &fakeStore{})

	for _, text := range []string{"today", "tomorrow", "今天", "明天"} {
		q := r.Classify(text)
		assert.Equal(t, ModeDateWindow, q.Mode, "text: %s", text)
	}
}

func TestClassifyLeagueFallback(t *testing.T) {
	r := newTestResolver(t, &fakeStore{})

	q := r.Classify("Premier League")
	assert.Equal(t, ModeLeague, q.Mode)
}

func TestClassifyExplicitID(t *testing.T) {
	r := newTestResolver(t, &fakeStore{})

	assert.Equal(t, ModeExplicitID, r.Classify("501").Mode)
	assert.Equal(t, ModeExplicitID, r.Classify("fixture_id: 501").Mode)
}

func TestResolveTeamPairBestMatch(t *testing.T) {
	best := fixture(501, "Premier League", "Arsenal vs Chelsea")
	best.Similarity = 0.92
	fs := &fakeStore{best: &best}
	r := newTestResolver(t, fs)

	result, err := r.Resolve(context.Background(), "Arsenal vs Chelsea")
	require.NoError(t, err)

	assert.Equal(t, OutcomeResolved, result.Outcome)
	assert.Equal(t, int64(501), result.FixtureID())
	assert.Equal(t, []string{"best"}, fs.calls)
}

// Team-pair queries never return Ambiguous: the store's LIMIT 1 best-match
// query collapses multiple candidates before the resolver sees them.
func TestResolveTeamPairNeverAmbiguous(t *testing.T) {
	best := fixture(501, "Premier League", "Arsenal vs Chelsea")
	fs := &fakeStore{
		best: &best,
		teamResults: []store.FixtureRecord{
			best,
			fixture(502, "FA Cup", "Arsenal vs Chelsea"),
		},
	}
	r := newTestResolver(t, fs)

	result, err := r.Resolve(context.Background(), "Arsenal vs Chelsea")
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, result.Outcome)
	assert.NotEqual(t, OutcomeAmbiguous, result.Outcome)
}

func TestResolveTeamPairNotFound(t *testing.T) {
	fs := &fakeStore{best: nil}
	r := newTestResolver(t, fs)

	result, err := r.Resolve(context.Background(), "Nobody vs Nothing")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, result.Outcome)
}

func TestResolveLeagueAmbiguous(t *testing.T) {
	candidates := []store.FixtureRecord{
		fixture(601, "Premier League", "Arsenal vs Chelsea"),
		fixture(602, "Premier League", "Liverpool vs Everton"),
		fixture(603, "Premier League", "Spurs vs West Ham"),
	}
	fs := &fakeStore{leagueResults: candidates}
	r := newTestResolver(t, fs)

	result, err := r.Resolve(context.Background(), "Premier League")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAmbiguous, result.Outcome)
	require.Len(t, result.Candidates, 3)
	// Candidate order is the store's similarity ranking, preserved as-is.
	assert.Equal(t, int64(601), result.Candidates[0].FixtureID)
	assert.Equal(t, int64(603), result.Candidates[2].FixtureID)
}

func TestResolveLeagueSingleCandidate(t *testing.T) {
	fs := &fakeStore{leagueResults: []store.FixtureRecord{
		fixture(701, "Eredivisie", "Ajax vs PSV"),
	}}
	r := newTestResolver(t, fs)

	result, err := r.Resolve(context.Background(), "Eredivisie")
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, result.Outcome)
	assert.Equal(t, int64(701), result.FixtureID())
}

func TestResolveDateWindow(t *testing.T) {
	fs := &fakeStore{dateResults: []store.FixtureRecord{
		fixture(801, "La Liga", "Real Madrid vs Barcelona"),
		fixture(802, "La Liga", "Sevilla vs Valencia"),
	}}
	r := newTestResolver(t, fs)

	result, err := r.Resolve(context.Background(), "tomorrow")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAmbiguous, result.Outcome)

	// The window is exactly {today, today+1} in the reference timezone,
	// regardless of which date phrase was used.
	require.Len(t, fs.dateArgs, 1)
	assert.Equal(t, "2024-05-01", fs.dateArgs[0][0].Format("2006-01-02"))
	assert.Equal(t, "2024-05-02", fs.dateArgs[0][1].Format("2006-01-02"))
}

func TestResolveExplicitID(t *testing.T) {
	fs := &fakeStore{}
	r := newTestResolver(t, fs)

	result, err := r.Resolve(context.Background(), "fixture_id: 901")
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, result.Outcome)
	assert.Equal(t, int64(901), result.FixtureID())
	assert.Empty(t, fs.calls, "explicit ids need no catalog round trip")
}

func TestResolveStoreErrorIsNotNotFound(t *testing.T) {
	fs := &fakeStore{err: store.NewStoreError("league", errors.New("connection refused"))}
	r := newTestResolver(t, fs)

	result, err := r.Resolve(context.Background(), "Premier League")
	require.Error(t, err)
	assert.Nil(t, result)

	var storeErr *store.StoreError
	assert.True(t, errors.As(err, &storeErr))
}

// Resolving the same query twice against an unchanged catalog yields the
// same result.
func TestResolveIdempotent(t *testing.T) {
	best := fixture(501, "Premier League", "Arsenal vs Chelsea")
	fs := &fakeStore{best: &best}
	r := newTestResolver(t, fs)

	first, err := r.Resolve(context.Background(), "Arsenal vs Chelsea")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "Arsenal vs Chelsea")
	require.NoError(t, err)

	assert.Equal(t, first.Outcome, second.Outcome)
	assert.Equal(t, first.FixtureID(), second.FixtureID())
}

// An empty query is not special-cased: it goes through the league path and
// the store's empty result applies uniformly.
func TestResolveEmptyQueryStillHitsStore(t *testing.T) {
	fs := &fakeStore{}
	r := newTestResolver(t, fs)

	result, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, result.Outcome)
	assert.Equal(t, []string{"league"}, fs.calls)
}

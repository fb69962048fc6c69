// Package resolver turns a free-text user query into at most one
// unambiguous fixture identifier.
//
// A query is classified into one of four modes (explicit id, team-pair,
// date-window, league-name) and answered with a single catalog round trip.
// Team-pair queries always collapse to the single best match because
// downstream tools require exactly one fixture id; league and date queries
// surface the full ranked candidate list instead, leaving disambiguation to
// the caller.
package resolver

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"

	"github.com/mlandt/touchline/internal/logging"
	"github.com/mlandt/touchline/internal/metrics"
	"github.com/mlandt/touchline/internal/store"
)

// QueryMode classifies how a query identifies a fixture.
type QueryMode string

const (
	// ModeExplicitID means the query is a bare fixture id.
	ModeExplicitID QueryMode = "explicit_id"
	// ModeTeamPair means the query names both teams (or contains a "vs" token).
	ModeTeamPair QueryMode = "team_pair"
	// ModeDateWindow means the query is a date phrase; the window is always
	// {today, today+1} in the reference timezone.
	ModeDateWindow QueryMode = "date_window"
	// ModeLeague means the query is treated as a league name.
	ModeLeague QueryMode = "league"
)

// Query is one resolution request. Created per user turn, consumed once.
type Query struct {
	Text string
	Mode QueryMode
}

// Outcome tags a resolution result.
type Outcome string

const (
	// OutcomeResolved means exactly one fixture was selected.
	OutcomeResolved Outcome = "resolved"
	// OutcomeAmbiguous means multiple ranked candidates remain.
	OutcomeAmbiguous Outcome = "ambiguous"
	// OutcomeNotFound means the query ran and matched nothing.
	OutcomeNotFound Outcome = "not_found"
)

// Result is the outcome of resolving one query. Never mutated after creation.
type Result struct {
	Outcome Outcome

	// Fixture is set when Outcome is OutcomeResolved.
	Fixture *store.FixtureRecord

	// Candidates is the ranked list when Outcome is OutcomeAmbiguous,
	// ordered exactly as the store returned it.
	Candidates []store.FixtureRecord
}

// FixtureID returns the resolved id, or 0 if not resolved.
func (r *Result) FixtureID() int64 {
	if r.Outcome == OutcomeResolved && r.Fixture != nil {
		return r.Fixture.FixtureID
	}
	return 0
}

var (
	explicitIDRe = regexp.MustCompile(`^\s*(?:fixture_id:\s*)?(\d+)\s*$`)
	teamPairRe   = regexp.MustCompile(`(?i)\bv[.]?s[.]?\b`)
)

// teamPairMarkers are literal separators that signal a two-team query in
// languages where the "vs" token is not used.
var teamPairMarkers = []string{"对阵", "対"}

// Resolver resolves free-text queries against the fixture catalog.
type Resolver struct {
	store  store.FixtureStore
	tz     *time.Location
	logger *logging.Logger

	// now is injectable for deterministic date-window tests.
	now func() time.Time
}

// New creates a Resolver. tz is the reference timezone for date windows.
func New(st store.FixtureStore, tz *time.Location) *Resolver {
	if tz == nil {
		tz = time.UTC
	}
	return &Resolver{
		store:  st,
		tz:     tz,
		logger: logging.GetLogger("resolver"),
		now:    time.Now,
	}
}

// IsTeamPair reports whether text looks like a two-team query. The
// supervisor uses the same test to force routing to the query agent.
func IsTeamPair(text string) bool {
	if teamPairRe.MatchString(text) {
		return true
	}
	for _, marker := range teamPairMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// Classify determines the query mode for a piece of free text.
// Precedence: explicit id, team-pair, date phrase, league name.
func (r *Resolver) Classify(text string) Query {
	trimmed := strings.TrimSpace(text)

	if explicitIDRe.MatchString(trimmed) {
		return Query{Text: trimmed, Mode: ModeExplicitID}
	}
	if IsTeamPair(trimmed) {
		return Query{Text: trimmed, Mode: ModeTeamPair}
	}
	if r.isDatePhrase(trimmed) {
		return Query{Text: trimmed, Mode: ModeDateWindow}
	}
	return Query{Text: trimmed, Mode: ModeLeague}
}

// isDatePhrase reports whether text parses as a date reference in any
// supported language ("today", "tomorrow", "明天", ...). Only short phrases
// are considered: a long sentence that happens to contain a date word is
// still a league/team query.
func (r *Resolver) isDatePhrase(text string) bool {
	if text == "" || len([]rune(text)) > 24 {
		return false
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{
		CurrentTime:         r.now().In(r.tz),
		PreferredDateSource: dps.CurrentPeriod,
	}
	parsed, err := parser.Parse(cfg, text)
	return err == nil && !parsed.IsZero()
}

// Resolve turns one query into one Result.
//
// A returned error is a catalog failure (store.StoreError), which is
// distinct from OutcomeNotFound: connectivity loss is not "no match".
func (r *Resolver) Resolve(ctx context.Context, text string) (*Result, error) {
	query := r.Classify(text)

	r.logger.DebugWithFields("resolving query",
		logging.Field("mode", string(query.Mode)),
		logging.Field("text", query.Text),
	)

	var result *Result
	var err error
	switch query.Mode {
	case ModeExplicitID:
		result, err = r.resolveExplicit(query.Text)
	case ModeTeamPair:
		result, err = r.resolveTeamPair(ctx, query.Text)
	case ModeDateWindow:
		result, err = r.resolveDateWindow(ctx)
	default:
		result, err = r.resolveLeague(ctx, query.Text)
	}

	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues("store_error").Inc()
		return nil, err
	}
	metrics.ResolutionsTotal.WithLabelValues(string(result.Outcome)).Inc()
	return result, nil
}

func (r *Resolver) resolveExplicit(text string) (*Result, error) {
	matches := explicitIDRe.FindStringSubmatch(text)
	id, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		// Digits too large for int64; treat as no match rather than failing.
		return &Result{Outcome: OutcomeNotFound}, nil
	}
	return &Result{
		Outcome: OutcomeResolved,
		Fixture: &store.FixtureRecord{FixtureID: id},
	}, nil
}

// resolveTeamPair requests the single best match. Team-pair queries never
// return OutcomeAmbiguous: if the store ranks several fixtures equally, the
// store's own tie-break picks one and we accept it.
func (r *Resolver) resolveTeamPair(ctx context.Context, text string) (*Result, error) {
	best, err := r.store.BestByTeams(ctx, text)
	if err != nil {
		return nil, err
	}
	if best == nil {
		return &Result{Outcome: OutcomeNotFound}, nil
	}
	return &Result{Outcome: OutcomeResolved, Fixture: best}, nil
}

func (r *Resolver) resolveDateWindow(ctx context.Context) (*Result, error) {
	today := r.now().In(r.tz)
	tomorrow := today.AddDate(0, 0, 1)

	records, err := r.store.FixturesByDate(ctx, today, tomorrow)
	if err != nil {
		return nil, err
	}
	return resultFromCandidates(records), nil
}

func (r *Resolver) resolveLeague(ctx context.Context, text string) (*Result, error) {
	records, err := r.store.FixturesByLeague(ctx, text)
	if err != nil {
		return nil, err
	}
	return resultFromCandidates(records), nil
}

// resultFromCandidates applies the shared empty/one/many rule for list
// queries. The candidate order is preserved exactly as ranked by the store.
func resultFromCandidates(records []store.FixtureRecord) *Result {
	switch len(records) {
	case 0:
		return &Result{Outcome: OutcomeNotFound}
	case 1:
		return &Result{Outcome: OutcomeResolved, Fixture: &records[0]}
	default:
		return &Result{Outcome: OutcomeAmbiguous, Candidates: records}
	}
}

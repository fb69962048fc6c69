package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mlandt/touchline/internal/store"
)

// queryArgs is the shared input shape for the fixture catalog tools.
type queryArgs struct {
	Query string `json:"query"`
}

func queryInputSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"query"},
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
	}
}

func parseQueryArgs(input json.RawMessage) (queryArgs, error) {
	var args queryArgs
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return args, fmt.Errorf("invalid tool input: %w", err)
		}
	}
	return args, nil
}

// storeFailure converts a catalog error into a failed Result. The failure
// reaches the model as a structured error, never as an empty list.
func storeFailure(err error) *Result {
	return &Result{
		Success: false,
		Error:   err.Error(),
		Summary: "Fixture catalog query failed",
	}
}

// FixturesByLeagueTool lists candidate fixtures whose league name
// fuzzy-matches the query.
type FixturesByLeagueTool struct {
	store store.FixtureStore
}

func (t *FixturesByLeagueTool) Name() string { return "query_fixture_id_by_league" }

func (t *FixturesByLeagueTool) Description() string {
	return `Find fixtures by league name. Returns up to 50 candidates ranked by
similarity to the query, each with fixture_id, league_name, teams_vs and
fixture_date. Use when the user names a competition ("Premier League",
"La Liga", "英超").`
}

func (t *FixturesByLeagueTool) InputSchema() map[string]interface{} {
	return queryInputSchema("League name or fragment, any language")
}

func (t *FixturesByLeagueTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	args, err := parseQueryArgs(input)
	if err != nil {
		return nil, err
	}

	records, err := t.store.FixturesByLeague(ctx, args.Query)
	if err != nil {
		return storeFailure(err), nil
	}
	return &Result{
		Success: true,
		Data:    records,
		Summary: fmt.Sprintf("Found %d fixtures matching league %q", len(records), args.Query),
	}, nil
}

// FixturesByDateTool lists fixtures scheduled today or tomorrow in the
// reference timezone. The query text is accepted but does not change the
// window.
type FixturesByDateTool struct {
	store store.FixtureStore
	tz    *time.Location
	now   func() time.Time
}

func (t *FixturesByDateTool) Name() string { return "query_fixture_id_by_date" }

func (t *FixturesByDateTool) Description() string {
	return `Find fixtures scheduled today or tomorrow. Returns up to 100 fixtures
ordered by kickoff time, each with fixture_id, league_name, teams_vs and
fixture_date. Use when the user asks about "today", "tomorrow", "今天" or
"明天".`
}

func (t *FixturesByDateTool) InputSchema() map[string]interface{} {
	return queryInputSchema("The user's date phrase (informational only)")
}

func (t *FixturesByDateTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	if _, err := parseQueryArgs(input); err != nil {
		return nil, err
	}

	today := t.now().In(t.tz)
	tomorrow := today.AddDate(0, 0, 1)

	records, err := t.store.FixturesByDate(ctx, today, tomorrow)
	if err != nil {
		return storeFailure(err), nil
	}
	return &Result{
		Success: true,
		Data:    records,
		Summary: fmt.Sprintf("Found %d fixtures for %s and %s",
			len(records), today.Format("2006-01-02"), tomorrow.Format("2006-01-02")),
	}, nil
}

// FixturesByTeamTool lists candidate fixtures whose "Home vs Away" label
// fuzzy-matches the query.
type FixturesByTeamTool struct {
	store store.FixtureStore
}

func (t *FixturesByTeamTool) Name() string { return "query_fixture_id_by_team_name" }

func (t *FixturesByTeamTool) Description() string {
	return `Find fixtures by team name. Returns up to 50 candidates ranked by
similarity of the "Home vs Away" label to the query. Use when the user
names a single team and you need to see its upcoming fixtures.`
}

func (t *FixturesByTeamTool) InputSchema() map[string]interface{} {
	return queryInputSchema("Team name or fragment, any language")
}

func (t *FixturesByTeamTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	args, err := parseQueryArgs(input)
	if err != nil {
		return nil, err
	}

	records, err := t.store.FixturesByTeams(ctx, args.Query)
	if err != nil {
		return storeFailure(err), nil
	}
	return &Result{
		Success: true,
		Data:    records,
		Summary: fmt.Sprintf("Found %d fixtures matching team %q", len(records), args.Query),
	}, nil
}

// SelectFixtureByTeamVSTool returns the single best-matching fixture for a
// two-team query, including its similarity score. This is the tool the
// query agent should prefer for "X vs Y" utterances because downstream
// agents require exactly one fixture id.
type SelectFixtureByTeamVSTool struct {
	store store.FixtureStore
}

func (t *SelectFixtureByTeamVSTool) Name() string { return "select_fixture_id_by_team_vs" }

func (t *SelectFixtureByTeamVSTool) Description() string {
	return `Select the single best-matching fixture for a two-team query like
"Arsenal vs Chelsea". Returns one fixture with its similarity score, or an
empty result if nothing matches. Prefer this over
query_fixture_id_by_team_name when the user names both teams, then report
the id on the first line as "fixture_id: <number>".`
}

func (t *SelectFixtureByTeamVSTool) InputSchema() map[string]interface{} {
	return queryInputSchema(`Two-team query, e.g. "Arsenal vs Chelsea"`)
}

func (t *SelectFixtureByTeamVSTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	args, err := parseQueryArgs(input)
	if err != nil {
		return nil, err
	}

	best, err := t.store.BestByTeams(ctx, args.Query)
	if err != nil {
		return storeFailure(err), nil
	}
	if best == nil {
		return &Result{
			Success: true,
			Data:    map[string]interface{}{},
			Summary: fmt.Sprintf("No fixture matches %q", args.Query),
		}, nil
	}
	return &Result{
		Success: true,
		Data:    best,
		Summary: fmt.Sprintf("Best match for %q: fixture %d (%s)", args.Query, best.FixtureID, best.TeamsVS),
	}, nil
}

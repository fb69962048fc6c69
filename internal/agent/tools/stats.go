package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mlandt/touchline/internal/apifootball"
)

type fixtureArgs struct {
	FixtureID int64 `json:"fixture_id"`
}

type teamArgs struct {
	TeamID int64 `json:"team_id"`
}

type standingArgs struct {
	LeagueID int64 `json:"league_id"`
	Season   int   `json:"season"`
}

func fixtureInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"fixture_id"},
		"properties": map[string]interface{}{
			"fixture_id": map[string]interface{}{
				"type":        "integer",
				"description": "Numeric fixture id from the fixture catalog",
			},
		},
	}
}

func parseFixtureArgs(input json.RawMessage) (fixtureArgs, error) {
	var args fixtureArgs
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return args, fmt.Errorf("invalid tool input: %w", err)
		}
	}
	if args.FixtureID <= 0 {
		return args, fmt.Errorf("fixture_id must be a positive integer")
	}
	return args, nil
}

// statsFailure converts a provider error into a failed Result so agents can
// degrade gracefully instead of aborting the turn.
func statsFailure(err error) *Result {
	return &Result{
		Success: false,
		Error:   err.Error(),
		Summary: "Statistics lookup failed",
	}
}

func statsSuccess(data json.RawMessage, summary string) *Result {
	return &Result{
		Success: true,
		Data:    data,
		Summary: summary,
	}
}

// HeadToHeadTool returns the recent meetings between the two teams of a
// fixture.
type HeadToHeadTool struct {
	stats *apifootball.Client
}

func (t *HeadToHeadTool) Name() string { return "get_fixture_head2head" }

func (t *HeadToHeadTool) Description() string {
	return `Get the head-to-head history for a fixture: the recent meetings
between its two teams with scores and dates. Requires a fixture_id.`
}

func (t *HeadToHeadTool) InputSchema() map[string]interface{} {
	return fixtureInputSchema()
}

func (t *HeadToHeadTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	args, err := parseFixtureArgs(input)
	if err != nil {
		return nil, err
	}

	data, err := t.stats.HeadToHead(ctx, args.FixtureID)
	if err != nil {
		return statsFailure(err), nil
	}
	return statsSuccess(data, fmt.Sprintf("Head-to-head history for fixture %d", args.FixtureID)), nil
}

// LastTenTool returns a team's last ten matches for one side of a fixture.
// Registered twice, once per venue.
type LastTenTool struct {
	stats *apifootball.Client
	venue string
}

func (t *LastTenTool) Name() string {
	return fmt.Sprintf("get_%s_last_10", t.venue)
}

func (t *LastTenTool) Description() string {
	return fmt.Sprintf(`Get the last 10 matches of the %s team, restricted to games it
played %s. Requires the team_id of the %s team.`, t.venue, t.venue, t.venue)
}

func (t *LastTenTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"team_id"},
		"properties": map[string]interface{}{
			"team_id": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Numeric id of the %s team", t.venue),
			},
		},
	}
}

func (t *LastTenTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var args teamArgs
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, fmt.Errorf("invalid tool input: %w", err)
		}
	}
	if args.TeamID <= 0 {
		return nil, fmt.Errorf("team_id must be a positive integer")
	}

	data, err := t.stats.LastTen(ctx, args.TeamID, t.venue)
	if err != nil {
		return statsFailure(err), nil
	}
	return statsSuccess(data, fmt.Sprintf("Last 10 %s matches for team %d", t.venue, args.TeamID)), nil
}

// InjuriesTool returns squad availability for both teams of a fixture.
type InjuriesTool struct {
	stats *apifootball.Client
}

func (t *InjuriesTool) Name() string { return "get_injuries" }

func (t *InjuriesTool) Description() string {
	return `Get current injuries and suspensions for both teams of a fixture.
Requires a fixture_id.`
}

func (t *InjuriesTool) InputSchema() map[string]interface{} {
	return fixtureInputSchema()
}

func (t *InjuriesTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	args, err := parseFixtureArgs(input)
	if err != nil {
		return nil, err
	}

	data, err := t.stats.Injuries(ctx, args.FixtureID)
	if err != nil {
		return statsFailure(err), nil
	}
	return statsSuccess(data, fmt.Sprintf("Injury report for fixture %d", args.FixtureID)), nil
}

// FixtureInfoTool returns the basic record for a fixture. Its payload also
// carries the team and league ids the other statistics tools need.
type FixtureInfoTool struct {
	stats *apifootball.Client
}

func (t *FixtureInfoTool) Name() string { return "get_fixture_basic_info" }

func (t *FixtureInfoTool) Description() string {
	return `Get the basic record for a fixture: teams with their ids, league id,
season, venue, kickoff time and round. Call this first to obtain the
team_id and league_id values required by the other statistics tools.`
}

func (t *FixtureInfoTool) InputSchema() map[string]interface{} {
	return fixtureInputSchema()
}

func (t *FixtureInfoTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	args, err := parseFixtureArgs(input)
	if err != nil {
		return nil, err
	}

	data, err := t.stats.FixtureInfo(ctx, args.FixtureID)
	if err != nil {
		return statsFailure(err), nil
	}
	return statsSuccess(data, fmt.Sprintf("Basic info for fixture %d", args.FixtureID)), nil
}

// StandingsTool returns the league table from the perspective of one side
// of a fixture. Registered twice, once per side.
type StandingsTool struct {
	stats *apifootball.Client
	side  string
}

func (t *StandingsTool) Name() string {
	return fmt.Sprintf("get_standing_%s_info", t.side)
}

func (t *StandingsTool) Description() string {
	return fmt.Sprintf(`Get the league standings relevant to the %s team: the full table
for the league and season it plays in. Requires league_id and season from
get_fixture_basic_info.`, t.side)
}

func (t *StandingsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"league_id", "season"},
		"properties": map[string]interface{}{
			"league_id": map[string]interface{}{
				"type":        "integer",
				"description": "Numeric league id",
			},
			"season": map[string]interface{}{
				"type":        "integer",
				"description": "Season start year, e.g. 2024",
			},
		},
	}
}

func (t *StandingsTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var args standingArgs
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, fmt.Errorf("invalid tool input: %w", err)
		}
	}
	if args.LeagueID <= 0 {
		return nil, fmt.Errorf("league_id must be a positive integer")
	}
	if args.Season <= 0 {
		return nil, fmt.Errorf("season must be a positive year")
	}

	data, err := t.stats.Standings(ctx, args.LeagueID, args.Season)
	if err != nil {
		return statsFailure(err), nil
	}
	return statsSuccess(data, fmt.Sprintf("Standings for league %d season %d (%s side)", args.LeagueID, args.Season, t.side)), nil
}

// OddsTool returns the bookmaker odds published for a fixture.
type OddsTool struct {
	stats *apifootball.Client
}

func (t *OddsTool) Name() string { return "get_fixture_odds" }

func (t *OddsTool) Description() string {
	return `Get the bookmaker odds published for a fixture: match winner, goals
and other markets. Requires a fixture_id.`
}

func (t *OddsTool) InputSchema() map[string]interface{} {
	return fixtureInputSchema()
}

func (t *OddsTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	args, err := parseFixtureArgs(input)
	if err != nil {
		return nil, err
	}

	data, err := t.stats.Odds(ctx, args.FixtureID)
	if err != nil {
		return statsFailure(err), nil
	}
	return statsSuccess(data, fmt.Sprintf("Odds for fixture %d", args.FixtureID)), nil
}

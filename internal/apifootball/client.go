// Package apifootball wraps the external football statistics API.
//
// The payload schemas are owned by the provider, not by this client: every
// lookup returns the raw JSON document so agents can pass it through to the
// model unmodified. All operations are read-only and keyed by fixture id
// (or team/league id for standings and form lookups).
package apifootball

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultTimeout bounds each provider round trip. A wrapping layer may
// impose a tighter deadline via the request context.
const DefaultTimeout = 30 * time.Second

// Client handles communication with the statistics provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a statistics API client. apiKey may be empty for
// providers fronted by an authenticating proxy.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// HeadToHead returns the recent meetings between the two teams of a fixture.
func (c *Client) HeadToHead(ctx context.Context, fixtureID int64) (json.RawMessage, error) {
	return c.get(ctx, "/fixtures/headtohead", url.Values{
		"fixture": {formatID(fixtureID)},
	})
}

// LastTen returns a team's last ten matches. venue is "home" or "away",
// matching the side of the fixture the team occupies.
func (c *Client) LastTen(ctx context.Context, teamID int64, venue string) (json.RawMessage, error) {
	q := url.Values{
		"team": {formatID(teamID)},
		"last": {"10"},
	}
	if venue != "" {
		q.Set("venue", venue)
	}
	return c.get(ctx, "/fixtures", q)
}

// Injuries returns current squad availability for both teams of a fixture.
func (c *Client) Injuries(ctx context.Context, fixtureID int64) (json.RawMessage, error) {
	return c.get(ctx, "/injuries", url.Values{
		"fixture": {formatID(fixtureID)},
	})
}

// FixtureInfo returns the basic record for a fixture: teams, venue,
// kickoff, league and round.
func (c *Client) FixtureInfo(ctx context.Context, fixtureID int64) (json.RawMessage, error) {
	return c.get(ctx, "/fixtures", url.Values{
		"id": {formatID(fixtureID)},
	})
}

// Standings returns the league table for a league and season.
func (c *Client) Standings(ctx context.Context, leagueID int64, season int) (json.RawMessage, error) {
	return c.get(ctx, "/standings", url.Values{
		"league": {formatID(leagueID)},
		"season": {strconv.Itoa(season)},
	})
}

// Odds returns the bookmaker odds published for a fixture.
func (c *Client) Odds(ctx context.Context, fixtureID int64) (json.RawMessage, error) {
	return c.get(ctx, "/odds", url.Values{
		"fixture": {formatID(fixtureID)},
	})
}

// Ping checks whether the provider is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/status", nil)
	if err != nil {
		return fmt.Errorf("statistics provider unreachable at %s: %w", c.baseURL, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-apisports-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("statistics API returned status %d for %s: %s", resp.StatusCode, path, string(body))
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("statistics API returned invalid JSON for %s", path)
	}
	return json.RawMessage(body), nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

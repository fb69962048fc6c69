package supervisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlandt/touchline/internal/agent"
	"github.com/mlandt/touchline/internal/agent/provider"
	"github.com/mlandt/touchline/internal/agent/tools"
	"github.com/mlandt/touchline/internal/session"
	"github.com/mlandt/touchline/internal/store"
)

type fakeStore struct {
	records []store.FixtureRecord
	best    *store.FixtureRecord
	err     error
}

var _ store.FixtureStore = (*fakeStore)(nil)

func (f *fakeStore) FixturesByLeague(ctx context.Context, query string) ([]store.FixtureRecord, error) {
	return f.records, f.err
}

func (f *fakeStore) FixturesByDate(ctx context.Context, first, second time.Time) ([]store.FixtureRecord, error) {
	return f.records, f.err
}

func (f *fakeStore) FixturesByTeams(ctx context.Context, query string) ([]store.FixtureRecord, error) {
	return f.records, f.err
}

func (f *fakeStore) BestByTeams(ctx context.Context, query string) (*store.FixtureRecord, error) {
	return f.best, f.err
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.err }
func (f *fakeStore) Close() error                   { return nil }

func newSupervisor(p provider.Provider, st store.FixtureStore, singleAgent bool) *Supervisor {
	return New(Config{
		Provider:    p,
		Registry:    tools.NewRegistry(tools.Dependencies{Store: st}),
		SingleAgent: singleAgent,
	})
}

func agentNames(state *session.State) []string {
	var names []string
	for _, turn := range state.Turns() {
		if turn.Role == session.RoleAgent {
			names = append(names, turn.Agent)
		}
	}
	return names
}

func TestHandle_TeamPairToReport(t *testing.T) {
	st := &fakeStore{best: &store.FixtureRecord{
		FixtureID: 501,
		TeamsVS:   "Arsenal vs Chelsea",
	}}

	scripted := provider.NewScriptedProvider("team-pair-report",
		provider.Step{ToolCalls: []provider.ScriptedToolCall{{
			Name:  "select_fixture_id_by_team_vs",
			Input: map[string]interface{}{"query": "Arsenal vs Chelsea"},
		}}},
		provider.Step{
			Match: "fixture 501",
			Text:  "fixture_id: 501\nArsenal vs Chelsea, Premier League.",
		},
		provider.Step{
			Match: "Use fixture_id: 501",
			Text:  "## Fundamental Report\nArsenal are strong at home...\n\n| Aspect | Note |\n|---|---|",
		},
	)

	sup := newSupervisor(scripted, st, false)
	result, err := sup.Handle(context.Background(), "Give me a full report on Arsenal vs Chelsea")
	require.NoError(t, err)

	assert.Equal(t, int64(501), result.FixtureID)
	assert.Equal(t, 1, result.Handoffs)
	assert.False(t, result.Degraded)
	assert.Contains(t, result.Text, "Fundamental Report")
	assert.Equal(t, PhaseFinished, sup.Phase())
	assert.Equal(t, []string{agent.QueryAgentName, agent.ReportAgentName}, agentNames(sup.State()))
}

func TestHandle_TeamPairToAnswer(t *testing.T) {
	st := &fakeStore{best: &store.FixtureRecord{
		FixtureID: 742,
		TeamsVS:   "Liverpool vs Everton",
	}}

	scripted := provider.NewScriptedProvider("team-pair-answer",
		provider.Step{ToolCalls: []provider.ScriptedToolCall{{
			Name:  "select_fixture_id_by_team_vs",
			Input: map[string]interface{}{"query": "利物浦 vs 埃弗顿"},
		}}},
		provider.Step{
			Match: "fixture 742",
			Text:  "fixture_id: 742\n利物浦对阵埃弗顿。",
		},
		provider.Step{
			Match: "Use fixture_id: 742",
			Text:  "利物浦近况更好，主场作战占优。",
		},
	)

	sup := newSupervisor(scripted, st, false)
	result, err := sup.Handle(context.Background(), "利物浦 vs 埃弗顿 哪边状态好？")
	require.NoError(t, err)

	assert.Equal(t, int64(742), result.FixtureID)
	assert.Equal(t, []string{agent.QueryAgentName, agent.AnswerAgentName}, agentNames(sup.State()))
	assert.Contains(t, result.Text, "利物浦")
}

func TestHandle_MissingMarkerRetriesOnceThenFinishes(t *testing.T) {
	scripted := provider.NewScriptedProvider("no-marker",
		provider.Step{Text: "I looked but found nothing for that description."},
		provider.Step{
			Match: "alternative lookup mode",
			Text:  "Still no fixture matches, even by league or date.",
		},
	)

	sup := newSupervisor(scripted, &fakeStore{}, false)
	result, err := sup.Handle(context.Background(), "some obscure friendly")
	require.NoError(t, err)

	assert.Equal(t, int64(0), result.FixtureID)
	assert.Equal(t, 1, result.Handoffs)
	assert.Contains(t, result.Text, "Still no fixture matches")
	assert.Equal(t, 2, scripted.Calls())
	assert.Equal(t, []string{agent.QueryAgentName, agent.QueryAgentName}, agentNames(sup.State()))
}

func TestHandle_StoreFailureTerminatesWithoutRetry(t *testing.T) {
	st := &fakeStore{err: errors.New("connection refused")}

	scripted := provider.NewScriptedProvider("store-down",
		provider.Step{ToolCalls: []provider.ScriptedToolCall{{
			Name:  "query_fixture_id_by_league",
			Input: map[string]interface{}{"query": "Premier League"},
		}}},
		provider.Step{
			Match: "connection refused",
			Text:  "The fixture catalog is unavailable right now, so I cannot look that up.",
		},
	)

	sup := newSupervisor(scripted, st, false)
	result, err := sup.Handle(context.Background(), "Premier League fixtures this week")
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, 0, result.Handoffs)
	assert.Contains(t, result.Text, "unavailable")
	// No alternate-mode retry against a dead store.
	assert.Equal(t, 2, scripted.Calls())
}

func TestHandle_HandoffBudgetNeverExceeded(t *testing.T) {
	st := &fakeStore{best: &store.FixtureRecord{FixtureID: 99, TeamsVS: "A vs B"}}

	// First query turn misses the marker, the retry resolves it, the
	// specialist answers: two hand-offs, then a forced finish.
	scripted := provider.NewScriptedProvider("budget",
		provider.Step{Text: "Let me check that."},
		provider.Step{
			Match: "alternative lookup mode",
			Text:  "fixture_id: 99\nFound it on the second try.",
		},
		provider.Step{
			Match: "Use fixture_id: 99",
			Text:  "A beat B twice in their last five meetings.",
		},
	)

	sup := newSupervisor(scripted, st, false)
	result, err := sup.Handle(context.Background(), "tell me about the A against B game")
	require.NoError(t, err)

	assert.Equal(t, MaxHandoffs, result.Handoffs)
	assert.Equal(t, int64(99), result.FixtureID)
	assert.Contains(t, result.Text, "last five meetings")
	assert.Equal(t, PhaseFinished, sup.Phase())
}

func TestHandle_UserProvidedFixtureID(t *testing.T) {
	scripted := provider.NewScriptedProvider("direct-id",
		provider.Step{
			Match: "Use fixture_id: 501",
			Text:  "Kickoff is Saturday 17:30 at the Emirates.",
		},
	)

	sup := newSupervisor(scripted, &fakeStore{}, false)
	result, err := sup.Handle(context.Background(), "501")
	require.NoError(t, err)

	assert.Equal(t, int64(501), result.FixtureID)
	assert.Equal(t, 0, result.Handoffs)
	assert.Equal(t, []string{agent.AnswerAgentName}, agentNames(sup.State()))
}

func TestHandle_FinalRecommendationTerminatesEarly(t *testing.T) {
	scripted := provider.NewScriptedProvider("final-rec",
		provider.Step{
			Match: "Use fixture_id: 321",
			Text:  "最终交易建议：下注主胜，盘口与基本面一致。",
		},
	)

	sup := newSupervisor(scripted, &fakeStore{}, false)
	result, err := sup.Handle(context.Background(), "fixture_id: 321")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Text, "最终交易建议"))
	assert.Equal(t, 0, result.Handoffs)
}

func TestHandle_SingleAgentMode(t *testing.T) {
	st := &fakeStore{best: &store.FixtureRecord{FixtureID: 611, TeamsVS: "Milan vs Inter"}}

	scripted := provider.NewScriptedProvider("single-agent",
		provider.Step{ToolCalls: []provider.ScriptedToolCall{{
			Name:  "select_fixture_id_by_team_vs",
			Input: map[string]interface{}{"query": "Milan vs Inter"},
		}}},
		provider.Step{
			Match: "fixture 611",
			Text:  "The derby kicks off Sunday; Inter are slight favourites.",
		},
	)

	sup := newSupervisor(scripted, st, true)
	result, err := sup.Handle(context.Background(), "Milan vs Inter this weekend?")
	require.NoError(t, err)

	assert.Equal(t, 0, result.Handoffs)
	assert.Equal(t, []string{agent.AnswerAgentName}, agentNames(sup.State()))
	assert.Contains(t, result.Text, "favourites")
}

func TestHandle_ProviderFailurePropagates(t *testing.T) {
	// An exhausted scenario stands in for a dead provider.
	scripted := provider.NewScriptedProvider("dead")

	sup := newSupervisor(scripted, &fakeStore{}, false)
	_, err := sup.Handle(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, PhaseFinished, sup.Phase())
}

func TestHandle_SecondEpisodeGetsFreshBudget(t *testing.T) {
	st := &fakeStore{best: &store.FixtureRecord{FixtureID: 77, TeamsVS: "X vs Y"}}

	scripted := provider.NewScriptedProvider("two-episodes",
		provider.Step{ToolCalls: []provider.ScriptedToolCall{{
			Name:  "select_fixture_id_by_team_vs",
			Input: map[string]interface{}{"query": "X vs Y"},
		}}},
		provider.Step{Match: "fixture 77", Text: "fixture_id: 77\nX vs Y."},
		provider.Step{Match: "Use fixture_id: 77", Text: "Short answer about X vs Y."},
		provider.Step{Match: "Use fixture_id: 77", Text: "No fresh injuries reported."},
	)

	sup := newSupervisor(scripted, st, false)

	first, err := sup.Handle(context.Background(), "X vs Y?")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Handoffs)

	// The user pastes the id back, so the second episode skips resolution.
	second, err := sup.Handle(context.Background(), "fixture_id: 77")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Handoffs)
	assert.Equal(t, int64(77), second.FixtureID)
	assert.Contains(t, second.Text, "No fresh injuries")
}

func TestParseFixtureID(t *testing.T) {
	cases := []struct {
		name string
		text string
		id   int64
		ok   bool
	}{
		{"plain marker", "fixture_id: 501", 501, true},
		{"marker with body", "fixture_id: 501\nArsenal vs Chelsea on Saturday.", 501, true},
		{"no space after colon", "fixture_id:42", 42, true},
		{"leading whitespace", "  fixture_id: 7\nrest", 7, true},
		{"marker not on first line", "I found it.\nfixture_id: 501", 0, false},
		{"missing marker", "Arsenal vs Chelsea is fixture 501", 0, false},
		{"non-integer suffix", "fixture_id: soon", 0, false},
		{"trailing words", "fixture_id: 501 maybe", 0, false},
		{"zero id", "fixture_id: 0", 0, false},
		{"empty", "", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := ParseFixtureID(tc.text)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.id, id)
		})
	}
}

func TestUserFixtureID(t *testing.T) {
	assert.Equal(t, int64(501), userFixtureID("501"))
	assert.Equal(t, int64(501), userFixtureID("fixture_id: 501"))
	assert.Equal(t, int64(0), userFixtureID("match 501 please"))
	assert.Equal(t, int64(0), userFixtureID("-3"))
	assert.Equal(t, int64(0), userFixtureID(""))
}

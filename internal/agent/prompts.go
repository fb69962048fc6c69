package agent

import "strings"

// Agent names used by routing decisions and transcripts.
const (
	QueryAgentName  = "query_agent"
	ReportAgentName = "report_agent"
	AnswerAgentName = "answer_agent"
)

// FixtureIDMarkerPrefix is the literal prefix of the hand-off marker line.
// An agent that resolved a fixture writes "fixture_id: <number>" as the
// first line of its reply; the supervisor parses nothing else.
const FixtureIDMarkerPrefix = "fixture_id:"

// finalRecommendationPrefixes are the literal reply prefixes that signal a
// final recommendation was reached and the session may terminate early.
// The Chinese form is the canonical one the prompts instruct; the English
// form covers replies written in the user's language.
var finalRecommendationPrefixes = []string{
	"最终交易建议",
	"Final recommendation:",
}

// HasFinalRecommendation reports whether a reply starts with a
// final-recommendation marker.
func HasFinalRecommendation(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, prefix := range finalRecommendationPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// collaborationPreamble is shared by every specialist agent.
const collaborationPreamble = `You are a helpful assistant collaborating with other assistants on
football-betting research. Use the provided tools to make progress on the
question step by step. It is fine if you cannot answer completely; another
assistant with different tools will continue where you stop.

If you or any other assistant already has a final recommendation (bet or
hold) or a deliverable, prefix the reply with "最终交易建议：下注/观望"
(or "Final recommendation: bet/hold" when answering in English) so the team
stops further work.

Answer in the language of the user's question, Chinese or English.`

// queryAgentPrompt instructs the fixture-resolution agent. The marker line
// contract here is what the supervisor parses, so the wording is strict.
const queryAgentPrompt = collaborationPreamble + `

You are a fixture lookup assistant. Your job is to turn the user's
description of a match into exactly one fixture_id from the fixture catalog.

Lookup rules:
- If the query names both teams or contains "VS"/"vs", prefer
  select_fixture_id_by_team_vs to pick the single most similar fixture.
- If the query names a league, use query_fixture_id_by_league.
- If the query says today or tomorrow (今天/明天), use
  query_fixture_id_by_date.
- If the query names a single team, use query_fixture_id_by_team_name.

When you have identified one fixture, write the marker as the FIRST line of
your reply, exactly in this form:

fixture_id: <number>

After the marker line, briefly state the matched teams, league and kickoff
time. If several fixtures match, pick the highest-similarity one and say
so. If nothing matches, say clearly that no fixture was found and which
lookups you tried; do not invent an id and do not write the marker line.`

// reportAgentPrompt instructs the report writer.
const reportAgentPrompt = collaborationPreamble + `

You are a researcher analyzing the fundamentals of one football fixture.
Write a comprehensive fundamental report in English covering team strength,
recent form, squad and injuries, and motivation, so a bettor fully
understands the match. Include as much detail as possible; do not merely
state that a trend is good or bad, provide fine-grained analysis and
insight that helps a trader decide.

Work from the fixture_id you were given. Call get_fixture_basic_info first
to obtain the team and league ids needed by the other tools, then gather
head-to-head history, both teams' last ten matches, injuries, standings and
odds as needed.

End the report with a Markdown table organizing its key points so the
content is easy to scan.`

// answerAgentPrompt instructs the short-form Q&A agent.
const answerAgentPrompt = collaborationPreamble + `

You are a football information assistant. Answer the user's question with
accurate, concise, easy-to-read information fetched through the tools, in
Chinese or English following the user's language.

Address the user's concern first, then add background or detail only as
needed. For single-fact questions (a score, a kickoff time, an injury),
lead with the core result; no lengthy report. If the user wants a deeper
look at a match or team, offer a short fundamental sketch (strength, form,
injuries, motivation) with the key numbers.

Work from the fixture_id you were given. Call get_fixture_basic_info first
when you need team or league ids for the other tools.`

// fixtureLookupTools are the fixture catalog tools of the query agent.
var fixtureLookupTools = []string{
	"query_fixture_id_by_league",
	"query_fixture_id_by_date",
	"query_fixture_id_by_team_name",
	"select_fixture_id_by_team_vs",
}

// statsTools are the statistics provider tools shared by the report and
// answer agents.
var statsTools = []string{
	"get_fixture_head2head",
	"get_home_last_10",
	"get_away_last_10",
	"get_injuries",
	"get_fixture_basic_info",
	"get_standing_home_info",
	"get_standing_away_info",
	"get_fixture_odds",
}

// QueryAgentConfig returns the static configuration of the fixture
// resolution agent.
func QueryAgentConfig() Config {
	return Config{
		Name:         QueryAgentName,
		Description:  "Looks up fixtures and fixture_ids by league name, today/tomorrow date, or team names (fuzzy similarity search).",
		SystemPrompt: queryAgentPrompt,
		Tools:        fixtureLookupTools,
	}
}

// ReportAgentConfig returns the static configuration of the full-report
// agent.
func ReportAgentConfig() Config {
	return Config{
		Name:         ReportAgentName,
		Description:  "Given a fixture_id, writes a comprehensive English fundamental report: strength, form, injuries, motivation, with a Markdown table.",
		SystemPrompt: reportAgentPrompt,
		Tools:        statsTools,
	}
}

// AnswerAgentConfig returns the static configuration of the short-form Q&A
// agent. When singleAgent is true the agent also carries the fixture lookup
// tools so it can resolve a fixture and answer without a hand-off.
func AnswerAgentConfig(singleAgent bool) Config {
	cfg := Config{
		Name:         AnswerAgentName,
		Description:  "Given a fixture_id, answers football questions in Chinese or English with concise, current data.",
		SystemPrompt: answerAgentPrompt,
		Tools:        statsTools,
	}
	if singleAgent {
		cfg.Tools = append(append([]string{}, statsTools...), fixtureLookupTools...)
		cfg.SystemPrompt += `

You also carry the fixture lookup tools. When the user describes a match by
league, date or team names, resolve the fixture_id yourself with
query_fixture_id_by_league, query_fixture_id_by_date,
query_fixture_id_by_team_name or select_fixture_id_by_team_vs before
fetching data.`
	}
	return cfg
}

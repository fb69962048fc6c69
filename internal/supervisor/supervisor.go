// Package supervisor implements the routing state machine that drives a
// research session. Exactly one agent is active at a time; the supervisor
// inspects the conversation after every agent turn, decides who acts next,
// and terminates within a fixed hand-off budget so a session can never loop.
package supervisor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mlandt/touchline/internal/agent"
	"github.com/mlandt/touchline/internal/agent/provider"
	"github.com/mlandt/touchline/internal/agent/tools"
	"github.com/mlandt/touchline/internal/logging"
	"github.com/mlandt/touchline/internal/metrics"
	"github.com/mlandt/touchline/internal/resolver"
	"github.com/mlandt/touchline/internal/session"
)

// MaxHandoffs is the per-episode hand-off budget. Once two agent-to-agent
// transitions have happened the next decision is forced to Finished
// regardless of content. This is the termination guarantee; do not raise it
// without revisiting the routing rules.
const MaxHandoffs = 2

// Phase is the supervisor's position in the routing state machine.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseDispatching Phase = "dispatching"
	PhaseAgentActive Phase = "agent_active"
	PhaseFinished    Phase = "finished"
)

// Decision is one routing step: either the next agent to activate or
// Finished. Derived each turn from the conversation; never retained.
type Decision struct {
	Next   string
	Finish bool
	Reason string
}

// Decision reasons, for logging and tests.
const (
	ReasonBudgetExhausted = "handoff budget exhausted"
	ReasonTeamPair        = "team-pair query forces fixture lookup"
	ReasonNeedsFixtureID  = "no fixture id yet"
	ReasonUserProvidedID  = "user supplied a fixture id"
	ReasonHandoffResolved = "fixture id resolved, dispatching specialist"
	ReasonStoreFailure    = "fixture catalog failure"
	ReasonRetryAlternate  = "retrying with an alternative lookup mode"
	ReasonCouldNotResolve = "could not resolve a fixture"
	ReasonAnswerComplete  = "specialist answered"
	ReasonSingleAgent     = "single-agent mode"
)

const couldNotResolveMessage = "I could not identify the match you mean. " +
	"Please name both teams, the league, or say today/tomorrow."

// Config wires a supervisor.
type Config struct {
	Provider   provider.Provider
	Registry   *tools.Registry
	Transcript *session.Transcript

	// SingleAgent routes everything to the answer agent, which then
	// carries the fixture lookup tools itself.
	SingleAgent bool

	// SessionID pins the session identifier; empty means generate one.
	SessionID string
}

// Supervisor owns one session: its conversation state, hand-off counter and
// agent set. Not safe for concurrent use; run one supervisor per session.
type Supervisor struct {
	agents      map[string]*agent.Agent
	state       *session.State
	transcript  *session.Transcript
	logger      *logging.Logger
	singleAgent bool

	phase    Phase
	handoffs int
}

// TurnResult summarizes one completed routing episode.
type TurnResult struct {
	// Text is the final user-visible reply.
	Text string

	// FixtureID is the id that crossed agent boundaries, or 0.
	FixtureID int64

	// Handoffs is how many agent-to-agent transitions the episode used.
	Handoffs int

	// Degraded is true when some tool call failed along the way.
	Degraded bool

	// ToolCalls, Requests and Usage aggregate across all agent turns.
	ToolCalls int
	Requests  int
	Usage     provider.Usage
}

// New creates a supervisor with a fresh session.
func New(cfg Config) *Supervisor {
	s := &Supervisor{
		agents:      make(map[string]*agent.Agent),
		state:       session.NewStateWithID(cfg.SessionID),
		transcript:  cfg.Transcript,
		logger:      logging.GetLogger("supervisor"),
		singleAgent: cfg.SingleAgent,
		phase:       PhaseIdle,
	}

	s.addAgent(agent.QueryAgentConfig(), cfg)
	s.addAgent(agent.ReportAgentConfig(), cfg)
	s.addAgent(agent.AnswerAgentConfig(cfg.SingleAgent), cfg)

	metrics.SessionsTotal.Inc()
	return s
}

func (s *Supervisor) addAgent(cfg agent.Config, sup Config) {
	s.agents[cfg.Name] = agent.New(cfg, sup.Provider, sup.Registry, sup.Transcript)
}

// SessionID returns the session identifier.
func (s *Supervisor) SessionID() string {
	return s.state.ID()
}

// State returns the session's conversation state.
func (s *Supervisor) State() *session.State {
	return s.state
}

// Phase returns the supervisor's current phase.
func (s *Supervisor) Phase() Phase {
	return s.phase
}

// Handle runs one routing episode: from a user message through agent
// dispatches to a final reply. It always terminates within MaxHandoffs
// agent-to-agent transitions plus the active agent's own turn.
//
// A returned error means infrastructure failed (the provider is gone); the
// caller owes the user an explanation. Everything recoverable, including
// catalog failures, comes back as a degraded TurnResult instead.
func (s *Supervisor) Handle(ctx context.Context, userInput string) (*TurnResult, error) {
	s.state.Append(session.Turn{Role: session.RoleUser, Text: userInput})
	if s.transcript != nil {
		_ = s.transcript.LogUserMessage(userInput)
	}

	// The hand-off budget is per episode: each user message runs the
	// machine from Dispatching to Finished.
	s.handoffs = 0
	s.phase = PhaseDispatching

	result := &TurnResult{}
	var lastAgent string
	var lastOutcome *agent.Outcome
	queryRetried := false

	// A user who pastes "fixture_id: 501" (or a bare id) skips resolution.
	fixtureID := userFixtureID(userInput)
	if fixtureID != 0 {
		result.FixtureID = fixtureID
	}

	for {
		decision := s.decide(lastAgent, lastOutcome, fixtureID, queryRetried)
		s.logger.InfoWithFields("routing decision",
			logging.Field("session", s.state.ID()),
			logging.Field("next", decision.Next),
			logging.Field("finish", decision.Finish),
			logging.Field("reason", decision.Reason),
			logging.Field("handoffs", s.handoffs),
		)

		if decision.Finish {
			return s.finish(decision, lastOutcome, result), nil
		}

		if lastAgent != "" {
			s.handoffs++
			metrics.HandoffsTotal.Inc()
			if s.transcript != nil {
				_ = s.transcript.LogHandoff(lastAgent, decision.Next, fixtureID)
			}
		}
		if decision.Next == agent.QueryAgentName && lastAgent == agent.QueryAgentName {
			queryRetried = true
		}

		active, ok := s.agents[decision.Next]
		if !ok {
			return nil, fmt.Errorf("routing decision named unknown agent %q", decision.Next)
		}

		s.phase = PhaseAgentActive
		msgs := agent.MessagesFromState(s.state)
		if directive := directiveFor(decision, fixtureID); directive != "" {
			msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: directive})
		}

		outcome, err := active.Run(ctx, msgs)
		if err != nil {
			s.phase = PhaseFinished
			return nil, fmt.Errorf("session %s: %w", s.state.ID(), err)
		}

		id, _ := ParseFixtureID(outcome.Text)
		s.state.Append(session.Turn{
			Role:      session.RoleAgent,
			Agent:     outcome.Agent,
			Text:      outcome.Text,
			FixtureID: id,
		})
		if id != 0 {
			fixtureID = id
			result.FixtureID = id
		}

		result.ToolCalls += outcome.ToolCalls
		result.Requests += outcome.Requests
		result.Usage.InputTokens += outcome.Usage.InputTokens
		result.Usage.OutputTokens += outcome.Usage.OutputTokens
		if outcome.Degraded {
			result.Degraded = true
		}

		lastAgent = outcome.Agent
		lastOutcome = outcome

		if agent.HasFinalRecommendation(outcome.Text) {
			return s.finish(Decision{Finish: true, Reason: "final recommendation reached"}, outcome, result), nil
		}

		s.phase = PhaseDispatching
	}
}

// decide is the transition function, evaluated once per dispatch from the
// conversation so far plus the episode's hand-off count.
func (s *Supervisor) decide(lastAgent string, lastOutcome *agent.Outcome, fixtureID int64, queryRetried bool) Decision {
	if s.handoffs >= MaxHandoffs {
		return Decision{Finish: true, Reason: ReasonBudgetExhausted}
	}

	userMsg := s.state.LastUserMessage()

	switch lastAgent {
	case "":
		if s.singleAgent {
			return Decision{Next: agent.AnswerAgentName, Reason: ReasonSingleAgent}
		}
		if fixtureID != 0 {
			return Decision{Next: s.specialistFor(userMsg), Reason: ReasonUserProvidedID}
		}
		if resolver.IsTeamPair(userMsg) {
			return Decision{Next: agent.QueryAgentName, Reason: ReasonTeamPair}
		}
		return Decision{Next: agent.QueryAgentName, Reason: ReasonNeedsFixtureID}

	case agent.QueryAgentName:
		if fixtureID != 0 {
			return Decision{Next: s.specialistFor(userMsg), Reason: ReasonHandoffResolved}
		}
		if lastOutcome != nil && lastOutcome.Degraded {
			// A catalog failure is not "no match": stop with the agent's
			// explanation instead of re-querying a dead store.
			return Decision{Finish: true, Reason: ReasonStoreFailure}
		}
		if !queryRetried {
			return Decision{Next: agent.QueryAgentName, Reason: ReasonRetryAlternate}
		}
		return Decision{Finish: true, Reason: ReasonCouldNotResolve}

	default:
		return Decision{Finish: true, Reason: ReasonAnswerComplete}
	}
}

// specialistFor picks the downstream agent from the user's stated need:
// a full report or a short answer.
func (s *Supervisor) specialistFor(userMsg string) string {
	lower := strings.ToLower(userMsg)
	if strings.Contains(lower, "report") ||
		strings.Contains(userMsg, "报告") ||
		strings.Contains(userMsg, "基本面") {
		return agent.ReportAgentName
	}
	return agent.AnswerAgentName
}

// finish closes the episode and picks the final reply text.
func (s *Supervisor) finish(decision Decision, lastOutcome *agent.Outcome, result *TurnResult) *TurnResult {
	s.phase = PhaseFinished
	result.Handoffs = s.handoffs

	switch {
	case lastOutcome != nil && strings.TrimSpace(lastOutcome.Text) != "":
		result.Text = lastOutcome.Text
	case decision.Reason == ReasonCouldNotResolve || decision.Reason == ReasonStoreFailure:
		result.Text = couldNotResolveMessage
		result.Degraded = true
	default:
		result.Text = couldNotResolveMessage
	}

	s.logger.InfoWithFields("episode finished",
		logging.Field("session", s.state.ID()),
		logging.Field("reason", decision.Reason),
		logging.Field("handoffs", result.Handoffs),
		logging.Field("tool_calls", result.ToolCalls),
		logging.Field("degraded", result.Degraded),
	)
	return result
}

// directiveFor builds the ephemeral instruction accompanying a dispatch.
// It rides along in the provider messages only; it is not part of the
// conversation state.
func directiveFor(decision Decision, fixtureID int64) string {
	switch decision.Reason {
	case ReasonHandoffResolved, ReasonUserProvidedID:
		return fmt.Sprintf("Use fixture_id: %d for this task.", fixtureID)
	case ReasonRetryAlternate:
		return "No fixture id has been resolved yet. Try an alternative lookup mode " +
			"(league name or today/tomorrow date) for the user's request, and write " +
			"the fixture_id marker on the first line if you find a match."
	default:
		return ""
	}
}

// userFixtureID recognizes a user message that already carries a fixture
// id, either as a bare integer or in marker form.
func userFixtureID(text string) int64 {
	trimmed := strings.TrimSpace(text)
	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil && id > 0 {
		return id
	}
	if id, ok := ParseFixtureID(trimmed); ok {
		return id
	}
	return 0
}

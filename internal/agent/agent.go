// Package agent implements the specialist agents: bounded decision loops
// that let the model alternate between tool calls and text until it answers.
// Each agent is a static configuration (name, prompt, tool set) bound to a
// provider and a tool registry; the loop itself is shared.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mlandt/touchline/internal/agent/provider"
	"github.com/mlandt/touchline/internal/agent/tools"
	"github.com/mlandt/touchline/internal/logging"
	"github.com/mlandt/touchline/internal/session"
)

// MaxToolRounds bounds the provider/tool alternation within one agent turn.
// The research tasks here need at most a handful of lookups; a model that
// keeps calling tools past this is stuck, and the agent answers with what
// it has.
const MaxToolRounds = 8

// Config is the static definition of one agent. Instances are immutable
// shared configuration, never mutated at runtime.
type Config struct {
	// Name identifies the agent in routing decisions and transcripts.
	Name string

	// Description is shown to the supervisor when it picks an agent.
	Description string

	// SystemPrompt is the agent's full system instruction text.
	SystemPrompt string

	// Tools lists the registry tool names this agent may call.
	Tools []string
}

// Outcome is the result of one agent turn: the final text plus enough
// bookkeeping for the supervisor and the transcript.
type Outcome struct {
	// Agent is the name of the agent that produced this outcome.
	Agent string

	// Text is the agent's final reply.
	Text string

	// ToolCalls is how many tool invocations the turn used.
	ToolCalls int

	// Degraded is true when at least one tool call failed and the reply
	// was produced from partial data.
	Degraded bool

	// Usage accumulates token usage across the turn's provider calls.
	Usage provider.Usage

	// Requests is the number of provider round trips.
	Requests int
}

// Agent binds a Config to a provider and tool registry.
type Agent struct {
	cfg        Config
	provider   provider.Provider
	registry   *tools.Registry
	transcript *session.Transcript
	logger     *logging.Logger
}

// New creates an agent. transcript may be nil to disable transcript
// recording.
func New(cfg Config, p provider.Provider, registry *tools.Registry, transcript *session.Transcript) *Agent {
	return &Agent{
		cfg:        cfg,
		provider:   p,
		registry:   registry,
		transcript: transcript,
		logger:     logging.GetLogger("agent." + cfg.Name),
	}
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.cfg.Name
}

// Description returns the agent's routing description.
func (a *Agent) Description() string {
	return a.cfg.Description
}

// Run executes one agent turn: the model alternates between tool calls and
// text until it answers or the round budget runs out. Tool failures are fed
// back to the model as error results so it can answer from partial data;
// only provider failures abort the turn.
func (a *Agent) Run(ctx context.Context, messages []provider.Message) (*Outcome, error) {
	msgs := make([]provider.Message, len(messages))
	copy(msgs, messages)

	defs := a.registry.Definitions(a.cfg.Tools)
	outcome := &Outcome{Agent: a.cfg.Name}

	if a.transcript != nil {
		_ = a.transcript.LogAgentActivated(a.cfg.Name)
	}

	var lastText string
	for round := 0; round < MaxToolRounds; round++ {
		resp, err := a.provider.Chat(ctx, a.cfg.SystemPrompt, msgs, defs)
		if err != nil {
			if a.transcript != nil {
				_ = a.transcript.LogError(a.cfg.Name, err)
			}
			return nil, fmt.Errorf("agent %s: provider call failed: %w", a.cfg.Name, err)
		}

		outcome.Requests++
		outcome.Usage.InputTokens += resp.Usage.InputTokens
		outcome.Usage.OutputTokens += resp.Usage.OutputTokens

		if resp.Content != "" {
			lastText = resp.Content
		}

		if len(resp.ToolCalls) == 0 {
			outcome.Text = lastText
			if a.transcript != nil && outcome.Text != "" {
				_ = a.transcript.LogAgentText(a.cfg.Name, outcome.Text)
			}
			return outcome, nil
		}

		msgs = append(msgs, provider.Message{
			Role:    provider.RoleAssistant,
			Content: resp.Content,
			ToolUse: resp.ToolCalls,
		})

		results := make([]provider.ToolResultBlock, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			results = append(results, a.executeTool(ctx, call, outcome))
		}
		msgs = append(msgs, provider.Message{
			Role:       provider.RoleUser,
			ToolResult: results,
		})
	}

	// Round budget exhausted. Answer with whatever the model said last so
	// the session still terminates with something useful.
	outcome.Degraded = true
	if lastText == "" {
		lastText = "I could not complete the research within the allotted number of lookups."
	}
	outcome.Text = lastText
	a.logger.WarnWithFields("tool round budget exhausted",
		logging.Field("agent", a.cfg.Name),
		logging.Field("tool_calls", outcome.ToolCalls),
	)
	if a.transcript != nil {
		_ = a.transcript.LogAgentText(a.cfg.Name, outcome.Text)
	}
	return outcome, nil
}

// executeTool runs one tool call and renders the result for the model.
// Registry errors (unknown tool, bad input) and failed results both come
// back as error blocks; either marks the outcome degraded.
func (a *Agent) executeTool(ctx context.Context, call provider.ToolUseBlock, outcome *Outcome) provider.ToolResultBlock {
	outcome.ToolCalls++
	if a.transcript != nil {
		_ = a.transcript.LogToolStart(a.cfg.Name, call.Name, call.Input)
	}

	result, err := a.registry.Execute(ctx, call.Name, call.Input)
	if err != nil {
		outcome.Degraded = true
		if a.transcript != nil {
			_ = a.transcript.LogToolComplete(a.cfg.Name, call.Name, false, 0, err.Error())
		}
		return provider.ToolResultBlock{
			ToolUseID: call.ID,
			Content:   fmt.Sprintf("tool error: %v", err),
			IsError:   true,
		}
	}

	if a.transcript != nil {
		_ = a.transcript.LogToolComplete(a.cfg.Name, call.Name, result.Success, result.ExecutionTimeMs, result.Summary)
	}
	if !result.Success {
		outcome.Degraded = true
	}

	payload, err := json.Marshal(result)
	if err != nil {
		outcome.Degraded = true
		return provider.ToolResultBlock{
			ToolUseID: call.ID,
			Content:   fmt.Sprintf("failed to serialize tool result: %v", err),
			IsError:   true,
		}
	}
	return provider.ToolResultBlock{
		ToolUseID: call.ID,
		Content:   string(payload),
		IsError:   !result.Success,
	}
}

// MessagesFromState converts session turns into provider messages. Agent
// turns become assistant messages labeled with their author so a successor
// agent can see who said what.
func MessagesFromState(state *session.State) []provider.Message {
	turns := state.Turns()
	msgs := make([]provider.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case session.RoleUser:
			msgs = append(msgs, provider.Message{
				Role:    provider.RoleUser,
				Content: turn.Text,
			})
		case session.RoleAgent:
			if strings.TrimSpace(turn.Text) == "" {
				continue
			}
			msgs = append(msgs, provider.Message{
				Role:    provider.RoleAssistant,
				Content: fmt.Sprintf("[%s] %s", turn.Agent, turn.Text),
			})
		}
	}
	return msgs
}

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ScriptedProvider implements Provider without real API calls. It replays a
// pre-scripted scenario: each Chat call consumes the first unconsumed step
// whose match string occurs in the latest user-visible content, or the next
// sequential step when no step declares a match. Used by tests and by
// `touchline chat --mock`.
type ScriptedProvider struct {
	scenario *Scenario

	mu       sync.Mutex
	consumed []bool
	cursor   int
	calls    int
}

// Scenario is a replayable conversation script.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
}

// Step is one scripted model response.
type Step struct {
	// Match is an optional substring tested against the latest message
	// content (user text or tool results). Steps without a match are
	// consumed in order.
	Match string `yaml:"match,omitempty"`

	// Text is the assistant text for this step.
	Text string `yaml:"text,omitempty"`

	// ToolCalls are tool invocations the scripted model makes this step.
	ToolCalls []ScriptedToolCall `yaml:"tool_calls,omitempty"`
}

// ScriptedToolCall is a scripted tool invocation.
type ScriptedToolCall struct {
	Name  string                 `yaml:"name"`
	Input map[string]interface{} `yaml:"input,omitempty"`
}

// NewScriptedProvider creates a scripted provider from in-memory steps.
func NewScriptedProvider(name string, steps ...Step) *ScriptedProvider {
	return &ScriptedProvider{
		scenario: &Scenario{Name: name, Steps: steps},
		consumed: make([]bool, len(steps)),
	}
}

// LoadScenario reads a YAML scenario file and returns a scripted provider.
func LoadScenario(path string) (*ScriptedProvider, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- scenario path is operator-supplied configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}

	return &ScriptedProvider{
		scenario: &scenario,
		consumed: make([]bool, len(scenario.Steps)),
	}, nil
}

// Chat implements Provider.Chat by replaying the scenario.
func (p *ScriptedProvider) Chat(_ context.Context, _ string, messages []Message, _ []ToolDefinition) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	step, err := p.nextStep(latestContent(messages))
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Content:    step.Text,
		StopReason: StopReasonEndTurn,
	}
	for i, call := range step.ToolCalls {
		input, err := json.Marshal(call.Input)
		if err != nil {
			return nil, fmt.Errorf("scripted tool input for %s is not serializable: %w", call.Name, err)
		}
		resp.ToolCalls = append(resp.ToolCalls, ToolUseBlock{
			ID:    fmt.Sprintf("scripted_%d_%d", p.calls, i),
			Name:  call.Name,
			Input: input,
		})
	}
	if len(resp.ToolCalls) > 0 {
		resp.StopReason = StopReasonToolUse
	}
	return resp, nil
}

// Name implements Provider.Name.
func (p *ScriptedProvider) Name() string {
	return "scripted"
}

// Model implements Provider.Model.
func (p *ScriptedProvider) Model() string {
	return fmt.Sprintf("scripted:%s", p.scenario.Name)
}

// Calls returns how many Chat invocations the script has served.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *ScriptedProvider) nextStep(content string) (*Step, error) {
	// Matched steps win over sequential ones.
	for i := range p.scenario.Steps {
		step := &p.scenario.Steps[i]
		if p.consumed[i] || step.Match == "" {
			continue
		}
		if strings.Contains(content, step.Match) {
			p.consumed[i] = true
			return step, nil
		}
	}

	for p.cursor < len(p.scenario.Steps) {
		i := p.cursor
		p.cursor++
		if p.consumed[i] || p.scenario.Steps[i].Match != "" {
			continue
		}
		p.consumed[i] = true
		return &p.scenario.Steps[i], nil
	}

	return nil, fmt.Errorf("scenario %q exhausted after %d calls", p.scenario.Name, p.calls)
}

// latestContent extracts the text the scripted model should match against:
// the most recent message's text plus any tool result contents.
func latestContent(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	last := messages[len(messages)-1]

	var parts []string
	if last.Content != "" {
		parts = append(parts, last.Content)
	}
	for _, result := range last.ToolResult {
		parts = append(parts, result.Content)
	}
	return strings.Join(parts, "\n")
}

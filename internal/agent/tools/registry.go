// Package tools provides tool registration and execution for the touchline
// agents. Every tool is a read-only lookup: either a fixture catalog query
// or a statistics provider call. Tools never mutate anything, so a failed
// call is always safe to report back to the model as an error result.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mlandt/touchline/internal/agent/provider"
	"github.com/mlandt/touchline/internal/apifootball"
	"github.com/mlandt/touchline/internal/logging"
	"github.com/mlandt/touchline/internal/metrics"
	"github.com/mlandt/touchline/internal/store"
)

// MaxToolResponseBytes caps a tool response. Larger payloads are truncated
// to keep the model's context from overflowing on big candidate lists.
const MaxToolResponseBytes = 50 * 1024

// Tool defines the interface for agent tools.
type Tool interface {
	// Name returns the tool's unique identifier.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// InputSchema returns JSON Schema for input validation.
	InputSchema() map[string]interface{}

	// Execute runs the tool with given input.
	Execute(ctx context.Context, input json.RawMessage) (*Result, error)
}

// Result represents the output of a tool execution.
type Result struct {
	// Success indicates if the tool executed successfully
	Success bool `json:"success"`

	// Data contains the tool's output (tool-specific structure)
	Data interface{} `json:"data,omitempty"`

	// Error contains error details if Success is false
	Error string `json:"error,omitempty"`

	// Summary is a brief description of what happened (for display)
	Summary string `json:"summary,omitempty"`

	// ExecutionTimeMs is how long the tool took to run
	ExecutionTimeMs int64 `json:"executionTimeMs"`
}

// Registry manages tool registration and discovery.
type Registry struct {
	tools  map[string]Tool
	mu     sync.RWMutex
	logger *logging.Logger
}

// Dependencies contains the external dependencies needed by tools.
type Dependencies struct {
	Store    store.FixtureStore
	Stats    *apifootball.Client
	Timezone *time.Location
	Logger   *logging.Logger

	// Now is injectable for deterministic date-window tests.
	Now func() time.Time
}

// NewRegistry creates a tool registry with the provided dependencies.
// Fixture catalog tools register when Store is set, statistics tools when
// Stats is set; a registry with only one side is valid (used in tests and
// by the resolve command).
func NewRegistry(deps Dependencies) *Registry {
	if deps.Logger == nil {
		deps.Logger = logging.GetLogger("tools")
	}
	if deps.Timezone == nil {
		deps.Timezone = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := &Registry{
		tools:  make(map[string]Tool),
		logger: deps.Logger,
	}

	if deps.Store != nil {
		r.register(&FixturesByLeagueTool{store: deps.Store})
		r.register(&FixturesByDateTool{store: deps.Store, tz: deps.Timezone, now: deps.Now})
		r.register(&FixturesByTeamTool{store: deps.Store})
		r.register(&SelectFixtureByTeamVSTool{store: deps.Store})
	}

	if deps.Stats != nil {
		r.register(&HeadToHeadTool{stats: deps.Stats})
		r.register(&LastTenTool{stats: deps.Stats, venue: "home"})
		r.register(&LastTenTool{stats: deps.Stats, venue: "away"})
		r.register(&InjuriesTool{stats: deps.Stats})
		r.register(&FixtureInfoTool{stats: deps.Stats})
		r.register(&StandingsTool{stats: deps.Stats, side: "home"})
		r.register(&StandingsTool{stats: deps.Stats, side: "away"})
		r.register(&OddsTool{stats: deps.Stats})
	}

	return r
}

func (r *Registry) register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Definitions returns provider-facing tool definitions for the named
// tools. Unknown names are skipped.
func (r *Registry) Definitions(names []string) []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, 0, len(names))
	for _, name := range names {
		t, ok := r.Get(name)
		if !ok {
			continue
		}
		defs = append(defs, provider.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return defs
}

// Execute runs a named tool, applying timing, truncation, logging, and
// metrics. Tool-internal failures come back as a Result with Success=false
// rather than an error: the model gets to see what went wrong.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (*Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}

	start := time.Now()
	result, err := t.Execute(ctx, input)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		metrics.ToolCallsTotal.WithLabelValues(name, "error").Inc()
		r.logger.ErrorWithFields("tool execution failed",
			logging.Field("tool", name),
			logging.Field("error", err.Error()),
			logging.Field("duration_ms", elapsed),
		)
		return nil, err
	}

	result.ExecutionTimeMs = elapsed
	result = truncateResult(result, MaxToolResponseBytes)

	status := "ok"
	if !result.Success {
		status = "failed"
	}
	metrics.ToolCallsTotal.WithLabelValues(name, status).Inc()

	r.logger.DebugWithFields("tool executed",
		logging.Field("tool", name),
		logging.Field("success", result.Success),
		logging.Field("duration_ms", elapsed),
	)
	return result, nil
}

// truncatedData is used when tool output exceeds the byte budget. It
// preserves structure while indicating data was cut.
type truncatedData struct {
	Truncated      bool   `json:"_truncated"`
	OriginalBytes  int    `json:"_original_bytes"`
	TruncatedBytes int    `json:"_truncated_bytes"`
	TruncationNote string `json:"_truncation_note"`
	PartialData    string `json:"partial_data"`
}

// truncateResult cuts result data above maxBytes so a 100-fixture date
// query cannot blow out the model context.
func truncateResult(result *Result, maxBytes int) *Result {
	if result == nil || result.Data == nil {
		return result
	}

	dataBytes, err := json.Marshal(result.Data)
	if err != nil {
		return result
	}
	if len(dataBytes) <= maxBytes {
		return result
	}

	partialDataBytes := maxBytes * 80 / 100
	partialData := string(dataBytes)
	if len(partialData) > partialDataBytes {
		partialData = partialData[:partialDataBytes]
	}

	truncated := &truncatedData{
		Truncated:      true,
		OriginalBytes:  len(dataBytes),
		TruncatedBytes: maxBytes,
		TruncationNote: fmt.Sprintf("Response truncated from %d to ~%d bytes. Use a narrower query to reduce result size.", len(dataBytes), maxBytes),
		PartialData:    partialData,
	}

	summary := result.Summary
	if summary != "" {
		summary = fmt.Sprintf("%s [TRUNCATED: %d→%d bytes]", summary, len(dataBytes), maxBytes)
	} else {
		summary = fmt.Sprintf("[TRUNCATED: %d→%d bytes]", len(dataBytes), maxBytes)
	}

	return &Result{
		Success:         result.Success,
		Data:            truncated,
		Error:           result.Error,
		Summary:         summary,
		ExecutionTimeMs: result.ExecutionTimeMs,
	}
}

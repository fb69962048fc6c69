package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// EventType represents the type of transcript event.
type EventType string

const (
	// EventTypeSessionStart marks the start of a new session.
	EventTypeSessionStart EventType = "session_start"
	// EventTypeUserMessage marks a user input message.
	EventTypeUserMessage EventType = "user_message"
	// EventTypeAgentActivated marks when an agent becomes active.
	EventTypeAgentActivated EventType = "agent_activated"
	// EventTypeToolStart marks the start of a tool call.
	EventTypeToolStart EventType = "tool_start"
	// EventTypeToolComplete marks the completion of a tool call.
	EventTypeToolComplete EventType = "tool_complete"
	// EventTypeAgentText marks text output from an agent.
	EventTypeAgentText EventType = "agent_text"
	// EventTypeHandoff marks a transfer of control between agents.
	EventTypeHandoff EventType = "handoff"
	// EventTypeError marks an error during processing.
	EventTypeError EventType = "error"
	// EventTypeSessionEnd marks the end of a session.
	EventTypeSessionEnd EventType = "session_end"
)

// Event represents a single transcript event.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id"`
	Agent     string                 `json:"agent,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Transcript writes session events to a JSONL file. All methods are safe
// for concurrent use; every event is flushed immediately so an abandoned
// session still leaves a complete record.
type Transcript struct {
	file      *os.File
	writer    *bufio.Writer
	mutex     sync.Mutex
	sessionID string
}

// NewTranscript creates a transcript logger appending to filePath.
func NewTranscript(filePath, sessionID string) (*Transcript, error) {
	// #nosec G304 -- transcript path is intentionally configurable by user
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}

	return &Transcript{
		file:      file,
		writer:    bufio.NewWriter(file),
		sessionID: sessionID,
	}, nil
}

func (t *Transcript) write(event Event) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript event: %w", err)
	}

	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write transcript event: %w", err)
	}
	if _, err := t.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	// Flush immediately for crash safety
	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush transcript: %w", err)
	}
	return nil
}

// LogSessionStart logs the start of a new session.
func (t *Transcript) LogSessionStart(model string) error {
	return t.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeSessionStart,
		SessionID: t.sessionID,
		Data: map[string]interface{}{
			"model": model,
		},
	})
}

// LogUserMessage logs a user input message.
func (t *Transcript) LogUserMessage(message string) error {
	return t.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeUserMessage,
		SessionID: t.sessionID,
		Data: map[string]interface{}{
			"message": message,
		},
	})
}

// LogAgentActivated logs when an agent becomes active.
func (t *Transcript) LogAgentActivated(agentName string) error {
	return t.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeAgentActivated,
		SessionID: t.sessionID,
		Agent:     agentName,
	})
}

// LogToolStart logs the start of a tool call.
func (t *Transcript) LogToolStart(agentName, toolName string, input json.RawMessage) error {
	return t.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeToolStart,
		SessionID: t.sessionID,
		Agent:     agentName,
		Data: map[string]interface{}{
			"tool_name": toolName,
			"input":     json.RawMessage(input),
		},
	})
}

// LogToolComplete logs the completion of a tool call.
func (t *Transcript) LogToolComplete(agentName, toolName string, success bool, durationMs int64, summary string) error {
	return t.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeToolComplete,
		SessionID: t.sessionID,
		Agent:     agentName,
		Data: map[string]interface{}{
			"tool_name":   toolName,
			"success":     success,
			"duration_ms": durationMs,
			"summary":     summary,
		},
	})
}

// LogAgentText logs text output from an agent.
func (t *Transcript) LogAgentText(agentName, content string) error {
	return t.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeAgentText,
		SessionID: t.sessionID,
		Agent:     agentName,
		Data: map[string]interface{}{
			"content": content,
		},
	})
}

// LogHandoff logs a transfer of control between agents. fixtureID is zero
// when the hand-off carried no resolved id.
func (t *Transcript) LogHandoff(fromAgent, toAgent string, fixtureID int64) error {
	return t.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeHandoff,
		SessionID: t.sessionID,
		Data: map[string]interface{}{
			"from_agent": fromAgent,
			"to_agent":   toAgent,
			"fixture_id": fixtureID,
		},
	})
}

// LogError logs an error during processing.
func (t *Transcript) LogError(agentName string, err error) error {
	return t.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeError,
		SessionID: t.sessionID,
		Agent:     agentName,
		Data: map[string]interface{}{
			"error": err.Error(),
		},
	})
}

// LogSessionEnd logs the end of a session with token totals.
func (t *Transcript) LogSessionEnd(llmRequests, inputTokens, outputTokens int) error {
	return t.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeSessionEnd,
		SessionID: t.sessionID,
		Data: map[string]interface{}{
			"llm_requests":  llmRequests,
			"input_tokens":  inputTokens,
			"output_tokens": outputTokens,
			"total_tokens":  inputTokens + outputTokens,
		},
	})
}

// Close flushes and closes the transcript file.
func (t *Transcript) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var errs []error
	if err := t.writer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush transcript: %w", err))
	}
	if err := t.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close transcript file: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing transcript: %v", errs)
	}
	return nil
}

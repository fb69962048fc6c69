package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestState_AppendOrder(t *testing.T) {
	s := NewState()
	if s.ID() == "" {
		t.Fatal("expected a non-empty session id")
	}

	s.Append(Turn{Role: RoleUser, Text: "Arsenal vs Chelsea"})
	s.Append(Turn{Role: RoleAgent, Agent: "query_agent", Text: "fixture_id: 501", FixtureID: 501})
	s.Append(Turn{Role: RoleAgent, Agent: "report_agent", Text: "report body"})

	turns := s.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Role != RoleUser || turns[0].Text != "Arsenal vs Chelsea" {
		t.Errorf("unexpected first turn: %+v", turns[0])
	}
	if turns[1].FixtureID != 501 {
		t.Errorf("expected fixture id 501 on second turn, got %d", turns[1].FixtureID)
	}
	for i, turn := range turns {
		if turn.At.IsZero() {
			t.Errorf("turn %d: expected timestamp to be stamped", i)
		}
	}
}

func TestState_TurnsReturnsCopy(t *testing.T) {
	s := NewState()
	s.Append(Turn{Role: RoleUser, Text: "original"})

	turns := s.Turns()
	turns[0].Text = "mutated"

	if s.Turns()[0].Text != "original" {
		t.Error("mutating the returned slice must not affect session state")
	}
}

func TestState_Lookups(t *testing.T) {
	s := NewState()
	if s.Last() != nil || s.LastAgentTurn() != nil || s.LastUserMessage() != "" {
		t.Fatal("empty session should have no turns")
	}

	s.Append(Turn{Role: RoleUser, Text: "first question"})
	s.Append(Turn{Role: RoleAgent, Agent: "answer_agent", Text: "short answer"})
	s.Append(Turn{Role: RoleUser, Text: "follow-up"})

	if got := s.LastUserMessage(); got != "follow-up" {
		t.Errorf("LastUserMessage = %q, want %q", got, "follow-up")
	}
	agentTurn := s.LastAgentTurn()
	if agentTurn == nil || agentTurn.Agent != "answer_agent" {
		t.Errorf("unexpected last agent turn: %+v", agentTurn)
	}
	if last := s.Last(); last == nil || last.Role != RoleUser {
		t.Errorf("unexpected last turn: %+v", last)
	}
}

func TestTranscript_WriteEvents(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "transcript.jsonl")

	tr, err := NewTranscript(logPath, "test-session-123")
	if err != nil {
		t.Fatalf("failed to create transcript: %v", err)
	}

	if err := tr.LogSessionStart("claude-sonnet-4-5-20250929"); err != nil {
		t.Errorf("LogSessionStart failed: %v", err)
	}
	if err := tr.LogUserMessage("who plays tomorrow?"); err != nil {
		t.Errorf("LogUserMessage failed: %v", err)
	}
	if err := tr.LogAgentActivated("query_agent"); err != nil {
		t.Errorf("LogAgentActivated failed: %v", err)
	}
	if err := tr.LogToolStart("query_agent", "query_fixture_id_by_date", json.RawMessage(`{"query":"tomorrow"}`)); err != nil {
		t.Errorf("LogToolStart failed: %v", err)
	}
	if err := tr.LogToolComplete("query_agent", "query_fixture_id_by_date", true, 12, "Found 4 fixtures"); err != nil {
		t.Errorf("LogToolComplete failed: %v", err)
	}
	if err := tr.LogAgentText("query_agent", "fixture_id: 501"); err != nil {
		t.Errorf("LogAgentText failed: %v", err)
	}
	if err := tr.LogHandoff("query_agent", "report_agent", 501); err != nil {
		t.Errorf("LogHandoff failed: %v", err)
	}
	if err := tr.LogError("report_agent", errors.New("provider timeout")); err != nil {
		t.Errorf("LogError failed: %v", err)
	}
	if err := tr.LogSessionEnd(3, 1200, 450); err != nil {
		t.Errorf("LogSessionEnd failed: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("failed to close transcript: %v", err)
	}

	file, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("failed to open transcript file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var events []Event
	for scanner.Scan() {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Errorf("failed to unmarshal event: %v", err)
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("error scanning transcript: %v", err)
	}

	expectedTypes := []EventType{
		EventTypeSessionStart,
		EventTypeUserMessage,
		EventTypeAgentActivated,
		EventTypeToolStart,
		EventTypeToolComplete,
		EventTypeAgentText,
		EventTypeHandoff,
		EventTypeError,
		EventTypeSessionEnd,
	}
	if len(events) != len(expectedTypes) {
		t.Fatalf("expected %d events, got %d", len(expectedTypes), len(events))
	}
	for i, expected := range expectedTypes {
		if events[i].Type != expected {
			t.Errorf("event %d: expected type %s, got %s", i, expected, events[i].Type)
		}
		if events[i].SessionID != "test-session-123" {
			t.Errorf("event %d: expected session ID test-session-123, got %s", i, events[i].SessionID)
		}
	}

	if events[6].Data["fixture_id"] != float64(501) {
		t.Errorf("handoff: expected fixture_id 501, got %v", events[6].Data["fixture_id"])
	}
	if events[8].Data["total_tokens"] != float64(1650) {
		t.Errorf("session end: expected total_tokens 1650, got %v", events[8].Data["total_tokens"])
	}
}

func TestTranscript_Append(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "transcript.jsonl")

	tr1, err := NewTranscript(logPath, "session-1")
	if err != nil {
		t.Fatalf("failed to create transcript 1: %v", err)
	}
	if err := tr1.LogSessionStart("mock"); err != nil {
		t.Errorf("LogSessionStart failed: %v", err)
	}
	if err := tr1.Close(); err != nil {
		t.Fatalf("failed to close transcript 1: %v", err)
	}

	tr2, err := NewTranscript(logPath, "session-2")
	if err != nil {
		t.Fatalf("failed to create transcript 2: %v", err)
	}
	if err := tr2.LogSessionStart("mock"); err != nil {
		t.Errorf("LogSessionStart failed: %v", err)
	}
	if err := tr2.Close(); err != nil {
		t.Fatalf("failed to close transcript 2: %v", err)
	}

	file, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("failed to open transcript file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var events []Event
	for scanner.Scan() {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Errorf("failed to unmarshal event: %v", err)
			continue
		}
		events = append(events, event)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].SessionID != "session-1" || events[1].SessionID != "session-2" {
		t.Errorf("unexpected session ids: %s, %s", events[0].SessionID, events[1].SessionID)
	}
}

// Package session holds per-conversation state. A session is private to one
// user conversation: an ordered, append-only sequence of turns plus a JSONL
// transcript on disk. Nothing here is shared across sessions and nothing
// survives the session beyond the transcript file.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one entry in the conversation. FixtureID is non-zero only on
// agent turns that carried a resolved fixture id in their hand-off marker.
type Turn struct {
	Role      Role      `json:"role"`
	Agent     string    `json:"agent,omitempty"`
	Text      string    `json:"text"`
	FixtureID int64     `json:"fixture_id,omitempty"`
	At        time.Time `json:"at"`
}

// State is the ordered conversation history for one session. Turns are only
// ever appended; callers get copies, never the backing slice.
type State struct {
	id    string
	turns []Turn
}

// NewState creates an empty session state with a fresh session id.
func NewState() *State {
	return &State{id: uuid.NewString()}
}

// NewStateWithID creates an empty session state under a caller-chosen id,
// so the transcript file and the in-memory session share one identifier.
func NewStateWithID(id string) *State {
	if id == "" {
		return NewState()
	}
	return &State{id: id}
}

// ID returns the session identifier.
func (s *State) ID() string {
	return s.id
}

// Append adds a turn to the history, stamping it if the caller did not.
func (s *State) Append(turn Turn) {
	if turn.At.IsZero() {
		turn.At = time.Now()
	}
	s.turns = append(s.turns, turn)
}

// Turns returns a copy of the full history in order.
func (s *State) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns recorded so far.
func (s *State) Len() int {
	return len(s.turns)
}

// Last returns the most recent turn, or nil for an empty session.
func (s *State) Last() *Turn {
	if len(s.turns) == 0 {
		return nil
	}
	t := s.turns[len(s.turns)-1]
	return &t
}

// LastAgentTurn returns the most recent agent turn, or nil if no agent has
// spoken yet.
func (s *State) LastAgentTurn() *Turn {
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == RoleAgent {
			t := s.turns[i]
			return &t
		}
	}
	return nil
}

// LastUserMessage returns the text of the most recent user turn, or "".
func (s *State) LastUserMessage() string {
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == RoleUser {
			return s.turns[i].Text
		}
	}
	return ""
}

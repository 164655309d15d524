// Package domain contains core domain types for the Boardview application.
package domain

import (
	"time"
)

// Stage identifies where a user is in the consultation lifecycle.
type Stage string

const (
	// StageAwaitingSituation - waiting for the user to describe their situation.
	StageAwaitingSituation Stage = "awaiting_situation"
	// StageAwaitingSelection - candidate advisors issued, waiting for three picks.
	StageAwaitingSelection Stage = "awaiting_advisor_selection"
	// StageInDialogue - advice delivered, follow-up questions allowed.
	StageInDialogue Stage = "in_dialogue"
)

const (
	// CandidateCount is the number of advisors generated per consultation.
	CandidateCount = 5
	// RequiredSelections is the number of advisors a user must pick.
	RequiredSelections = 3
	// MaxFollowUps is the follow-up question budget per consultation.
	MaxFollowUps = 3
)

// Turn is a single entry in the dialogue history.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session holds the conversation state for one user. It is owned exclusively
// by the session engine; all mutation happens under per-user serialization.
type Session struct {
	UserID             int64
	Stage              Stage
	ConsultationID     string
	Situation          string
	Candidates         []Advisor
	SelectedIDs        []string
	History            []Turn
	FollowUpsRemaining int
	UpdatedAt          time.Time
}

// NewSession returns a fresh session in the initial stage.
func NewSession(userID int64) *Session {
	return &Session{
		UserID:    userID,
		Stage:     StageAwaitingSituation,
		UpdatedAt: time.Now(),
	}
}

// Reset returns the session to the initial stage, discarding all
// consultation-local state. Persisted usage counters are untouched.
func (s *Session) Reset() {
	s.Stage = StageAwaitingSituation
	s.ConsultationID = ""
	s.Situation = ""
	s.Candidates = nil
	s.SelectedIDs = nil
	s.History = nil
	s.FollowUpsRemaining = 0
	s.UpdatedAt = time.Now()
}

// IsSelected reports whether the advisor id is currently selected.
func (s *Session) IsSelected(advisorID string) bool {
	for _, id := range s.SelectedIDs {
		if id == advisorID {
			return true
		}
	}
	return false
}

// SelectionCount returns the number of advisors selected so far.
func (s *Session) SelectionCount() int {
	return len(s.SelectedIDs)
}

// CandidateByID looks up an advisor in the current candidate set.
func (s *Session) CandidateByID(advisorID string) (Advisor, bool) {
	for _, a := range s.Candidates {
		if a.ID == advisorID {
			return a, true
		}
	}
	return Advisor{}, false
}

// SelectedAdvisors returns the full profiles for the selected ids, in
// selection order.
func (s *Session) SelectedAdvisors() []Advisor {
	out := make([]Advisor, 0, len(s.SelectedIDs))
	for _, id := range s.SelectedIDs {
		if a, ok := s.CandidateByID(id); ok {
			out = append(out, a)
		}
	}
	return out
}

// AppendTurn adds an entry to the dialogue history.
func (s *Session) AppendTurn(role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content})
	s.UpdatedAt = time.Now()
}

// Package models defines the domain types for Othala.
package models

import "time"

// SessionStatus is the lifecycle state of a publishing session.
type SessionStatus string

// Session lifecycle states. Transitions are one-directional:
// pending → active → finished|aborted. Terminal states are immutable.
const (
	SessionPending  SessionStatus = "pending"
	SessionActive   SessionStatus = "active"
	SessionFinished SessionStatus = "finished"
	SessionAborted  SessionStatus = "aborted"
)

// Session identifies one publishing run.
type Session struct {
	ID              string        `json:"id"`
	Status          SessionStatus `json:"status"`
	NotesPlanned    int           `json:"notes_planned"`
	AssetsPlanned   int           `json:"assets_planned"`
	NotesProcessed  int           `json:"notes_processed"`
	AssetsProcessed int           `json:"assets_processed"`
	// Routes is the full route inventory recorded on finish. Consumers use
	// it to detect pages deleted from the vault since the previous run.
	Routes    []string  `json:"routes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the session has reached a final state.
func (s *Session) Terminal() bool {
	return s.Status == SessionFinished || s.Status == SessionAborted
}

// Package conversation persists conversations and their transfer history.
//
// Conversations carry a monotonically increasing version used for optimistic
// concurrency: every assignment change compares the caller's expected version
// and fails with ErrVersionConflict when another writer got there first.
package conversation

import (
	"errors"
	"time"
)

// Status values for a conversation.
const (
	StatusOpen    = "open"
	StatusPending = "pending"
	StatusClosed  = "closed"
)

// Conversation is a threaded exchange between one contact and the team.
type Conversation struct {
	ID           string    `json:"id"`
	ContactID    string    `json:"contact_id"`
	DepartmentID string    `json:"department_id"`
	AgentID      string    `json:"agent_id,omitempty"`
	Status       string    `json:"status"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Assigned reports whether an agent currently owns the conversation.
func (c Conversation) Assigned() bool { return c.AgentID != "" }

// TransferRecord is one entry in a conversation's routing history.
type TransferRecord struct {
	ID               string    `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	FromDepartmentID string    `json:"from_department_id,omitempty"`
	ToDepartmentID   string    `json:"to_department_id,omitempty"`
	FromAgentID      string    `json:"from_agent_id,omitempty"`
	ToAgentID        string    `json:"to_agent_id,omitempty"`
	TransferredBy    string    `json:"transferred_by"`
	Reason           string    `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Assignment is the routing target of a conversation after a transfer or claim.
type Assignment struct {
	DepartmentID string
	AgentID      string
	Status       string
}

var (
	// ErrConversationNotFound is returned when no conversation matches the id.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrConversationClosed is returned when an operation requires an open
	// conversation.
	ErrConversationClosed = errors.New("conversation is closed")
	// ErrVersionConflict is returned when an optimistic update lost the race
	// against a concurrent writer.
	ErrVersionConflict = errors.New("conversation version conflict")
)

// Package routing is the conversation engine: it folds inbound customer
// messages into conversations, gates outbound agent messages on the channel,
// and moves conversations between departments and agents.
package routing

import (
	"context"
	"errors"

	"github.com/atendohq/atendo/internal/contacts"
	"github.com/atendohq/atendo/internal/conversation"
	"github.com/atendohq/atendo/internal/directory"
	"github.com/atendohq/atendo/internal/gateway"
	"github.com/atendohq/atendo/internal/hub"
	"github.com/atendohq/atendo/internal/message"
)

var (
	// ErrInvalidTarget is returned when a transfer names a department or agent
	// that does not exist or is inactive.
	ErrInvalidTarget = errors.New("invalid transfer target")
	// ErrNoTarget is returned when a transfer names neither a department nor
	// an agent.
	ErrNoTarget = errors.New("transfer requires a department or an agent")
)

// ConversationStore is the conversation persistence the engine depends on.
type ConversationStore interface {
	Get(ctx context.Context, id string) (conversation.Conversation, error)
	FindActiveByContact(ctx context.Context, contactID string) (conversation.Conversation, error)
	Create(ctx context.Context, contactID, departmentID string) (conversation.Conversation, error)
	Touch(ctx context.Context, id string) error
	UpdateAssignment(ctx context.Context, id string, expectedVersion int64, a conversation.Assignment) (conversation.Conversation, error)
	Close(ctx context.Context, id string) (conversation.Conversation, error)
	Transfer(ctx context.Context, input conversation.TransferInput) (conversation.TransferResult, error)
}

// MessageStore is the message persistence the engine depends on.
type MessageStore interface {
	Append(ctx context.Context, input message.AppendInput) (message.Message, error)
	Get(ctx context.Context, id string) (message.Message, error)
}

// ContactStore resolves customers by phone number.
type ContactStore interface {
	FindOrCreateByPhone(ctx context.Context, phone, displayName string) (contacts.Contact, error)
	Get(ctx context.Context, id string) (contacts.Contact, error)
}

// Directory resolves routing targets.
type Directory interface {
	DefaultDepartment(ctx context.Context) (directory.Department, error)
	GetDepartment(ctx context.Context, id string) (directory.Department, error)
	GetAgent(ctx context.Context, id string) (directory.Agent, error)
}

// Channel is the outbound side of the messaging gateway.
type Channel interface {
	Send(ctx context.Context, req gateway.SendRequest) error
	State() gateway.State
}

// Broadcaster fans events out to connected agents.
type Broadcaster interface {
	BroadcastToConversation(conversationID string, ev hub.Event) int
	BroadcastToDepartment(departmentID string, ev hub.Event) int
}

// IngestInput is one inbound customer message from the gateway webhook.
type IngestInput struct {
	Phone       string
	Name        string
	Content     string
	MessageType string
	FilePath    string
	FileName    string
}

// IngestResult is the state produced by folding one inbound message.
type IngestResult struct {
	Contact      contacts.Contact          `json:"contact"`
	Conversation conversation.Conversation `json:"conversation"`
	Message      message.Message           `json:"message"`
}

// OutboundInput is one agent-authored message.
type OutboundInput struct {
	ConversationID string
	AgentID        string
	Content        string
	MessageType    string
	FilePath       string
	FileName       string
}

// OutboundResult reports a persisted agent message and whether the gateway
// accepted it for delivery.
type OutboundResult struct {
	Message   message.Message `json:"message"`
	Delivered bool            `json:"delivered"`
}

// TransferInput describes a requested routing change.
type TransferInput struct {
	ConversationID  string
	ExpectedVersion int64
	ToDepartmentID  string
	ToAgentID       string
	RequestedBy     string
	Reason          string
}

// TransferOutcome is the state written by a successful transfer.
type TransferOutcome struct {
	Conversation conversation.Conversation   `json:"conversation"`
	Record       conversation.TransferRecord `json:"transfer"`
	Message      message.Message             `json:"message"`
}

// Package hub fans out realtime events to connected agent websockets.
//
// Rooms are logical: every conversation and every department has one, and
// connections subscribe and unsubscribe as agents open and close chats.
package hub

import "encoding/json"

// Event types pushed to clients.
const (
	EventNewMessage              = "new_message"
	EventConversationUpdated     = "conversation_updated"
	EventConversationTransferred = "conversation_transferred"
	EventUserTyping              = "user_typing"
	EventUserStopTyping          = "user_stop_typing"
	EventConnectionStatus        = "connection_status"
	EventQRCode                  = "qr_code"
)

// Event is one realtime frame. Only the fields relevant to the event type
// are set.
type Event struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	DepartmentID   string `json:"department_id,omitempty"`
	AgentID        string `json:"agent_id,omitempty"`
	AgentName      string `json:"agent_name,omitempty"`
	State          string `json:"state,omitempty"`
	Detail         string `json:"detail,omitempty"`
	QRCode         string `json:"qr_code,omitempty"`
	Message        any    `json:"message,omitempty"`
	Conversation   any    `json:"conversation,omitempty"`
	Transfer       any    `json:"transfer,omitempty"`
}

// Marshal encodes the event as a JSON frame.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// NewMessageEvent announces a message appended to a conversation.
func NewMessageEvent(conversationID, departmentID string, message any) Event {
	return Event{
		Type:           EventNewMessage,
		ConversationID: conversationID,
		DepartmentID:   departmentID,
		Message:        message,
	}
}

// ConversationUpdatedEvent announces a status or assignment change.
func ConversationUpdatedEvent(conversationID, departmentID string, conversation any) Event {
	return Event{
		Type:           EventConversationUpdated,
		ConversationID: conversationID,
		DepartmentID:   departmentID,
		Conversation:   conversation,
	}
}

// ConversationTransferredEvent announces a routing change.
func ConversationTransferredEvent(conversationID, departmentID string, conversation, transfer any) Event {
	return Event{
		Type:           EventConversationTransferred,
		ConversationID: conversationID,
		DepartmentID:   departmentID,
		Conversation:   conversation,
		Transfer:       transfer,
	}
}

// TypingEvent announces that an agent started typing in a conversation.
func TypingEvent(conversationID, agentID, agentName string) Event {
	return Event{
		Type:           EventUserTyping,
		ConversationID: conversationID,
		AgentID:        agentID,
		AgentName:      agentName,
	}
}

// StopTypingEvent announces that an agent stopped typing.
func StopTypingEvent(conversationID, agentID string) Event {
	return Event{
		Type:           EventUserStopTyping,
		ConversationID: conversationID,
		AgentID:        agentID,
	}
}

// ConnectionStatusEvent announces a gateway channel state change.
func ConnectionStatusEvent(state, detail string) Event {
	return Event{
		Type:   EventConnectionStatus,
		State:  state,
		Detail: detail,
	}
}

// QRCodeEvent carries a fresh pairing code for display.
func QRCodeEvent(data string) Event {
	return Event{
		Type:   EventQRCode,
		QRCode: data,
	}
}

// Package activity keeps an audit trail of agent actions.
package activity

import "time"

// Actions recorded in the audit trail.
const (
	ActionLogin               = "login"
	ActionMessageSent         = "message_sent"
	ActionConversationClaimed = "conversation_claimed"
	ActionConversationClosed  = "conversation_closed"
	ActionTransfer            = "transfer"
	ActionSettingsChanged     = "settings_changed"
	ActionAgentCreated        = "agent_created"
	ActionAgentUpdated        = "agent_updated"
	ActionDepartmentCreated   = "department_created"
)

// Entry is one audit trail record.
type Entry struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	AgentID string
	Action  string
	Limit   int
}

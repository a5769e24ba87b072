// Package message is the append-only store of conversation messages.
package message

import (
	"errors"
	"time"
)

// Sender types.
const (
	SenderCustomer = "customer"
	SenderAgent    = "agent"
	SenderSystem   = "system"
)

// Message content types.
const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeDocument = "document"
	TypeAudio    = "audio"
)

// Message is one entry in a conversation's transcript. Messages are never
// updated or deleted.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderType     string    `json:"sender_type"`
	SenderID       string    `json:"sender_id,omitempty"`
	MessageType    string    `json:"message_type"`
	Content        string    `json:"content"`
	FilePath       string    `json:"file_path,omitempty"`
	FileName       string    `json:"file_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AppendInput describes a message to append.
type AppendInput struct {
	ConversationID string
	SenderType     string
	SenderID       string
	MessageType    string
	Content        string
	FilePath       string
	FileName       string
}

// ErrEmptyMessage is returned when a message has neither text content nor an
// attachment.
var ErrEmptyMessage = errors.New("message has no content")

// ErrMessageNotFound is returned when no message exists with the given id.
var ErrMessageNotFound = errors.New("message not found")

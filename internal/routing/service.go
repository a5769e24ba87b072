package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atendohq/atendo/internal/conversation"
	"github.com/atendohq/atendo/internal/directory"
	"github.com/atendohq/atendo/internal/gateway"
	"github.com/atendohq/atendo/internal/hub"
	"github.com/atendohq/atendo/internal/message"
)

// Service implements the conversation routing engine.
type Service struct {
	conversations ConversationStore
	messages      MessageStore
	contacts      ContactStore
	directory     Directory
	channel       Channel
	broadcaster   Broadcaster
	logger        *slog.Logger
}

// NewService creates a routing engine.
func NewService(
	log *slog.Logger,
	conversations ConversationStore,
	messages MessageStore,
	contacts ContactStore,
	dir Directory,
	channel Channel,
	broadcaster Broadcaster,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		conversations: conversations,
		messages:      messages,
		contacts:      contacts,
		directory:     dir,
		channel:       channel,
		broadcaster:   broadcaster,
		logger:        log.With(slog.String("service", "routing")),
	}
}

// Ingest folds one inbound customer message into its conversation, creating
// the contact and a pending conversation in the default department when the
// customer has no active one.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (IngestResult, error) {
	phone := strings.TrimSpace(input.Phone)
	if phone == "" {
		return IngestResult{}, fmt.Errorf("phone is required")
	}

	contact, err := s.contacts.FindOrCreateByPhone(ctx, phone, strings.TrimSpace(input.Name))
	if err != nil {
		return IngestResult{}, fmt.Errorf("resolve contact: %w", err)
	}

	conv, err := s.conversations.FindActiveByContact(ctx, contact.ID)
	if errors.Is(err, conversation.ErrConversationNotFound) {
		dept, derr := s.directory.DefaultDepartment(ctx)
		if derr != nil {
			return IngestResult{}, fmt.Errorf("resolve default department: %w", derr)
		}
		conv, err = s.conversations.Create(ctx, contact.ID, dept.ID)
	}
	if err != nil {
		return IngestResult{}, fmt.Errorf("resolve conversation: %w", err)
	}

	messageType := input.MessageType
	if messageType == "" {
		messageType = message.TypeText
	}
	msg, err := s.messages.Append(ctx, message.AppendInput{
		ConversationID: conv.ID,
		SenderType:     message.SenderCustomer,
		MessageType:    messageType,
		Content:        input.Content,
		FilePath:       input.FilePath,
		FileName:       input.FileName,
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("append inbound message: %w", err)
	}
	if err := s.conversations.Touch(ctx, conv.ID); err != nil {
		s.logger.Warn("touch conversation", slog.String("conversation_id", conv.ID), slog.String("error", err.Error()))
	}

	ev := hub.NewMessageEvent(conv.ID, conv.DepartmentID, msg)
	s.broadcaster.BroadcastToConversation(conv.ID, ev)
	s.broadcaster.BroadcastToDepartment(conv.DepartmentID, ev)

	return IngestResult{Contact: contact, Conversation: conv, Message: msg}, nil
}

// SendOutbound persists an agent message and hands it to the gateway. A
// channel that is not ready rejects the send before anything is stored;
// once the message is persisted, a delivery failure leaves the transcript
// intact and is reported through Delivered.
func (s *Service) SendOutbound(ctx context.Context, input OutboundInput) (OutboundResult, error) {
	if s.channel.State() != gateway.StateReady {
		return OutboundResult{}, gateway.ErrChannelUnavailable
	}

	conv, err := s.conversations.Get(ctx, input.ConversationID)
	if err != nil {
		return OutboundResult{}, err
	}
	if conv.Status == conversation.StatusClosed {
		return OutboundResult{}, conversation.ErrConversationClosed
	}

	messageType := input.MessageType
	if messageType == "" {
		messageType = message.TypeText
	}
	msg, err := s.messages.Append(ctx, message.AppendInput{
		ConversationID: conv.ID,
		SenderType:     message.SenderAgent,
		SenderID:       input.AgentID,
		MessageType:    messageType,
		Content:        input.Content,
		FilePath:       input.FilePath,
		FileName:       input.FileName,
	})
	if err != nil {
		return OutboundResult{}, err
	}
	if err := s.conversations.Touch(ctx, conv.ID); err != nil {
		s.logger.Warn("touch conversation", slog.String("conversation_id", conv.ID), slog.String("error", err.Error()))
	}

	ev := hub.NewMessageEvent(conv.ID, conv.DepartmentID, msg)
	s.broadcaster.BroadcastToConversation(conv.ID, ev)
	s.broadcaster.BroadcastToDepartment(conv.DepartmentID, ev)

	contact, err := s.contacts.Get(ctx, conv.ContactID)
	if err != nil {
		return OutboundResult{Message: msg}, fmt.Errorf("resolve contact for delivery: %w", err)
	}

	delivered := true
	sendErr := s.channel.Send(ctx, gateway.SendRequest{
		Phone:       contact.Phone,
		Message:     input.Content,
		MediaPath:   input.FilePath,
		FileName:    input.FileName,
		MessageType: messageType,
	})
	if sendErr != nil {
		delivered = false
		s.logger.Warn("gateway delivery failed",
			slog.String("conversation_id", conv.ID),
			slog.String("message_id", msg.ID),
			slog.String("error", sendErr.Error()))
	}
	return OutboundResult{Message: msg, Delivered: delivered}, nil
}

// transferRetries bounds how often a server-managed transfer re-reads the
// conversation after losing a version race.
const transferRetries = 3

// Transfer moves a conversation to another department and/or agent. The
// change, its audit record, and the system message are written atomically.
// When the caller supplies ExpectedVersion a stale value fails with
// conversation.ErrVersionConflict; a zero ExpectedVersion lets the engine
// use the version it reads, retrying a bounded number of times on conflict.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferOutcome, error) {
	if input.ToDepartmentID == "" && input.ToAgentID == "" {
		return TransferOutcome{}, ErrNoTarget
	}

	serverManaged := input.ExpectedVersion == 0

	var conv conversation.Conversation
	var result conversation.TransferResult
	for attempt := 0; ; attempt++ {
		var err error
		conv, err = s.conversations.Get(ctx, input.ConversationID)
		if err != nil {
			return TransferOutcome{}, err
		}
		if conv.Status == conversation.StatusClosed {
			return TransferOutcome{}, conversation.ErrConversationClosed
		}

		target, body, err := s.resolveTarget(ctx, conv, input)
		if err != nil {
			return TransferOutcome{}, err
		}

		expected := input.ExpectedVersion
		if serverManaged {
			expected = conv.Version
		}
		result, err = s.conversations.Transfer(ctx, conversation.TransferInput{
			ConversationID:    conv.ID,
			ExpectedVersion:   expected,
			Assignment:        target,
			FromDepartmentID:  conv.DepartmentID,
			FromAgentID:       conv.AgentID,
			TransferredBy:     input.RequestedBy,
			Reason:            input.Reason,
			SystemMessageBody: body,
		})
		if err == nil {
			break
		}
		if serverManaged && errors.Is(err, conversation.ErrVersionConflict) && attempt < transferRetries-1 {
			continue
		}
		return TransferOutcome{}, err
	}

	msg, err := s.messages.Get(ctx, result.SystemMessageID)
	if err != nil {
		return TransferOutcome{}, fmt.Errorf("load transfer message: %w", err)
	}

	updated := result.Conversation
	ev := hub.ConversationTransferredEvent(updated.ID, updated.DepartmentID, updated, result.Record)
	s.broadcaster.BroadcastToConversation(updated.ID, ev)
	s.broadcaster.BroadcastToDepartment(updated.DepartmentID, ev)
	if conv.DepartmentID != updated.DepartmentID {
		s.broadcaster.BroadcastToDepartment(conv.DepartmentID, ev)
	}
	s.broadcaster.BroadcastToConversation(updated.ID, hub.NewMessageEvent(updated.ID, updated.DepartmentID, msg))

	return TransferOutcome{Conversation: updated, Record: result.Record, Message: msg}, nil
}

// resolveTarget validates the requested destination and produces the new
// assignment plus the system message describing the move.
func (s *Service) resolveTarget(ctx context.Context, conv conversation.Conversation, input TransferInput) (conversation.Assignment, string, error) {
	target := conversation.Assignment{
		DepartmentID: conv.DepartmentID,
		Status:       conversation.StatusPending,
	}

	var agent directory.Agent
	if input.ToAgentID != "" {
		var err error
		agent, err = s.directory.GetAgent(ctx, input.ToAgentID)
		if err != nil {
			if errors.Is(err, directory.ErrAgentNotFound) {
				return conversation.Assignment{}, "", fmt.Errorf("%w: agent %s", ErrInvalidTarget, input.ToAgentID)
			}
			return conversation.Assignment{}, "", err
		}
		if !agent.Active {
			return conversation.Assignment{}, "", fmt.Errorf("%w: agent %s is inactive", ErrInvalidTarget, input.ToAgentID)
		}
		target.AgentID = agent.ID
		target.Status = conversation.StatusOpen
		if agent.DepartmentID != "" {
			target.DepartmentID = agent.DepartmentID
		}
	}

	if input.ToDepartmentID != "" {
		dept, err := s.directory.GetDepartment(ctx, input.ToDepartmentID)
		if err != nil {
			if errors.Is(err, directory.ErrDepartmentNotFound) {
				return conversation.Assignment{}, "", fmt.Errorf("%w: department %s", ErrInvalidTarget, input.ToDepartmentID)
			}
			return conversation.Assignment{}, "", err
		}
		if !dept.Active {
			return conversation.Assignment{}, "", fmt.Errorf("%w: department %s is inactive", ErrInvalidTarget, input.ToDepartmentID)
		}
		target.DepartmentID = dept.ID
		if input.ToAgentID == "" {
			body := fmt.Sprintf("Conversation transferred to department %s", dept.Name)
			return target, body, nil
		}
		return target, fmt.Sprintf("Conversation transferred to %s (%s)", agent.Name, dept.Name), nil
	}

	return target, fmt.Sprintf("Conversation transferred to %s", agent.Name), nil
}

// Claim assigns a conversation to the calling agent.
func (s *Service) Claim(ctx context.Context, conversationID, agentID string, expectedVersion int64) (conversation.Conversation, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if conv.Status == conversation.StatusClosed {
		return conversation.Conversation{}, conversation.ErrConversationClosed
	}

	updated, err := s.conversations.UpdateAssignment(ctx, conversationID, expectedVersion, conversation.Assignment{
		DepartmentID: conv.DepartmentID,
		AgentID:      agentID,
		Status:       conversation.StatusOpen,
	})
	if err != nil {
		return conversation.Conversation{}, err
	}

	ev := hub.ConversationUpdatedEvent(updated.ID, updated.DepartmentID, updated)
	s.broadcaster.BroadcastToConversation(updated.ID, ev)
	s.broadcaster.BroadcastToDepartment(updated.DepartmentID, ev)
	return updated, nil
}

// Close ends a conversation and records who ended it in the transcript.
func (s *Service) Close(ctx context.Context, conversationID, agentName string) (conversation.Conversation, error) {
	closed, err := s.conversations.Close(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}

	body := "Conversation closed"
	if agentName != "" {
		body = fmt.Sprintf("Conversation closed by %s", agentName)
	}
	msg, err := s.messages.Append(ctx, message.AppendInput{
		ConversationID: closed.ID,
		SenderType:     message.SenderSystem,
		MessageType:    message.TypeText,
		Content:        body,
	})
	if err != nil {
		s.logger.Warn("append close message", slog.String("conversation_id", closed.ID), slog.String("error", err.Error()))
	} else {
		s.broadcaster.BroadcastToConversation(closed.ID, hub.NewMessageEvent(closed.ID, closed.DepartmentID, msg))
	}

	ev := hub.ConversationUpdatedEvent(closed.ID, closed.DepartmentID, closed)
	s.broadcaster.BroadcastToConversation(closed.ID, ev)
	s.broadcaster.BroadcastToDepartment(closed.DepartmentID, ev)
	return closed, nil
}

package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/asterion-health/asterion-go/internal/models"
)

// ErrUnknownEvent marks an envelope whose event_type has no handler.
var ErrUnknownEvent = errors.New("unknown event type")

// envelopeSchema is the minimal contract every push event must satisfy
// before it reaches a handler. Anything that fails here is dropped at the
// transport boundary.
const envelopeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["event_type", "data"],
  "properties": {
    "event_type": {"type": "string", "minLength": 1},
    "data": {"type": "object"}
  }
}`

var compiledEnvelopeSchema = jsonschema.MustCompileString("envelope.json", envelopeSchema)

// Event is the discriminated union of realtime payloads. Each transport
// decodes raw frames into one of the concrete types below; handlers never
// see the loose envelope.
type Event interface {
	EventType() string
}

// MessageCreated is a new message pushed into a conversation.
type MessageCreated struct {
	ChatID  int64
	Message models.Message
}

func (MessageCreated) EventType() string { return "new_message" }

// MessageUpdated is an in-place edit of an existing message.
type MessageUpdated struct {
	ChatID  int64
	Message models.Message
}

func (MessageUpdated) EventType() string { return "message_updated" }

// MessageDeleted removes a message from a conversation.
type MessageDeleted struct {
	ChatID    int64
	MessageID int64
}

func (MessageDeleted) EventType() string { return "message_deleted" }

// ReactionAdded carries a reaction placed on a message.
type ReactionAdded struct {
	ChatID   int64
	Reaction models.Reaction
}

func (ReactionAdded) EventType() string { return "reaction_added" }

// ReactionRemoved carries a reaction withdrawn from a message.
type ReactionRemoved struct {
	ChatID   int64
	Reaction models.Reaction
}

func (ReactionRemoved) EventType() string { return "reaction_removed" }

// InvitationCreated announces a new pending invitation.
type InvitationCreated struct {
	Invitation models.Invitation
}

func (InvitationCreated) EventType() string { return "invitation_created" }

// InvitationResolved announces an invitation that was accepted or declined.
type InvitationResolved struct {
	Invitation models.Invitation
	Accepted   bool
}

func (InvitationResolved) EventType() string { return "invitation_resolved" }

// ChatUpdated carries a changed conversation record.
type ChatUpdated struct {
	Chat models.Chat
}

func (ChatUpdated) EventType() string { return "chat_updated" }

type rawEnvelope struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// Decode validates a raw frame against the envelope schema and narrows it to
// a typed Event. Unknown event types return ErrUnknownEvent.
func Decode(raw []byte) (Event, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if err := compiledEnvelopeSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate envelope: %w", err)
	}

	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.EventType {
	case "new_message", "message_created", "created":
		message, chatID, err := decodeMessagePayload(env.Data)
		if err != nil {
			return nil, err
		}
		return MessageCreated{ChatID: chatID, Message: message}, nil
	case "message_updated", "updated":
		message, chatID, err := decodeMessagePayload(env.Data)
		if err != nil {
			return nil, err
		}
		return MessageUpdated{ChatID: chatID, Message: message}, nil
	case "message_deleted", "deleted":
		var payload struct {
			ChatID    int64 `json:"chat_id"`
			MessageID int64 `json:"message_id"`
			ID        int64 `json:"id"`
		}
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode message_deleted: %w", err)
		}
		messageID := payload.MessageID
		if messageID == 0 {
			messageID = payload.ID
		}
		if messageID == 0 {
			return nil, fmt.Errorf("message_deleted without message id")
		}
		return MessageDeleted{ChatID: payload.ChatID, MessageID: messageID}, nil
	case "reaction_added", "new_reaction":
		reaction, chatID, err := decodeReactionPayload(env.Data)
		if err != nil {
			return nil, err
		}
		return ReactionAdded{ChatID: chatID, Reaction: reaction}, nil
	case "reaction_removed":
		reaction, chatID, err := decodeReactionPayload(env.Data)
		if err != nil {
			return nil, err
		}
		return ReactionRemoved{ChatID: chatID, Reaction: reaction}, nil
	case "invitation_created":
		invitation, err := decodeInvitationPayload(env.Data)
		if err != nil {
			return nil, err
		}
		return InvitationCreated{Invitation: invitation}, nil
	case "invitation_accepted":
		invitation, err := decodeInvitationPayload(env.Data)
		if err != nil {
			return nil, err
		}
		return InvitationResolved{Invitation: invitation, Accepted: true}, nil
	case "invitation_declined", "invitation_removed":
		invitation, err := decodeInvitationPayload(env.Data)
		if err != nil {
			return nil, err
		}
		return InvitationResolved{Invitation: invitation, Accepted: false}, nil
	case "chat_updated":
		var chat models.Chat
		if err := json.Unmarshal(extract(env.Data, "chat", "data"), &chat); err != nil {
			return nil, fmt.Errorf("decode chat_updated: %w", err)
		}
		if chat.ID == 0 {
			return nil, fmt.Errorf("chat_updated without chat id")
		}
		return ChatUpdated{Chat: chat}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, env.EventType)
	}
}

// extract returns the first present, non-null nested object among keys, or
// data itself. The transport does not guarantee one envelope nesting shape
// across event types, so payload lookup has to tolerate all of them.
func extract(data json.RawMessage, keys ...string) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return data
	}
	for _, key := range keys {
		if nested, ok := fields[key]; ok && len(nested) > 0 && string(nested) != "null" {
			return nested
		}
	}
	return data
}

func decodeMessagePayload(data json.RawMessage) (models.Message, int64, error) {
	var message models.Message
	if err := json.Unmarshal(extract(data, "message", "data"), &message); err != nil {
		return models.Message{}, 0, fmt.Errorf("decode message payload: %w", err)
	}
	if message.ID == 0 {
		return models.Message{}, 0, fmt.Errorf("message payload without id")
	}

	chatID := message.ChatID
	if chatID == 0 {
		var outer struct {
			ChatID int64 `json:"chat_id"`
		}
		_ = json.Unmarshal(data, &outer)
		chatID = outer.ChatID
		message.ChatID = chatID
	}

	return message, chatID, nil
}

func decodeReactionPayload(data json.RawMessage) (models.Reaction, int64, error) {
	var reaction models.Reaction
	if err := json.Unmarshal(extract(data, "reaction", "data"), &reaction); err != nil {
		return models.Reaction{}, 0, fmt.Errorf("decode reaction payload: %w", err)
	}
	if reaction.MessageID == 0 {
		return models.Reaction{}, 0, fmt.Errorf("reaction payload without message id")
	}

	var outer struct {
		ChatID int64 `json:"chat_id"`
	}
	_ = json.Unmarshal(data, &outer)

	return reaction, outer.ChatID, nil
}

func decodeInvitationPayload(data json.RawMessage) (models.Invitation, error) {
	var invitation models.Invitation
	if err := json.Unmarshal(extract(data, "invitation", "data"), &invitation); err != nil {
		return models.Invitation{}, fmt.Errorf("decode invitation payload: %w", err)
	}
	if invitation.ID == 0 {
		return models.Invitation{}, fmt.Errorf("invitation payload without id")
	}
	return invitation, nil
}

package realtime

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/asterion-health/asterion-go/internal/models"
	"github.com/asterion-health/asterion-go/internal/observability"
)

// MessageSink receives message and reaction events for the open
// conversation.
type MessageSink interface {
	ApplyNewMessage(ctx context.Context, message models.Message)
	ApplyMessageUpdated(ctx context.Context, message models.Message)
	ApplyMessageDeleted(ctx context.Context, chatID, messageID int64)
	ApplyReactionAdded(ctx context.Context, chatID int64, reaction models.Reaction)
	ApplyReactionRemoved(ctx context.Context, chatID int64, reaction models.Reaction)
}

// ConversationSink receives conversation-level and invitation events.
type ConversationSink interface {
	HandleNewMessage(ctx context.Context, message models.Message)
	HandleChatUpdated(ctx context.Context, chat models.Chat)
	HandleInvitationCreated(ctx context.Context, invitation models.Invitation)
	HandleInvitationResolved(ctx context.Context, invitation models.Invitation, accepted bool)
}

// Dispatcher fans typed events out to the stores. Decode or handler
// failures are counted and dropped; nothing propagates back to the
// transport, since unrelated events share the same pipeline.
type Dispatcher struct {
	messages      MessageSink
	conversations ConversationSink
	logger        zerolog.Logger
}

// NewDispatcher wires the store sinks into a dispatcher.
func NewDispatcher(messages MessageSink, conversations ConversationSink, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		messages:      messages,
		conversations: conversations,
		logger:        logger.With().Str("component", "realtime_dispatcher").Logger(),
	}
}

// HandleRaw decodes one transport frame and dispatches it.
func (d *Dispatcher) HandleRaw(ctx context.Context, raw []byte) {
	event, err := Decode(raw)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, ErrUnknownEvent) {
			reason = "unknown_type"
		}
		observability.RealtimeEventsDropped().WithLabelValues(reason).Inc()
		d.logger.Debug().Err(err).Msg("dropping realtime event")
		return
	}

	d.Dispatch(ctx, event)
}

// Dispatch routes a decoded event to its sink.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	defer func() {
		if r := recover(); r != nil {
			observability.RealtimeEventsDropped().WithLabelValues("handler_panic").Inc()
			d.logger.Error().Interface("panic", r).Str("event_type", event.EventType()).Msg("realtime handler panicked")
		}
	}()

	switch ev := event.(type) {
	case MessageCreated:
		if d.messages != nil {
			d.messages.ApplyNewMessage(ctx, ev.Message)
		}
		if d.conversations != nil {
			d.conversations.HandleNewMessage(ctx, ev.Message)
		}
	case MessageUpdated:
		if d.messages != nil {
			d.messages.ApplyMessageUpdated(ctx, ev.Message)
		}
	case MessageDeleted:
		if d.messages != nil {
			d.messages.ApplyMessageDeleted(ctx, ev.ChatID, ev.MessageID)
		}
	case ReactionAdded:
		if d.messages != nil {
			d.messages.ApplyReactionAdded(ctx, ev.ChatID, ev.Reaction)
		}
	case ReactionRemoved:
		if d.messages != nil {
			d.messages.ApplyReactionRemoved(ctx, ev.ChatID, ev.Reaction)
		}
	case InvitationCreated:
		if d.conversations != nil {
			d.conversations.HandleInvitationCreated(ctx, ev.Invitation)
		}
	case InvitationResolved:
		if d.conversations != nil {
			d.conversations.HandleInvitationResolved(ctx, ev.Invitation, ev.Accepted)
		}
	case ChatUpdated:
		if d.conversations != nil {
			d.conversations.HandleChatUpdated(ctx, ev.Chat)
		}
	default:
		observability.RealtimeEventsDropped().WithLabelValues("unrouted").Inc()
		return
	}

	observability.RealtimeEventsApplied().WithLabelValues(event.EventType()).Inc()
}

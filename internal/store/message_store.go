package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/asterion-health/asterion-go/internal/api"
	"github.com/asterion-health/asterion-go/internal/models"
	"github.com/asterion-health/asterion-go/internal/observability"
)

var (
	// ErrEmptyContent rejects a send whose content is empty after
	// sanitization. No network call is made.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrSendInFlight rejects a send while another one is pending. Sends
	// are serialized, not queued, to keep inserts from interleaving.
	ErrSendInFlight = errors.New("another send is in progress")
)

// MessageStore owns the ordered message list for the currently open
// conversation. Three input channels feed it: fetch-on-open, local sends,
// and realtime push events. All of them converge through the same
// upsert-by-id rule, which makes duplicate delivery (an optimistic response
// racing its realtime echo) harmless.
type MessageStore struct {
	mu        sync.Mutex
	api       api.ChatAPI
	logger    zerolog.Logger
	sanitizer *bluemonday.Policy

	chatID   int64
	messages []models.Message
	sending  bool
	fetchSeq uint64
}

// NewMessageStore constructs a message store over the given API client.
func NewMessageStore(client api.ChatAPI, logger zerolog.Logger) *MessageStore {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	return &MessageStore{
		api:       client,
		logger:    logger.With().Str("component", "message_store").Logger(),
		sanitizer: sanitizer,
	}
}

// Fetch loads the message page for chatID and makes it the open
// conversation. It is a no-op when the chat is already loaded and
// non-empty. On failure the local list is cleared so stale messages are
// never shown.
func (s *MessageStore) Fetch(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	if s.chatID == chatID && len(s.messages) > 0 {
		s.mu.Unlock()
		return nil
	}
	s.chatID = chatID
	s.mu.Unlock()

	return s.refetch(ctx, chatID)
}

// Refetch unconditionally reloads the message page for chatID. The
// reaction reconciler uses it to recover when an event targets a message
// that is not loaded locally.
func (s *MessageStore) Refetch(ctx context.Context, chatID int64) error {
	return s.refetch(ctx, chatID)
}

func (s *MessageStore) refetch(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	messages, err := s.api.FetchMessages(ctx, chatID)

	s.mu.Lock()
	defer s.mu.Unlock()

	// A newer fetch or a chat switch supersedes this response.
	if s.fetchSeq != seq || s.chatID != chatID {
		return nil
	}

	if err != nil {
		s.messages = nil
		return fmt.Errorf("fetch messages for chat %d: %w", chatID, err)
	}

	sortMessages(messages)
	s.messages = messages
	return nil
}

// Send posts content to chatID and upserts the confirmed message. Empty or
// whitespace-only content is rejected locally, as is a send while another
// is pending.
func (s *MessageStore) Send(ctx context.Context, chatID int64, content string) (models.Message, error) {
	clean := strings.TrimSpace(s.sanitizer.Sanitize(content))
	if clean == "" {
		return models.Message{}, ErrEmptyContent
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return models.Message{}, ErrSendInFlight
	}
	s.sending = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	message, err := s.api.SendMessage(ctx, chatID, clean)
	if err != nil {
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatID == chatID {
		s.upsertLocked(message)
	}
	return message, nil
}

// Update edits a message and applies the confirmed record. Local state is
// untouched until the server confirms.
func (s *MessageStore) Update(ctx context.Context, chatID, messageID int64, content string) error {
	clean := strings.TrimSpace(s.sanitizer.Sanitize(content))
	if clean == "" {
		return ErrEmptyContent
	}

	message, err := s.api.UpdateMessage(ctx, chatID, messageID, clean)
	if err != nil {
		return fmt.Errorf("update message %d: %w", messageID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatID == chatID {
		s.upsertLocked(message)
	}
	return nil
}

// Delete removes a message after server confirmation.
func (s *MessageStore) Delete(ctx context.Context, chatID, messageID int64) error {
	if err := s.api.DeleteMessage(ctx, chatID, messageID); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatID == chatID {
		s.removeLocked(messageID)
	}
	return nil
}

// React sets the caller's exclusive reaction on a message. Local state is
// not touched: the realtime echo applies the change. If the action itself
// fails the echo will never come, so the store recovers with a refetch.
func (s *MessageStore) React(ctx context.Context, chatID, messageID, reactionTypeID int64) error {
	if err := s.api.SetExclusiveReaction(ctx, chatID, messageID, reactionTypeID); err != nil {
		if ferr := s.refetch(ctx, chatID); ferr != nil {
			s.logger.Warn().Err(ferr).Int64("chat_id", chatID).Msg("recovery refetch after failed reaction")
		}
		return fmt.Errorf("set reaction on message %d: %w", messageID, err)
	}
	return nil
}

// Unreact withdraws the caller's reaction. Same echo semantics as React.
func (s *MessageStore) Unreact(ctx context.Context, chatID, messageID, reactionTypeID int64) error {
	if err := s.api.RemoveReaction(ctx, chatID, messageID, reactionTypeID); err != nil {
		if ferr := s.refetch(ctx, chatID); ferr != nil {
			s.logger.Warn().Err(ferr).Int64("chat_id", chatID).Msg("recovery refetch after failed unreact")
		}
		return fmt.Errorf("remove reaction on message %d: %w", messageID, err)
	}
	return nil
}

// ApplyNewMessage inserts a pushed message. Messages for a conversation
// other than the open one are dropped, not buffered.
func (s *MessageStore) ApplyNewMessage(ctx context.Context, message models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message.ChatID != s.chatID {
		return
	}
	s.upsertLocked(message)
}

// ApplyMessageUpdated replaces a pushed edit by id.
func (s *MessageStore) ApplyMessageUpdated(ctx context.Context, message models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message.ChatID != s.chatID {
		return
	}
	s.upsertLocked(message)
}

// ApplyMessageDeleted removes a pushed deletion by id.
func (s *MessageStore) ApplyMessageDeleted(ctx context.Context, chatID, messageID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chatID != 0 && chatID != s.chatID {
		return
	}
	s.removeLocked(messageID)
}

// ApplyReactionAdded reconciles a pushed reaction. Exclusivity is enforced
// here regardless of server ordering: all prior reactions by the same user
// on the message are dropped before the new one is appended, so replaying
// the same event is idempotent. A reaction for a message that is not loaded
// triggers a full refetch instead of a patch.
func (s *MessageStore) ApplyReactionAdded(ctx context.Context, chatID int64, reaction models.Reaction) {
	s.mu.Lock()
	if chatID != 0 && chatID != s.chatID {
		s.mu.Unlock()
		return
	}

	idx := s.indexLocked(reaction.MessageID)
	if idx < 0 {
		openChat := s.chatID
		s.mu.Unlock()
		s.recoverMissingMessage(ctx, openChat, reaction.MessageID)
		return
	}

	message := s.messages[idx]
	reactions := withoutUserReactions(message.Reactions, reaction.UserID)
	message.Reactions = append(reactions, reaction)
	s.messages[idx] = message
	s.mu.Unlock()
}

// ApplyReactionRemoved drops every reaction by the event's user on the
// target message. Removing an already-removed reaction is a no-op.
func (s *MessageStore) ApplyReactionRemoved(ctx context.Context, chatID int64, reaction models.Reaction) {
	s.mu.Lock()
	if chatID != 0 && chatID != s.chatID {
		s.mu.Unlock()
		return
	}

	idx := s.indexLocked(reaction.MessageID)
	if idx < 0 {
		openChat := s.chatID
		s.mu.Unlock()
		s.recoverMissingMessage(ctx, openChat, reaction.MessageID)
		return
	}

	message := s.messages[idx]
	message.Reactions = withoutUserReactions(message.Reactions, reaction.UserID)
	s.messages[idx] = message
	s.mu.Unlock()
}

func (s *MessageStore) recoverMissingMessage(ctx context.Context, chatID, messageID int64) {
	if chatID == 0 {
		return
	}
	observability.ReactionRecoveries().Inc()
	s.logger.Debug().Int64("message_id", messageID).Int64("chat_id", chatID).Msg("reaction for unknown message, refetching")
	if err := s.refetch(ctx, chatID); err != nil {
		s.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("recovery refetch failed")
	}
}

// Messages returns a copy of the current ordered message list.
func (s *MessageStore) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// OpenChatID returns the id of the open conversation, or 0.
func (s *MessageStore) OpenChatID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatID
}

// Sending reports whether a send is in flight.
func (s *MessageStore) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Reset closes the open conversation and clears the message list.
func (s *MessageStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatID = 0
	s.messages = nil
	s.fetchSeq++
}

// upsertLocked applies the insert-or-replace-by-id rule and keeps the list
// sorted.
func (s *MessageStore) upsertLocked(message models.Message) {
	if idx := s.indexLocked(message.ID); idx >= 0 {
		s.messages[idx] = message
	} else {
		s.messages = append(s.messages, message)
	}
	sortMessages(s.messages)
}

func (s *MessageStore) removeLocked(messageID int64) {
	if idx := s.indexLocked(messageID); idx >= 0 {
		s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
	}
}

func (s *MessageStore) indexLocked(messageID int64) int {
	for i, m := range s.messages {
		if m.ID == messageID {
			return i
		}
	}
	return -1
}

// sortMessages orders ascending by created_at with an id tie-break so the
// order is deterministic even when timestamps collide.
func sortMessages(messages []models.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Before(messages[j])
	})
}

// withoutUserReactions returns a fresh slice with every reaction by userID
// removed. The input slice is never mutated so previous Message values stay
// intact for consumers holding them.
func withoutUserReactions(reactions []models.Reaction, userID models.UserID) []models.Reaction {
	out := make([]models.Reaction, 0, len(reactions))
	for _, r := range reactions {
		if r.UserID != userID {
			out = append(out, r)
		}
	}
	return out
}

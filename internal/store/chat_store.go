package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/asterion-health/asterion-go/internal/api"
	"github.com/asterion-health/asterion-go/internal/models"
)

// SessionPersister persists the selected conversation for session restore.
// Implementations must be best-effort: a failing persister never breaks the
// open flow.
type SessionPersister interface {
	SaveSelectedChat(chatID int64)
}

// ChatStore owns the conversation list, the open-conversation pointer,
// unread counters, and the two invitation partitions. It keeps them
// consistent under interleaved user actions and realtime events.
type ChatStore struct {
	mu       sync.Mutex
	api      api.ChatAPI
	messages *MessageStore
	session  SessionPersister
	validate *validator.Validate
	logger   zerolog.Logger
	userID   models.UserID

	chats     []models.Chat
	currentID int64
	incoming  []models.Invitation
	sent      []models.Invitation
}

// NewChatStore constructs a conversation store. userID is the session
// identity used to partition invitations; session may be nil.
func NewChatStore(client api.ChatAPI, messages *MessageStore, userID models.UserID, session SessionPersister, validate *validator.Validate, logger zerolog.Logger) *ChatStore {
	return &ChatStore{
		api:      client,
		messages: messages,
		session:  session,
		validate: validate,
		logger:   logger.With().Str("component", "chat_store").Logger(),
		userID:   userID,
	}
}

// Refresh replaces the conversation list with the server's.
func (s *ChatStore) Refresh(ctx context.Context) error {
	chats, err := s.api.FetchChats(ctx)
	if err != nil {
		return fmt.Errorf("fetch chats: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = chats
	return nil
}

// Open makes chat the current conversation: it fetches the authoritative
// chat record (falling back to the caller's copy when that fails), loads
// the message page, resets the unread counter, and persists the selection
// best-effort.
func (s *ChatStore) Open(ctx context.Context, chat models.Chat) error {
	fetched, err := s.api.FetchChat(ctx, chat.ID)
	if err != nil {
		s.logger.Debug().Err(err).Int64("chat_id", chat.ID).Msg("using cached chat record")
		fetched = chat
	}

	if err := s.messages.Fetch(ctx, chat.ID); err != nil {
		return fmt.Errorf("open chat %d: %w", chat.ID, err)
	}

	s.mu.Lock()
	s.currentID = fetched.ID
	fetched.UnreadCount = 0
	s.replaceLocked(fetched)
	s.mu.Unlock()

	if s.session != nil {
		s.session.SaveSelectedChat(chat.ID)
	}
	return nil
}

// Close clears the open conversation.
func (s *ChatStore) Close() {
	s.mu.Lock()
	s.currentID = 0
	s.mu.Unlock()
	s.messages.Reset()
}

// CreateDialog starts a direct conversation and places it at the head of
// the list.
func (s *ChatStore) CreateDialog(ctx context.Context, userID models.UserID) (models.Chat, error) {
	if userID == "" {
		return models.Chat{}, fmt.Errorf("create dialog: empty user id")
	}

	chat, err := s.api.CreateDialog(ctx, userID)
	if err != nil {
		return models.Chat{}, fmt.Errorf("create dialog: %w", err)
	}

	s.unshift(chat)
	return chat, nil
}

// CreateGroup creates a group conversation and places it at the head of
// the list.
func (s *ChatStore) CreateGroup(ctx context.Context, req api.CreateGroupRequest) (models.Chat, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.Chat{}, fmt.Errorf("create group: %w", err)
	}

	chat, err := s.api.CreateGroup(ctx, req)
	if err != nil {
		return models.Chat{}, fmt.Errorf("create group: %w", err)
	}

	s.unshift(chat)
	return chat, nil
}

// CreateChannel creates a channel and places it at the head of the list.
func (s *ChatStore) CreateChannel(ctx context.Context, req api.CreateChannelRequest) (models.Chat, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.Chat{}, fmt.Errorf("create channel: %w", err)
	}

	chat, err := s.api.CreateChannel(ctx, req)
	if err != nil {
		return models.Chat{}, fmt.Errorf("create channel: %w", err)
	}

	s.unshift(chat)
	return chat, nil
}

// Update applies a partial conversation update after server confirmation.
func (s *ChatStore) Update(ctx context.Context, chatID int64, req api.UpdateChatRequest) (models.Chat, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.Chat{}, fmt.Errorf("update chat: %w", err)
	}

	chat, err := s.api.UpdateChat(ctx, chatID, req)
	if err != nil {
		return models.Chat{}, fmt.Errorf("update chat %d: %w", chatID, err)
	}

	s.mu.Lock()
	s.replaceLocked(chat)
	s.mu.Unlock()
	return chat, nil
}

// RefreshInvitations fetches both invitation endpoints and recomputes the
// incoming/sent partition. Ids are compared in normalized string form, so
// a numeric created_by on one endpoint and a string one on the other still
// land each invitation in exactly one partition.
func (s *ChatStore) RefreshInvitations(ctx context.Context) error {
	received, err := s.api.FetchInvitations(ctx)
	if err != nil {
		return fmt.Errorf("fetch invitations: %w", err)
	}

	sent, err := s.api.FetchSentInvitations(ctx)
	if err != nil {
		return fmt.Errorf("fetch sent invitations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.incoming = s.incoming[:0]
	s.sent = s.sent[:0]

	seen := make(map[int64]struct{})
	for _, invitation := range append(received, sent...) {
		if _, ok := seen[invitation.ID]; ok {
			continue
		}
		seen[invitation.ID] = struct{}{}
		s.partitionLocked(invitation)
	}
	return nil
}

// partitionLocked assigns an invitation to exactly one partition. Creator
// identity wins: an invitation we created is "sent" even if the server also
// returned it on the incoming feed.
func (s *ChatStore) partitionLocked(invitation models.Invitation) {
	switch {
	case invitation.CreatedBy == s.userID:
		s.sent = append(s.sent, invitation)
	case invitation.InvitedUser == s.userID:
		s.incoming = append(s.incoming, invitation)
	default:
		s.logger.Debug().Int64("invitation_id", invitation.ID).Msg("invitation does not involve session user, dropping")
	}
}

// Accept confirms an incoming invitation, removes it from the incoming
// partition, and refreshes the conversation list; the joined conversation
// is fetched, never constructed locally.
func (s *ChatStore) Accept(ctx context.Context, invitationID int64) error {
	if err := s.api.AcceptInvitation(ctx, invitationID); err != nil {
		return fmt.Errorf("accept invitation %d: %w", invitationID, err)
	}

	s.mu.Lock()
	s.incoming = removeInvitation(s.incoming, invitationID)
	s.mu.Unlock()

	if err := s.Refresh(ctx); err != nil {
		return err
	}
	return nil
}

// Decline rejects an incoming invitation and removes it on confirmation.
func (s *ChatStore) Decline(ctx context.Context, invitationID int64) error {
	if err := s.api.DeclineInvitation(ctx, invitationID); err != nil {
		return fmt.Errorf("decline invitation %d: %w", invitationID, err)
	}

	s.mu.Lock()
	s.incoming = removeInvitation(s.incoming, invitationID)
	s.mu.Unlock()
	return nil
}

// Withdraw deletes a sent invitation and removes it on confirmation.
func (s *ChatStore) Withdraw(ctx context.Context, invitationID int64) error {
	if err := s.api.RemoveInvitation(ctx, invitationID); err != nil {
		return fmt.Errorf("withdraw invitation %d: %w", invitationID, err)
	}

	s.mu.Lock()
	s.sent = removeInvitation(s.sent, invitationID)
	s.mu.Unlock()
	return nil
}

// HandleNewMessage updates the touched conversation's last message, moves
// it to the head of the list, and bumps its unread counter unless it is the
// open conversation. The open conversation's message list itself is fed by
// the message store.
func (s *ChatStore) HandleNewMessage(ctx context.Context, message models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(message.ChatID)
	if idx < 0 {
		s.logger.Debug().Int64("chat_id", message.ChatID).Msg("message for unknown conversation, ignoring")
		return
	}

	chat := s.chats[idx]
	last := message
	chat.LastMessage = &last
	if chat.ID != s.currentID {
		chat.UnreadCount++
	}

	// Touched conversations always move to the top.
	s.chats = append(s.chats[:idx], s.chats[idx+1:]...)
	s.chats = append([]models.Chat{chat}, s.chats...)
}

// HandleChatUpdated replaces a pushed conversation record in place.
func (s *ChatStore) HandleChatUpdated(ctx context.Context, chat models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(chat)
}

// HandleInvitationCreated partitions a pushed invitation, deduplicating by
// id.
func (s *ChatStore) HandleInvitationCreated(ctx context.Context, invitation models.Invitation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.incoming = removeInvitation(s.incoming, invitation.ID)
	s.sent = removeInvitation(s.sent, invitation.ID)
	s.partitionLocked(invitation)
}

// HandleInvitationResolved drops a resolved invitation from both
// partitions. When our own invitation was accepted the conversation list is
// refreshed so the new membership shows up.
func (s *ChatStore) HandleInvitationResolved(ctx context.Context, invitation models.Invitation, accepted bool) {
	s.mu.Lock()
	s.incoming = removeInvitation(s.incoming, invitation.ID)
	s.sent = removeInvitation(s.sent, invitation.ID)
	s.mu.Unlock()

	if accepted {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("conversation refresh after accepted invitation failed")
		}
	}
}

// Chats returns a copy of the conversation list, most recent first.
func (s *ChatStore) Chats() []models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Chat, len(s.chats))
	copy(out, s.chats)
	return out
}

// Current returns the open conversation, if any.
func (s *ChatStore) Current() (models.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(s.currentID); idx >= 0 {
		return s.chats[idx], true
	}
	return models.Chat{}, false
}

// Incoming returns a copy of the incoming invitation partition.
func (s *ChatStore) Incoming() []models.Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Invitation, len(s.incoming))
	copy(out, s.incoming)
	return out
}

// Sent returns a copy of the sent invitation partition.
func (s *ChatStore) Sent() []models.Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Invitation, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *ChatStore) unshift(chat models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append([]models.Chat{chat}, s.chats...)
}

// replaceLocked swaps a conversation record in place by id, or prepends it
// when unknown.
func (s *ChatStore) replaceLocked(chat models.Chat) {
	if idx := s.indexLocked(chat.ID); idx >= 0 {
		s.chats[idx] = chat
		return
	}
	s.chats = append([]models.Chat{chat}, s.chats...)
}

func (s *ChatStore) indexLocked(chatID int64) int {
	if chatID == 0 {
		return -1
	}
	for i, c := range s.chats {
		if c.ID == chatID {
			return i
		}
	}
	return -1
}

func removeInvitation(invitations []models.Invitation, id int64) []models.Invitation {
	for i, invitation := range invitations {
		if invitation.ID == id {
			return append(invitations[:i], invitations[i+1:]...)
		}
	}
	return invitations
}

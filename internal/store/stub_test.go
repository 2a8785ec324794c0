package store

import (
	"context"
	"errors"
	"sync"

	"github.com/asterion-health/asterion-go/internal/api"
	"github.com/asterion-health/asterion-go/internal/models"
)

var errAPI = errors.New("api unavailable")

// stubChatAPI implements api.ChatAPI with programmable results. Zero-value
// fields mean success with empty payloads.
type stubChatAPI struct {
	mu sync.Mutex

	messages      []models.Message
	fetchErr      error
	fetchCalls    int
	sendResult    models.Message
	sendErr       error
	sendCalls     int
	sendGate      chan struct{}
	updateResult  models.Message
	updateErr     error
	deleteErr     error
	reactionErr   error
	reactionCalls int

	chats        []models.Chat
	fetchChatErr error
	chatCalls    int
	created      models.Chat
	createErr    error

	incoming      []models.Invitation
	sent          []models.Invitation
	invitationErr error
	acceptErr     error

	searchFn    func(ctx context.Context, query string, includePublic bool) ([]models.ChatSearchResult, error)
	searchCalls int
}

func (s *stubChatAPI) FetchMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

func (s *stubChatAPI) SendMessage(ctx context.Context, chatID int64, content string) (models.Message, error) {
	s.mu.Lock()
	s.sendCalls++
	gate := s.sendGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if s.sendErr != nil {
		return models.Message{}, s.sendErr
	}
	result := s.sendResult
	if result.ID == 0 {
		result = models.Message{ID: 1, ChatID: chatID, Content: content}
	}
	return result, nil
}

func (s *stubChatAPI) UpdateMessage(ctx context.Context, chatID, messageID int64, content string) (models.Message, error) {
	if s.updateErr != nil {
		return models.Message{}, s.updateErr
	}
	return s.updateResult, nil
}

func (s *stubChatAPI) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return s.deleteErr
}

func (s *stubChatAPI) AddReaction(ctx context.Context, chatID, messageID, reactionTypeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reactionCalls++
	return s.reactionErr
}

func (s *stubChatAPI) RemoveReaction(ctx context.Context, chatID, messageID, reactionTypeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reactionCalls++
	return s.reactionErr
}

func (s *stubChatAPI) SetExclusiveReaction(ctx context.Context, chatID, messageID, reactionTypeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reactionCalls++
	return s.reactionErr
}

func (s *stubChatAPI) FetchChats(ctx context.Context) ([]models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatCalls++
	out := make([]models.Chat, len(s.chats))
	copy(out, s.chats)
	return out, nil
}

func (s *stubChatAPI) FetchChat(ctx context.Context, chatID int64) (models.Chat, error) {
	if s.fetchChatErr != nil {
		return models.Chat{}, s.fetchChatErr
	}
	for _, chat := range s.chats {
		if chat.ID == chatID {
			return chat, nil
		}
	}
	return models.Chat{ID: chatID}, nil
}

func (s *stubChatAPI) CreateDialog(ctx context.Context, userID models.UserID) (models.Chat, error) {
	if s.createErr != nil {
		return models.Chat{}, s.createErr
	}
	return s.created, nil
}

func (s *stubChatAPI) CreateGroup(ctx context.Context, req api.CreateGroupRequest) (models.Chat, error) {
	if s.createErr != nil {
		return models.Chat{}, s.createErr
	}
	return s.created, nil
}

func (s *stubChatAPI) CreateChannel(ctx context.Context, req api.CreateChannelRequest) (models.Chat, error) {
	if s.createErr != nil {
		return models.Chat{}, s.createErr
	}
	return s.created, nil
}

func (s *stubChatAPI) UpdateChat(ctx context.Context, chatID int64, req api.UpdateChatRequest) (models.Chat, error) {
	return s.created, nil
}

func (s *stubChatAPI) FetchInvitations(ctx context.Context) ([]models.Invitation, error) {
	if s.invitationErr != nil {
		return nil, s.invitationErr
	}
	return s.incoming, nil
}

func (s *stubChatAPI) FetchSentInvitations(ctx context.Context) ([]models.Invitation, error) {
	if s.invitationErr != nil {
		return nil, s.invitationErr
	}
	return s.sent, nil
}

func (s *stubChatAPI) AcceptInvitation(ctx context.Context, invitationID int64) error {
	return s.acceptErr
}

func (s *stubChatAPI) DeclineInvitation(ctx context.Context, invitationID int64) error {
	return s.acceptErr
}

func (s *stubChatAPI) RemoveInvitation(ctx context.Context, invitationID int64) error {
	return s.acceptErr
}

func (s *stubChatAPI) SearchChats(ctx context.Context, query string, includePublic bool) ([]models.ChatSearchResult, error) {
	s.mu.Lock()
	s.searchCalls++
	fn := s.searchFn
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, query, includePublic)
	}
	return nil, nil
}

func (s *stubChatAPI) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls
}

func (s *stubChatAPI) searchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchCalls
}

// stubDocumentAPI implements api.DocumentAPI with a per-request handler.
type stubDocumentAPI struct {
	mu       sync.Mutex
	listFn   func(ctx context.Context, req api.ListDocumentsRequest) (api.DocumentListing, error)
	requests []api.ListDocumentsRequest
	gate     chan struct{}
}

func (s *stubDocumentAPI) ListDocuments(ctx context.Context, req api.ListDocumentsRequest) (api.DocumentListing, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	gate := s.gate
	fn := s.listFn
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fn != nil {
		return fn(ctx, req)
	}
	return api.DocumentListing{}, nil
}

func (s *stubDocumentAPI) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubDocumentAPI) lastRequest() api.ListDocumentsRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return api.ListDocumentsRequest{}
	}
	return s.requests[len(s.requests)-1]
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/asterion-health/asterion-go/internal/models"
)

// ChatAPI is the REST surface the chat stores depend on. The concrete
// implementation is Client; tests substitute stubs.
type ChatAPI interface {
	FetchMessages(ctx context.Context, chatID int64) ([]models.Message, error)
	SendMessage(ctx context.Context, chatID int64, content string) (models.Message, error)
	UpdateMessage(ctx context.Context, chatID, messageID int64, content string) (models.Message, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64) error

	AddReaction(ctx context.Context, chatID, messageID, reactionTypeID int64) error
	RemoveReaction(ctx context.Context, chatID, messageID, reactionTypeID int64) error
	SetExclusiveReaction(ctx context.Context, chatID, messageID, reactionTypeID int64) error

	FetchChats(ctx context.Context) ([]models.Chat, error)
	FetchChat(ctx context.Context, chatID int64) (models.Chat, error)
	CreateDialog(ctx context.Context, userID models.UserID) (models.Chat, error)
	CreateGroup(ctx context.Context, req CreateGroupRequest) (models.Chat, error)
	CreateChannel(ctx context.Context, req CreateChannelRequest) (models.Chat, error)
	UpdateChat(ctx context.Context, chatID int64, req UpdateChatRequest) (models.Chat, error)

	FetchInvitations(ctx context.Context) ([]models.Invitation, error)
	FetchSentInvitations(ctx context.Context) ([]models.Invitation, error)
	AcceptInvitation(ctx context.Context, invitationID int64) error
	DeclineInvitation(ctx context.Context, invitationID int64) error
	RemoveInvitation(ctx context.Context, invitationID int64) error

	SearchChats(ctx context.Context, query string, includePublic bool) ([]models.ChatSearchResult, error)
}

// CreateGroupRequest is the payload for creating a group conversation.
type CreateGroupRequest struct {
	Title   string          `json:"title" validate:"required,min=1,max=255"`
	Members []models.UserID `json:"members" validate:"required,min=1"`
}

// CreateChannelRequest is the payload for creating a broadcast channel.
type CreateChannelRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=255"`
	IsPublic bool   `json:"is_public"`
}

// UpdateChatRequest carries partial conversation updates.
type UpdateChatRequest struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	IsPublic *bool   `json:"is_public,omitempty"`
}

func chatPath(chatID int64, suffix string) string {
	return fmt.Sprintf("/api/chats/%d%s", chatID, suffix)
}

func (c *Client) FetchMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	var messages []models.Message
	if err := c.do(ctx, http.MethodGet, chatPath(chatID, "/messages"), nil, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, content string) (models.Message, error) {
	var message models.Message
	payload := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, chatPath(chatID, "/messages"), nil, payload, &message); err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (c *Client) UpdateMessage(ctx context.Context, chatID, messageID int64, content string) (models.Message, error) {
	var message models.Message
	payload := map[string]string{"content": content}
	path := chatPath(chatID, fmt.Sprintf("/messages/%d", messageID))
	if err := c.do(ctx, http.MethodPut, path, nil, payload, &message); err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	path := chatPath(chatID, fmt.Sprintf("/messages/%d", messageID))
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) AddReaction(ctx context.Context, chatID, messageID, reactionTypeID int64) error {
	path := chatPath(chatID, fmt.Sprintf("/messages/%d/reactions", messageID))
	payload := map[string]int64{"reaction_type_id": reactionTypeID}
	return c.do(ctx, http.MethodPost, path, nil, payload, nil)
}

func (c *Client) RemoveReaction(ctx context.Context, chatID, messageID, reactionTypeID int64) error {
	path := chatPath(chatID, fmt.Sprintf("/messages/%d/reactions/%d", messageID, reactionTypeID))
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) SetExclusiveReaction(ctx context.Context, chatID, messageID, reactionTypeID int64) error {
	path := chatPath(chatID, fmt.Sprintf("/messages/%d/reactions/exclusive", messageID))
	payload := map[string]int64{"reaction_type_id": reactionTypeID}
	return c.do(ctx, http.MethodPut, path, nil, payload, nil)
}

func (c *Client) FetchChats(ctx context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	if err := c.do(ctx, http.MethodGet, "/api/chats", nil, nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (c *Client) FetchChat(ctx context.Context, chatID int64) (models.Chat, error) {
	var chat models.Chat
	if err := c.do(ctx, http.MethodGet, chatPath(chatID, ""), nil, nil, &chat); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (c *Client) CreateDialog(ctx context.Context, userID models.UserID) (models.Chat, error) {
	var chat models.Chat
	payload := map[string]string{"user_id": userID.String()}
	if err := c.do(ctx, http.MethodPost, "/api/chats/dialogs", nil, payload, &chat); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (c *Client) CreateGroup(ctx context.Context, req CreateGroupRequest) (models.Chat, error) {
	var chat models.Chat
	if err := c.do(ctx, http.MethodPost, "/api/chats/groups", nil, req, &chat); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (c *Client) CreateChannel(ctx context.Context, req CreateChannelRequest) (models.Chat, error) {
	var chat models.Chat
	if err := c.do(ctx, http.MethodPost, "/api/chats/channels", nil, req, &chat); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (c *Client) UpdateChat(ctx context.Context, chatID int64, req UpdateChatRequest) (models.Chat, error) {
	var chat models.Chat
	if err := c.do(ctx, http.MethodPatch, chatPath(chatID, ""), nil, req, &chat); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (c *Client) FetchInvitations(ctx context.Context) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := c.do(ctx, http.MethodGet, "/api/invitations", nil, nil, &invitations); err != nil {
		return nil, err
	}
	return invitations, nil
}

func (c *Client) FetchSentInvitations(ctx context.Context) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := c.do(ctx, http.MethodGet, "/api/invitations/sent", nil, nil, &invitations); err != nil {
		return nil, err
	}
	return invitations, nil
}

func (c *Client) AcceptInvitation(ctx context.Context, invitationID int64) error {
	path := fmt.Sprintf("/api/invitations/%d/accept", invitationID)
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}

func (c *Client) DeclineInvitation(ctx context.Context, invitationID int64) error {
	path := fmt.Sprintf("/api/invitations/%d/decline", invitationID)
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}

func (c *Client) RemoveInvitation(ctx context.Context, invitationID int64) error {
	path := fmt.Sprintf("/api/invitations/%d", invitationID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) SearchChats(ctx context.Context, query string, includePublic bool) ([]models.ChatSearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("include_public", strconv.FormatBool(includePublic))

	var results []models.ChatSearchResult
	if err := c.do(ctx, http.MethodGet, "/api/chats/search", params, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

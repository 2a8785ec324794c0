package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ChatType enumerates the supported conversation kinds.
type ChatType string

const (
	ChatTypeDirect  ChatType = "direct"
	ChatTypeGroup   ChatType = "group"
	ChatTypeChannel ChatType = "channel"
)

// UserID is a user identifier normalized to its string form. The platform
// emits user ids inconsistently (numeric in some payloads, string or UUID in
// others), so every id is folded to a string at decode time and compared as
// such.
type UserID string

// UnmarshalJSON accepts string, numeric, and null representations.
func (u *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*u = UserID(n.String())
	return nil
}

// String returns the normalized form.
func (u UserID) String() string { return string(u) }

// NormalizeUserID folds an arbitrary id representation into a UserID.
func NormalizeUserID(v interface{}) UserID {
	switch id := v.(type) {
	case string:
		return UserID(id)
	case UserID:
		return id
	case float64:
		return UserID(strconv.FormatInt(int64(id), 10))
	case int:
		return UserID(strconv.Itoa(id))
	case int64:
		return UserID(strconv.FormatInt(id, 10))
	case json.Number:
		return UserID(id.String())
	default:
		return ""
	}
}

// Reaction is a single user's reaction on a message.
type Reaction struct {
	ID             int64     `json:"id"`
	MessageID      int64     `json:"message_id"`
	UserID         UserID    `json:"user_id"`
	ReactionTypeID int64     `json:"reaction_type_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Message is a chat message together with its reactions. Messages are value
// types: every mutation in the stores produces a fresh Message so that
// consumers can detect change by comparison.
type Message struct {
	ID        int64      `json:"id"`
	ChatID    int64      `json:"chat_id"`
	AuthorID  UserID     `json:"author_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	Reactions []Reaction `json:"reactions"`
}

// Before reports whether m sorts ahead of other: ascending created_at with a
// deterministic id tie-break for missing or equal timestamps.
func (m Message) Before(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

// Member is a participant in a conversation.
type Member struct {
	UserID      UserID `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role,omitempty"`
}

// Chat is a conversation summary as held by the conversation store.
type Chat struct {
	ID          int64    `json:"id"`
	Type        ChatType `json:"type"`
	Title       string   `json:"title"`
	Members     []Member `json:"members,omitempty"`
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
	IsPublic    bool     `json:"is_public,omitempty"`
}

// Invitation is a pending membership invitation. CreatedBy and InvitedUser
// decide which partition (incoming vs sent) the invitation belongs to.
type Invitation struct {
	ID          int64     `json:"id"`
	ChatID      int64     `json:"chat_id"`
	ChatTitle   string    `json:"chat_title,omitempty"`
	CreatedBy   UserID    `json:"created_by"`
	InvitedUser UserID    `json:"invited_user"`
	IsAccepted  bool      `json:"is_accepted"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatSearchResult is a single hit from conversation/user search.
type ChatSearchResult struct {
	ChatID      int64    `json:"chat_id,omitempty"`
	UserID      UserID   `json:"user_id,omitempty"`
	Title       string   `json:"title"`
	Type        ChatType `json:"type,omitempty"`
	MemberCount int      `json:"member_count,omitempty"`
}

// SessionUser is the authenticated identity the stores compare ids against.
type SessionUser struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

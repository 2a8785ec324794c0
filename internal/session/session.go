// Package session holds the SDK's durable, best-effort client state: the
// selected conversation and the serialized current user. Nothing here is on
// a critical path; a read-only disk or a missing directory must never break
// the flows that call in.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/asterion-health/asterion-go/internal/models"
)

// State is the persisted session snapshot.
type State struct {
	SelectedChatID int64               `json:"selected_chat_id,omitempty"`
	User           *models.SessionUser `json:"user,omitempty"`
}

// Store persists State as a JSON file.
type Store struct {
	mu     sync.Mutex
	path   string
	logger zerolog.Logger
}

// NewStore constructs a session store writing to path.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With().Str("component", "session_store").Logger(),
	}
}

// Load reads the persisted state. Any failure yields a zero State.
func (s *Store) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// SaveSelectedChat persists the open conversation id, best-effort.
func (s *Store) SaveSelectedChat(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.loadLocked()
	state.SelectedChatID = chatID
	s.saveLocked(state)
}

// SaveUser persists the current user blob, best-effort.
func (s *Store) SaveUser(user models.SessionUser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.loadLocked()
	state.User = &user
	s.saveLocked(state)
}

// Clear removes the persisted state, best-effort.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Debug().Err(err).Msg("failed to clear session state")
	}
}

func (s *Store) loadLocked() State {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return State{}
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Debug().Err(err).Msg("discarding corrupt session state")
		return State{}
	}
	return state
}

func (s *Store) saveLocked(state State) {
	raw, err := json.Marshal(state)
	if err != nil {
		s.logger.Debug().Err(err).Msg("failed to encode session state")
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Debug().Err(err).Msg("failed to create session directory")
		return
	}

	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		s.logger.Debug().Err(err).Msg("failed to write session state")
	}
}

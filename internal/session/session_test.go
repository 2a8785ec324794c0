package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/asterion-health/asterion-go/internal/models"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "session.json"), zerolog.Nop())
}

func TestSessionRoundTrip(t *testing.T) {
	s := tempStore(t)

	s.SaveUser(models.SessionUser{ID: "u1", DisplayName: "Dr. Osei"})
	s.SaveSelectedChat(42)

	state := s.Load()
	require.Equal(t, int64(42), state.SelectedChatID)
	require.NotNil(t, state.User)
	require.Equal(t, models.UserID("u1"), state.User.ID)
	require.Equal(t, "Dr. Osei", state.User.DisplayName)
}

func TestSaveSelectedChatKeepsUser(t *testing.T) {
	s := tempStore(t)

	s.SaveUser(models.SessionUser{ID: "u1"})
	s.SaveSelectedChat(7)
	s.SaveSelectedChat(9)

	state := s.Load()
	require.Equal(t, int64(9), state.SelectedChatID)
	require.NotNil(t, state.User)
}

func TestCorruptStateFileYieldsZeroState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewStore(path, zerolog.Nop())
	require.Equal(t, State{}, s.Load())
}

func TestMissingFileYieldsZeroState(t *testing.T) {
	s := tempStore(t)
	require.Equal(t, State{}, s.Load())
}

func TestClearRemovesState(t *testing.T) {
	s := tempStore(t)
	s.SaveSelectedChat(7)
	s.Clear()
	require.Equal(t, State{}, s.Load())
}

func TestSaveIntoUnwritableDirectoryIsBestEffort(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	s := NewStore(filepath.Join(dir, "session.json"), zerolog.Nop())
	s.SaveSelectedChat(7)

	require.Equal(t, State{}, s.Load())
}

package realtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeNewMessageWithNestedPayload(t *testing.T) {
	raw := []byte(`{
		"event_type": "new_message",
		"data": {
			"chat_id": 7,
			"message": {
				"id": 42,
				"chat_id": 7,
				"author_id": 3,
				"content": "rounds at nine",
				"created_at": "2026-01-15T09:00:00Z"
			}
		}
	}`)

	event, err := Decode(raw)
	require.NoError(t, err)

	created, ok := event.(MessageCreated)
	require.True(t, ok)
	require.Equal(t, int64(7), created.ChatID)
	require.Equal(t, int64(42), created.Message.ID)
	require.Equal(t, "rounds at nine", created.Message.Content)
	require.Equal(t, "3", created.Message.AuthorID.String())
}

func TestDecodeToleratesFlatAndDoubleNestedPayloads(t *testing.T) {
	// The server nests data.message, data.data, or puts the message fields
	// directly in data, depending on the emitting subsystem.
	variants := map[string][]byte{
		"flat": []byte(`{"event_type":"new_message","data":{"id":42,"chat_id":7,"content":"hi","created_at":"2026-01-15T09:00:00Z"}}`),
		"data": []byte(`{"event_type":"new_message","data":{"chat_id":7,"data":{"id":42,"chat_id":7,"content":"hi","created_at":"2026-01-15T09:00:00Z"}}}`),
	}

	for name, raw := range variants {
		t.Run(name, func(t *testing.T) {
			event, err := Decode(raw)
			require.NoError(t, err)

			created, ok := event.(MessageCreated)
			require.True(t, ok)
			require.Equal(t, int64(42), created.Message.ID)
			require.Equal(t, int64(7), created.ChatID)
		})
	}
}

func TestDecodeChatIDFallsBackToOuterData(t *testing.T) {
	raw := []byte(`{"event_type":"new_message","data":{"chat_id":9,"message":{"id":1,"content":"x","created_at":"2026-01-15T09:00:00Z"}}}`)

	event, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, int64(9), event.(MessageCreated).ChatID)
}

func TestDecodeEventTypeAliases(t *testing.T) {
	cases := map[string]string{
		`{"event_type":"message_created","data":{"message":{"id":1,"chat_id":2,"created_at":"2026-01-15T09:00:00Z"}}}`:      "new_message",
		`{"event_type":"updated","data":{"message":{"id":1,"chat_id":2,"created_at":"2026-01-15T09:00:00Z"}}}`:              "message_updated",
		`{"event_type":"deleted","data":{"chat_id":2,"id":1}}`:                                                              "message_deleted",
		`{"event_type":"new_reaction","data":{"chat_id":2,"reaction":{"id":1,"message_id":5,"user_id":"u1"}}}`:              "reaction_added",
		`{"event_type":"invitation_removed","data":{"invitation":{"id":4,"chat_id":2,"created_by":1,"invited_user":"u2"}}}`: "invitation_resolved",
	}

	for raw, want := range cases {
		event, err := Decode([]byte(raw))
		require.NoError(t, err, raw)
		require.Equal(t, want, event.EventType(), raw)
	}
}

func TestDecodeInvitationAcceptedSetsAcceptedFlag(t *testing.T) {
	raw := []byte(`{"event_type":"invitation_accepted","data":{"invitation":{"id":4,"chat_id":2,"created_by":"u1","invited_user":"u2"}}}`)

	event, err := Decode(raw)
	require.NoError(t, err)

	resolved, ok := event.(InvitationResolved)
	require.True(t, ok)
	require.True(t, resolved.Accepted)
	require.Equal(t, int64(4), resolved.Invitation.ID)
}

func TestDecodeRejectsEnvelopeWithoutEventType(t *testing.T) {
	_, err := Decode([]byte(`{"data":{"id":1}}`))
	require.Error(t, err)
}

func TestDecodeRejectsNonObjectData(t *testing.T) {
	_, err := Decode([]byte(`{"event_type":"new_message","data":"not-an-object"}`))
	require.Error(t, err)
}

func TestDecodeRejectsInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"event_type":`))
	require.Error(t, err)
}

func TestDecodeUnknownEventType(t *testing.T) {
	_, err := Decode([]byte(`{"event_type":"presence_changed","data":{}}`))
	require.ErrorIs(t, err, ErrUnknownEvent)
}

func TestDecodeMessageWithoutIDFails(t *testing.T) {
	_, err := Decode([]byte(`{"event_type":"new_message","data":{"message":{"content":"hi"}}}`))
	require.Error(t, err)
}

func TestDecodeDeletedPrefersMessageIDOverID(t *testing.T) {
	raw := []byte(`{"event_type":"message_deleted","data":{"chat_id":2,"message_id":10,"id":99}}`)

	event, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, int64(10), event.(MessageDeleted).MessageID)
}

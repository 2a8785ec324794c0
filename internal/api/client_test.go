package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, "test-token", 5*time.Second, zerolog.Nop())
}

func TestSuccessEnvelopeDecodesDataPayload(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chats/7/messages", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("X-Correlation-ID"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": []map[string]interface{}{
				{"id": 1, "chat_id": 7, "content": "hello", "created_at": "2026-01-15T09:00:00Z"},
			},
		})
	})

	messages, err := client.FetchMessages(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "hello", messages[0].Content)
}

func TestErrorEnvelopeSurfacesStatusAndMessage(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "not a member of this chat",
		})
	})

	_, err := client.FetchMessages(context.Background(), 7)
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.Contains(t, apiErr.Message, "not a member")
}

func TestErrorEnvelopeFallsBackToMessageField(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "validation failed",
		})
	})

	err := client.DeleteMessage(context.Background(), 7, 1)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "validation failed", apiErr.Message)
}

func TestNonJSONResponseIsAnError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway timeout</html>"))
	})

	_, err := client.FetchMessages(context.Background(), 7)
	require.Error(t, err)
}

func TestSendMessagePostsContent(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "rounds at nine", payload["content"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": 99, "chat_id": 7, "content": payload["content"], "created_at": "2026-01-15T09:00:00Z"},
		})
	})

	message, err := client.SendMessage(context.Background(), 7, "rounds at nine")
	require.NoError(t, err)
	require.Equal(t, int64(99), message.ID)
}

func TestSearchChatsSendsQueryParameters(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ward", r.URL.Query().Get("q"))
		require.Equal(t, "true", r.URL.Query().Get("include_public"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    []map[string]interface{}{{"chat_id": 1, "title": "Ward A"}},
		})
	})

	results, err := client.SearchChats(context.Background(), "ward", true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Ward A", results[0].Title)
}

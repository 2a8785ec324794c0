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

func TestDecodeListingModernShape(t *testing.T) {
	raw := []byte(`{
		"results": [{"id": "d1", "name": "handbook.pdf", "path": "/handbook.pdf", "type": "file"}],
		"next": "https://api.example.com/documents/?cursor=cD0yMDI0",
		"previous": ""
	}`)

	listing, err := decodeListing(raw)
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)
	require.Equal(t, "handbook.pdf", listing.Items[0].Name)
	require.Equal(t, "https://api.example.com/documents/?cursor=cD0yMDI0", listing.Next)
	require.Empty(t, listing.Previous)
}

func TestDecodeListingLegacyShape(t *testing.T) {
	raw := []byte(`{
		"path": "/clinical",
		"items": [{"id": "f2", "name": "radiology", "path": "/clinical/radiology", "type": "folder"}],
		"current_folder": {"id": "f1", "name": "Clinical", "path": "/clinical"},
		"parent_folders": [{"id": "root", "name": "Documents", "path": "/"}]
	}`)

	listing, err := decodeListing(raw)
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)
	require.True(t, listing.Items[0].IsFolder())
	require.Equal(t, "/clinical", listing.Path)
	require.NotNil(t, listing.CurrentFolder)
	require.Equal(t, "f1", listing.CurrentFolder.ID)
	require.Len(t, listing.ParentFolders, 1)
}

func TestDecodeListingPrefersResultsOverItems(t *testing.T) {
	raw := []byte(`{
		"results": [{"id": "a", "name": "a.pdf", "type": "file"}],
		"items": [{"id": "b", "name": "b.pdf", "type": "file"}]
	}`)

	listing, err := decodeListing(raw)
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)
	require.Equal(t, "a", listing.Items[0].ID)
}

func TestDecodeListingEmptyBodyYieldsEmptyItems(t *testing.T) {
	listing, err := decodeListing([]byte(`{}`))
	require.NoError(t, err)
	require.NotNil(t, listing.Items)
	require.Empty(t, listing.Items)
}

func TestListDocumentsQueryParameters(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"results": []interface{}{}},
		})
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, "token", 5*time.Second, zerolog.Nop())

	_, err := client.ListDocuments(context.Background(), ListDocumentsRequest{
		Path:      "/clinical",
		Search:    "protocol",
		SortBy:    "name",
		SortOrder: "asc",
		Cursor:    "cD0yMDI0",
		CreatedBy: []string{"u1", "u2"},
		Types:     []string{"pdf"},
	})
	require.NoError(t, err)
	require.NotNil(t, captured)

	query := captured.URL.Query()
	require.Equal(t, "/clinical", query.Get("path"))
	require.Equal(t, "protocol", query.Get("search"))
	require.Equal(t, "name", query.Get("sort_by"))
	require.Equal(t, "asc", query.Get("sort_order"))
	require.Equal(t, "cD0yMDI0", query.Get("cursor"))
	require.Equal(t, "u1,u2", query.Get("created_by"))
	require.Equal(t, "pdf", query.Get("types"))
}

func TestListDocumentsFolderIDTakesPrecedenceOverPath(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"results": []interface{}{}},
		})
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, "token", 5*time.Second, zerolog.Nop())

	_, err := client.ListDocuments(context.Background(), ListDocumentsRequest{Path: "/ignored", FolderID: "f1"})
	require.NoError(t, err)

	query := captured.URL.Query()
	require.Equal(t, "f1", query.Get("folder_id"))
	require.Empty(t, query.Get("path"))
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/asterion-health/asterion-go/internal/models"
)

// DocumentAPI is the listing surface the document navigation store depends
// on.
type DocumentAPI interface {
	ListDocuments(ctx context.Context, req ListDocumentsRequest) (DocumentListing, error)
}

// ListDocumentsRequest addresses a folder either by path or by opaque folder
// id; only one of the two needs to be set.
type ListDocumentsRequest struct {
	Path      string
	FolderID  string
	Search    string
	SortBy    string
	SortOrder string
	Cursor    string
	CreatedBy []string
	Types     []string
}

// DocumentListing is the normalized listing result. The platform serves two
// response generations: the current cursor-paginated shape (results + next/
// previous URLs) and a legacy shape (path + items + current_folder +
// parent_folders). Both are folded into this struct at decode time so the
// store never sees the difference.
type DocumentListing struct {
	Items         []models.DocumentItem
	Next          string
	Previous      string
	Path          string
	CurrentFolder *models.Folder
	ParentFolders []models.Folder
	VirtualPath   string
	ParentPaths   []string
}

// rawListing accepts every field either generation of the endpoint may emit.
type rawListing struct {
	Results       []models.DocumentItem `json:"results"`
	Items         []models.DocumentItem `json:"items"`
	Next          string                `json:"next,omitempty"`
	Previous      string                `json:"previous,omitempty"`
	Path          string                `json:"path,omitempty"`
	CurrentFolder *models.Folder        `json:"current_folder,omitempty"`
	ParentFolders []models.Folder       `json:"parent_folders,omitempty"`
	VirtualPath   string                `json:"virtual_path,omitempty"`
	ParentPaths   []string              `json:"parent_paths,omitempty"`
}

func (c *Client) ListDocuments(ctx context.Context, req ListDocumentsRequest) (DocumentListing, error) {
	params := url.Values{}
	if req.FolderID != "" {
		params.Set("folder_id", req.FolderID)
	} else {
		params.Set("path", req.Path)
	}
	if req.Search != "" {
		params.Set("search", req.Search)
	}
	if req.SortBy != "" {
		params.Set("sort_by", req.SortBy)
	}
	if req.SortOrder != "" {
		params.Set("sort_order", req.SortOrder)
	}
	if req.Cursor != "" {
		params.Set("cursor", req.Cursor)
	}
	if len(req.CreatedBy) > 0 {
		params.Set("created_by", strings.Join(req.CreatedBy, ","))
	}
	if len(req.Types) > 0 {
		params.Set("types", strings.Join(req.Types, ","))
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/documents", params, nil, &raw); err != nil {
		return DocumentListing{}, err
	}

	return decodeListing(raw)
}

func decodeListing(data []byte) (DocumentListing, error) {
	var raw rawListing
	if err := json.Unmarshal(data, &raw); err != nil {
		return DocumentListing{}, err
	}

	items := raw.Results
	if items == nil {
		items = raw.Items
	}
	if items == nil {
		items = []models.DocumentItem{}
	}

	return DocumentListing{
		Items:         items,
		Next:          raw.Next,
		Previous:      raw.Previous,
		Path:          raw.Path,
		CurrentFolder: raw.CurrentFolder,
		ParentFolders: raw.ParentFolders,
		VirtualPath:   raw.VirtualPath,
		ParentPaths:   raw.ParentPaths,
	}, nil
}

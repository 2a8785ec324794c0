package models

import "time"

// DocumentItem is a single entry in a folder listing, either a file or a
// nested folder.
type DocumentItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Type      string    `json:"type"`
	Size      int64     `json:"size,omitempty"`
	CreatedBy UserID    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// IsFolder reports whether the item can be navigated into.
func (d DocumentItem) IsFolder() bool { return d.Type == "folder" }

// Breadcrumb is one hop in the root-to-current trail shown above a listing.
type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
	ID   string `json:"id,omitempty"`
}

// Folder is the server's description of a folder node, used when the listing
// response carries an explicit parent chain.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// DocumentFilters narrows a listing to specific creators or item types.
// Filtered listings never reuse the cache entry of the unfiltered view.
type DocumentFilters struct {
	CreatedBy []string `json:"created_by,omitempty"`
	Types     []string `json:"types,omitempty"`
}

// Empty reports whether no filter is active.
func (f DocumentFilters) Empty() bool {
	return len(f.CreatedBy) == 0 && len(f.Types) == 0
}

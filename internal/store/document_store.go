package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/asterion-health/asterion-go/internal/api"
	"github.com/asterion-health/asterion-go/internal/models"
	"github.com/asterion-health/asterion-go/internal/observability"
)

// RootPath is the top of the document tree.
const RootPath = "/"

// ListOptions addresses one listing request. Either Path or FolderID
// identifies the location; the rest narrows or pages the listing.
type ListOptions struct {
	Path      string
	FolderID  string
	Search    string
	SortBy    string
	SortOrder string
	Cursor    string
}

// listingState is the outcome of one successful listing request, committed
// atomically to the store.
type listingState struct {
	items       []models.DocumentItem
	breadcrumbs []models.Breadcrumb
	path        string
	folderID    string
	next        string
	previous    string
	key         string
	opts        ListOptions
}

// DocumentStore resolves document locations to listings while guaranteeing
// at most one outstanding listing request at a time: concurrent navigation
// triggers join the in-flight call instead of issuing their own. It also
// maintains the breadcrumb trail and cursor pagination state of the last
// successful listing.
type DocumentStore struct {
	mu     sync.Mutex
	api    api.DocumentAPI
	logger zerolog.Logger
	group  singleflight.Group

	items       []models.DocumentItem
	breadcrumbs []models.Breadcrumb
	path        string
	folderID    string
	next        string
	previous    string
	lastKey     string
	lastOpts    ListOptions
	filters     models.DocumentFilters
	pathByID    map[string]string
}

// NewDocumentStore constructs a document navigation store.
func NewDocumentStore(client api.DocumentAPI, logger zerolog.Logger) *DocumentStore {
	return &DocumentStore{
		api:      client,
		logger:   logger.With().Str("component", "document_store").Logger(),
		pathByID: make(map[string]string),
	}
}

// Fetch resolves opts to a listing. Repeating the most recent non-search,
// unfiltered request against an already-populated listing skips the network
// entirely; otherwise concurrent callers share a single underlying request.
func (s *DocumentStore) Fetch(ctx context.Context, opts ListOptions) error {
	s.mu.Lock()
	resolved := s.resolveLocked(opts)
	filters := s.filters
	key := requestKey(resolved, opts, filters)

	if key == s.lastKey && opts.Search == "" && filters.Empty() && len(s.items) > 0 && s.path == resolved {
		s.mu.Unlock()
		observability.ListingRequests().WithLabelValues("skipped").Inc()
		return nil
	}
	s.mu.Unlock()

	executed := false
	_, err, _ := s.group.Do("listing", func() (interface{}, error) {
		executed = true
		observability.ListingRequests().WithLabelValues("network").Inc()

		state, err := s.fetchAndBuild(ctx, opts, resolved, filters, key)
		if err != nil {
			return nil, err
		}

		s.commit(state)
		return state, nil
	})
	if !executed {
		observability.ListingRequests().WithLabelValues("coalesced").Inc()
	}
	if err != nil {
		return err
	}
	return nil
}

// fetchAndBuild performs the network call, falling back once to the root
// listing when a non-root request fails so a broken deep link does not
// strand navigation.
func (s *DocumentStore) fetchAndBuild(ctx context.Context, opts ListOptions, resolved string, filters models.DocumentFilters, key string) (listingState, error) {
	listing, err := s.api.ListDocuments(ctx, buildListRequest(opts, filters))
	if err != nil {
		if resolved == RootPath && opts.FolderID == "" {
			return listingState{}, fmt.Errorf("list documents: %w", err)
		}

		s.logger.Warn().Err(err).Str("path", resolved).Msg("listing failed, falling back to root")
		rootOpts := ListOptions{Path: RootPath, SortBy: opts.SortBy, SortOrder: opts.SortOrder}
		rootListing, rootErr := s.api.ListDocuments(ctx, buildListRequest(rootOpts, models.DocumentFilters{}))
		if rootErr != nil {
			return listingState{}, fmt.Errorf("list documents: %w", err)
		}
		return s.buildState(rootListing, rootOpts, RootPath, models.DocumentFilters{}), nil
	}

	state := s.buildState(listing, opts, resolved, filters)
	state.key = key
	return state, nil
}

// buildState normalizes one listing response into committable store state,
// including the three-tier breadcrumb reconstruction.
func (s *DocumentStore) buildState(listing api.DocumentListing, opts ListOptions, resolved string, filters models.DocumentFilters) listingState {
	path := resolved
	switch {
	case listing.CurrentFolder != nil && listing.CurrentFolder.Path != "":
		path = listing.CurrentFolder.Path
	case listing.VirtualPath != "":
		path = listing.VirtualPath
	case listing.Path != "":
		path = listing.Path
	}
	if path == "" {
		path = RootPath
	}

	folderID := opts.FolderID
	if listing.CurrentFolder != nil && listing.CurrentFolder.ID != "" {
		folderID = listing.CurrentFolder.ID
	}

	var crumbs []models.Breadcrumb
	switch {
	case listing.CurrentFolder != nil:
		crumbs = breadcrumbsFromFolders(*listing.CurrentFolder, listing.ParentFolders)
	case listing.VirtualPath != "":
		crumbs = breadcrumbsFromVirtualPath(listing.VirtualPath, listing.ParentPaths)
	default:
		crumbs = minimalBreadcrumbs(path)
	}

	return listingState{
		items:       listing.Items,
		breadcrumbs: crumbs,
		path:        path,
		folderID:    folderID,
		next:        extractCursor(listing.Next),
		previous:    extractCursor(listing.Previous),
		key:         requestKey(path, opts, filters),
		opts:        opts,
	}
}

func (s *DocumentStore) commit(state listingState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = state.items
	s.breadcrumbs = state.breadcrumbs
	s.path = state.path
	s.folderID = state.folderID
	s.next = state.next
	s.previous = state.previous
	s.lastKey = state.key
	s.lastOpts = state.opts

	// Remember every id-to-path resolution so id-only navigation can still
	// rebuild breadcrumbs later.
	if state.folderID != "" && state.path != "" {
		s.pathByID[state.folderID] = state.path
	}
	for _, crumb := range state.breadcrumbs {
		if crumb.ID != "" && crumb.Path != "" {
			s.pathByID[crumb.ID] = crumb.Path
		}
	}
}

// resolveLocked maps opts to the best-known path for keying and breadcrumb
// reconstruction.
func (s *DocumentStore) resolveLocked(opts ListOptions) string {
	if opts.Path != "" {
		return opts.Path
	}
	if opts.FolderID != "" {
		if known, ok := s.pathByID[opts.FolderID]; ok {
			return known
		}
		return "id:" + opts.FolderID
	}
	return RootPath
}

// NextPage fetches the next cursor page of the current listing, if any.
func (s *DocumentStore) NextPage(ctx context.Context) error {
	s.mu.Lock()
	cursor := s.next
	opts := s.lastOpts
	s.mu.Unlock()

	if cursor == "" {
		return nil
	}
	opts.Cursor = cursor
	return s.Fetch(ctx, opts)
}

// PreviousPage fetches the previous cursor page of the current listing, if
// any.
func (s *DocumentStore) PreviousPage(ctx context.Context) error {
	s.mu.Lock()
	cursor := s.previous
	opts := s.lastOpts
	s.mu.Unlock()

	if cursor == "" {
		return nil
	}
	opts.Cursor = cursor
	return s.Fetch(ctx, opts)
}

// ApplyFilters narrows the current listing. Filtered requests always hit
// the network and never share a cache key with the unfiltered view of the
// same path.
func (s *DocumentStore) ApplyFilters(ctx context.Context, filters models.DocumentFilters) error {
	s.mu.Lock()
	s.filters = filters
	opts := s.lastOpts
	opts.Cursor = ""
	s.mu.Unlock()

	return s.Fetch(ctx, opts)
}

// ClearFilters restores the unfiltered view with a fresh request.
func (s *DocumentStore) ClearFilters(ctx context.Context) error {
	s.mu.Lock()
	s.filters = models.DocumentFilters{}
	opts := s.lastOpts
	opts.Cursor = ""
	s.mu.Unlock()

	return s.Fetch(ctx, opts)
}

// Items returns a copy of the current listing.
func (s *DocumentStore) Items() []models.DocumentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DocumentItem, len(s.items))
	copy(out, s.items)
	return out
}

// Breadcrumbs returns a copy of the current root-to-location trail.
func (s *DocumentStore) Breadcrumbs() []models.Breadcrumb {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Breadcrumb, len(s.breadcrumbs))
	copy(out, s.breadcrumbs)
	return out
}

// Path returns the resolved path of the current listing.
func (s *DocumentStore) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// HasNext reports whether a next cursor page exists. Derived from the
// stored cursor so it cannot drift.
func (s *DocumentStore) HasNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next != ""
}

// HasPrevious reports whether a previous cursor page exists.
func (s *DocumentStore) HasPrevious() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previous != ""
}

// Filters returns the active filter set.
func (s *DocumentStore) Filters() models.DocumentFilters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

func buildListRequest(opts ListOptions, filters models.DocumentFilters) api.ListDocumentsRequest {
	return api.ListDocumentsRequest{
		Path:      opts.Path,
		FolderID:  opts.FolderID,
		Search:    opts.Search,
		SortBy:    opts.SortBy,
		SortOrder: opts.SortOrder,
		Cursor:    opts.Cursor,
		CreatedBy: filters.CreatedBy,
		Types:     filters.Types,
	}
}

// requestKey identifies a distinct listing request. Filters are part of the
// key so filtered and unfiltered views of the same path are never
// conflated.
func requestKey(resolved string, opts ListOptions, filters models.DocumentFilters) string {
	parts := []string{
		resolved,
		opts.Search,
		opts.SortBy,
		opts.SortOrder,
		opts.Cursor,
		strings.Join(filters.CreatedBy, ","),
		strings.Join(filters.Types, ","),
	}
	return strings.Join(parts, "|")
}

// extractCursor pulls the cursor query parameter out of an opaque next or
// previous URL returned by the server.
func extractCursor(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("cursor")
}

func breadcrumbsFromFolders(current models.Folder, parents []models.Folder) []models.Breadcrumb {
	crumbs := []models.Breadcrumb{{Name: "Documents", Path: RootPath}}
	for _, parent := range parents {
		if parent.Path == RootPath {
			continue
		}
		crumbs = append(crumbs, models.Breadcrumb{Name: parent.Name, Path: parent.Path, ID: parent.ID})
	}
	if current.Path != RootPath {
		crumbs = append(crumbs, models.Breadcrumb{Name: current.Name, Path: current.Path, ID: current.ID})
	}
	return crumbs
}

// breadcrumbsFromVirtualPath reconstructs the trail heuristically from a
// slash-delimited virtual path. When the server also supplies a parent-path
// array of matching length, those paths are preferred over the accumulated
// splits.
func breadcrumbsFromVirtualPath(virtual string, parentPaths []string) []models.Breadcrumb {
	crumbs := []models.Breadcrumb{{Name: "Documents", Path: RootPath}}

	segments := splitPath(virtual)
	accumulated := ""
	for i, segment := range segments {
		accumulated += "/" + segment
		crumbPath := accumulated
		if i < len(parentPaths) {
			crumbPath = parentPaths[i]
		}
		crumbs = append(crumbs, models.Breadcrumb{Name: segment, Path: crumbPath})
	}
	return crumbs
}

func minimalBreadcrumbs(path string) []models.Breadcrumb {
	crumbs := []models.Breadcrumb{{Name: "Documents", Path: RootPath}}
	if path == RootPath || path == "" {
		return crumbs
	}

	segments := splitPath(path)
	if len(segments) == 0 {
		return crumbs
	}
	return append(crumbs, models.Breadcrumb{Name: segments[len(segments)-1], Path: path})
}

func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

package store

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/asterion-health/asterion-go/internal/api"
	"github.com/asterion-health/asterion-go/internal/models"
	"github.com/asterion-health/asterion-go/internal/observability"
)

// DefaultSearchDebounce is the quiet window between the last keystroke and
// the network dispatch.
const DefaultSearchDebounce = 300 * time.Millisecond

// SearchStore provides debounced, cached search-as-you-type over
// conversations. Every resumption point checks a monotonically increasing
// sequence number, so a response for a superseded query can never
// overwrite newer state regardless of arrival order.
type SearchStore struct {
	mu       sync.Mutex
	api      api.ChatAPI
	logger   zerolog.Logger
	debounce time.Duration

	cache   map[string][]models.ChatSearchResult
	results []models.ChatSearchResult
	query   string
	seq     uint64
	timer   *time.Timer
	lastErr error
}

// NewSearchStore constructs a search store with the given debounce window;
// zero or negative falls back to DefaultSearchDebounce.
func NewSearchStore(client api.ChatAPI, debounce time.Duration, logger zerolog.Logger) *SearchStore {
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}
	return &SearchStore{
		api:      client,
		logger:   logger.With().Str("component", "search_store").Logger(),
		debounce: debounce,
		cache:    make(map[string][]models.ChatSearchResult),
	}
}

// Search registers a new query. Empty input clears results synchronously;
// cached queries resolve synchronously; everything else is dispatched after
// the debounce window, unless a newer query supersedes it first.
func (s *SearchStore) Search(ctx context.Context, query string, includePublic bool) {
	trimmed := strings.TrimSpace(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	seq := s.seq
	s.query = trimmed

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	if trimmed == "" {
		s.results = nil
		s.lastErr = nil
		return
	}

	key := searchCacheKey(trimmed, includePublic)
	if cached, ok := s.cache[key]; ok {
		observability.SearchCacheHits().Inc()
		s.results = cached
		s.lastErr = nil
		return
	}

	s.timer = time.AfterFunc(s.debounce, func() {
		s.dispatch(ctx, seq, trimmed, includePublic, key)
	})
}

// dispatch runs one debounced query. The sequence is re-checked both before
// the network call and after it resolves.
func (s *SearchStore) dispatch(ctx context.Context, seq uint64, query string, includePublic bool, key string) {
	s.mu.Lock()
	if s.seq != seq {
		s.mu.Unlock()
		observability.SearchSuperseded().Inc()
		return
	}
	s.mu.Unlock()

	results, err := s.api.SearchChats(ctx, query, includePublic)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq != seq {
		observability.SearchSuperseded().Inc()
		return
	}

	if err != nil {
		s.lastErr = err
		s.logger.Warn().Err(err).Str("query", query).Msg("search failed")
		return
	}

	s.lastErr = nil
	s.cache[key] = results
	s.results = results
}

// Results returns a copy of the current result set.
func (s *SearchStore) Results() []models.ChatSearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatSearchResult, len(s.results))
	copy(out, s.results)
	return out
}

// Query returns the current (latest) query string.
func (s *SearchStore) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Err returns the error of the last completed search, if any.
func (s *SearchStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearCache drops every cached result set. Entries never expire otherwise.
func (s *SearchStore) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string][]models.ChatSearchResult)
}

// searchCacheKey normalizes a query for cache lookup: trimmed, lower-cased,
// and scoped by the include_public flag.
func searchCacheKey(query string, includePublic bool) string {
	return strings.ToLower(query) + "|" + strconv.FormatBool(includePublic)
}

package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	realtimeEventsApplied   *prometheus.CounterVec
	realtimeEventsDropped   *prometheus.CounterVec
	searchCacheHitsTotal    prometheus.Counter
	searchSupersededTotal   prometheus.Counter
	listingRequestsTotal    *prometheus.CounterVec
	reactionRecoveriesTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the SDK.
func RegisterMetrics() {
	registerOnce.Do(func() {
		realtimeEventsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asterion_realtime_events_applied_total",
			Help: "Total number of realtime events applied to local stores.",
		}, []string{"event_type"})

		realtimeEventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asterion_realtime_events_dropped_total",
			Help: "Total number of realtime events discarded before application.",
		}, []string{"reason"})

		searchCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "asterion_search_cache_hits_total",
			Help: "Total number of search queries served from the session cache.",
		})

		searchSupersededTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "asterion_search_superseded_total",
			Help: "Total number of search responses dropped as stale.",
		})

		listingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asterion_listing_requests_total",
			Help: "Document listing fetches by outcome source.",
		}, []string{"source"})

		reactionRecoveriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "asterion_reaction_recoveries_total",
			Help: "Total number of full message refetches triggered by reaction events for unknown messages.",
		})

		prometheus.MustRegister(
			realtimeEventsApplied,
			realtimeEventsDropped,
			searchCacheHitsTotal,
			searchSupersededTotal,
			listingRequestsTotal,
			reactionRecoveriesTotal,
		)
	})
}

// RealtimeEventsApplied exposes the counter for applied realtime events.
func RealtimeEventsApplied() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsApplied
}

// RealtimeEventsDropped exposes the counter for discarded realtime events.
func RealtimeEventsDropped() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsDropped
}

// SearchCacheHits exposes the search cache hit counter.
func SearchCacheHits() prometheus.Counter {
	RegisterMetrics()
	return searchCacheHitsTotal
}

// SearchSuperseded exposes the stale search response counter.
func SearchSuperseded() prometheus.Counter {
	RegisterMetrics()
	return searchSupersededTotal
}

// ListingRequests exposes the document listing counter. The source label is
// one of network, coalesced, or skipped.
func ListingRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return listingRequestsTotal
}

// ReactionRecoveries exposes the reaction recovery refetch counter.
func ReactionRecoveries() prometheus.Counter {
	RegisterMetrics()
	return reactionRecoveriesTotal
}

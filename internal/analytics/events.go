// Package analytics records what users search for and aggregates tag
// popularity over the catalog. Search events are published to Kafka for
// downstream consumers and summarised in process for the stats endpoint.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventFilterOnly EventType = "filter_only"
	EventZeroResult EventType = "zero_result"
	EventSuggest    EventType = "suggest"
)

type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Terms      []string  `json:"terms"`
	Tags       []string  `json:"tags,omitempty"`
	Gallery    string    `json:"gallery,omitempty"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyUs  int64     `json:"latency_us"`
	CacheHit   bool      `json:"cache_hit"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// Package catalog defines the media record and query types shared by the
// indexing engine, the searcher, and the catalog data layer.
package catalog

import "time"

// AllGalleries is the gallery filter value that disables gallery filtering.
const AllGalleries = "all"

// Record is one media item as supplied by the catalog. Records are treated
// as immutable for the lifetime of one index.
type Record struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Gallery     string    `json:"gallery"`
	CreatedAt   time.Time `json:"created_at"`
}

// TimeRange bounds a search by record creation time. Both ends are inclusive.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within [Start, End].
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// SearchFilters combines the free-text query with the structural filters.
// Every field is optional; the zero value matches the whole catalog.
type SearchFilters struct {
	Query     string     `json:"query,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Gallery   string     `json:"gallery,omitempty"`
	TimeRange *TimeRange `json:"time_range,omitempty"`
}

// HasGallery reports whether the filters restrict results to one gallery.
func (f SearchFilters) HasGallery() bool {
	return f.Gallery != "" && f.Gallery != AllGalleries
}

// MatchDetail records which fields of a record matched the query.
type MatchDetail struct {
	Title       bool     `json:"title"`
	Description bool     `json:"description"`
	Tags        []string `json:"tags"`
}

// SearchResult is a record together with its relevance score.
type SearchResult struct {
	Record  Record      `json:"record"`
	Score   int         `json:"score"`
	Matches MatchDetail `json:"matches"`
}

// TagFrequency pairs a tag with the number of times it occurs in the catalog.
type TagFrequency struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// UpdateEvent is the message published on the catalog update topic whenever
// media is uploaded, edited, or deleted.
type UpdateEvent struct {
	Action    string    `json:"action"`
	RecordID  string    `json:"record_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

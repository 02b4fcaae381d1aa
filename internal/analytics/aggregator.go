package analytics

import (
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	maxLatencySamples = 10000
	defaultTopN       = 10
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	FilterOnly        int64        `json:"filter_only"`
	Suggestions       int64        `json:"suggestions"`
	CacheHits         int64        `json:"cache_hits"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyUs      float64      `json:"avg_latency_us"`
	P50LatencyUs      int64        `json:"p50_latency_us"`
	P95LatencyUs      int64        `json:"p95_latency_us"`
	P99LatencyUs      int64        `json:"p99_latency_us"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	TopTagFilters     []QueryCount `json:"top_tag_filters"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running statistics over search events in memory.
type Aggregator struct {
	mu                sync.Mutex
	totalSearches     int64
	filterOnly        int64
	suggestions       int64
	cacheHits         int64
	zeroResults       int64
	latencies         []int64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	tagFilters        map[string]int64
	startTime         time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		tagFilters:        make(map[string]int64),
		startTime:         time.Now(),
	}
}

// Record folds one event into the running statistics.
func (a *Aggregator) Record(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if event.Type == EventSuggest {
		a.suggestions++
		return
	}
	a.totalSearches++
	if event.Type == EventFilterOnly {
		a.filterOnly++
	}
	if event.CacheHit {
		a.cacheHits++
	}
	a.addLatency(event.LatencyUs)

	query := strings.ToLower(strings.TrimSpace(event.Query))
	if query != "" {
		a.queryCounts[query]++
		if event.TotalHits == 0 {
			a.zeroResults++
			a.zeroResultQueries[query]++
		}
	}
	for _, tag := range event.Tags {
		a.tagFilters[strings.ToLower(tag)]++
	}
}

// addLatency keeps the most recent maxLatencySamples samples.
func (a *Aggregator) addLatency(us int64) {
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, us)
		return
	}
	a.latencies[a.next] = us
	a.next = (a.next + 1) % maxLatencySamples
}

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(defaultTopN)
}

// StatsTop is Stats with the ranked lists cut to n entries.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		FilterOnly:      a.filterOnly,
		Suggestions:     a.suggestions,
		CacheHits:       a.cacheHits,
		ZeroResultCount: a.zeroResults,
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyUs = float64(sum) / float64(len(sorted))
		stats.P50LatencyUs = percentile(sorted, 50)
		stats.P95LatencyUs = percentile(sorted, 95)
		stats.P99LatencyUs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, n)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, n)
	stats.TopTagFilters = topN(a.tagFilters, n)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n largest counts, ties broken alphabetically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	slices.SortFunc(result, func(a, b QueryCount) int {
		if a.Count != b.Count {
			if a.Count > b.Count {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Query, b.Query)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

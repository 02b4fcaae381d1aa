package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	SuggestRate float64
	Requests    []request
}

// request is one templated call against the search API.
type request struct {
	kind string
	path string
}

type endpointStats struct {
	requests  atomic.Int64
	errors    atomic.Int64
	cacheHits atomic.Int64
	mu        sync.Mutex
	latencies []time.Duration
}

type Stats struct {
	mu          sync.Mutex
	endpoints   map[string]*endpointStats
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		endpoints:   make(map[string]*endpointStats),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) endpoint(kind string) *endpointStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.endpoints[kind]
	if !ok {
		es = &endpointStats{latencies: make([]time.Duration, 0, 10000)}
		s.endpoints[kind] = es
	}
	return es
}

func (s *Stats) Record(kind string, duration time.Duration, statusCode int, cacheHit bool, err error) {
	es := s.endpoint(kind)
	es.requests.Add(1)
	if err != nil || statusCode < 200 || statusCode >= 300 {
		es.errors.Add(1)
	}
	if cacheHit {
		es.cacheHits.Add(1)
	}
	if err != nil {
		return
	}
	es.mu.Lock()
	es.latencies = append(es.latencies, duration)
	es.mu.Unlock()

	s.mu.Lock()
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	suggestRate := flag.Float64("suggest-rate", 0.3, "fraction of requests that are suggestions")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		SuggestRate: *suggestRate,
		Requests:    defaultRequests(),
	}

	fmt.Println("=== Media Catalog Search Load Test ===")
	fmt.Printf("Target:       %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency:  %d\n", cfg.Concurrency)
	fmt.Printf("Duration:     %s\n", cfg.Duration)
	fmt.Printf("Suggest rate: %.0f%%\n", cfg.SuggestRate*100)
	fmt.Println()

	stats := runLoadTest(cfg)
	if !printReport(stats, cfg.Duration) {
		os.Exit(1)
	}
}

func defaultRequests() []request {
	searches := []url.Values{
		{"q": {"sunset"}},
		{"q": {"mountain sunset"}},
		{"q": {"beach"}, "tags": {"travel"}},
		{"q": {"city lights"}, "gallery": {"urban"}},
		{"q": {"portrait"}, "highlight": {"true"}},
		{"tags": {"nature,landscape"}},
		{"gallery": {"nature"}, "from": {"2024-01-01T00:00:00Z"}, "to": {"2024-12-31T23:59:59Z"}},
		{"q": {"snow forest"}, "limit": {"5"}},
	}
	prefixes := []string{"su", "mou", "bea", "cit", "por", "sn", "fo"}

	var reqs []request
	for _, params := range searches {
		if params.Get("limit") == "" {
			params.Set("limit", "10")
		}
		reqs = append(reqs, request{kind: "search", path: "/api/v1/search?" + params.Encode()})
	}
	for _, p := range prefixes {
		reqs = append(reqs, request{kind: "suggest", path: "/api/v1/suggest?q=" + url.QueryEscape(p)})
	}
	reqs = append(reqs, request{kind: "popular", path: "/api/v1/tags/popular?limit=10"})
	return reqs
}

// pick chooses the next request, honouring the suggestion rate.
func pick(cfg Config, rng *rand.Rand) request {
	wantSuggest := rng.Float64() < cfg.SuggestRate
	for {
		req := cfg.Requests[rng.IntN(len(cfg.Requests))]
		if (req.kind == "suggest") == wantSuggest {
			return req
		}
	}
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(workerID), uint64(time.Now().UnixNano())))
			for ctx.Err() == nil {
				req := pick(cfg, rng)
				start := time.Now()
				status, cacheHit, err := do(ctx, client, cfg.BaseURL+req.path)
				if ctx.Err() != nil {
					return
				}
				stats.Record(req.kind, time.Since(start), status, cacheHit, err)
			}
		}(w)
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func do(ctx context.Context, client *http.Client, rawURL string) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, false, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, false, err
	}
	_ = json.Unmarshal(data, &body)
	return resp.StatusCode, body.CacheHit, nil
}

func printReport(stats *Stats, duration time.Duration) bool {
	stats.mu.Lock()
	kinds := make([]string, 0, len(stats.endpoints))
	for kind := range stats.endpoints {
		kinds = append(kinds, kind)
	}
	stats.mu.Unlock()
	sort.Strings(kinds)

	var total int64
	for _, kind := range kinds {
		es := stats.endpoint(kind)
		requests := es.requests.Load()
		total += requests

		es.mu.Lock()
		latencies := slices.Clone(es.latencies)
		es.mu.Unlock()
		slices.Sort(latencies)

		fmt.Printf("=== %s ===\n", kind)
		fmt.Printf("Requests:     %d\n", requests)
		fmt.Printf("Errors:       %d\n", es.errors.Load())
		if kind == "search" && requests > 0 {
			fmt.Printf("Cache hits:   %.1f%%\n", float64(es.cacheHits.Load())/float64(requests)*100)
		}
		if len(latencies) > 0 {
			fmt.Printf("Avg:          %s\n", mean(latencies))
			fmt.Printf("P50:          %s\n", percentile(latencies, 50))
			fmt.Printf("P95:          %s\n", percentile(latencies, 95))
			fmt.Printf("P99:          %s\n", percentile(latencies, 99))
			fmt.Printf("Max:          %s\n", latencies[len(latencies)-1])
		}
		fmt.Println()
	}

	fmt.Println("=== Totals ===")
	fmt.Printf("Requests:     %d\n", total)
	fmt.Printf("Requests/sec: %.2f\n", float64(total)/duration.Seconds())
	stats.mu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code])
	}
	stats.mu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		return false
	}
	return true
}

func mean(latencies []time.Duration) time.Duration {
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	return sum / time.Duration(len(latencies))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

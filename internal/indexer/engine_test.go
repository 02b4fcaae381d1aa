package indexer

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/config"
)

func records(n int, tag string) []catalog.Record {
	out := make([]catalog.Record, n)
	for i := range out {
		out[i] = catalog.Record{
			ID:    fmt.Sprintf("%s-%d", tag, i),
			Title: "photo " + tag,
			Tags:  []string{tag},
		}
	}
	return out
}

func TestNewEngineIsEmpty(t *testing.T) {
	e := NewEngine(config.IndexerConfig{})
	state := e.Current()

	assert.Equal(t, uint64(0), state.Generation)
	assert.Equal(t, 0, state.Snapshot.DocCount())
	assert.NotEmpty(t, state.Fingerprint)
	assert.Empty(t, e.PopularTags(5))
}

func TestIndexCatalogReplacesState(t *testing.T) {
	e := NewEngine(config.IndexerConfig{})

	first := e.IndexCatalog(records(3, "alpha"))
	assert.Equal(t, uint64(1), first.Generation)
	assert.Equal(t, 3, first.Records)

	second := e.IndexCatalog(records(2, "beta"))
	assert.Equal(t, uint64(2), second.Generation)
	assert.Equal(t, uint64(2), e.Generation())

	snap := e.Current().Snapshot
	assert.Equal(t, 2, snap.DocCount())
	assert.Nil(t, snap.Positions("alpha"))
	assert.NotNil(t, snap.Positions("beta"))
	assert.Equal(t, []catalog.TagFrequency{{Tag: "beta", Count: 2}}, e.PopularTags(10))
}

func TestFingerprintDependsOnContentOnly(t *testing.T) {
	a := NewEngine(config.IndexerConfig{})
	b := NewEngine(config.IndexerConfig{})

	b.IndexCatalog(records(1, "other"))
	sa := a.IndexCatalog(records(3, "same"))
	sb := b.IndexCatalog(records(3, "same"))

	assert.NotEqual(t, sa.Generation, sb.Generation)
	assert.Equal(t, sa.Fingerprint, sb.Fingerprint)

	changed := records(3, "same")
	changed[1].Title = "edited"
	sc := a.IndexCatalog(changed)
	assert.NotEqual(t, sa.Fingerprint, sc.Fingerprint)
}

func TestFingerprintSeparatesFields(t *testing.T) {
	x := []catalog.Record{{ID: "1", Title: "ab", Description: "c"}}
	y := []catalog.Record{{ID: "1", Title: "a", Description: "bc"}}
	assert.NotEqual(t, fingerprint(x), fingerprint(y))
}

func TestOnRebuildHooks(t *testing.T) {
	e := NewEngine(config.IndexerConfig{})
	var got []RebuildStats
	e.OnRebuild(func(stats RebuildStats) {
		got = append(got, stats)
	})

	e.IndexCatalog(records(2, "x"))
	e.IndexCatalog(nil)

	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Records)
	assert.Equal(t, 0, got[1].Records)
	assert.Equal(t, uint64(2), got[1].Generation)
}

func TestSlowRebuildThresholdDoesNotFail(t *testing.T) {
	e := NewEngine(config.IndexerConfig{SlowRebuildThreshold: time.Nanosecond})
	stats := e.IndexCatalog(records(50, "slow"))
	assert.Equal(t, 50, stats.Records)
}

// Readers must see either the old or the new catalog in full.
func TestConcurrentRebuildAndRead(t *testing.T) {
	e := NewEngine(config.IndexerConfig{})
	small := records(10, "small")
	large := records(200, "large")
	e.IndexCatalog(small)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := e.Current().Snapshot
				n := snap.DocCount()
				if n != 10 && n != 200 {
					t.Errorf("partial index observed: %d records", n)
					return
				}
				if n == 10 && len(snap.Positions("small")) != 10 {
					t.Errorf("small catalog postings incomplete")
					return
				}
				if n == 200 && len(snap.Positions("large")) != 200 {
					t.Errorf("large catalog postings incomplete")
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			e.IndexCatalog(large)
		} else {
			e.IndexCatalog(small)
		}
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, uint64(51), e.Generation())
}

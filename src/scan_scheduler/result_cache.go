package scan_scheduler

import (
	"sync"
)

// batchedHistoryLimit bounds the rolling batched-scan history.
const batchedHistoryLimit = 8

// ResultCache stores the latest single-scan snapshot and a bounded rolling
// history of batched-scan snapshots.
type ResultCache struct {
	mu           sync.RWMutex
	latestSingle *ScanData
	batched      []ScanData
}

// NewResultCache creates an empty result cache.
func NewResultCache() *ResultCache {
	return &ResultCache{}
}

func (c *ResultCache) storeSingle(data ScanData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latestSingle = &data
}

func (c *ResultCache) appendBatched(data ScanData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batched = append(c.batched, data)
	if len(c.batched) > batchedHistoryLimit {
		c.batched = c.batched[len(c.batched)-batchedHistoryLimit:]
	}
}

// LatestSingleScanResults returns a copy of the latest single-scan
// snapshot, or nil if no single scan has completed yet.
func (c *ResultCache) LatestSingleScanResults() *ScanData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latestSingle == nil {
		return nil
	}
	data := copyScanData(*c.latestSingle)
	return &data
}

// LatestBatchedScanResults returns a copy of the retained batched-scan
// history, oldest first. With flush set, the history is cleared after
// being returned.
func (c *ResultCache) LatestBatchedScanResults(flush bool) []ScanData {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ScanData, 0, len(c.batched))
	for _, data := range c.batched {
		out = append(out, copyScanData(data))
	}
	if flush {
		c.batched = nil
	}
	return out
}

func copyScanData(data ScanData) ScanData {
	results := make([]ScanResult, len(data.Results))
	copy(results, data.Results)
	return ScanData{Timestamp: data.Timestamp, Results: results}
}

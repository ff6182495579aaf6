package scan_scheduler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(timestamp int64, ssid string) ScanData {
	return ScanData{
		Timestamp: timestamp,
		Results: []ScanResult{
			{SSID: ssid, BSSID: "02:00:00:00:00:01", FrequencyMHz: 2412, SignalDBm: -50},
		},
	}
}

func TestLatestSingleScanResultsEmpty(t *testing.T) {
	cache := NewResultCache()
	assert.Nil(t, cache.LatestSingleScanResults())
}

func TestLatestSingleScanResultsRoundTrip(t *testing.T) {
	cache := NewResultCache()
	snapshot := testSnapshot(100, "ssid_a")
	cache.storeSingle(snapshot)

	latest := cache.LatestSingleScanResults()
	require.NotNil(t, latest)
	assert.Equal(t, snapshot, *latest)
}

func TestBatchedResultsReadWithoutFlushIsIdempotent(t *testing.T) {
	cache := NewResultCache()
	cache.appendBatched(testSnapshot(100, "ssid_a"))
	cache.appendBatched(testSnapshot(200, "ssid_b"))

	first := cache.LatestBatchedScanResults(false)
	second := cache.LatestBatchedScanResults(false)
	assert.Equal(t, first, second)
	require.Len(t, second, 2)
	assert.Equal(t, "ssid_b", second[1].Results[0].SSID)
}

func TestBatchedResultsFlushClearsHistory(t *testing.T) {
	cache := NewResultCache()
	cache.appendBatched(testSnapshot(100, "ssid_a"))

	flushed := cache.LatestBatchedScanResults(true)
	require.Len(t, flushed, 1)
	assert.Empty(t, cache.LatestBatchedScanResults(true))
}

func TestBatchedHistoryIsBounded(t *testing.T) {
	cache := NewResultCache()
	for i := 0; i < batchedHistoryLimit+4; i++ {
		cache.appendBatched(testSnapshot(int64(i), fmt.Sprintf("ssid_%d", i)))
	}

	history := cache.LatestBatchedScanResults(false)
	require.Len(t, history, batchedHistoryLimit)
	// Oldest entries were evicted, latest survives at the end.
	assert.Equal(t, int64(batchedHistoryLimit+3), history[len(history)-1].Timestamp)
}

func TestCachedSnapshotsAreCopies(t *testing.T) {
	cache := NewResultCache()
	cache.storeSingle(testSnapshot(100, "ssid_a"))

	latest := cache.LatestSingleScanResults()
	latest.Results[0].SSID = "mutated"

	again := cache.LatestSingleScanResults()
	assert.Equal(t, "ssid_a", again.Results[0].SSID)
}

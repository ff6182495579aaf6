package scan_scheduler_test

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenScanMux/scanmux-module-go/src/channel_helper"
	"github.com/OpenScanMux/scanmux-module-go/src/scan_scheduler"
)

const testInterfaceName = "wlan0-test"

// fakeRadio records every command in order so tests can verify the exact
// pause/program/resume sequencing.
type fakeRadio struct {
	ifaceName string
	calls     []string

	setNetworkVariableOK bool
	enableNetworkOK      bool
	scanOK               bool
	backgroundScanOK     bool

	scanResults []scan_scheduler.ScanResult
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{
		ifaceName:            testInterfaceName,
		setNetworkVariableOK: true,
		enableNetworkOK:      true,
		scanOK:               true,
		backgroundScanOK:     true,
	}
}

func (f *fakeRadio) GetInterfaceName() string {
	return f.ifaceName
}

func (f *fakeRadio) SetNetworkVariable(networkID int, name, value string) bool {
	f.calls = append(f.calls, fmt.Sprintf("setNetworkVariable(%d,%s,%s)", networkID, name, value))
	return f.setNetworkVariableOK
}

func (f *fakeRadio) EnableNetworkWithoutConnect(networkID int) bool {
	f.calls = append(f.calls, fmt.Sprintf("enableNetworkWithoutConnect(%d)", networkID))
	return f.enableNetworkOK
}

func (f *fakeRadio) Scan(frequencies map[int]struct{}, hiddenNetworkIDs map[int]struct{}) bool {
	f.calls = append(f.calls, fmt.Sprintf("scan(%s,%s)", formatSet(frequencies), formatSet(hiddenNetworkIDs)))
	return f.scanOK
}

func (f *fakeRadio) EnableBackgroundScan(enable bool, settings *scan_scheduler.PnoSettings) bool {
	arg := "nil"
	if settings != nil {
		arg = "settings"
	}
	f.calls = append(f.calls, fmt.Sprintf("enableBackgroundScan(%t,%s)", enable, arg))
	return f.backgroundScanOK
}

func (f *fakeRadio) GetScanResults() []scan_scheduler.ScanResult {
	out := make([]scan_scheduler.ScanResult, len(f.scanResults))
	copy(out, f.scanResults)
	return out
}

func formatSet(set map[int]struct{}) string {
	values := make([]int, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Ints(values)
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func scanCall(frequencies map[int]struct{}) string {
	return fmt.Sprintf("scan(%s,[])", formatSet(frequencies))
}

type recordingPnoHandler struct {
	found [][]scan_scheduler.ScanResult
}

func (h *recordingPnoHandler) OnPnoNetworkFound(results []scan_scheduler.ScanResult) {
	h.found = append(h.found, results)
}

// recordingScanHandler snapshots the radio call log at notification time so
// tests can check that the PNO resume happens strictly afterwards.
type recordingScanHandler struct {
	radio         *fakeRadio
	statuses      []scan_scheduler.ScanStatus
	callsAtNotify []string
}

func (h *recordingScanHandler) OnScanStatus(status scan_scheduler.ScanStatus) {
	h.statuses = append(h.statuses, status)
	if h.radio != nil {
		h.callsAtNotify = append([]string(nil), h.radio.calls...)
	}
}

func newScheduler(radio *fakeRadio, hwPnoSupported bool) (*scan_scheduler.Scheduler, *scan_scheduler.EventDispatcher) {
	resolver := scan_scheduler.NewCapabilityResolver(hwPnoSupported)
	sched := scan_scheduler.NewScheduler(radio, channel_helper.New(), resolver)
	dispatcher := scan_scheduler.NewEventDispatcher()
	sched.Attach(dispatcher)
	return sched, dispatcher
}

func createPnoSettings(isConnected bool) scan_scheduler.PnoSettings {
	return scan_scheduler.PnoSettings{
		IsConnected: isConnected,
		NetworkList: []scan_scheduler.PnoNetwork{
			{SSID: "ssid_pno_1", NetworkID: 1, Priority: 1},
			{SSID: "ssid_pno_2", NetworkID: 2, Priority: 2},
		},
	}
}

func createScanSettings() scan_scheduler.ScanSettings {
	return scan_scheduler.ScanSettings{
		BasePeriodMs: 10000,
		MaxApPerScan: 10,
		Buckets: []scan_scheduler.ScanBucket{
			{
				Band:         scan_scheduler.Band24GHz,
				PeriodMs:     10000,
				ReportEvents: scan_scheduler.ReportEventAfterEachScan,
			},
		},
	}
}

func createScanResults() []scan_scheduler.ScanResult {
	frequencies := []int{2400, 2450, 2450, 2400, 2450, 2450, 2400, 2450, 2450}
	results := make([]scan_scheduler.ScanResult, len(frequencies))
	for i, frequency := range frequencies {
		results[i] = scan_scheduler.ScanResult{
			SSID:         fmt.Sprintf("ssid_%d", i),
			BSSID:        fmt.Sprintf("02:00:00:00:00:%02x", i),
			FrequencyMHz: frequency,
			SignalDBm:    -40 - i,
			Capabilities: "[WPA2-PSK-CCMP]",
		}
	}
	return results
}

func expectedBandScanFreqs(band int) map[int]struct{} {
	collection := channel_helper.New().CreateChannelCollection()
	collection.AddBand(band)
	return collection.GetScanFrequencies()
}

func TestStartHwDisconnectedPnoScan(t *testing.T) {
	radio := newFakeRadio()
	radio.scanResults = createScanResults()
	sched, dispatcher := newScheduler(radio, true)
	pnoHandler := &recordingPnoHandler{}

	require.True(t, sched.SetPnoList(createPnoSettings(false), pnoHandler))

	assert.Equal(t, []string{
		"setNetworkVariable(1,priority,1)",
		"enableNetworkWithoutConnect(1)",
		"setNetworkVariable(2,priority,2)",
		"enableNetworkWithoutConnect(2)",
		"enableBackgroundScan(true,nil)",
	}, radio.calls)
	assert.Equal(t, scan_scheduler.StateHwPnoActive, sched.State())

	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanResultsAvailable)

	require.Len(t, pnoHandler.found, 1)
	assert.Equal(t, radio.scanResults, pnoHandler.found[0])
}

func TestPauseResumeHwDisconnectedPnoScanForSingleScan(t *testing.T) {
	radio := newFakeRadio()
	radio.scanResults = createScanResults()
	sched, dispatcher := newScheduler(radio, true)
	pnoHandler := &recordingPnoHandler{}
	scanHandler := &recordingScanHandler{radio: radio}

	require.True(t, sched.SetPnoList(createPnoSettings(false), pnoHandler))
	radio.calls = nil

	require.True(t, sched.StartSingleScan(createScanSettings(), scanHandler))

	expectedFreqs := expectedBandScanFreqs(scan_scheduler.Band24GHz)
	assert.Equal(t, []string{
		"enableBackgroundScan(false,nil)",
		scanCall(expectedFreqs),
	}, radio.calls)

	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanResultsAvailable)

	require.Equal(t, []scan_scheduler.ScanStatus{scan_scheduler.ScanResultsAvailable}, scanHandler.statuses)
	latest := sched.LatestSingleScanResults()
	require.NotNil(t, latest)
	assert.Equal(t, radio.scanResults, latest.Results)

	// The resume must not have been issued yet when the handler ran.
	assert.NotContains(t, scanHandler.callsAtNotify, "enableBackgroundScan(true,nil)")
	require.NotEmpty(t, radio.calls)
	assert.Equal(t, "enableBackgroundScan(true,nil)", radio.calls[len(radio.calls)-1])
	assert.Equal(t, scan_scheduler.StateHwPnoActive, sched.State())

	// The PNO handler saw nothing during the single scan.
	assert.Empty(t, pnoHandler.found)

	// The resumed PNO session keeps delivering.
	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanResultsAvailable)
	require.Len(t, pnoHandler.found, 1)
	assert.Equal(t, radio.scanResults, pnoHandler.found[0])
	require.Len(t, scanHandler.statuses, 1)
}

func TestStartSwDisconnectedPnoScan(t *testing.T) {
	doSuccessfulSwPnoScanTest(t, false, false)
}

func TestStartHwConnectedPnoScan(t *testing.T) {
	doSuccessfulSwPnoScanTest(t, true, true)
}

func TestStartSwConnectedPnoScan(t *testing.T) {
	doSuccessfulSwPnoScanTest(t, false, true)
}

func doSuccessfulSwPnoScanTest(t *testing.T, hwPnoSupported, isConnectedPno bool) {
	t.Helper()

	radio := newFakeRadio()
	radio.scanResults = createScanResults()
	sched, dispatcher := newScheduler(radio, hwPnoSupported)
	pnoHandler := &recordingPnoHandler{}
	scanHandler := &recordingScanHandler{}

	require.True(t, sched.SetPnoList(createPnoSettings(isConnectedPno), pnoHandler))
	require.False(t, sched.IsHwPnoSupported(isConnectedPno))
	require.True(t, sched.StartBatchedScan(createScanSettings(), scanHandler))
	assert.Equal(t, scan_scheduler.StateSwPnoActive, sched.State())

	// The software path never touches hardware background scanning.
	for _, call := range radio.calls {
		assert.NotContains(t, call, "enableBackgroundScan")
	}
	require.Len(t, radio.calls, 1)
	assert.Contains(t, radio.calls[0], "scan(")

	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanResultsAvailable)

	require.Equal(t, []scan_scheduler.ScanStatus{scan_scheduler.ScanResultsAvailable}, scanHandler.statuses)
	batched := sched.LatestBatchedScanResults(true)
	require.NotEmpty(t, batched)
	assert.Equal(t, radio.scanResults, batched[len(batched)-1].Results)
	assert.Empty(t, pnoHandler.found)
}

func TestSetPnoListAbortsOnProgrammingFailure(t *testing.T) {
	radio := newFakeRadio()
	radio.enableNetworkOK = false
	sched, dispatcher := newScheduler(radio, true)
	pnoHandler := &recordingPnoHandler{}

	require.False(t, sched.SetPnoList(createPnoSettings(false), pnoHandler))
	assert.Equal(t, scan_scheduler.StateIdle, sched.State())
	for _, call := range radio.calls {
		assert.NotContains(t, call, "enableBackgroundScan")
	}

	// A late event finds no registered session and is ignored.
	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanResultsAvailable)
	assert.Empty(t, pnoHandler.found)
}

func TestRejectedScanRestoresHwPno(t *testing.T) {
	radio := newFakeRadio()
	sched, _ := newScheduler(radio, true)
	pnoHandler := &recordingPnoHandler{}
	scanHandler := &recordingScanHandler{}

	require.True(t, sched.SetPnoList(createPnoSettings(false), pnoHandler))
	radio.calls = nil
	radio.scanOK = false

	require.False(t, sched.StartSingleScan(createScanSettings(), scanHandler))
	assert.Equal(t, scan_scheduler.StateHwPnoActive, sched.State())
	require.Len(t, radio.calls, 3)
	assert.Equal(t, "enableBackgroundScan(false,nil)", radio.calls[0])
	assert.Equal(t, "enableBackgroundScan(true,nil)", radio.calls[2])
	assert.Empty(t, scanHandler.statuses)
}

func TestStopPnoScanIgnoresLateEvent(t *testing.T) {
	radio := newFakeRadio()
	radio.scanResults = createScanResults()
	sched, dispatcher := newScheduler(radio, true)
	pnoHandler := &recordingPnoHandler{}

	require.True(t, sched.SetPnoList(createPnoSettings(false), pnoHandler))
	sched.StopPnoScan()

	assert.Equal(t, scan_scheduler.StateIdle, sched.State())
	assert.Equal(t, "enableBackgroundScan(false,nil)", radio.calls[len(radio.calls)-1])

	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanResultsAvailable)
	assert.Empty(t, pnoHandler.found)
}

func TestSetPnoListReplacesPriorRegistration(t *testing.T) {
	radio := newFakeRadio()
	radio.scanResults = createScanResults()
	sched, dispatcher := newScheduler(radio, true)
	first := &recordingPnoHandler{}
	second := &recordingPnoHandler{}

	require.True(t, sched.SetPnoList(createPnoSettings(false), first))
	require.True(t, sched.SetPnoList(createPnoSettings(false), second))

	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanResultsAvailable)

	assert.Empty(t, first.found)
	require.Len(t, second.found, 1)
}

func TestConnectedPnoSupersedesHwSession(t *testing.T) {
	radio := newFakeRadio()
	radio.scanResults = createScanResults()
	sched, dispatcher := newScheduler(radio, true)
	first := &recordingPnoHandler{}
	second := &recordingPnoHandler{}

	require.True(t, sched.SetPnoList(createPnoSettings(false), first))
	radio.calls = nil

	// A connected registration runs in software; the hardware session it
	// replaces must be torn down, not left scanning.
	require.True(t, sched.SetPnoList(createPnoSettings(true), second))
	assert.Equal(t, []string{"enableBackgroundScan(false,nil)"}, radio.calls)
	assert.Equal(t, scan_scheduler.StateIdle, sched.State())

	// A completion from the stopped hardware scan reaches neither handler.
	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanResultsAvailable)
	assert.Empty(t, first.found)
	assert.Empty(t, second.found)

	// The new session still works as a normal software PNO session.
	scanHandler := &recordingScanHandler{}
	require.True(t, sched.StartBatchedScan(createScanSettings(), scanHandler))
	assert.Equal(t, scan_scheduler.StateSwPnoActive, sched.State())
	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanResultsAvailable)
	require.Equal(t, []scan_scheduler.ScanStatus{scan_scheduler.ScanResultsAvailable}, scanHandler.statuses)
}

func TestStopPnoScanEndsSwSession(t *testing.T) {
	radio := newFakeRadio()
	radio.scanResults = createScanResults()
	sched, dispatcher := newScheduler(radio, false)
	pnoHandler := &recordingPnoHandler{}
	scanHandler := &recordingScanHandler{}

	require.True(t, sched.SetPnoList(createPnoSettings(false), pnoHandler))
	require.True(t, sched.StartBatchedScan(createScanSettings(), scanHandler))
	require.Equal(t, scan_scheduler.StateSwPnoActive, sched.State())

	sched.StopPnoScan()
	assert.Equal(t, scan_scheduler.StateIdle, sched.State())
	for _, call := range radio.calls {
		assert.NotContains(t, call, "enableBackgroundScan")
	}

	// The realized batched scan died with the session.
	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanResultsAvailable)
	assert.Empty(t, scanHandler.statuses)
	assert.Empty(t, pnoHandler.found)
	assert.Empty(t, sched.LatestBatchedScanResults(false))
}

func TestScanFailureEventResumesHwPno(t *testing.T) {
	radio := newFakeRadio()
	sched, dispatcher := newScheduler(radio, true)
	pnoHandler := &recordingPnoHandler{}
	scanHandler := &recordingScanHandler{radio: radio}

	require.True(t, sched.SetPnoList(createPnoSettings(false), pnoHandler))
	radio.calls = nil
	require.True(t, sched.StartSingleScan(createScanSettings(), scanHandler))

	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanFailed)

	require.Equal(t, []scan_scheduler.ScanStatus{scan_scheduler.ScanFailed}, scanHandler.statuses)
	assert.NotContains(t, scanHandler.callsAtNotify, "enableBackgroundScan(true,nil)")
	assert.Equal(t, "enableBackgroundScan(true,nil)", radio.calls[len(radio.calls)-1])
	assert.Equal(t, scan_scheduler.StateHwPnoActive, sched.State())
	assert.Nil(t, sched.LatestSingleScanResults())
}

func TestSingleScanFromIdle(t *testing.T) {
	radio := newFakeRadio()
	radio.scanResults = createScanResults()
	sched, dispatcher := newScheduler(radio, false)
	scanHandler := &recordingScanHandler{}

	require.True(t, sched.StartSingleScan(createScanSettings(), scanHandler))
	assert.Equal(t, scan_scheduler.StateAdHocScanActive, sched.State())

	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanResultsAvailable)

	require.Len(t, scanHandler.statuses, 1)
	assert.Equal(t, scan_scheduler.StateIdle, sched.State())
	for _, call := range radio.calls {
		assert.NotContains(t, call, "enableBackgroundScan")
	}
}

func TestMaxApPerScanTruncatesSnapshot(t *testing.T) {
	radio := newFakeRadio()
	radio.scanResults = createScanResults()
	sched, dispatcher := newScheduler(radio, false)
	scanHandler := &recordingScanHandler{}

	settings := createScanSettings()
	settings.MaxApPerScan = 3
	require.True(t, sched.StartSingleScan(settings, scanHandler))

	dispatcher.Notify(testInterfaceName, scan_scheduler.EventScanResultsAvailable)

	latest := sched.LatestSingleScanResults()
	require.NotNil(t, latest)
	assert.Equal(t, radio.scanResults[:3], latest.Results)
}

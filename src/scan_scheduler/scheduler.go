// Package scan_scheduler implements the Scheduler that serializes PNO and
// ad-hoc scans on one radio.
package scan_scheduler

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type pnoSession struct {
	id       string
	settings PnoSettings
	handler  PnoEventHandler
	hw       bool
}

type scanSession struct {
	id       string
	settings ScanSettings
	handler  ScanEventHandler
	batched  bool
}

// SnapshotSink receives a copy of every snapshot the scheduler caches.
// Kind is "single" or "batched".
type SnapshotSink func(kind string, data ScanData)

// Scheduler owns the radio's scan state machine. At most one PNO session
// and one ad-hoc session are registered at a time; re-registering replaces
// the prior registration. All state transitions and their paired radio
// commands happen under one mutex, preserving the at-most-one-in-flight
// command invariant when events arrive from another goroutine.
type Scheduler struct {
	radio    RadioInterface
	channels ChannelHelper
	resolver *CapabilityResolver
	cache    *ResultCache

	mu                 sync.Mutex
	state              State
	pno                *pnoSession
	scan               *scanSession
	resumePnoAfterScan bool
	snapshotSink       SnapshotSink
}

// NewScheduler creates a scheduler for the given radio.
func NewScheduler(radio RadioInterface, channels ChannelHelper, resolver *CapabilityResolver) *Scheduler {
	return &Scheduler{
		radio:    radio,
		channels: channels,
		resolver: resolver,
		cache:    NewResultCache(),
		state:    StateIdle,
	}
}

// Attach registers the scheduler's completion handling with a dispatcher,
// keyed by the radio's interface name.
func (s *Scheduler) Attach(dispatcher *EventDispatcher) {
	dispatcher.Register(s.radio.GetInterfaceName(), s.handleEvent)
}

// SetSnapshotSink installs an optional sink invoked for every cached
// snapshot. Must be set before scans are started.
func (s *Scheduler) SetSnapshotSink(sink SnapshotSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotSink = sink
}

// IsHwPnoSupported reports whether a PNO request with the given connection
// state would run on the hardware path.
func (s *Scheduler) IsHwPnoSupported(isConnected bool) bool {
	return s.resolver.IsHwPnoSupported(isConnected)
}

// State returns the scheduler's current mode.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LatestSingleScanResults returns the latest cached single-scan snapshot.
func (s *Scheduler) LatestSingleScanResults() *ScanData {
	return s.cache.LatestSingleScanResults()
}

// LatestBatchedScanResults returns the retained batched-scan history,
// clearing it when flush is set.
func (s *Scheduler) LatestBatchedScanResults(flush bool) []ScanData {
	return s.cache.LatestBatchedScanResults(flush)
}

// SetPnoList registers a PNO session. On the hardware path every network is
// programmed into the supplicant in list order and background scanning is
// enabled; any command failure aborts with no state change and no
// background-scan enable. On the software path the registration is only
// recorded, the caller realizes SW PNO by starting a batched scan.
func (s *Scheduler) SetPnoList(settings PnoSettings, handler PnoEventHandler) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := &pnoSession{
		id:       uuid.NewString(),
		settings: settings,
		handler:  handler,
	}
	log := logger.WithFields(logrus.Fields{
		"session_id":    session.id,
		"network_count": len(settings.NetworkList),
		"is_connected":  settings.IsConnected,
	})

	if !s.resolver.IsHwPnoSupported(settings.IsConnected) {
		// A superseded hardware session must not keep running: its
		// settings are discarded and completions belong to the new
		// software session only.
		if s.pno != nil && s.pno.hw {
			switch s.state {
			case StateHwPnoActive:
				if !s.radio.EnableBackgroundScan(false, nil) {
					log.Warn("Failed to disable background scan while superseding hardware PNO")
				}
				s.state = StateIdle
			case StateHwPnoPaused, StateAdHocScanActive:
				s.resumePnoAfterScan = false
			}
		}
		s.pno = session
		log.Info("Registered software PNO session, awaiting batched scan start")
		return true
	}

	for _, network := range settings.NetworkList {
		if !s.radio.SetNetworkVariable(network.NetworkID, PriorityVarName, strconv.Itoa(network.Priority)) {
			log.WithField("network_id", network.NetworkID).Error("Failed to set PNO network priority")
			return false
		}
		if !s.radio.EnableNetworkWithoutConnect(network.NetworkID) {
			log.WithField("network_id", network.NetworkID).Error("Failed to enable PNO network")
			return false
		}
	}
	if !s.radio.EnableBackgroundScan(true, nil) {
		log.Error("Failed to enable background scan")
		return false
	}

	session.hw = true
	s.pno = session
	s.state = StateHwPnoActive
	log.Info("Hardware PNO session active")
	return true
}

// StopPnoScan clears the registered PNO session. An active hardware
// session is stopped by disabling background scanning; a paused one simply
// loses its pending resume; an active software session returns the
// scheduler to idle. Subsequent completion events for the stopped session
// are ignored.
func (s *Scheduler) StopPnoScan() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pno == nil {
		return
	}
	log := logger.WithField("session_id", s.pno.id)

	switch s.state {
	case StateHwPnoActive:
		if !s.radio.EnableBackgroundScan(false, nil) {
			log.Warn("Failed to disable background scan while stopping PNO")
		}
		s.state = StateIdle
	case StateHwPnoPaused, StateAdHocScanActive:
		s.resumePnoAfterScan = false
	case StateSwPnoActive:
		// The in-flight batched scan realized this session; drop it so
		// a late completion is ignored.
		s.scan = nil
		s.state = StateIdle
	}
	s.pno = nil
	log.Info("PNO session stopped")
}

// StartSingleScan requests a one-shot scan. An active hardware PNO session
// is paused first and resumed after the scan's results are delivered.
func (s *Scheduler) StartSingleScan(settings ScanSettings, handler ScanEventHandler) bool {
	return s.startScan(settings, handler, false)
}

// StartBatchedScan requests a batched scan. When a software PNO session is
// registered this realizes it as the periodic background scan.
func (s *Scheduler) StartBatchedScan(settings ScanSettings, handler ScanEventHandler) bool {
	return s.startScan(settings, handler, true)
}

func (s *Scheduler) startScan(settings ScanSettings, handler ScanEventHandler, batched bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := &scanSession{
		id:       uuid.NewString(),
		settings: settings,
		handler:  handler,
		batched:  batched,
	}
	log := logger.WithFields(logrus.Fields{
		"session_id": session.id,
		"batched":    batched,
		"state":      s.state.String(),
	})

	frequencies := s.frequenciesFor(settings)
	hidden := make(map[int]struct{}, len(settings.HiddenNetworkIDs))
	for _, id := range settings.HiddenNetworkIDs {
		hidden[id] = struct{}{}
	}

	// The pause must be acknowledged before the scan command goes out.
	paused := false
	if s.state == StateHwPnoActive {
		if !s.radio.EnableBackgroundScan(false, nil) {
			log.Error("Failed to pause hardware PNO for ad-hoc scan")
			return false
		}
		s.state = StateHwPnoPaused
		paused = true
	}

	if !s.radio.Scan(frequencies, hidden) {
		log.Error("Scan command was not accepted")
		if paused {
			// Undo the pause so the caller observes no state change.
			if !s.radio.EnableBackgroundScan(true, nil) {
				log.Warn("Failed to resume hardware PNO after rejected scan")
			}
			s.state = StateHwPnoActive
		}
		return false
	}

	s.scan = session
	if paused {
		s.resumePnoAfterScan = true
	}
	if batched && s.pno != nil && !s.pno.hw {
		s.state = StateSwPnoActive
		log.Info("Software PNO scan submitted")
	} else {
		s.state = StateAdHocScanActive
		log.WithField("frequency_count", len(frequencies)).Info("Ad-hoc scan submitted")
	}
	return true
}

func (s *Scheduler) frequenciesFor(settings ScanSettings) map[int]struct{} {
	collection := s.channels.CreateChannelCollection()
	for _, bucket := range settings.Buckets {
		if len(bucket.Channels) > 0 {
			for _, frequency := range bucket.Channels {
				collection.AddChannel(frequency)
			}
			continue
		}
		collection.AddBand(bucket.Band)
	}
	return collection.GetScanFrequencies()
}

// handleEvent is the dispatcher entry point for this scheduler instance.
func (s *Scheduler) handleEvent(event EventKind) {
	switch event {
	case EventScanResultsAvailable:
		s.handleScanResults()
	case EventScanFailed:
		s.handleScanFailure()
	default:
		logger.WithField("event", event.String()).Debug("Ignoring unhandled event kind")
	}
}

// handleScanResults services a scan-finished notification: fetch results,
// update the cache, notify exactly one handler, then resume a paused
// hardware PNO session if one is pending. Handlers are invoked while the
// scheduler lock is held and must not call back into the scheduler.
func (s *Scheduler) handleScanResults() {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.radio.GetScanResults()
	switch s.state {
	case StateAdHocScanActive:
		if s.scan == nil {
			return
		}
		data := s.snapshotFrom(raw, s.scan.settings.MaxApPerScan)
		if s.scan.batched {
			s.cache.appendBatched(data)
			s.emitSnapshot("batched", data)
		} else {
			s.cache.storeSingle(data)
			s.emitSnapshot("single", data)
		}
		handler := s.scan.handler
		s.scan = nil
		handler.OnScanStatus(ScanResultsAvailable)
		s.finishAdHoc()

	case StateHwPnoActive:
		if s.pno == nil {
			return
		}
		logger.WithFields(logrus.Fields{
			"session_id":   s.pno.id,
			"result_count": len(raw),
		}).Debug("Hardware PNO results received")
		s.pno.handler.OnPnoNetworkFound(raw)

	case StateSwPnoActive:
		if s.scan == nil {
			return
		}
		data := s.snapshotFrom(raw, s.scan.settings.MaxApPerScan)
		s.cache.appendBatched(data)
		s.emitSnapshot("batched", data)
		s.scan.handler.OnScanStatus(ScanResultsAvailable)

	default:
		logger.WithField("state", s.state.String()).Debug("Ignoring scan results in current state")
	}
}

// handleScanFailure aborts the in-flight ad-hoc scan and resumes a paused
// hardware PNO session.
func (s *Scheduler) handleScanFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAdHocScanActive || s.scan == nil {
		logger.WithField("state", s.state.String()).Debug("Ignoring scan failure in current state")
		return
	}
	handler := s.scan.handler
	s.scan = nil
	handler.OnScanStatus(ScanFailed)
	s.finishAdHoc()
}

// finishAdHoc transitions out of AdHocScanActive, re-enabling background
// scanning strictly after the scan's own handler has been notified.
func (s *Scheduler) finishAdHoc() {
	if s.resumePnoAfterScan && s.pno != nil {
		s.resumePnoAfterScan = false
		if !s.radio.EnableBackgroundScan(true, nil) {
			logger.WithField("session_id", s.pno.id).Error("Failed to resume hardware PNO")
			s.state = StateIdle
			return
		}
		s.state = StateHwPnoActive
		return
	}
	s.resumePnoAfterScan = false
	s.state = StateIdle
}

func (s *Scheduler) snapshotFrom(raw []ScanResult, maxApPerScan int) ScanData {
	results := make([]ScanResult, len(raw))
	copy(results, raw)
	if maxApPerScan > 0 && len(results) > maxApPerScan {
		results = results[:maxApPerScan]
	}
	return ScanData{
		Timestamp: time.Now().UnixMilli(),
		Results:   results,
	}
}

func (s *Scheduler) emitSnapshot(kind string, data ScanData) {
	if s.snapshotSink == nil {
		return
	}
	s.snapshotSink(kind, copyScanData(data))
}

package main

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/OpenScanMux/scanmux-module-go/src/channel_helper"
	"github.com/OpenScanMux/scanmux-module-go/src/config_manager"
	"github.com/OpenScanMux/scanmux-module-go/src/scan_scheduler"
	"github.com/OpenScanMux/scanmux-module-go/src/scan_store"
	"github.com/OpenScanMux/scanmux-module-go/src/supplicant_radio"
	"github.com/OpenScanMux/scanmux-module-go/src/telemetry"
	"github.com/OpenScanMux/scanmux-module-go/src/wifi_monitor"
)

var logger = logrus.WithField("module", "main")

var (
	configManager *config_manager.ConfigManager
	appConfig     *config_manager.Config
	scheduler     *scan_scheduler.Scheduler
	dispatcher    *scan_scheduler.EventDispatcher
	publisher     *telemetry.Publisher
	archive       *scan_store.Store

	swPnoMu   sync.Mutex
	swPnoStop chan struct{}
)

// pnoNotifier forwards found preferred networks to the log and, when
// configured, to the telemetry relays.
type pnoNotifier struct {
	ifaceName string
}

func (n *pnoNotifier) OnPnoNetworkFound(results []scan_scheduler.ScanResult) {
	logger.WithFields(logrus.Fields{
		"interface": n.ifaceName,
		"networks":  len(results),
	}).Info("Preferred network found")

	if publisher != nil {
		go func() {
			if err := publisher.PublishPnoFound(n.ifaceName, results); err != nil {
				logger.WithError(err).Warn("Failed to publish pno telemetry")
			}
		}()
	}
}

// scanLogger records scan completion for scans triggered over HTTP.
type scanLogger struct{}

func (scanLogger) OnScanStatus(status scan_scheduler.ScanStatus) {
	if status == scan_scheduler.ScanFailed {
		logger.Warn("Requested scan failed")
		return
	}
	logger.Debug("Requested scan completed")
}

type scanRequest struct {
	Band             int   `json:"band"`
	Channels         []int `json:"channels"`
	MaxApPerScan     int   `json:"max_ap_per_scan"`
	HiddenNetworkIDs []int `json:"hidden_network_ids"`
}

func (req *scanRequest) toSettings() scan_scheduler.ScanSettings {
	band := req.Band
	if band == 0 && len(req.Channels) == 0 {
		band = scan_scheduler.BandBoth
	}
	maxAps := req.MaxApPerScan
	if maxAps == 0 {
		maxAps = appConfig.MaxApPerScan
	}
	return scan_scheduler.ScanSettings{
		MaxApPerScan:     maxAps,
		HiddenNetworkIDs: req.HiddenNetworkIDs,
		Buckets: []scan_scheduler.ScanBucket{
			{
				Band:         band,
				Channels:     req.Channels,
				ReportEvents: scan_scheduler.ReportEventAfterEachScan,
			},
		},
	}
}

type pnoRequest struct {
	IsConnected bool `json:"is_connected"`
	Networks    []struct {
		SSID      string `json:"ssid"`
		NetworkID int    `json:"network_id"`
		Priority  int    `json:"priority"`
	} `json:"networks"`
}

// corsMiddleware handles Cross-Origin Resource Sharing
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Warn("Failed to write response")
	}
}

// handleLatestScan serves the most recent single-scan snapshot.
func handleLatestScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	data := scheduler.LatestSingleScanResults()
	if data == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no scan results available"})
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// handleBatchedScans serves the retained batched-scan history. The flush
// query parameter clears the history after serving it.
func handleBatchedScans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flush := r.URL.Query().Get("flush") == "true"
	data := scheduler.LatestBatchedScanResults(flush)
	if data == nil {
		data = []scan_scheduler.ScanData{}
	}
	writeJSON(w, http.StatusOK, data)
}

// handleTriggerScan starts a single scan on behalf of the caller.
func handleTriggerScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req scanRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "error reading request body"})
		return
	}
	defer r.Body.Close()
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scan request"})
			return
		}
	}

	if !scheduler.StartSingleScan(req.toSettings(), scanLogger{}) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "scan could not be started"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

// handlePno registers (POST) or stops (DELETE) the preferred-network scan.
func handlePno(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		handlePnoStart(w, r)
	case http.MethodDelete:
		stopSwPnoLoop()
		scheduler.StopPnoScan()
		writeJSON(w, http.StatusOK, map[string]bool{"stopped": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func handlePnoStart(w http.ResponseWriter, r *http.Request) {
	var req pnoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pno request"})
		return
	}
	defer r.Body.Close()
	if len(req.Networks) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no networks given"})
		return
	}

	settings := scan_scheduler.PnoSettings{IsConnected: req.IsConnected}
	for _, network := range req.Networks {
		settings.NetworkList = append(settings.NetworkList, scan_scheduler.PnoNetwork{
			SSID:      network.SSID,
			NetworkID: network.NetworkID,
			Priority:  network.Priority,
		})
	}

	handler := &pnoNotifier{ifaceName: appConfig.InterfaceName}
	if !scheduler.SetPnoList(settings, handler) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "pno could not be started"})
		return
	}

	hw := scheduler.IsHwPnoSupported(settings.IsConnected)
	if hw {
		stopSwPnoLoop()
	} else {
		startSwPnoLoop()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"started": true, "hw": hw})
}

// handleStatus reports the scheduler mode and radio configuration.
func handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":            scheduler.State().String(),
		"interface":        appConfig.InterfaceName,
		"hw_pno_supported": appConfig.HwPnoSupported,
	})
}

// startSwPnoLoop periodically issues batched scans to realize software PNO.
func startSwPnoLoop() {
	swPnoMu.Lock()
	defer swPnoMu.Unlock()

	if swPnoStop != nil {
		return // already running
	}
	stop := make(chan struct{})
	swPnoStop = stop

	period := time.Duration(appConfig.SwPnoScanPeriodMs) * time.Millisecond
	settings := scan_scheduler.ScanSettings{
		BasePeriodMs: appConfig.SwPnoScanPeriodMs,
		MaxApPerScan: appConfig.MaxApPerScan,
		Buckets: []scan_scheduler.ScanBucket{
			{
				Band:         scan_scheduler.BandBoth,
				PeriodMs:     appConfig.SwPnoScanPeriodMs,
				ReportEvents: scan_scheduler.ReportEventAfterEachScan,
			},
		},
	}

	logger.WithField("period_ms", appConfig.SwPnoScanPeriodMs).Info("Starting software pno loop")

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		if !scheduler.StartBatchedScan(settings, scanLogger{}) {
			logger.Warn("Initial software pno scan could not be started")
		}
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !scheduler.StartBatchedScan(settings, scanLogger{}) {
					logger.Debug("Software pno scan skipped, radio busy")
				}
			}
		}
	}()
}

func stopSwPnoLoop() {
	swPnoMu.Lock()
	defer swPnoMu.Unlock()

	if swPnoStop != nil {
		close(swPnoStop)
		swPnoStop = nil
		logger.Info("Stopped software pno loop")
	}
}

func main() {
	var err error
	configManager, err = config_manager.NewConfigManager("")
	if err != nil {
		logrus.Fatalf("Failed to create config manager: %v", err)
	}
	logger.WithField("path", configManager.FilePath).Info("Using config path")

	appConfig, err = configManager.EnsureDefaultConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	InitializeGlobalLogger(appConfig.LogLevel)

	radio := supplicant_radio.New(appConfig.InterfaceName)
	resolver := scan_scheduler.NewCapabilityResolver(appConfig.HwPnoSupported)
	scheduler = scan_scheduler.NewScheduler(radio, channel_helper.New(), resolver)
	dispatcher = scan_scheduler.NewEventDispatcher()
	scheduler.Attach(dispatcher)

	if appConfig.ArchivePath != "" {
		archive, err = scan_store.Open(appConfig.ArchivePath)
		if err != nil {
			logrus.Fatalf("Failed to open scan archive: %v", err)
		}
		scheduler.SetSnapshotSink(func(kind string, data scan_scheduler.ScanData) {
			if err := archive.SaveSnapshot(kind, data); err != nil {
				logger.WithError(err).Warn("Failed to archive scan snapshot")
			}
		})
	}

	if appConfig.Telemetry.Enabled {
		publisher = telemetry.NewPublisher(appConfig.Telemetry.PrivateKey, appConfig.Telemetry.Relays)
		logger.WithField("relays", len(appConfig.Telemetry.Relays)).Info("Telemetry enabled")
	}

	monitor := wifi_monitor.NewMonitor(appConfig.InterfaceName, dispatcher)
	if err := monitor.Start(); err != nil {
		logrus.Fatalf("Failed to start wifi monitor: %v", err)
	}

	http.HandleFunc("/scan/latest", corsMiddleware(handleLatestScan))
	http.HandleFunc("/scan/batched", corsMiddleware(handleBatchedScans))
	http.HandleFunc("/scan", corsMiddleware(handleTriggerScan))
	http.HandleFunc("/pno", corsMiddleware(handlePno))
	http.HandleFunc("/status", corsMiddleware(handleStatus))

	server := &http.Server{
		Addr:         appConfig.ListenAddress,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("address", appConfig.ListenAddress).Info("Starting scanmux HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Shutting down scanmux")

	stopSwPnoLoop()
	server.Close()
	monitor.Stop()
	if archive != nil {
		archive.Close()
	}
}

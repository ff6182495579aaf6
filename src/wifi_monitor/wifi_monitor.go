//go:build linux
// +build linux

package wifi_monitor

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"

	"github.com/OpenScanMux/scanmux-module-go/src/scan_scheduler"
)

// Monitor is the event-driven scan watcher for one interface. It tails
// `iw event` for scan completion lines and subscribes to netlink link
// updates to observe the interface going up or down.
type Monitor struct {
	ifaceName string
	notifier  Notifier

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewMonitor creates a monitor for the given interface.
func NewMonitor(ifaceName string, notifier Notifier) *Monitor {
	return &Monitor{
		ifaceName: ifaceName,
		notifier:  notifier,
	}
}

// Start begins monitoring. It is an error to start a running monitor.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("wifi monitor is already running")
	}

	logger.WithField("interface", m.ifaceName).Info("Starting wifi monitor")

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.stopChan = make(chan struct{})
	m.running = true

	m.wg.Add(2)
	go m.monitorScanEvents(ctx)
	go m.monitorLinkChanges()

	return nil
}

// Stop stops the monitor and waits for its goroutines to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	logger.WithField("interface", m.ifaceName).Info("Stopping wifi monitor")
	m.cancel()
	close(m.stopChan)
	m.wg.Wait()
	m.running = false
}

// monitorScanEvents tails the nl80211 event stream and forwards scan
// completion and abort notifications for the managed interface.
func (m *Monitor) monitorScanEvents(ctx context.Context) {
	defer m.wg.Done()

	cmd := exec.CommandContext(ctx, "iw", "event")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		logger.WithError(err).Error("Failed to open iw event pipe")
		return
	}
	if err := cmd.Start(); err != nil {
		logger.WithError(err).Error("Failed to start iw event")
		return
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, m.ifaceName) {
			continue
		}
		switch {
		case strings.Contains(line, "scan finished"):
			m.notifier.Notify(m.ifaceName, scan_scheduler.EventScanResultsAvailable)
		case strings.Contains(line, "scan aborted"):
			m.notifier.Notify(m.ifaceName, scan_scheduler.EventScanFailed)
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		logger.WithError(err).Warn("iw event stream ended unexpectedly")
	}
	_ = cmd.Wait()
}

// monitorLinkChanges logs link state transitions of the managed interface.
func (m *Monitor) monitorLinkChanges() {
	defer m.wg.Done()

	updates := make(chan netlink.LinkUpdate)
	done := make(chan struct{})
	if err := netlink.LinkSubscribe(updates, done); err != nil {
		logger.WithError(err).Error("Failed to subscribe to link updates")
		return
	}

	for {
		select {
		case <-m.stopChan:
			close(done)
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			attrs := update.Link.Attrs()
			if attrs == nil || attrs.Name != m.ifaceName {
				continue
			}
			logger.WithFields(logrus.Fields{
				"interface":  attrs.Name,
				"oper_state": attrs.OperState.String(),
			}).Debug("Link state changed")
		}
	}
}

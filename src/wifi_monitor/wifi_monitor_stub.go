//go:build !linux
// +build !linux

package wifi_monitor

import "fmt"

// Monitor is a stub implementation for non-Linux systems.
type Monitor struct {
	ifaceName string
	notifier  Notifier
	running   bool
}

// NewMonitor creates a stub monitor for non-Linux systems.
func NewMonitor(ifaceName string, notifier Notifier) *Monitor {
	logger.Warn("Using stub wifi monitor - scan event monitoring only available on Linux")
	return &Monitor{
		ifaceName: ifaceName,
		notifier:  notifier,
	}
}

// Start begins the stub monitor (does nothing on non-Linux)
func (m *Monitor) Start() error {
	if m.running {
		return fmt.Errorf("stub wifi monitor is already running")
	}
	logger.Info("Starting stub wifi monitor (no actual monitoring on non-Linux systems)")
	m.running = true
	return nil
}

// Stop stops the stub monitor
func (m *Monitor) Stop() {
	if !m.running {
		return
	}
	logger.Info("Stopping stub wifi monitor")
	m.running = false
}

// Package supplicant_radio implements the radio command surface on top of
// wpa_cli and iw.
package supplicant_radio

import (
	"bytes"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/OpenScanMux/scanmux-module-go/src/scan_scheduler"
)

// Radio talks to one wireless interface through the supplicant control
// socket (wpa_cli) and nl80211 (iw). All commands report submission
// success only; completion arrives through the wifi monitor.
type Radio struct {
	ifaceName string
}

// New creates a radio bound to the given interface.
func New(ifaceName string) *Radio {
	return &Radio{ifaceName: ifaceName}
}

// GetInterfaceName returns the managed interface name, used to key
// completion events to this radio.
func (r *Radio) GetInterfaceName() string {
	return r.ifaceName
}

// SetNetworkVariable sets a supplicant per-network variable.
func (r *Radio) SetNetworkVariable(networkID int, name, value string) bool {
	return r.wpaCliOK("set_network", strconv.Itoa(networkID), name, value)
}

// EnableNetworkWithoutConnect enables a network for scanning without
// triggering an association attempt.
func (r *Radio) EnableNetworkWithoutConnect(networkID int) bool {
	return r.wpaCliOK("enable_network", strconv.Itoa(networkID), "no-connect")
}

// Scan requests a scan over the given frequency set. Hidden networks are
// resolved to their configured SSIDs so the supplicant probes for them
// actively.
func (r *Radio) Scan(frequencies map[int]struct{}, hiddenNetworkIDs map[int]struct{}) bool {
	args := []string{"scan"}
	if len(frequencies) > 0 {
		args = append(args, "freq="+formatFrequencyList(frequencies))
	}
	for _, networkID := range sortedIDs(hiddenNetworkIDs) {
		ssid, err := r.wpaCli("get_network", strconv.Itoa(networkID), "ssid")
		if err != nil {
			logger.WithFields(logrus.Fields{
				"network_id": networkID,
				"error":      err,
			}).Warn("Could not resolve hidden network SSID for scan")
			continue
		}
		args = append(args, "ssid", strings.Trim(ssid, "\""))
	}
	return r.wpaCliOK(args...)
}

// EnableBackgroundScan toggles the supplicant's preferred-network offload.
// The settings argument is accepted for interface parity, the network list
// is programmed separately through SetNetworkVariable.
func (r *Radio) EnableBackgroundScan(enable bool, settings *scan_scheduler.PnoSettings) bool {
	value := "0"
	if enable {
		value = "1"
	}
	return r.wpaCliOK("set", "pno", value)
}

// GetScanResults dumps and parses the kernel's scan cache for the
// interface.
func (r *Radio) GetScanResults() []scan_scheduler.ScanResult {
	cmd := exec.Command("iw", "dev", r.ifaceName, "scan", "dump")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		logger.WithFields(logrus.Fields{
			"interface": r.ifaceName,
			"error":     err,
			"stderr":    stderr.String(),
		}).Error("Failed to dump scan results")
		return nil
	}

	results, err := parseScanDump(stdout.Bytes())
	if err != nil {
		logger.WithError(err).Warn("Failed to parse scan dump")
		return nil
	}
	return results
}

func (r *Radio) wpaCli(args ...string) (string, error) {
	cmdArgs := append([]string{"-i", r.ifaceName}, args...)
	cmd := exec.Command("wpa_cli", cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("wpa_cli %s: %w (%s)", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *Radio) wpaCliOK(args ...string) bool {
	out, err := r.wpaCli(args...)
	if err != nil {
		logger.WithError(err).Debug("wpa_cli command failed")
		return false
	}
	if out != "OK" {
		logger.WithFields(logrus.Fields{
			"command": args[0],
			"reply":   out,
		}).Debug("wpa_cli command rejected")
		return false
	}
	return true
}

func formatFrequencyList(frequencies map[int]struct{}) string {
	parts := make([]string, 0, len(frequencies))
	for _, frequency := range sortedIDs(frequencies) {
		parts = append(parts, strconv.Itoa(frequency))
	}
	return strings.Join(parts, ",")
}

func sortedIDs(set map[int]struct{}) []int {
	values := make([]int, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Ints(values)
	return values
}

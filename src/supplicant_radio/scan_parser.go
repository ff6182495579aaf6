// Package supplicant_radio implements parsing of iw scan dumps.
package supplicant_radio

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/OpenScanMux/scanmux-module-go/src/scan_scheduler"
)

var (
	bssRegex    = regexp.MustCompile(`^BSS ([0-9a-fA-F:]{17})`)
	ouiHexRegex = regexp.MustCompile(`OUI ([0-9a-fA-F]{1,2}(?::[0-9a-fA-F]{1,2}){2})`)
)

// parseScanDump converts `iw dev <iface> scan dump` output into per-AP
// records. Blocks without an SSID are skipped.
func parseScanDump(output []byte) ([]scan_scheduler.ScanResult, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	var results []scan_scheduler.ScanResult
	var current *scan_scheduler.ScanResult

	flush := func() {
		if current != nil && current.SSID != "" {
			if current.Capabilities == "" {
				current.Capabilities = "Open"
			}
			results = append(results, *current)
		}
		current = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if matches := bssRegex.FindStringSubmatch(line); len(matches) > 1 {
			flush()
			current = &scan_scheduler.ScanResult{BSSID: matches[1]}
			continue
		}
		if current == nil {
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "SSID:"):
			current.SSID = strings.TrimSpace(strings.TrimPrefix(trimmed, "SSID:"))
		case strings.HasPrefix(trimmed, "freq:"):
			value := strings.TrimSpace(strings.TrimPrefix(trimmed, "freq:"))
			// Newer iw prints fractional MHz, e.g. "2412.0".
			if frequency, err := strconv.ParseFloat(value, 64); err == nil {
				current.FrequencyMHz = int(frequency)
			}
		case strings.HasPrefix(trimmed, "signal:"):
			value := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(trimmed, "signal:")), " dBm")
			if signal, err := strconv.ParseFloat(value, 64); err == nil {
				current.SignalDBm = int(signal)
			}
		case strings.HasPrefix(trimmed, "RSN:"), strings.HasPrefix(trimmed, "WPA:"):
			current.Capabilities = "WPA/WPA2"
		case strings.HasPrefix(trimmed, "Vendor specific:"):
			if element, ok := parseVendorLine(trimmed); ok {
				current.VendorElements = append(current.VendorElements, element)
			}
		}
	}

	flush()
	return results, scanner.Err()
}

// parseVendorLine rebuilds the raw vendor information element from a line
// like "Vendor specific: OUI 21:21:21, data: 01 7b 7d".
func parseVendorLine(line string) (string, bool) {
	matches := ouiHexRegex.FindStringSubmatch(line)
	if len(matches) < 2 {
		return "", false
	}
	var body []byte
	for _, octet := range strings.Split(matches[1], ":") {
		b, err := strconv.ParseUint(octet, 16, 8)
		if err != nil {
			return "", false
		}
		body = append(body, byte(b))
	}

	if idx := strings.Index(line, "data:"); idx >= 0 {
		for _, field := range strings.Fields(line[idx+len("data:"):]) {
			b, err := strconv.ParseUint(field, 16, 8)
			if err != nil {
				return "", false
			}
			body = append(body, byte(b))
		}
	}
	if len(body) > 255 {
		return "", false
	}

	element := append([]byte{0xdd, byte(len(body))}, body...)
	return hex.EncodeToString(element), true
}

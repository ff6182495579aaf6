package supplicant_radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenScanMux/scanmux-module-go/src/vendor_data"
)

const sampleScanDump = `BSS 00:11:22:33:44:55(on wlan0)
	TSF: 123456789 usec
	freq: 2412
	signal: -45.00 dBm
	SSID: home_network
	RSN:	 * Version: 1
		 * Group cipher: CCMP
BSS 66:77:88:99:aa:bb(on wlan0)
	freq: 5180.0
	signal: -67.50 dBm
	SSID: office_5g
	Vendor specific: OUI 21:21:21, data: 01 7b 22 6b 22 3a 22 76 22 7d
BSS cc:dd:ee:ff:00:11(on wlan0)
	freq: 2437
	signal: -80.00 dBm
	SSID: open_ap
BSS aa:aa:aa:aa:aa:aa(on wlan0)
	freq: 2462
	signal: -90.00 dBm
`

func TestParseScanDump(t *testing.T) {
	results, err := parseScanDump([]byte(sampleScanDump))
	require.NoError(t, err)
	require.Len(t, results, 3) // the SSID-less block is skipped

	assert.Equal(t, "home_network", results[0].SSID)
	assert.Equal(t, "00:11:22:33:44:55", results[0].BSSID)
	assert.Equal(t, 2412, results[0].FrequencyMHz)
	assert.Equal(t, -45, results[0].SignalDBm)
	assert.Equal(t, "WPA/WPA2", results[0].Capabilities)

	assert.Equal(t, "office_5g", results[1].SSID)
	assert.Equal(t, 5180, results[1].FrequencyMHz)
	assert.Equal(t, -67, results[1].SignalDBm)
	assert.Equal(t, "Open", results[1].Capabilities)

	assert.Equal(t, "open_ap", results[2].SSID)
	assert.Equal(t, "Open", results[2].Capabilities)
}

func TestParseScanDumpVendorElements(t *testing.T) {
	results, err := parseScanDump([]byte(sampleScanDump))
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.Len(t, results[1].VendorElements, 1)
	records := vendor_data.FromElements(results[1].VendorElements)
	require.Len(t, records, 1)
	assert.Equal(t, uint32(0x212121), records[0].OUI)
	assert.Equal(t, map[string]string{"k": "v"}, records[0].Fields)
}

func TestParseScanDumpEmpty(t *testing.T) {
	results, err := parseScanDump(nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// Package scan_scheduler defines types for multiplexing PNO and ad-hoc
// scans onto a single radio interface.
package scan_scheduler

// PriorityVarName is the supplicant network variable carrying a PNO
// network's priority.
const PriorityVarName = "priority"

// Band masks accepted by ScanBucket and ChannelCollection.AddBand.
const (
	BandUnspecified = 0
	Band24GHz       = 1
	Band5GHz        = 2
	BandBoth        = Band24GHz | Band5GHz
	Band5GHzDFSOnly = 4
	Band5GHzWithDFS = Band5GHz | Band5GHzDFSOnly
	BandBothWithDFS = BandBoth | Band5GHzDFSOnly
)

// Report policies for a scan bucket.
const (
	ReportEventAfterBufferFull = 0
	ReportEventAfterEachScan   = 1
	ReportEventFullScanResult  = 2
)

// ScanStatus is the status code delivered to a ScanEventHandler.
type ScanStatus int

const (
	ScanResultsAvailable ScanStatus = iota
	ScanFailed
)

// PnoNetwork describes a single preferred network. Immutable once
// submitted for a PNO session.
type PnoNetwork struct {
	SSID      string `json:"ssid"`
	NetworkID int    `json:"network_id"`
	Priority  int    `json:"priority"`
}

// PnoSettings describes a PNO session request. IsConnected selects
// connected vs disconnected PNO semantics.
type PnoSettings struct {
	IsConnected bool         `json:"is_connected"`
	NetworkList []PnoNetwork `json:"network_list"`
}

// ScanBucket is one band/channel group within a scan request. An explicit
// channel list takes precedence over the band mask.
type ScanBucket struct {
	Band         int   `json:"band"`
	Channels     []int `json:"channels,omitempty"`
	PeriodMs     int   `json:"period_ms"`
	ReportEvents int   `json:"report_events"`
}

// ScanSettings describes a single or batched scan request.
type ScanSettings struct {
	BasePeriodMs     int          `json:"base_period_ms"`
	MaxApPerScan     int          `json:"max_ap_per_scan"`
	HiddenNetworkIDs []int        `json:"hidden_network_ids,omitempty"`
	Buckets          []ScanBucket `json:"buckets"`
}

// ScanResult is one raw per-AP scan detail record as reported by the radio.
type ScanResult struct {
	SSID           string   `json:"ssid"`
	BSSID          string   `json:"bssid"`
	FrequencyMHz   int      `json:"frequency_mhz"`
	SignalDBm      int      `json:"signal_dbm"`
	Capabilities   string   `json:"capabilities"`
	VendorElements []string `json:"vendor_elements,omitempty"`
}

// ScanData is the aggregate snapshot derived from one scan cycle.
type ScanData struct {
	Timestamp int64        `json:"timestamp"`
	Results   []ScanResult `json:"results"`
}

// State is the scheduler's current mode.
type State int

const (
	StateIdle State = iota
	StateHwPnoActive
	StateHwPnoPaused
	StateAdHocScanActive
	StateSwPnoActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHwPnoActive:
		return "hw_pno_active"
	case StateHwPnoPaused:
		return "hw_pno_paused"
	case StateAdHocScanActive:
		return "adhoc_scan_active"
	case StateSwPnoActive:
		return "sw_pno_active"
	default:
		return "unknown"
	}
}

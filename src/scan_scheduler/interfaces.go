// Package scan_scheduler defines interfaces for dependency injection.
package scan_scheduler

// RadioInterface is the command surface of the physical radio. All methods
// return whether the command was accepted; results arrive later through the
// event dispatcher.
type RadioInterface interface {
	GetInterfaceName() string
	SetNetworkVariable(networkID int, name, value string) bool
	EnableNetworkWithoutConnect(networkID int) bool
	Scan(frequencies map[int]struct{}, hiddenNetworkIDs map[int]struct{}) bool
	EnableBackgroundScan(enable bool, settings *PnoSettings) bool
	GetScanResults() []ScanResult
}

// PnoEventHandler receives results of a PNO session.
type PnoEventHandler interface {
	OnPnoNetworkFound(results []ScanResult)
}

// ScanEventHandler receives status updates for an ad-hoc scan session.
type ScanEventHandler interface {
	OnScanStatus(status ScanStatus)
}

// ChannelCollection accumulates bands and channels and resolves them to a
// concrete frequency set.
type ChannelCollection interface {
	AddBand(band int)
	AddChannel(frequencyMHz int)
	GetScanFrequencies() map[int]struct{}
}

// ChannelHelper creates channel collections for the radio's supported
// channel plan.
type ChannelHelper interface {
	CreateChannelCollection() ChannelCollection
}

package scan_scheduler

// CapabilityResolver decides whether hardware-offloaded PNO can serve a
// request. The hardware support flag comes from configuration at
// construction time.
type CapabilityResolver struct {
	hwPnoSupported bool
}

// NewCapabilityResolver creates a resolver for the configured hardware
// background-scan capability.
func NewCapabilityResolver(hwPnoSupported bool) *CapabilityResolver {
	return &CapabilityResolver{hwPnoSupported: hwPnoSupported}
}

// IsHwPnoSupported reports whether hardware PNO is eligible for a request
// with the given connection state. Connected PNO is always serviced in
// software, hardware offload targets the disconnected-roaming case only.
func (r *CapabilityResolver) IsHwPnoSupported(isConnected bool) bool {
	return r.hwPnoSupported && !isConnected
}

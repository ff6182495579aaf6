package scan_scheduler

import (
	"sync"
)

// EventKind identifies an asynchronous radio notification.
type EventKind int

const (
	EventScanResultsAvailable EventKind = iota
	EventScanFailed
)

func (k EventKind) String() string {
	switch k {
	case EventScanResultsAvailable:
		return "scan_results_available"
	case EventScanFailed:
		return "scan_failed"
	default:
		return "unknown"
	}
}

// EventDispatcher bridges asynchronous scan notifications, keyed by radio
// interface name, into scheduler completion handling. Delivery is
// synchronous and serialized: a notification is fully handled before the
// next one is admitted, so two completion handlings never interleave.
type EventDispatcher struct {
	mu       sync.Mutex
	handlers map[string]func(EventKind)
}

// NewEventDispatcher creates an empty dispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[string]func(EventKind)),
	}
}

// Register installs the completion handler for an interface, replacing any
// previous registration.
func (d *EventDispatcher) Register(ifaceName string, handler func(EventKind)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[ifaceName] = handler
}

// Unregister removes the handler for an interface.
func (d *EventDispatcher) Unregister(ifaceName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, ifaceName)
}

// Notify delivers an event to the handler registered for the interface.
// Events for unknown interfaces are dropped silently, a session may have
// been stopped between command issuance and event delivery.
func (d *EventDispatcher) Notify(ifaceName string, event EventKind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	handler, ok := d.handlers[ifaceName]
	if !ok {
		logger.WithField("interface", ifaceName).Debug("Dropping event for unregistered interface")
		return
	}
	handler(event)
}

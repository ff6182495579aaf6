// Package wifi_monitor watches a wireless interface and forwards scan
// completion notifications to the event dispatcher.
package wifi_monitor

import (
	"github.com/sirupsen/logrus"

	"github.com/OpenScanMux/scanmux-module-go/src/scan_scheduler"
)

// Module-level logger with pre-configured module field
var logger = logrus.WithField("module", "wifi_monitor")

// Notifier receives scan events keyed by interface name. Satisfied by
// scan_scheduler.EventDispatcher.
type Notifier interface {
	Notify(ifaceName string, event scan_scheduler.EventKind)
}

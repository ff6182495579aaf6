package scan_scheduler

import (
	"github.com/sirupsen/logrus"
)

// Module-level logger with pre-configured module field
var logger = logrus.WithField("module", "scan_scheduler")

// GetLogger returns a logger instance for the scan_scheduler module
func GetLogger() *logrus.Entry {
	return logger
}

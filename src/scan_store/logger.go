package scan_store

import (
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("module", "scan_store")

// GetLogger returns the module logger.
func GetLogger() *logrus.Entry {
	return logger
}

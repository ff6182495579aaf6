package telemetry

import (
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("module", "telemetry")

// GetLogger returns the module logger.
func GetLogger() *logrus.Entry {
	return logger
}

package config_manager

import (
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("module", "config_manager")

// GetLogger returns the module logger.
func GetLogger() *logrus.Entry {
	return logger
}

// Package gormlog routes gorm's SQL logger through logrus.
package gormlog

import (
	"time"

	"github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

func New(log logrus.FieldLogger) gormlogger.Interface {
	return gormlogger.New(
		writer{log: log},
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

type writer struct {
	log logrus.FieldLogger
}

func (w writer) Printf(format string, args ...interface{}) {
	w.log.WithField("component", "gorm").Warnf(format, args...)
}

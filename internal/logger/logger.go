// Package logger provides a small named-logger facade used across the
// registry and connection worker so call sites read the same way the
// reference client's per-torrent and per-peer loggers do.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the interface components depend on. It is satisfied by *logrus.Entry.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Debugln(args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Infoln(args ...interface{})
	Warning(args ...interface{})
	Warningf(format string, args ...interface{})
	Warningln(args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Errorln(args ...interface{})
}

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	return l
}

// SetLevel adjusts the verbosity of every logger returned by New.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(lvl)
	return nil
}

// New returns a Logger tagged with name, e.g. "registry" or "peer <- 1.2.3.4:6881".
func New(name string) Logger {
	return base.WithField("component", name)
}

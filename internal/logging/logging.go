// Package logging provides the package-wide structured logger: a
// single process-wide logger the rest of the module calls through a
// small package-level surface rather than threading a logger value
// everywhere.
package logging

import "go.uber.org/zap"

var log = newDefault()

func newDefault() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar()
}

// SetLogger replaces the package-wide logger, for embedders that want
// their own zap configuration (e.g. development mode in tests).
func SetLogger(l *zap.SugaredLogger) {
	log = l
}

// Warnf logs a warning-level message.
func Warnf(format string, args ...any) {
	log.Warnf(format, args...)
}

// Infof logs an info-level message.
func Infof(format string, args ...any) {
	log.Infof(format, args...)
}

// Errorf logs an error-level message.
func Errorf(format string, args ...any) {
	log.Errorf(format, args...)
}

// Package logrus adapts sirupsen/logrus to the engine's Logger contract,
// for callers already standardized on logrus.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/backtune/backtune/core"
)

// Adapter implements core.Logger on top of a logrus entry.
type Adapter struct {
	entry *logrus.Entry
}

func NewAdapter(logger *logrus.Logger) *Adapter {
	return &Adapter{entry: logrus.NewEntry(logger)}
}

// WithField implements core.Logger.
func (a *Adapter) WithField(key string, value any) core.Logger {
	return &Adapter{entry: a.entry.WithField(key, value)}
}

// WithFields implements core.Logger.
func (a *Adapter) WithFields(fields map[string]any) core.Logger {
	return &Adapter{entry: a.entry.WithFields(fields)}
}

// WithError implements core.Logger.
func (a *Adapter) WithError(err error) core.Logger {
	return &Adapter{entry: a.entry.WithError(err)}
}

func (a *Adapter) Debug(args ...any) { a.entry.Debug(args...) }
func (a *Adapter) Info(args ...any)  { a.entry.Info(args...) }
func (a *Adapter) Warn(args ...any)  { a.entry.Warn(args...) }
func (a *Adapter) Error(args ...any) { a.entry.Error(args...) }
func (a *Adapter) Fatal(args ...any) { a.entry.Fatal(args...) }

func (a *Adapter) Debugf(format string, args ...any) { a.entry.Debugf(format, args...) }
func (a *Adapter) Infof(format string, args ...any)  { a.entry.Infof(format, args...) }
func (a *Adapter) Warnf(format string, args ...any)  { a.entry.Warnf(format, args...) }
func (a *Adapter) Errorf(format string, args ...any) { a.entry.Errorf(format, args...) }
func (a *Adapter) Fatalf(format string, args ...any) { a.entry.Fatalf(format, args...) }

// SetLevel implements core.Logger.
func (a *Adapter) SetLevel(level core.Level) {
	a.entry.Logger.SetLevel(toLogrusLevel(level))
}

// GetLevel implements core.Logger.
func (a *Adapter) GetLevel() core.Level {
	switch a.entry.Logger.GetLevel() {
	case logrus.TraceLevel:
		return core.TraceLevel
	case logrus.DebugLevel:
		return core.DebugLevel
	case logrus.InfoLevel:
		return core.InfoLevel
	case logrus.WarnLevel:
		return core.WarnLevel
	case logrus.ErrorLevel:
		return core.ErrorLevel
	case logrus.FatalLevel, logrus.PanicLevel:
		return core.FatalLevel
	default:
		return core.NoLevel
	}
}

func toLogrusLevel(level core.Level) logrus.Level {
	switch level {
	case core.TraceLevel:
		return logrus.TraceLevel
	case core.DebugLevel:
		return logrus.DebugLevel
	case core.InfoLevel:
		return logrus.InfoLevel
	case core.WarnLevel:
		return logrus.WarnLevel
	case core.ErrorLevel:
		return logrus.ErrorLevel
	case core.FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

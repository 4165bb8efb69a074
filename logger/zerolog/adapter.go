package zerolog

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/backtune/backtune/core"
)

// Adapter implements core.Logger on top of a zerolog.Logger.
type Adapter struct {
	*zerolog.Logger
}

func NewAdapter(logger *zerolog.Logger) *Adapter {
	return &Adapter{logger}
}

// WithField implements core.Logger.
func (z *Adapter) WithField(key string, value any) core.Logger {
	l := z.With().Interface(key, value).Logger()
	return &Adapter{&l}
}

// WithFields implements core.Logger.
func (z *Adapter) WithFields(fields map[string]any) core.Logger {
	l := z.With().Fields(fields).Logger()
	return &Adapter{&l}
}

// WithError implements core.Logger.
func (z *Adapter) WithError(err error) core.Logger {
	l := z.With().Err(err).Logger()
	return &Adapter{&l}
}

func (z *Adapter) Debug(args ...any) { z.Logger.Debug().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Info(args ...any)  { z.Logger.Info().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Warn(args ...any)  { z.Logger.Warn().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Error(args ...any) { z.Logger.Error().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Fatal(args ...any) { z.Logger.Fatal().Msg(fmt.Sprint(args...)) }

func (z *Adapter) Debugf(format string, args ...any) { z.Logger.Debug().Msgf(format, args...) }
func (z *Adapter) Infof(format string, args ...any)  { z.Logger.Info().Msgf(format, args...) }
func (z *Adapter) Warnf(format string, args ...any)  { z.Logger.Warn().Msgf(format, args...) }
func (z *Adapter) Errorf(format string, args ...any) { z.Logger.Error().Msgf(format, args...) }
func (z *Adapter) Fatalf(format string, args ...any) { z.Logger.Fatal().Msgf(format, args...) }

// SetLevel implements core.Logger.
func (z *Adapter) SetLevel(level core.Level) {
	zerolog.SetGlobalLevel(toZerologLevel(level))
}

// GetLevel implements core.Logger.
func (z *Adapter) GetLevel() core.Level {
	return toLevel(z.Logger.GetLevel())
}

func toLevel(level zerolog.Level) core.Level {
	switch level {
	case zerolog.Disabled:
		return core.Disabled
	case zerolog.TraceLevel:
		return core.TraceLevel
	case zerolog.DebugLevel:
		return core.DebugLevel
	case zerolog.InfoLevel:
		return core.InfoLevel
	case zerolog.WarnLevel:
		return core.WarnLevel
	case zerolog.ErrorLevel:
		return core.ErrorLevel
	case zerolog.FatalLevel:
		return core.FatalLevel
	default:
		return core.NoLevel
	}
}

func toZerologLevel(level core.Level) zerolog.Level {
	switch level {
	case core.Disabled:
		return zerolog.Disabled
	case core.TraceLevel:
		return zerolog.TraceLevel
	case core.DebugLevel:
		return zerolog.DebugLevel
	case core.InfoLevel:
		return zerolog.InfoLevel
	case core.WarnLevel:
		return zerolog.WarnLevel
	case core.ErrorLevel:
		return zerolog.ErrorLevel
	case core.FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.NoLevel
	}
}

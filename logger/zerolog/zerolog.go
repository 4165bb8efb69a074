// Package zerolog adapts rs/zerolog to the engine's Logger contract.
package zerolog

import (
	"fmt"
	"os"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Logger struct {
	*zerolog.Logger
}

// New builds a console zerolog logger. With jsonFormat the output is raw
// JSON lines; otherwise a colored (or plain) console writer is used.
func New(level, timeFormat string, colored, jsonFormat bool) (*Logger, error) {
	logMode, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(logMode)

	if jsonFormat {
		logger := log.Output(os.Stdout)
		return &Logger{&logger}, nil
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		NoColor:    !colored,
		TimeFormat: timeFormat,
	}
	if colored {
		output.FormatLevel = formatLevel
	}

	logger := log.Output(output)
	return &Logger{&logger}, nil
}

func formatLevel(i interface{}) string {
	levelStr, ok := i.(string)
	if !ok {
		return "[???]"
	}

	switch levelStr {
	case zerolog.LevelTraceValue, zerolog.LevelDebugValue:
		return term.Cyanf("[DBG]")
	case zerolog.LevelInfoValue:
		return term.Greenf("[INF]")
	case zerolog.LevelWarnValue:
		return term.Yellowf("[WAR]")
	case zerolog.LevelErrorValue, zerolog.LevelFatalValue, zerolog.LevelPanicValue:
		return term.Redf("[ERR]")
	default:
		return fmt.Sprintf("[%s]", levelStr)
	}
}

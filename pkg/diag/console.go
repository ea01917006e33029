package diag

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Console is a zerolog-backed sink for interactive sessions.
type Console struct {
	logger zerolog.Logger
}

// NewConsole builds a console sink writing human-readable lines to stdout at
// the given level.
func NewConsole(level zerolog.Level) *Console {
	writer := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}
	return NewSink(writer, level)
}

// NewSink builds a sink writing structured events to an arbitrary writer.
func NewSink(w io.Writer, level zerolog.Level) *Console {
	logger := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
	return &Console{logger: logger}
}

func (c *Console) Info(component, message string, fields Fields) {
	c.emit(c.logger.Info(), component, message, fields)
}

func (c *Console) Warn(component, message string, fields Fields) {
	c.emit(c.logger.Warn(), component, message, fields)
}

func (c *Console) Error(component string, err error, fields Fields) {
	c.emit(c.logger.Error().Err(err), component, "operation failed", fields)
}

func (c *Console) emit(event *zerolog.Event, component, message string, fields Fields) {
	event = event.Str("component", component)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(message)
}

package diag

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"fiberkernel/handle"
)

// Log is structured lifecycle/error logging, generalized from the
// teacher's plain log.Printf call sites at every lifecycle transition
// (server start/stop, checkpoint begin/end, shutdown, panic) into
// zerolog fields a host can actually filter and ship.
type Log struct {
	logger zerolog.Logger
}

// NewLog returns a Log writing to w (os.Stderr if nil) at the given
// minimum level.
func NewLog(w io.Writer, level zerolog.Level) *Log {
	if w == nil {
		w = os.Stderr
	}
	return &Log{logger: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

func (l *Log) ServiceStarted(serviceID string, mode string) {
	l.logger.Info().Str("service", serviceID).Str("mode", mode).Msg("service started")
}

func (l *Log) ServiceStopped(serviceID string) {
	l.logger.Info().Str("service", serviceID).Msg("service stopped")
}

func (l *Log) FiberFailed(serviceID, fiberID string, exc *handle.Exception) {
	ev := l.logger.Warn().Str("service", serviceID).Str("fiber", fiberID)
	if exc != nil {
		ev = ev.Str("code", exc.Code.String())
	}
	ev.Msg("fiber terminated with an unhandled exception")
}

func (l *Log) ContainerShuttingDown() {
	l.logger.Info().Msg("container shutting down")
}

func (l *Log) ContainerShutdownComplete() {
	l.logger.Info().Msg("container shutdown complete")
}

func (l *Log) Panic(message string) {
	l.logger.Error().Msg("panic: " + message)
}

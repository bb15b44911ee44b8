package rtc

import (
	"github.com/pion/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// zerologFactory routes pion's scoped loggers into the global zerolog logger.
type zerologFactory struct {
	level zerolog.Level
}

// NewLoggerFactory returns a pion LoggerFactory writing through zerolog. Pion is chatty,
// so messages below minLevel are discarded on top of the global zerolog level.
func NewLoggerFactory(minLevel zerolog.Level) logging.LoggerFactory {
	return &zerologFactory{level: minLevel}
}

func (f *zerologFactory) NewLogger(scope string) logging.LeveledLogger {
	return &zerologLogger{
		logger: log.Logger.With().Str("module", "pion").Str("scope", scope).Logger().Level(f.level),
	}
}

type zerologLogger struct {
	logger zerolog.Logger
}

func (l *zerologLogger) Trace(msg string) { l.logger.Trace().Msg(msg) }
func (l *zerologLogger) Tracef(format string, args ...any) {
	l.logger.Trace().Msgf(format, args...)
}
func (l *zerologLogger) Debug(msg string) { l.logger.Debug().Msg(msg) }
func (l *zerologLogger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}
func (l *zerologLogger) Info(msg string) { l.logger.Info().Msg(msg) }
func (l *zerologLogger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}
func (l *zerologLogger) Warn(msg string) { l.logger.Warn().Msg(msg) }
func (l *zerologLogger) Warnf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}
func (l *zerologLogger) Error(msg string) { l.logger.Error().Msg(msg) }
func (l *zerologLogger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(format, args...)
}

package build

import (
	"github.com/phuslu/log"
)

// Logger is the diagnostics sink plugins write to.
type Logger interface {
	Log(msg string)
	LogWarning(msg string)
	LogDebug(msg string)
}

type buildLogger struct {
	logger  *log.Logger
	buildID string
}

// NewLogger adapts a phuslu logger to Logger, tagging entries with the build id.
func NewLogger(logger *log.Logger, buildID string) Logger {
	return &buildLogger{logger: logger, buildID: buildID}
}

func (l *buildLogger) Log(msg string) {
	l.logger.Info().Str("build", l.buildID).Msg(msg)
}

func (l *buildLogger) LogWarning(msg string) {
	l.logger.Warn().Str("build", l.buildID).Msg(msg)
}

func (l *buildLogger) LogDebug(msg string) {
	l.logger.Debug().Str("build", l.buildID).Msg(msg)
}

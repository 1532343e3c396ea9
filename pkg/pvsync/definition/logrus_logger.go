package definition

import "github.com/sirupsen/logrus"

// LogrusLogger adapts a *logrus.Logger to the pvsync Logger interface, for
// deployments that want structured, leveled log output instead of
// DefaultLogger's plain stderr lines.
type LogrusLogger struct {
	entry *logrus.Logger
	debug bool
}

// NewLogrusLogger wraps l. If l is nil, logrus.StandardLogger() is used.
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogrusLogger{entry: l}
}

func (l *LogrusLogger) Info(v ...interface{})                 { l.entry.Info(v...) }
func (l *LogrusLogger) Infof(format string, v ...interface{}) { l.entry.Infof(format, v...) }
func (l *LogrusLogger) Warn(v ...interface{})                 { l.entry.Warn(v...) }
func (l *LogrusLogger) Warnf(format string, v ...interface{}) { l.entry.Warnf(format, v...) }
func (l *LogrusLogger) Error(v ...interface{})                { l.entry.Error(v...) }
func (l *LogrusLogger) Errorf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

func (l *LogrusLogger) Debug(v ...interface{}) {
	if l.debug {
		l.entry.Debug(v...)
	}
}

func (l *LogrusLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.entry.Debugf(format, v...)
	}
}

// ToggleDebug mirrors DefaultLogger's semantics: it gates Debug/Debugf in
// this adapter rather than changing the wrapped logrus.Logger's level, so
// multiple LogrusLogger adapters sharing one *logrus.Logger can have
// independent debug toggles. Debug output still appears only if the wrapped
// logger's level is logrus.DebugLevel or lower; logrus.StandardLogger()
// defaults to InfoLevel.
func (l *LogrusLogger) ToggleDebug(value bool) bool {
	l.debug = value
	return l.debug
}

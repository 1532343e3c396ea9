package types

// Logger is the leveled logging surface used throughout pvsync, kept narrow
// enough that either a stdlib-backed or a logrus-backed implementation can be
// swapped in without touching call sites.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	ToggleDebug(value bool) bool
}

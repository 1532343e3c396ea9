package definition

import "testing"

func TestDefaultLogger_DebugRespectsToggle(t *testing.T) {
	l := NewDefaultLogger()
	if l.ToggleDebug(true) != true {
		t.Errorf("expected ToggleDebug(true) to return true")
	}
	if l.ToggleDebug(false) != false {
		t.Errorf("expected ToggleDebug(false) to return false")
	}
}

func TestLogrusLogger_DefaultsToStandardLogger(t *testing.T) {
	l := NewLogrusLogger(nil)
	if l.entry == nil {
		t.Fatalf("expected a non-nil wrapped logger")
	}
	l.Info("hello")
	l.Debug("suppressed by default")
	l.ToggleDebug(true)
	l.Debug("passed to logrus once toggled")
}

package debug

import "testing"

func TestWarnOnce_OnlyFirstCallLogs(t *testing.T) {
	if !WarnOnce("test-key", "first") {
		t.Fatalf("first call should log")
	}
	if WarnOnce("test-key", "second") {
		t.Fatalf("second call should be suppressed")
	}
}

func TestAssert_PassingConditionNeverPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	Assert(true, "never")
}

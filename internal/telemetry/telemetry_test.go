package telemetry

import "testing"

func TestSessionSetTargetRoundTrip(t *testing.T) {
	s := NewSession("emulator-5554")
	s.SetPIDs(map[string]struct{}{"100": {}})
	s.SetTarget("com.example.app")
	s.SetRunning(true)
	s.SetRunning(false)

	if s.IsRunning() {
		t.Fatal("expected running=false after stop")
	}
	if s.Target() != "com.example.app" {
		t.Fatalf("target mismatch: %q", s.Target())
	}
}

func TestSessionPIDsReturnsCopy(t *testing.T) {
	s := NewSession("emulator-5554")
	s.SetPIDs(map[string]struct{}{"1": {}})
	got := s.PIDs()
	got["2"] = struct{}{}
	if _, ok := s.PIDs()["2"]; ok {
		t.Fatal("PIDs() must return a defensive copy")
	}
}

func TestNewLogTagsType(t *testing.T) {
	evt := NewLog("sess-1", LogEvent{Level: LevelError, Message: "boom"})
	if evt.Log.Type != "log" {
		t.Fatalf("want type=log, got %q", evt.Log.Type)
	}
}

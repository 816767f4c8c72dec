package orchestrator

import (
	"testing"

	"veloperfd/internal/telemetry"
)

func TestSetTargetClearsPerTargetState(t *testing.T) {
	session := telemetry.NewSession("emulator-5554")
	session.SetPIDs(map[string]struct{}{"123": {}})

	o := New(session, nil, telemetry.SinkFunc(func(telemetry.Event) {}), nil, "/shots")
	o.SetTarget("com.example.app")

	if len(session.PIDs()) != 0 {
		t.Fatal("SetTarget must clear the cached PID set")
	}
	if session.Target() != "com.example.app" {
		t.Fatalf("target not set, got %q", session.Target())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	session := telemetry.NewSession("emulator-5554")
	o := New(session, nil, telemetry.SinkFunc(func(telemetry.Event) {}), nil, "/shots")
	o.Stop()
	o.Stop()
	if session.IsRunning() {
		t.Fatal("session must not be running after Stop")
	}
}

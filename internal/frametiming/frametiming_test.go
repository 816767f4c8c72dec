package frametiming

import (
	"context"
	"testing"

	"veloperfd/internal/shellchan"
)

type transportLostChannel struct{}

func (transportLostChannel) Run(ctx context.Context, cmd string) (string, error) {
	return "", shellchan.ErrTransportLost
}
func (transportLostChannel) Stream(ctx context.Context, argv []string) (shellchan.LineIterator, error) {
	return nil, shellchan.ErrTransportLost
}
func (transportLostChannel) Probe(ctx context.Context) error     { return shellchan.ErrTransportLost }
func (transportLostChannel) Reconnect(ctx context.Context) error { return nil }
func (transportLostChannel) Serial() string                      { return "emulator-5554" }

// fixedLatencyChannel answers every command with the same latency dump.
type fixedLatencyChannel struct{ out string }

func (f fixedLatencyChannel) Run(ctx context.Context, cmd string) (string, error) { return f.out, nil }
func (f fixedLatencyChannel) Stream(ctx context.Context, argv []string) (shellchan.LineIterator, error) {
	return nil, nil
}
func (f fixedLatencyChannel) Probe(ctx context.Context) error     { return nil }
func (f fixedLatencyChannel) Reconnect(ctx context.Context) error { return nil }
func (f fixedLatencyChannel) Serial() string                      { return "emulator-5554" }

func TestComputeClearsLayerOnTransportLostDuringLatencyRead(t *testing.T) {
	e := New()
	e.layer = "com.example.app/MainActivity#123"

	_, err := e.Compute(context.Background(), transportLostChannel{}, "com.example.app")
	if err == nil {
		t.Fatal("want transport-lost error")
	}
	if e.layer != "" {
		t.Fatalf("want cached layer cleared on transport loss, got %q", e.layer)
	}
}

func TestComputeClearsLayerOnTransportLostDuringLayerDiscovery(t *testing.T) {
	e := New()
	e.layer = "" // forces a rescan through findActiveLayer

	_, err := e.Compute(context.Background(), transportLostChannel{}, "com.example.app")
	if err == nil {
		t.Fatal("want transport-lost error")
	}
	if e.layer != "" {
		t.Fatalf("want layer left cleared on transport loss, got %q", e.layer)
	}
}

func TestParseRefreshPeriodDefaultsOnGarbage(t *testing.T) {
	if got := parseRefreshPeriod("not-a-number"); got != defaultRefreshPeriodNs {
		t.Fatalf("want default, got %d", got)
	}
	if got := parseRefreshPeriod("-5"); got != defaultRefreshPeriodNs {
		t.Fatalf("want default for non-positive, got %d", got)
	}
	if got := parseRefreshPeriod("16666666"); got != 16666666 {
		t.Fatalf("want 16666666, got %d", got)
	}
}

func TestParsePresentTimesSkipsPendingAndUnsubmitted(t *testing.T) {
	lines := []string{
		"100 200 9223372036854775807", // pending
		"100 200 0",                   // unsubmitted
		"100 200 300",
		"bad row",
	}
	got := parsePresentTimes(lines)
	if len(got) != 1 || got[0] != 300 {
		t.Fatalf("got %v", got)
	}
}

func TestJankAndStutterExampleFromSpec(t *testing.T) {
	// refresh period 16,666,666ns; deltas [16000000, 40000000, 16000000]
	// -> frames at t0, t0+16000000, t0+56000000, t0+72000000
	window := []int64{0, 16_000_000, 56_000_000, 72_000_000}
	jank, stutter := jankAndStutter(window, 16_666_666)
	if jank != 1 {
		t.Fatalf("want jank=1, got %d", jank)
	}
	if stutter != 32.4 {
		t.Fatalf("want stutter=32.4, got %v", stutter)
	}
}

func TestJankAndStutterZeroWhenNoDuration(t *testing.T) {
	jank, stutter := jankAndStutter([]int64{42}, 16_666_666)
	if jank != 0 || stutter != 0 {
		t.Fatalf("want zeros for single-frame window, got jank=%d stutter=%v", jank, stutter)
	}
}

func TestOneSecondWindow(t *testing.T) {
	ts := []int64{0, 200_000_000, 1_500_000_000, 1_600_000_000, 1_700_000_000}
	last := ts[len(ts)-1]
	window := oneSecondWindow(ts, last)
	want := []int64{1_500_000_000, 1_600_000_000, 1_700_000_000}
	if len(window) != len(want) {
		t.Fatalf("got %v", window)
	}
	for i := range want {
		if window[i] != want[i] {
			t.Fatalf("got %v want %v", window, want)
		}
	}
}

func TestExtractRequestedLayerNamePrefersHashToken(t *testing.T) {
	line := `RequestedLayerState{com.example.app/MainActivity#123 parentId=1 otherStuff}`
	got := extractRequestedLayerName(line)
	if got != "com.example.app/MainActivity#123" {
		t.Fatalf("got %q", got)
	}
}

func TestStaleRenderingEmitsZerosAndIncrementsStreak(t *testing.T) {
	e := New()
	e.layer = "com.example.app/MainActivity#123"
	e.haveLastSeen = true
	e.lastSeenFrameNs = 1000
	e.zeroFPSStreak = 0

	// the newest present-time in the dump equals the last-seen value.
	ch := fixedLatencyChannel{out: "16666666\n900 950 1000\n"}
	res, err := e.Compute(context.Background(), ch, "com.example.app")
	if err != nil {
		t.Fatal(err)
	}
	if res != (Result{}) {
		t.Fatalf("want zeroed result for stale rendering, got %+v", res)
	}
	if e.zeroFPSStreak != 1 {
		t.Fatalf("want streak 1, got %d", e.zeroFPSStreak)
	}
}

func TestZeroFPSStreakClearsLayerAfterFiveTicks(t *testing.T) {
	e := New()
	e.layer = "com.example.app/MainActivity#123"
	e.haveLastSeen = true
	e.lastSeenFrameNs = 500
	ch := fixedLatencyChannel{out: "16666666\n400 450 500\n"}
	for i := 0; i < zeroFPSStreakLimit; i++ {
		if _, err := e.Compute(context.Background(), ch, "com.example.app"); err != nil {
			t.Fatal(err)
		}
	}
	if e.layer != "" {
		t.Fatalf("want layer cleared after %d stale ticks", zeroFPSStreakLimit)
	}
}

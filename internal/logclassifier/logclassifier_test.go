package logclassifier

import "testing"

const sampleErrorLine = `02-09 14:54:50.447 18791 19854 E PreloadLog: something broke`
const sampleInfoLine = `02-09 14:54:50.447 18791 19854 I PreloadLog: all fine`
const sampleCrashLine = `02-09 14:54:50.447 18791 19854 E AndroidRuntime: FATAL EXCEPTION: main com.example.app`

func TestClassifyLineDropsNonErrorNonCrash(t *testing.T) {
	_, ok := classifyLine(sampleInfoLine, "com.example.app", nil)
	if ok {
		t.Fatal("info line with no crash keywords must be dropped")
	}
}

func TestClassifyLineKeepsErrorForKnownPID(t *testing.T) {
	pids := map[string]struct{}{"18791": {}}
	evt, ok := classifyLine(sampleErrorLine, "com.example.app", pids)
	if !ok {
		t.Fatal("expected error line for a known PID to be kept")
	}
	if evt.Level != "error" || evt.IsCrash {
		t.Fatalf("got %+v", evt)
	}
}

func TestClassifyLineDropsErrorForUnknownPID(t *testing.T) {
	pids := map[string]struct{}{"99999": {}}
	_, ok := classifyLine(sampleErrorLine, "com.example.app", pids)
	if ok {
		t.Fatal("error line from a PID outside the known set must be dropped")
	}
}

func TestClassifyLineKeepsCrashEvenWithUnknownPID(t *testing.T) {
	pids := map[string]struct{}{"99999": {}}
	evt, ok := classifyLine(sampleCrashLine, "com.example.app", pids)
	if !ok {
		t.Fatal("crash line mentioning the target package must survive PID filtering")
	}
	if !evt.IsCrash {
		t.Fatal("expected IsCrash=true")
	}
}

func TestClassifyLineNoPIDsFallsBackToSubstringMatch(t *testing.T) {
	if _, ok := classifyLine(sampleErrorLine, "com.other.app", nil); ok {
		t.Fatal("with no known PIDs, lines not mentioning the target package must be dropped")
	}
	evt, ok := classifyLine(`02-09 14:54:50.447 1 1 E Tag: com.example.app crashed`, "com.example.app", nil)
	if !ok || evt.Level != "error" {
		t.Fatalf("expected match via substring fallback, got ok=%v evt=%+v", ok, evt)
	}
}

func TestClassifyLineNoTargetKeepsAllErrors(t *testing.T) {
	_, ok := classifyLine(sampleErrorLine, "", nil)
	if !ok {
		t.Fatal("with no target set, any error line should be kept")
	}
}

// Package logclassifier streams a device's logcat threadtime output,
// classifies each line's severity, detects crash keywords, and drops
// everything not attributable to the target app.
package logclassifier

import (
	"context"
	"time"

	"veloperfd/internal/shellchan"
	"veloperfd/internal/telemetry"
)

var crashKeywords = []string{"FATAL EXCEPTION", "ANR in", "AndroidRuntime"}

// Classifier has no per-tick state of its own; attribution reads the
// target package and PID set straight from the Session on each line.
type Classifier struct{}

// New returns a Classifier.
func New() *Classifier { return &Classifier{} }

// Run clears the device log buffer best-effort, then streams `logcat -v
// threadtime *:V` until ctx is cancelled or the stream hits EOF. It never
// restarts itself on EOF — per the reconnection policy, a fresh session is
// what restarts the log stream, not this loop.
func (c *Classifier) Run(ctx context.Context, ch shellchan.Channel, session *telemetry.Session, sink telemetry.Sink) error {
	_, _ = ch.Run(ctx, "logcat -c")

	it, err := ch.Stream(ctx, []string{"logcat", "-v", "threadtime", "*:V"})
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Next() {
		line := it.Line()
		if line == "" {
			continue
		}
		evt, ok := classifyLine(line, session.Target(), session.PIDs())
		if !ok {
			continue
		}
		evt.TimestampMs = time.Now().UnixMilli()
		sink.Emit(telemetry.NewLog(session.ID, evt))
	}
	return it.Err()
}

// classifyLine parses one threadtime line and decides whether it survives
// the error/crash + target-attribution filter chain from the classifier's
// design: keep only error-level or crash lines, then attribute by PID when
// a PID set is known (crash lines mentioning the package are kept even
// when their PID isn't in the set), or by substring match on the raw line
// when no PID set is known yet.
func classifyLine(line, target string, pids map[string]struct{}) (telemetry.LogEvent, bool) {
	level, pid, ok := parseThreadtime(line)
	if !ok {
		level, pid = telemetry.LevelInfo, ""
	}
	isCrash := containsCrashKeyword(line)

	if level != telemetry.LevelError && !isCrash {
		return telemetry.LogEvent{}, false
	}

	if target != "" {
		if len(pids) > 0 {
			_, known := pids[pid]
			if pid != "" && !known {
				if !(isCrash && containsSubstring(line, target)) {
					return telemetry.LogEvent{}, false
				}
			}
		} else if !containsSubstring(line, target) {
			return telemetry.LogEvent{}, false
		}
	}

	return telemetry.LogEvent{
		Level:   level,
		Message: line,
		IsCrash: isCrash,
	}, true
}

func containsCrashKeyword(line string) bool {
	for _, kw := range crashKeywords {
		if containsSubstring(line, kw) {
			return true
		}
	}
	return false
}

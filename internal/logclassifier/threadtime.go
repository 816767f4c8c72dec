package logclassifier

import (
	"strings"

	"veloperfd/internal/telemetry"
)

// parseThreadtime splits a `logcat -v threadtime` line ("date time PID TID
// LEVEL TAG: message") and maps its level character to a telemetry.LogLevel.
// Lines with fewer than five whitespace-separated fields default to info,
// matching the fallback in the component this classifier replaces.
func parseThreadtime(line string) (level telemetry.LogLevel, pid string, ok bool) {
	parts := strings.Fields(line)
	if len(parts) < 5 {
		return telemetry.LevelInfo, "", false
	}
	if isDigits(parts[2]) {
		pid = parts[2]
	}
	return levelFromChar(parts[4]), pid, true
}

func levelFromChar(c string) telemetry.LogLevel {
	switch c {
	case "E":
		return telemetry.LevelError
	case "W":
		return telemetry.LevelWarn
	case "D":
		return telemetry.LevelDebug
	case "I":
		return telemetry.LevelInfo
	case "V":
		return telemetry.LevelVerbose
	default:
		return telemetry.LevelInfo
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsSubstring(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

package recorder

import (
	"os"
	"path/filepath"
	"testing"

	"veloperfd/internal/telemetry"
)

func TestWriteSampleAppendsFixedColumnRow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.csv")

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.WriteSample(telemetry.Sample{TimestampMs: 1000, Package: "com.example.app", CPUPercent: 25.9, FPS: 60}); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := splitLines(string(data))
	if len(lines) != 2 {
		t.Fatalf("want header + 1 row, got %d lines: %q", len(lines), lines)
	}
	if len(splitFields(lines[0])) != len(header) {
		t.Fatalf("header column count mismatch: %q", lines[0])
	}
}

func splitLines(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == '\n' {
			if cur != "" {
				out = append(out, cur)
			}
			cur = ""
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func splitFields(line string) []string {
	var out []string
	cur := ""
	for _, r := range line {
		if r == ',' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	out = append(out, cur)
	return out
}

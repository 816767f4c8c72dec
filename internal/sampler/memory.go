package sampler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"veloperfd/internal/shellchan"
)

// memoryKB is the raw dumpsys-meminfo extraction, still in KB.
type memoryKB struct {
	total, java, native, code, stack, graphics, privateOther, system int
}

// MemoryMB is the converted, public-facing shape, MB rounded to one decimal.
type MemoryMB struct {
	Total, Java, Native, Graphics, Code, Other float64
}

func collectMemory(ctx context.Context, ch shellchan.Channel, pkg string) (MemoryMB, error) {
	out, err := ch.Run(ctx, fmt.Sprintf("dumpsys meminfo %s", pkg))
	if isTransportLost(err) {
		return MemoryMB{}, err
	}
	if err != nil {
		return MemoryMB{}, nil
	}
	return toMemoryMB(parseMemInfo(out)), nil
}

// parseMemInfo extracts the fixed set of labeled lines dumpsys meminfo
// prints for an app, never a negative value: any line it cannot parse
// leaves that field at zero rather than erroring the whole sample.
func parseMemInfo(output string) memoryKB {
	var m memoryKB
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "TOTAL") && !strings.Contains(line, "PSS:"):
			if parts := strings.Fields(line); len(parts) >= 2 {
				if v, err := strconv.Atoi(parts[1]); err == nil {
					m.total = v
				}
			}
		case strings.Contains(line, "Java Heap:"):
			if parts := strings.Fields(line); len(parts) >= 3 {
				if v, err := strconv.Atoi(parts[2]); err == nil {
					m.java = v
				}
			}
		case strings.Contains(line, "Native Heap:"):
			if parts := strings.Fields(line); len(parts) >= 3 {
				if v, err := strconv.Atoi(parts[2]); err == nil {
					m.native = v
				}
			}
		case strings.Contains(line, "Code:"):
			if parts := strings.Fields(line); len(parts) >= 2 {
				if v, err := strconv.Atoi(parts[1]); err == nil {
					m.code = v
				}
			}
		case strings.Contains(line, "Stack:"):
			if parts := strings.Fields(line); len(parts) >= 2 {
				if v, err := strconv.Atoi(parts[1]); err == nil {
					m.stack = v
				}
			}
		case strings.Contains(line, "Graphics:"):
			if parts := strings.Fields(line); len(parts) >= 2 {
				if v, err := strconv.Atoi(parts[1]); err == nil {
					m.graphics = v
				}
			}
		case strings.Contains(line, "Private Other:"):
			if parts := strings.Fields(line); len(parts) >= 3 {
				if v, err := strconv.Atoi(parts[2]); err == nil {
					m.privateOther = v
				}
			}
		case strings.Contains(line, "System:"):
			if parts := strings.Fields(line); len(parts) >= 2 {
				if v, err := strconv.Atoi(parts[1]); err == nil {
					m.system = v
				}
			}
		}
	}
	return m
}

func toMemoryMB(m memoryKB) MemoryMB {
	kbToMB := func(kb int) float64 { return round1(float64(kb) / 1024) }
	return MemoryMB{
		Total:    kbToMB(m.total),
		Java:     kbToMB(m.java),
		Native:   kbToMB(m.native),
		Graphics: kbToMB(m.graphics),
		Code:     kbToMB(m.code),
		Other:    kbToMB(m.privateOther + m.stack + m.system),
	}
}

package sampler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"veloperfd/internal/shellchan"
)

var processStates = map[string]bool{"R": true, "S": true, "I": true, "D": true, "Z": true, "T": true}

func (s *Sampler) collectCPU(ctx context.Context, ch shellchan.Channel, pids map[string]struct{}) (float64, error) {
	if len(pids) == 0 {
		return 0, nil
	}
	list := make([]string, 0, len(pids))
	for pid := range pids {
		list = append(list, pid)
	}
	out, err := ch.Run(ctx, fmt.Sprintf("top -b -n 1 -p %s", strings.Join(list, ",")))
	if isTransportLost(err) {
		return 0, err
	}
	if err != nil || out == "" {
		return 0, nil
	}
	return parseCPUFromTop(out), nil
}

// parseCPUFromTop sums %CPU across every non-header process row in the
// output of `top -b -n 1 -p <pids>`. Column layout varies across vendor
// builds, so three strategies are tried in order for each row:
//
//  1. locate the single-character process-state column (one of
//     R/S/I/D/Z/T) and read %CPU from the column immediately after it;
//  2. fall back to any whitespace-separated token ending in '%';
//  3. fall back to the fixed 9th column (index 8) when the 8th column
//     (index 7) itself looks like a state character.
//
// It is pure and deterministic: same input, same output, no I/O.
func parseCPUFromTop(output string) float64 {
	var total float64
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		parts := strings.Fields(line)
		if len(parts) < 5 {
			continue
		}
		if containsToken(parts, "PID") && containsToken(parts, "USER") {
			continue // header row
		}

		if val, ok := cpuByStateAnchor(parts); ok {
			total += val
			continue
		}
		if val, ok := cpuByPercentSuffix(parts); ok {
			total += val
			continue
		}
		if val, ok := cpuByFixedIndex(parts); ok {
			total += val
		}
	}
	return total
}

func cpuByStateAnchor(parts []string) (float64, bool) {
	for i, p := range parts {
		if !processStates[p] || i >= len(parts)-1 {
			continue
		}
		next := strings.TrimSuffix(parts[i+1], "%")
		if val, err := strconv.ParseFloat(next, 64); err == nil {
			return val, true
		}
	}
	return 0, false
}

func cpuByPercentSuffix(parts []string) (float64, bool) {
	for _, p := range parts {
		if !strings.Contains(p, "%") {
			continue
		}
		if val, err := strconv.ParseFloat(strings.ReplaceAll(p, "%", ""), 64); err == nil {
			return val, true
		}
	}
	return 0, false
}

func cpuByFixedIndex(parts []string) (float64, bool) {
	if len(parts) < 9 {
		return 0, false
	}
	if !processStates[parts[7]] {
		return 0, false
	}
	val, err := strconv.ParseFloat(parts[8], 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

func containsToken(parts []string, tok string) bool {
	for _, p := range parts {
		if p == tok {
			return true
		}
	}
	return false
}

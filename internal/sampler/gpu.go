package sampler

import (
	"context"
	"strconv"
	"strings"

	"veloperfd/internal/shellchan"
)

// gpuSysfsPaths is tried in order; the first path whose content parses
// successfully is cached on the Sampler so later ticks skip straight to it.
var gpuSysfsPaths = []string{
	"/sys/class/kgsl/kgsl-3d0/gpubusy",
	"/sys/class/misc/mali0/device/utilization",
	"/sys/kernel/debug/mali0/ctx/utilization_gp_pp",
	"/sys/devices/platform/google,mali/gpu_utilization",
}

func (s *Sampler) collectGPU(ctx context.Context, ch shellchan.Channel) (float64, error) {
	s.mu.Lock()
	cached := s.gpuPath
	s.mu.Unlock()

	paths := gpuSysfsPaths
	if cached != "" {
		paths = []string{cached}
	}

	for _, path := range paths {
		out, err := ch.Run(ctx, "cat "+path)
		if isTransportLost(err) {
			return 0, err
		}
		if err != nil {
			continue
		}
		content := strings.TrimSpace(out)
		if content == "" {
			continue
		}
		val, ok := parseGPUFromContent(content, path)
		if !ok {
			continue
		}
		s.mu.Lock()
		s.gpuPath = path
		s.mu.Unlock()
		return val, nil
	}
	return 0, nil
}

// parseGPUFromContent decodes either of two sysfs formats: the Adreno
// "<used_cycles> <total_cycles>" pair (used/total*100, clamped to 100), or
// a bare Mali utilization integer already in the 0-100 range.
func parseGPUFromContent(content, path string) (float64, bool) {
	if strings.Contains(path, "kgsl") {
		parts := strings.Fields(content)
		if len(parts) != 2 {
			return 0, false
		}
		used, uerr := strconv.ParseInt(parts[0], 10, 64)
		total, terr := strconv.ParseInt(parts[1], 10, 64)
		if uerr != nil || terr != nil {
			return 0, false
		}
		if total <= 0 {
			return 0, true
		}
		val := round1(float64(used) / float64(total) * 100)
		if val > 100.0 {
			val = 100.0
		}
		return val, true
	}

	if v, err := strconv.Atoi(content); err == nil {
		return float64(v), true
	}
	return 0, false
}

// Package frametiming implements active-layer discovery and the
// FPS/jank/stutter computation read from SurfaceFlinger's latency ring
// buffer for the target app's compositor layer.
package frametiming

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"veloperfd/internal/shellchan"
)

// pendingSentinel marks a frame still in flight (INT64_MAX in the latency
// dump) rather than a real present-time.
const pendingSentinel = int64(9223372036854775807)

const defaultRefreshPeriodNs = 16_666_666

const oneSecondNs = 1_000_000_000

const zeroFPSStreakLimit = 5

// Result is one tick's frame-timing computation.
type Result struct {
	FPS            int
	Jank           int
	StutterPercent float64
}

// Engine holds the per-session caches the frame-timing algorithm needs
// between ticks: the selected compositor layer, the last frame timestamp
// seen (for staleness detection), and the consecutive zero-FPS streak.
type Engine struct {
	layer            string
	lastSeenFrameNs  int64
	haveLastSeen     bool
	zeroFPSStreak    int
}

// New returns an Engine with no cached layer.
func New() *Engine { return &Engine{} }

// Reset clears every cache, used on target change per the round-trip
// invariant.
func (e *Engine) Reset() {
	e.layer = ""
	e.lastSeenFrameNs = 0
	e.haveLastSeen = false
	e.zeroFPSStreak = 0
}

// Compute runs one tick of the frame-timing algorithm for pkg: it
// (re)selects the active layer when none is cached or the cached one no
// longer names pkg, reads the SurfaceFlinger latency dump for that layer,
// and derives FPS/jank/stutter from the present-time window. Any error
// invalidates the cached layer and returns a zeroed Result, per the error
// handling design ("any exception during a tick invalidates the cached
// layer and returns zeros").
func (e *Engine) Compute(ctx context.Context, ch shellchan.Channel, pkg string) (Result, error) {
	if e.layer == "" || !strings.Contains(e.layer, pkg) {
		layer, err := findActiveLayer(ctx, ch, pkg)
		if isTransportLost(err) {
			e.layer = ""
			return Result{}, err
		}
		e.layer = layer
	}
	if e.layer == "" {
		return Result{}, nil
	}

	out, err := ch.Run(ctx, fmt.Sprintf("dumpsys SurfaceFlinger --latency %s", quote(e.layer)))
	if isTransportLost(err) {
		e.layer = ""
		return Result{}, err
	}
	if err != nil {
		e.layer = ""
		return Result{}, nil
	}

	lines := splitNonEmpty(out)
	if len(lines) < 2 {
		e.layer = ""
		return Result{}, nil
	}

	refreshPeriod := parseRefreshPeriod(lines[0])
	presentTimes := parsePresentTimes(lines[1:])
	if len(presentTimes) == 0 {
		return Result{}, nil
	}

	last := presentTimes[len(presentTimes)-1]
	window := oneSecondWindow(presentTimes, last)

	if e.haveLastSeen && e.lastSeenFrameNs == last {
		e.zeroFPSStreak++
		if e.zeroFPSStreak >= zeroFPSStreakLimit {
			e.layer = ""
			e.zeroFPSStreak = 0
		}
		return Result{}, nil
	}
	e.haveLastSeen = true
	e.lastSeenFrameNs = last
	e.zeroFPSStreak = 0

	jank, stutter := jankAndStutter(window, refreshPeriod)
	return Result{FPS: len(window), Jank: jank, StutterPercent: stutter}, nil
}

func isTransportLost(err error) bool {
	return err != nil && errors.Is(err, shellchan.ErrTransportLost)
}

func quote(s string) string { return "'" + s + "'" }

func splitNonEmpty(s string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// parseRefreshPeriod reads the display refresh period in nanoseconds from
// the latency dump's first line, defaulting when it is missing, zero, or
// unparsable.
func parseRefreshPeriod(line string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil || v <= 0 {
		return defaultRefreshPeriodNs
	}
	return v
}

// parsePresentTimes extracts the present-time column from each 3-column
// latency row, discarding rows whose present-time is zero (unsubmitted) or
// the pending sentinel (still in flight).
func parsePresentTimes(lines []string) []int64 {
	var out []int64
	for _, line := range lines {
		parts := strings.Fields(line)
		if len(parts) != 3 {
			continue
		}
		present, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			continue
		}
		if present == 0 {
			continue // unsubmitted
		}
		if present == pendingSentinel {
			continue // still pending, never a valid present-time for FPS math
		}
		out = append(out, present)
	}
	return out
}

// oneSecondWindow returns the maximal contiguous suffix of ts whose values
// are within one second of last.
func oneSecondWindow(ts []int64, last int64) []int64 {
	start := len(ts)
	for start > 0 && last-ts[start-1] < oneSecondNs {
		start--
	}
	return ts[start:]
}

// jankAndStutter computes jank count (frames whose duration exceeds twice
// the refresh period) and the stutter percentage (excess frame time over
// total window duration, clamped to 100 and rounded to one decimal) across
// adjacent present-time deltas in window.
func jankAndStutter(window []int64, refreshPeriod int64) (int, float64) {
	jankThreshold := refreshPeriod * 2
	var jank int
	var excess, total int64
	for i := 1; i < len(window); i++ {
		d := window[i] - window[i-1]
		total += d
		if d > jankThreshold {
			jank++
		}
		if d > refreshPeriod {
			excess += d - refreshPeriod
		}
	}
	if total == 0 {
		return jank, 0
	}
	rate := float64(excess) / float64(total) * 100
	if rate > 100 {
		rate = 100
	}
	return jank, round1(rate)
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

// findActiveLayer scans the compositor layer list for candidates naming
// pkg, excluding splash/background decoy layers, preferring SurfaceView and
// slash-qualified names, and picking whichever of the first ten candidates
// reports the newest present-time in its own latency dump.
func findActiveLayer(ctx context.Context, ch shellchan.Channel, pkg string) (string, error) {
	out, err := ch.Run(ctx, "dumpsys SurfaceFlinger --list")
	if isTransportLost(err) {
		return "", err
	}
	if err != nil {
		return "", nil
	}

	var candidates []string
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, pkg) {
			continue
		}
		name := strings.TrimSpace(line)
		if strings.Contains(name, "RequestedLayerState{") {
			name = extractRequestedLayerName(name)
		}
		if strings.Contains(name, "Splash Screen") || strings.Contains(name, "Background for") {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return "", nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return layerRank(candidates[i]) > layerRank(candidates[j])
	})
	if len(candidates) > 10 {
		candidates = candidates[:10]
	}

	var best string
	var bestTS int64 = -1
	for _, layer := range candidates {
		out, err := ch.Run(ctx, fmt.Sprintf("dumpsys SurfaceFlinger --latency %s | tail -n 5", quote(layer)))
		if isTransportLost(err) {
			return "", err
		}
		if err != nil {
			continue
		}
		lines := splitNonEmpty(out)
		if len(lines) < 2 {
			continue
		}
		var lastTS int64
		for _, line := range lines {
			parts := strings.Fields(line)
			if len(parts) != 3 {
				continue
			}
			vsync, verr := strconv.ParseInt(parts[1], 10, 64)
			present, perr := strconv.ParseInt(parts[2], 10, 64)
			if verr != nil || perr != nil {
				continue
			}
			ts := present
			if present == pendingSentinel {
				ts = vsync
			}
			if ts > lastTS {
				lastTS = ts
			}
		}
		if lastTS > bestTS {
			bestTS = lastTS
			best = layer
		}
	}
	return best, nil
}

// extractRequestedLayerName pulls the inner content out of a
// RequestedLayerState{...} wrapper, preferring a whitespace token
// containing '#' and otherwise falling back to the inner content as-is.
func extractRequestedLayerName(line string) string {
	start := strings.Index(line, "RequestedLayerState{")
	if start < 0 {
		return line
	}
	inner := line[start+len("RequestedLayerState{"):]
	end := strings.LastIndex(inner, "}")
	if end >= 0 {
		inner = inner[:end]
	}
	for _, tok := range strings.Fields(inner) {
		if strings.Contains(tok, "#") {
			return tok
		}
	}
	return inner
}

func layerRank(name string) int {
	if strings.Contains(name, "SurfaceView") || strings.Contains(name, "/") {
		return 1
	}
	return 0
}

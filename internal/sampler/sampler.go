// Package sampler implements the per-tick metric collection component:
// top-app discovery, PID refresh, and the CPU/memory/battery/network/GPU
// parsers, tying them together into one Sample per Collect call.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"veloperfd/internal/shellchan"
	"veloperfd/internal/telemetry"
)

// Sampler collects one Sample per tick for a target package. It caches the
// network baseline and the first GPU sysfs path that parsed successfully;
// both caches are cleared by Reset.
type Sampler struct {
	mu sync.Mutex

	lastRxBytes int64
	lastTxBytes int64
	lastAt      time.Time
	haveBaseline bool

	gpuPath string
}

// New returns an empty Sampler.
func New() *Sampler { return &Sampler{} }

// Reset clears the network baseline and GPU path cache; called by the
// owning orchestrator whenever the target changes, per the round-trip
// invariant that set_target/stop/start must not leak state across targets.
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haveBaseline = false
	s.lastRxBytes, s.lastTxBytes = 0, 0
	s.gpuPath = ""
}

// Collect samples CPU, memory, GPU, battery and network for pkg. Every
// sub-collector degrades to a neutral zero value on failure rather than
// aborting the whole sample, per the error handling design: a ShellError
// from one metric must never blank the rest of the tick. A lost transport
// is the exception: Collect returns it at once with the sample so far.
func (s *Sampler) Collect(ctx context.Context, ch shellchan.Channel, session *telemetry.Session, pkg string) (telemetry.Sample, error) {
	sample := telemetry.Sample{TimestampMs: time.Now().UnixMilli(), Package: pkg}

	pids, err := refreshPIDs(ctx, ch, pkg)
	if isTransportLost(err) {
		return sample, err
	}
	session.SetPIDs(pids)

	if cpu, err := s.collectCPU(ctx, ch, pids); err == nil {
		sample.CPUPercent = cpu
	} else if isTransportLost(err) {
		return sample, err
	}

	if mem, err := collectMemory(ctx, ch, pkg); err == nil {
		sample.MemoryMB = mem.Total
		sample.MemoryDetail = telemetry.MemoryDetail{
			Java: mem.Java, Native: mem.Native, Graphics: mem.Graphics, Code: mem.Code, Other: mem.Other,
		}
	} else if isTransportLost(err) {
		return sample, err
	}

	if gpu, err := s.collectGPU(ctx, ch); err == nil {
		sample.GPUPercent = gpu
	} else if isTransportLost(err) {
		return sample, err
	}

	if bat, err := collectBattery(ctx, ch); err == nil {
		sample.Battery = bat
	} else if isTransportLost(err) {
		return sample, err
	}

	if net, err := s.collectNetwork(ctx, ch, pkg); err == nil {
		sample.Network = net
	} else if isTransportLost(err) {
		return sample, err
	}

	return sample, nil
}

func isTransportLost(err error) bool {
	return err != nil && errors.Is(err, shellchan.ErrTransportLost)
}

// DiscoverTopPackage infers the foreground app when no target has been set
// explicitly, trying dumpsys window first and falling back to dumpsys
// activity for older Android releases.
func DiscoverTopPackage(ctx context.Context, ch shellchan.Channel) (string, error) {
	out, err := ch.Run(ctx, "dumpsys window | grep mCurrentFocus")
	if isTransportLost(err) {
		return "", err
	}
	if pkg := parseTopPackageFromWindow(out); pkg != "" {
		return pkg, nil
	}

	out, err = ch.Run(ctx, "dumpsys activity activities | grep mResumedActivity")
	if isTransportLost(err) {
		return "", err
	}
	return parseTopPackageFromActivity(out), nil
}

func parseTopPackageFromWindow(output string) string {
	idx := strings.Index(output, "u0 ")
	if idx < 0 {
		return ""
	}
	rest := output[idx+len("u0 "):]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return ""
	}
	pkg := rest[:slash]
	if pkg == "" || !isPackageLike(pkg) {
		return ""
	}
	return pkg
}

func parseTopPackageFromActivity(output string) string {
	if !strings.Contains(output, "u0") {
		return ""
	}
	for _, part := range strings.Fields(output) {
		if !strings.Contains(part, "/") {
			continue
		}
		pkg := strings.SplitN(part, "/", 2)[0]
		if strings.Contains(pkg, ".") {
			return pkg
		}
	}
	return ""
}

func isPackageLike(s string) bool {
	for _, r := range s {
		if !(r == '.' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return s != ""
}

// refreshPIDs runs pgrep -f package and returns the set of numeric PIDs
// found; any other failure (including an empty process list) yields an
// empty set and a zeroed CPU reading for this tick rather than an error.
// A lost transport is the one error it returns.
func refreshPIDs(ctx context.Context, ch shellchan.Channel, pkg string) (map[string]struct{}, error) {
	out, err := ch.Run(ctx, fmt.Sprintf("pgrep -f %s", pkg))
	if isTransportLost(err) {
		return nil, err
	}
	pids := make(map[string]struct{})
	if err != nil {
		return pids, nil
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && isAllDigits(line) {
			pids[line] = struct{}{}
		}
	}
	return pids, nil
}

func isAllDigits(s string) bool {
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

// ListInstalledPackages enumerates third-party installed packages, the way
// an owner would populate a target picker before calling SetTarget. Not a
// per-tick operation; supplements the core sampling loop.
func ListInstalledPackages(ctx context.Context, ch shellchan.Channel) ([]string, error) {
	out, err := ch.Run(ctx, "pm list packages -3")
	if err != nil {
		return nil, err
	}
	var pkgs []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if pkg, ok := strings.CutPrefix(line, "package:"); ok {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs, nil
}

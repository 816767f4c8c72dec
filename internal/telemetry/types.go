// Package telemetry defines the wire-level event shapes emitted by a
// device session and the Session state a collector keeps between ticks.
package telemetry

import (
	"sync"

	"github.com/google/uuid"
)

// MemoryDetail breaks a Sample's total memory down by category, all
// values in MB rounded to one decimal place.
type MemoryDetail struct {
	Java     float64 `json:"java"`
	Native   float64 `json:"native"`
	Graphics float64 `json:"graphics"`
	Code     float64 `json:"code"`
	Other    float64 `json:"other"`
}

// Battery holds a single battery reading.
type Battery struct {
	Level       int     `json:"level"`
	VoltageMV   int     `json:"voltage_mv"`
	TempC       float64 `json:"temp_c"`
	CurrentMA   float64 `json:"current_ma"`
}

// Network holds instantaneous throughput, in KB/s, for the target app's UID
// (or the whole device when per-UID attribution is unavailable).
type Network struct {
	RxKBps float64 `json:"rx_kbps"`
	TxKBps float64 `json:"tx_kbps"`
}

// Sample is one tick of the monitor stream: CPU/memory/frame-timing/GPU/
// battery/network for the target package at TimestampMs.
type Sample struct {
	TimestampMs   int64        `json:"timestamp_ms"`
	Package       string       `json:"package"`
	CPUPercent    float64      `json:"cpu_percent"`
	MemoryMB      float64      `json:"memory_mb"`
	MemoryDetail  MemoryDetail `json:"memory_detail"`
	FPS           int          `json:"fps"`
	Jank          int          `json:"jank"`
	StutterPercent float64     `json:"stutter_percent"`
	GPUPercent    float64      `json:"gpu_percent"`
	Battery       Battery      `json:"battery"`
	Network       Network      `json:"network"`
}

// ScreenshotEvent announces a saved screenshot artifact.
type ScreenshotEvent struct {
	Type        string `json:"type"`
	TimestampMs int64  `json:"timestamp_ms"`
	URL         string `json:"url"`
}

// LogLevel is the classified severity of a device log line.
type LogLevel string

const (
	LevelError   LogLevel = "error"
	LevelWarn    LogLevel = "warn"
	LevelInfo    LogLevel = "info"
	LevelDebug   LogLevel = "debug"
	LevelVerbose LogLevel = "verbose"
)

// LogEvent is one attributed, filtered device log line.
type LogEvent struct {
	Type        string   `json:"type"`
	TimestampMs int64    `json:"timestamp_ms"`
	Level       LogLevel `json:"level"`
	Message     string   `json:"message"`
	IsCrash     bool     `json:"is_crash"`
}

// EventKind tags which payload an Event carries.
type EventKind string

const (
	KindMonitor    EventKind = "monitor"
	KindScreenshot EventKind = "screenshot"
	KindLog        EventKind = "log"
)

// Event is the single envelope a Session emits to its Sink. Exactly one of
// Sample, Screenshot, Log is non-nil, matching Kind.
type Event struct {
	ID         string           `json:"id"`
	SessionID  string           `json:"session_id"`
	Kind       EventKind        `json:"kind"`
	Sample     *Sample          `json:"sample,omitempty"`
	Screenshot *ScreenshotEvent `json:"screenshot,omitempty"`
	Log        *LogEvent        `json:"log,omitempty"`
}

// Sink is the only thing the collector depends on to deliver events
// upstream; it may be backed by a channel, a websocket fan-out, a CSV
// writer, or all three at once.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// NewSample wraps a Sample in an Event tagged for the given session.
func NewSample(sessionID string, s Sample) Event {
	return Event{ID: uuid.NewString(), SessionID: sessionID, Kind: KindMonitor, Sample: &s}
}

// NewScreenshot wraps a ScreenshotEvent in an Event tagged for the given session.
func NewScreenshot(sessionID string, s ScreenshotEvent) Event {
	s.Type = "screenshot"
	return Event{ID: uuid.NewString(), SessionID: sessionID, Kind: KindScreenshot, Screenshot: &s}
}

// NewLog wraps a LogEvent in an Event tagged for the given session.
func NewLog(sessionID string, l LogEvent) Event {
	l.Type = "log"
	return Event{ID: uuid.NewString(), SessionID: sessionID, Kind: KindLog, Log: &l}
}

// Session holds the cross-cutting, per-device state that is read and
// written by more than one of the three collector loops: the device
// serial, the target package, the running flag, and the set of PIDs the
// metric sampler last observed for the target. Collaborator-private caches
// (active layer, GPU sysfs path, network counters) live in their own
// packages, not here — see Sampler and frametiming.Engine.
type Session struct {
	ID     string
	Serial string

	mu      sync.Mutex
	target  string
	running bool
	pids    map[string]struct{}
}

// NewSession builds a Session for the given device serial.
func NewSession(serial string) *Session {
	return &Session{ID: uuid.NewString(), Serial: serial, pids: make(map[string]struct{})}
}

func (s *Session) SetTarget(pkg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = pkg
}

func (s *Session) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

func (s *Session) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetPIDs replaces the known PID set for the current target.
func (s *Session) SetPIDs(pids map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pids = pids
}

// PIDs returns a copy of the known PID set.
func (s *Session) PIDs() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.pids))
	for k := range s.pids {
		out[k] = struct{}{}
	}
	return out
}

// Package recorder is the thin CSV persistence collaborator spec.md leaves
// as an out-of-scope owner responsibility: it appends one fixed-order row
// per Sample to a session's record file.
package recorder

import (
	"encoding/csv"
	"fmt"
	"os"

	"veloperfd/internal/telemetry"
)

var header = []string{
	"timestamp", "package", "cpu_percent", "memory_mb", "fps", "jank",
	"stutter_percent", "gpu_percent", "battery_level", "battery_voltage_mv",
	"battery_temp_c", "battery_current_ma", "network_rx_kbps", "network_tx_kbps",
}

// CSVRecorder appends Sample rows to a single CSV file, writing the header
// once when the file is created.
type CSVRecorder struct {
	f *os.File
	w *csv.Writer
}

// Open creates or appends to path, writing the header row only for a
// freshly created file.
func Open(path string) (*CSVRecorder, error) {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("recorder: write header: %w", err)
		}
		w.Flush()
	}
	return &CSVRecorder{f: f, w: w}, nil
}

// WriteSample appends one 14-column record row for s.
func (r *CSVRecorder) WriteSample(s telemetry.Sample) error {
	row := []string{
		fmt.Sprintf("%d", s.TimestampMs),
		s.Package,
		fmt.Sprintf("%g", s.CPUPercent),
		fmt.Sprintf("%g", s.MemoryMB),
		fmt.Sprintf("%d", s.FPS),
		fmt.Sprintf("%d", s.Jank),
		fmt.Sprintf("%g", s.StutterPercent),
		fmt.Sprintf("%g", s.GPUPercent),
		fmt.Sprintf("%d", s.Battery.Level),
		fmt.Sprintf("%d", s.Battery.VoltageMV),
		fmt.Sprintf("%g", s.Battery.TempC),
		fmt.Sprintf("%g", s.Battery.CurrentMA),
		fmt.Sprintf("%g", s.Network.RxKBps),
		fmt.Sprintf("%g", s.Network.TxKBps),
	}
	if err := r.w.Write(row); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

// Close flushes and closes the underlying file.
func (r *CSVRecorder) Close() error {
	r.w.Flush()
	return r.f.Close()
}

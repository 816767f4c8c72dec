// Package screenshot is the thin reference Screenshotter spec.md leaves as
// an opaque owner collaborator: it captures a frame over adb and re-encodes
// it as a quality-40 JPEG under a per-device directory.
package screenshot

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const jpegQuality = 40

// ADBScreenshotter captures frames via `adb exec-out screencap -p` and
// stores them as <epoch_ms>.jpg under Dir.
type ADBScreenshotter struct {
	AdbPath string
	Serial  string
	Dir     string
}

// Capture takes one screenshot and returns the filename it was stored
// under (not a full path) — the orchestrator combines this with its mount
// prefix to build the event URL.
func (s *ADBScreenshotter) Capture(ctx context.Context) (string, error) {
	adbPath := s.AdbPath
	if adbPath == "" {
		adbPath = "adb"
	}

	raw, err := exec.CommandContext(ctx, adbPath, "-s", s.Serial, "exec-out", "screencap", "-p").Output()
	if err != nil {
		return "", fmt.Errorf("screenshot: capture: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("screenshot: decode: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("screenshot: mkdir: %w", err)
	}

	filename := fmt.Sprintf("%d.jpg", time.Now().UnixMilli())
	path := filepath.Join(s.Dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("screenshot: create: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("screenshot: encode: %w", err)
	}
	return filename, nil
}

// Package discovery is the thin device-enumeration reference collaborator
// spec.md names as out of scope: it lists attached devices and enriches
// each with a manufacturer/model label, enough for a demo binary to pick a
// serial to attach a session to.
package discovery

import (
	"context"
	"os/exec"
	"strings"
)

// Device is one attached adb device.
type Device struct {
	Serial       string
	State        string
	Manufacturer string
	Model        string
}

// List runs `adb devices -l` and enriches each online device with
// ro.product.manufacturer/model getprop values, grounded on the teacher's
// device.go device-listing pattern and main.py's manufacturer/model
// enrichment.
func List(ctx context.Context, adbPath string) ([]Device, error) {
	if adbPath == "" {
		adbPath = "adb"
	}
	out, err := exec.CommandContext(ctx, adbPath, "devices", "-l").CombinedOutput()
	if err != nil {
		return nil, err
	}

	var devices []Device
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		d := Device{Serial: fields[0], State: fields[1]}
		if d.State != "device" {
			devices = append(devices, d)
			continue
		}
		d.Manufacturer = getprop(ctx, adbPath, d.Serial, "ro.product.manufacturer")
		d.Model = getprop(ctx, adbPath, d.Serial, "ro.product.model")
		devices = append(devices, d)
	}
	return devices, nil
}

func getprop(ctx context.Context, adbPath, serial, prop string) string {
	out, err := exec.CommandContext(ctx, adbPath, "-s", serial, "shell", "getprop", prop).CombinedOutput()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

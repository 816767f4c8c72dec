package sampler

import (
	"context"
	"math"
	"strconv"
	"strings"

	"veloperfd/internal/shellchan"
	"veloperfd/internal/telemetry"
)

var currentNowPaths = []string{
	"/sys/class/power_supply/battery/current_now",
	"/sys/class/power_supply/bms/current_now",
	"/sys/class/power_supply/main/current_now",
}

func collectBattery(ctx context.Context, ch shellchan.Channel) (telemetry.Battery, error) {
	out, err := ch.Run(ctx, "dumpsys battery")
	if isTransportLost(err) {
		return telemetry.Battery{}, err
	}
	var bat telemetry.Battery
	if err == nil {
		bat = parseBatteryInfo(out)
	}

	for _, path := range currentNowPaths {
		out, err := ch.Run(ctx, "cat "+path)
		if isTransportLost(err) {
			return bat, err
		}
		if err != nil {
			continue
		}
		v := strings.TrimSpace(out)
		ua, perr := strconv.Atoi(v)
		if perr != nil {
			continue
		}
		bat.CurrentMA = math.Abs(float64(ua)) / 1000
		break
	}
	return bat, nil
}

// parseBatteryInfo extracts level, voltage (mV) and temperature (tenths of
// a degree C, converted to C) from `dumpsys battery` output.
func parseBatteryInfo(output string) telemetry.Battery {
	var bat telemetry.Battery
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "level:"):
			if v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "level:"))); err == nil {
				bat.Level = v
			}
		case strings.HasPrefix(line, "voltage:"):
			if v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "voltage:"))); err == nil {
				bat.VoltageMV = v
			}
		case strings.HasPrefix(line, "temperature:"):
			if v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "temperature:"))); err == nil {
				bat.TempC = float64(v) / 10.0
			}
		}
	}
	return bat
}

package sampler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"veloperfd/internal/shellchan"
	"veloperfd/internal/telemetry"
)

// collectNetwork resolves rx/tx byte counters for pkg's UID, falling back
// through three tiers (uid_stat, qtaguid, system-wide /proc/net/dev) and
// converts the counter delta since the last successful tick into KB/s. A
// negative delta (counter reset or wrap) reports zero rather than going
// negative, per the invariant that rx/tx rates never go below zero.
func (s *Sampler) collectNetwork(ctx context.Context, ch shellchan.Channel, pkg string) (telemetry.Network, error) {
	rx, tx, found, err := s.readCounters(ctx, ch, pkg)
	if isTransportLost(err) {
		return telemetry.Network{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !found {
		s.haveBaseline = false
		return telemetry.Network{}, nil
	}

	now := time.Now()
	var net telemetry.Network
	if s.haveBaseline {
		dt := now.Sub(s.lastAt).Seconds()
		if dt > 0 {
			diffRx := rx - s.lastRxBytes
			diffTx := tx - s.lastTxBytes
			if diffRx < 0 {
				diffRx = 0
			}
			if diffTx < 0 {
				diffTx = 0
			}
			net.RxKBps = round1(float64(diffRx) / 1024 / dt)
			net.TxKBps = round1(float64(diffTx) / 1024 / dt)
		}
	}
	s.lastRxBytes, s.lastTxBytes, s.lastAt = rx, tx, now
	s.haveBaseline = true
	return net, nil
}

func (s *Sampler) readCounters(ctx context.Context, ch shellchan.Channel, pkg string) (rx, tx int64, found bool, err error) {
	uid, uerr := resolveUID(ctx, ch, pkg)
	if isTransportLost(uerr) {
		return 0, 0, false, uerr
	}

	if uid != "" {
		if rx, tx, ok, err := readUIDStat(ctx, ch, uid); isTransportLost(err) {
			return 0, 0, false, err
		} else if ok {
			return rx, tx, true, nil
		}
		if rx, tx, ok, err := readQtaguid(ctx, ch, uid); isTransportLost(err) {
			return 0, 0, false, err
		} else if ok {
			return rx, tx, true, nil
		}
	}

	return readProcNetDev(ctx, ch)
}

func resolveUID(ctx context.Context, ch shellchan.Channel, pkg string) (string, error) {
	if pkg == "" {
		return "", nil
	}
	out, err := ch.Run(ctx, fmt.Sprintf("dumpsys package %s | grep userId=", pkg))
	if isTransportLost(err) {
		return "", err
	}
	if err != nil {
		return "", nil
	}
	idx := strings.Index(out, "userId=")
	if idx < 0 {
		return "", nil
	}
	rest := out[idx+len("userId="):]
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], nil
}

func readUIDStat(ctx context.Context, ch shellchan.Channel, uid string) (rx, tx int64, ok bool, err error) {
	rxOut, err := ch.Run(ctx, fmt.Sprintf("cat /proc/uid_stat/%s/tcp_rcv", uid))
	if isTransportLost(err) {
		return 0, 0, false, err
	}
	if err != nil {
		return 0, 0, false, nil
	}
	txOut, err := ch.Run(ctx, fmt.Sprintf("cat /proc/uid_stat/%s/tcp_snd", uid))
	if isTransportLost(err) {
		return 0, 0, false, err
	}
	if err != nil {
		return 0, 0, false, nil
	}
	rxV, rerr := strconv.ParseInt(strings.TrimSpace(rxOut), 10, 64)
	txV, terr := strconv.ParseInt(strings.TrimSpace(txOut), 10, 64)
	if rerr != nil || terr != nil {
		return 0, 0, false, nil
	}
	return rxV, txV, true, nil
}

func readQtaguid(ctx context.Context, ch shellchan.Channel, uid string) (rx, tx int64, ok bool, err error) {
	out, err := ch.Run(ctx, fmt.Sprintf("cat /proc/net/xt_qtaguid/stats | grep %s", uid))
	if isTransportLost(err) {
		return 0, 0, false, err
	}
	if err != nil || out == "" {
		return 0, 0, false, nil
	}
	var totalRx, totalTx int64
	found := false
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Fields(line)
		if len(parts) <= 8 || parts[3] != uid {
			continue
		}
		r, rerr := strconv.ParseInt(parts[5], 10, 64)
		t, terr := strconv.ParseInt(parts[7], 10, 64)
		if rerr != nil || terr != nil {
			continue
		}
		totalRx += r
		totalTx += t
		found = true
	}
	return totalRx, totalTx, found, nil
}

func readProcNetDev(ctx context.Context, ch shellchan.Channel) (rx, tx int64, found bool, err error) {
	out, err := ch.Run(ctx, "cat /proc/net/dev")
	if isTransportLost(err) {
		return 0, 0, false, err
	}
	if err != nil {
		return 0, 0, false, nil
	}
	r, t, ok := parseNetDev(out)
	return r, t, ok, nil
}

// parseNetDev sums rx/tx byte counters across every interface line whose
// name contains "wlan", "rmnet" or "eth", skipping loopback and VPN
// tunnels. Layout: "<iface>: <rx bytes> ... (7 more fields) <tx bytes> ...".
func parseNetDev(output string) (rx, tx int64, found bool) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "wlan") && !strings.Contains(line, "rmnet") && !strings.Contains(line, "eth") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		data := strings.Fields(parts[1])
		if len(data) < 9 {
			continue
		}
		r, rerr := strconv.ParseInt(data[0], 10, 64)
		t, terr := strconv.ParseInt(data[8], 10, 64)
		if rerr != nil || terr != nil {
			continue
		}
		rx += r
		tx += t
		found = true
	}
	return rx, tx, found
}

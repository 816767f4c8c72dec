package sampler

import (
	"context"
	"testing"
	"time"
)

func TestParseNetDev(t *testing.T) {
	out := `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:    1000      10    0    0    0     0          0         0     1000      10    0    0    0     0       0          0
 wlan0:  500000     400    0    0    0     0          0         0   100000     200    0    0    0     0       0          0
rmnet0:   20000      40    0    0    0     0          0         0    10000      20    0    0    0     0       0          0
`
	rx, tx, found := parseNetDev(out)
	if !found {
		t.Fatal("expected found")
	}
	if rx != 520000 || tx != 110000 {
		t.Fatalf("got rx=%d tx=%d", rx, tx)
	}
}

func TestParseNetDevNoMatchingInterface(t *testing.T) {
	out := "    lo:    1000      10    0    0    0     0          0         0     1000      10    0    0    0     0       0          0\n"
	_, _, found := parseNetDev(out)
	if found {
		t.Fatal("loopback-only output must not be counted")
	}
}

func TestSamplerNetworkRateZeroOnCounterDecrease(t *testing.T) {
	s := New()
	s.haveBaseline = true
	s.lastRxBytes = 10_000_000
	s.lastTxBytes = 10_000_000
	s.lastAt = time.Now().Add(-time.Second)

	// no "userId=" in the output, so the counters come from /proc/net/dev.
	ch := fixedOutputChannel{out: " wlan0: 5000000 0 0 0 0 0 0 0 5000000 0 0 0 0 0 0 0\n"}
	net, err := s.collectNetwork(context.Background(), ch, "com.example.app")
	if err != nil {
		t.Fatal(err)
	}
	if net.RxKBps != 0 || net.TxKBps != 0 {
		t.Fatalf("rate must clamp to zero on counter decrease, got rx=%v tx=%v", net.RxKBps, net.TxKBps)
	}
}

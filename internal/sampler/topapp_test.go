package sampler

import (
	"context"
	"testing"

	"veloperfd/internal/shellchan"
)

type fixedOutputChannel struct {
	out string
	err error
}

func (f fixedOutputChannel) Run(ctx context.Context, cmd string) (string, error) { return f.out, f.err }
func (f fixedOutputChannel) Stream(ctx context.Context, argv []string) (shellchan.LineIterator, error) {
	return nil, nil
}
func (f fixedOutputChannel) Probe(ctx context.Context) error { return nil }
func (f fixedOutputChannel) Reconnect(ctx context.Context) error { return nil }
func (f fixedOutputChannel) Serial() string { return "emulator-5554" }

func TestListInstalledPackagesStripsPrefix(t *testing.T) {
	ch := fixedOutputChannel{out: "package:com.example.one\npackage:com.example.two\n\n"}
	got, err := ListInstalledPackages(context.Background(), ch)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"com.example.one", "com.example.two"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestParseTopPackageFromWindow(t *testing.T) {
	out := "mCurrentFocus=Window{a1b2c3 u0 com.example.app/com.example.app.MainActivity}"
	got := parseTopPackageFromWindow(out)
	if got != "com.example.app" {
		t.Fatalf("got %q", got)
	}
}

func TestParseTopPackageFromWindowNoMatch(t *testing.T) {
	if got := parseTopPackageFromWindow("mCurrentFocus=null"); got != "" {
		t.Fatalf("want empty, got %q", got)
	}
}

func TestParseTopPackageFromActivity(t *testing.T) {
	out := "mResumedActivity: ActivityRecord{a1 u0 com.example.app/.MainActivity t12}"
	got := parseTopPackageFromActivity(out)
	if got != "com.example.app" {
		t.Fatalf("got %q", got)
	}
}

// Command veloperfd runs the real-time mobile performance telemetry server
// against a single Android device: it samples CPU/memory/frame-timing/
// GPU/battery/network, captures screenshots, classifies the device log,
// and fans everything out over a websocket boundary while persisting
// samples to CSV.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"veloperfd/internal/config"
	"veloperfd/internal/discovery"
	"veloperfd/internal/obslog"
	"veloperfd/internal/orchestrator"
	"veloperfd/internal/recorder"
	"veloperfd/internal/sampler"
	"veloperfd/internal/screenshot"
	"veloperfd/internal/shellchan"
	"veloperfd/internal/telemetry"
	"veloperfd/internal/wsboundary"
)

func main() {
	if err := config.Parse(os.Args[1:], run, listDevices, listApps); err != nil {
		obslog.LogError("main").Err(err).Msg("veloperfd exited with error")
		os.Exit(1)
	}
}

func listDevices(adbPath string) error {
	devices, err := discovery.List(context.Background(), adbPath)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no attached devices")
		return nil
	}
	for _, d := range devices {
		fmt.Printf("%s\t%s\t%s %s\n", d.Serial, d.State, d.Manufacturer, d.Model)
	}
	return nil
}

func listApps(adbPath, serial string) error {
	ch := shellchan.NewADBChannel(adbPath, serial)
	pkgs, err := sampler.ListInstalledPackages(context.Background(), ch)
	if err != nil {
		return err
	}
	for _, p := range pkgs {
		fmt.Println(p)
	}
	return nil
}

func run(cfg config.Config) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logCfg := obslog.DefaultConfig()
	logCfg.Level = level
	if err := obslog.Init(logCfg); err != nil {
		return err
	}

	rec, err := recorder.Open(cfg.RecordPath)
	if err != nil {
		return err
	}
	defer rec.Close()

	hub := wsboundary.NewHub()
	sink := telemetry.SinkFunc(func(e telemetry.Event) {
		hub.Emit(e)
		if e.Kind == telemetry.KindMonitor && e.Sample != nil {
			if err := rec.WriteSample(*e.Sample); err != nil {
				obslog.LogWarn("main").Err(err).Msg("failed to persist sample")
			}
		}
	})

	ch := shellchan.NewADBChannel(cfg.AdbPath, cfg.Serial)
	session := telemetry.NewSession(cfg.Serial)
	shots := &screenshot.ADBScreenshotter{AdbPath: cfg.AdbPath, Serial: cfg.Serial, Dir: cfg.ScreenshotDir}

	orch := orchestrator.New(session, ch, sink, shots, cfg.MountPrefix)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	orch.Start(ctx)
	obslog.LogInfo("main").Str("serial", cfg.Serial).Str("listen", cfg.ListenAddr).Msg("telemetry session started")

	server := &http.Server{Addr: cfg.ListenAddr, Handler: wsboundary.NewServer(hub, cfg.ScreenshotDir)}
	go func() {
		<-ctx.Done()
		orch.Stop()
		server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

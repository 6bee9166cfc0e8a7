// gesture-hub runs the device registry with its HTTP API and websocket feeds.
//
// Usage:
//
//	gesture-hub [-port 8080] [-static ./web] [-debug]
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-gesture-home/internal/config"
	"github.com/teslashibe/go-gesture-home/internal/log"
	"github.com/teslashibe/go-gesture-home/pkg/debug"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
	"github.com/teslashibe/go-gesture-home/pkg/web"
)

func main() {
	cfg, err := config.LoadHub()
	if err != nil {
		log.Init("info")
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	port := flag.String("port", cfg.Port, "HTTP listen port")
	staticDir := flag.String("static", cfg.StaticDir, "Dashboard directory served at / (empty to disable)")
	debugMode := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	level := cfg.LogLevel
	if *debugMode {
		level = "debug"
		debug.SetEnabled(true)
	}
	log.Init(level)

	settings := registry.Settings{
		Enabled:         cfg.Enabled,
		Sensitivity:     cfg.Sensitivity,
		DetectionRange:  cfg.DetectionRange,
		ResponseDelayMs: cfg.ResponseDelayMs,
	}
	if err := settings.Validate(); err != nil {
		log.Error("invalid settings", "error", err)
		os.Exit(1)
	}

	reg := registry.New(
		registry.WithSettings(settings),
		registry.WithLogger(log.Component("registry")),
	)

	dir := *staticDir
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			log.Warn("static dir not found, dashboard disabled", "dir", dir)
			dir = ""
		}
	}

	srv := web.NewServer(reg, ":"+*port,
		web.WithStaticDir(dir),
		web.WithLogger(log.L()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("gesture hub starting",
		"port", *port,
		"enabled", settings.Enabled,
		"sensitivity", settings.Sensitivity,
		"devices", len(reg.IDs()),
	)

	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("gesture hub stopped")
}

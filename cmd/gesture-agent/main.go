// gesture-agent watches a camera for hand gestures and switches devices on
// the gesture hub, keeping a local mirror so commands still land offline.
//
// Usage:
//
//	gesture-agent [-registry http://localhost:8080] [-mock] [-camera 0] [-model path] [-debug]
//	gesture-agent -simulate 2
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-gesture-home/internal/config"
	"github.com/teslashibe/go-gesture-home/internal/httpc"
	"github.com/teslashibe/go-gesture-home/internal/log"
	"github.com/teslashibe/go-gesture-home/pkg/controller"
	"github.com/teslashibe/go-gesture-home/pkg/debug"
	"github.com/teslashibe/go-gesture-home/pkg/dispatch"
	"github.com/teslashibe/go-gesture-home/pkg/gesture"
	"github.com/teslashibe/go-gesture-home/pkg/gesture/source"
	"github.com/teslashibe/go-gesture-home/pkg/push"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
	"github.com/teslashibe/go-gesture-home/pkg/store"
)

const (
	settingsSyncInterval = 30 * time.Second
	mockFrameInterval    = 100 * time.Millisecond
)

func main() {
	cfg, err := config.LoadAgent()
	if err != nil {
		log.Init("info")
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	registryURL := flag.String("registry", cfg.RegistryURL, "Gesture hub base URL")
	mock := flag.Bool("mock", cfg.Mock, "Replay synthetic hand frames instead of using the camera")
	cameraDevice := flag.Int("camera", cfg.CameraDevice, "Camera device index")
	modelPath := flag.String("model", cfg.ModelPath, "Hand landmark ONNX model")
	storePath := flag.String("store", cfg.StorePath, "Mirror store (.json, or .db for SQLite)")
	simulate := flag.Int("simulate", 0, "Dispatch one simulated N-finger gesture and exit")
	debugMode := flag.Bool("debug", false, "Enable verbose debug logging")
	debugFrames := flag.Bool("debug-frames", false, "Log every classified frame")
	flag.Parse()

	level := cfg.LogLevel
	if *debugMode {
		level = "debug"
		debug.SetEnabled(true)
	}
	debug.SetFrames(*debugFrames)
	log.Init(level)

	st, err := store.Open(config.ExpandHome(*storePath))
	if err != nil {
		log.Error("open store", "path", *storePath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	mirror := dispatch.NewMirror(st, log.Component("mirror"))
	if err := mirror.Load(); err != nil {
		log.Warn("mirror load failed, starting from defaults", "error", err)
	}
	if pending := mirror.Unconfirmed(); len(pending) > 0 {
		log.Info("unconfirmed devices from last run", "ids", pending)
	}

	client := registry.NewHTTPClient(*registryURL, httpc.NewClient(cfg.RegistryTimeout))
	disp := dispatch.New(client, mirror,
		dispatch.WithSink(dispatch.SinkFunc(logFeedback)),
		dispatch.WithLogger(log.Component("dispatch")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := disp.Sync(ctx); err != nil {
		log.Warn("registry unreachable, running on local mirror", "url", *registryURL, "error", err)
	}

	var src source.Source
	if *simulate == 0 {
		src = openSource(*mock, *cameraDevice, *modelPath)
		defer src.Close()
	}

	settings := registry.DefaultSettings()
	settings.Sensitivity = cfg.Sensitivity
	settings.ResponseDelayMs = int(cfg.ResponseDelay / time.Millisecond)

	ctrl := controller.New(src, disp,
		controller.WithSettings(settings),
		controller.WithCooldown(cfg.Cooldown),
		controller.WithLogger(log.Component("controller")),
	)
	if err := ctrl.SyncSettings(ctx, client); err != nil {
		log.Warn("settings sync failed, using local settings", "error", err)
	}

	if *simulate != 0 {
		rep := ctrl.Simulate(ctx, *simulate, "")
		log.Info("simulated gesture", "fingers", *simulate, "outcome", rep.Outcome(), "message", rep.Message())
		return
	}

	go syncSettings(ctx, ctrl, client)

	if cfg.SubscribePushes {
		wsURL, err := push.DevicesURL(*registryURL)
		if err != nil {
			log.Warn("device push disabled", "error", err)
		} else {
			sub := push.New(wsURL, mirror, push.WithLogger(log.Component("push")))
			go sub.Run(ctx)
		}
	}

	log.Info("gesture agent running", "registry", *registryURL, "mock", *mock)

	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("gesture loop failed", "error", err)
		os.Exit(1)
	}

	// Without landmark input the agent keeps its mirror and settings in
	// sync until it is stopped.
	if ctx.Err() == nil {
		status := ctrl.Status()
		log.Warn("gesture control inactive", "reason", status.InactiveReason)
		<-ctx.Done()
	}

	status := ctrl.Status()
	log.Info("gesture agent stopped",
		"gestures", status.Stats.GestureCount,
		"avg_confidence", status.Stats.AverageConfidence,
		"unconfirmed", status.Unconfirmed,
	)
}

// openSource returns the camera, the mock replay, or an unavailable source
// when the camera cannot be opened.
func openSource(mock bool, device int, modelPath string) source.Source {
	if mock {
		m := source.NewMockSource(mockFrameInterval, mockScript()...)
		m.Loop = true
		return m
	}

	camCfg := source.DefaultConfig()
	camCfg.Device = device
	camCfg.ModelPath = modelPath
	cam, err := source.OpenCamera(camCfg)
	if err != nil {
		log.Warn("camera unavailable, gesture input disabled", "error", err)
		return source.Unavailable{Reason: err}
	}
	return cam
}

// mockScript holds one finger, releases, then holds two fingers.
func mockScript() []gesture.Frame {
	var frames []gesture.Frame
	for _, n := range []int{1, -1, 2, -1} {
		for i := 0; i < 20; i++ {
			frames = append(frames, source.SyntheticFrame(n))
		}
	}
	return frames
}

func syncSettings(ctx context.Context, ctrl *controller.Controller, src controller.SettingsSource) {
	ticker := time.NewTicker(settingsSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ctrl.SyncSettings(ctx, src); err != nil {
				log.Debug("settings sync failed", "error", err)
			}
		}
	}
}

func logFeedback(fb dispatch.Feedback) {
	level := slog.LevelInfo
	if fb.Type == dispatch.FeedbackError {
		level = slog.LevelWarn
	}
	log.L().Log(context.Background(), level, "feedback",
		"outcome", fb.Outcome,
		"gesture", fb.Gesture,
		"confidence", fb.Confidence,
		"message", fb.Message,
	)
}

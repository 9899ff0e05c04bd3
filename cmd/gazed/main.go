// gazed runs the webcam gaze tracking service: it probes the
// acceleration stack, drives the detection loop and serves gaze
// samples over HTTP and websockets.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Exiv-ai/exiv-gaze/internal/config"
	"github.com/Exiv-ai/exiv-gaze/internal/log"
	"github.com/Exiv-ai/exiv-gaze/pkg/camera"
	"github.com/Exiv-ai/exiv-gaze/pkg/emit"
	"github.com/Exiv-ai/exiv-gaze/pkg/gaze"
	"github.com/Exiv-ai/exiv-gaze/pkg/gaze/detection"
	"github.com/Exiv-ai/exiv-gaze/pkg/web"
)

// broadcaster fans each sample out to the websocket hub and the
// optional host bridge.
type broadcaster struct {
	hub interface {
		BroadcastEvent(event string, payload interface{}) error
	}
	emitter *emit.Emitter
}

func (b *broadcaster) Publish(s gaze.Sample) {
	b.hub.BroadcastEvent("GazeUpdated", s)
	b.emitter.Emit("GazeUpdated", s)
}

func main() {
	port := flag.String("port", config.HTTPPort(), "HTTP listen port")
	cameraIndex := flag.Int("camera", config.CameraIndex(), "capture device index")
	modelPath := flag.String("model", config.ModelPath(), "face landmark model path")
	hostURL := flag.String("host-events", config.HostEventURL(), "optional host event websocket URL")
	autostart := flag.Bool("autostart", false, "begin tracking immediately instead of waiting for the API")
	flag.Parse()

	log.Init(config.LogLevel())

	screenW, screenH := config.ScreenSize()

	gazeCfg := gaze.DefaultConfig()
	gazeCfg.ScreenWidth = screenW
	gazeCfg.ScreenHeight = screenH
	gazeCfg.CameraIndex = *cameraIndex

	engineCfg := detection.DefaultConfig()
	engineCfg.ModelPath = *modelPath

	emitter := emit.New(*hostURL)
	defer emitter.Close()

	camCfg := camera.AcceleratedConfig()
	camCfg.DeviceIndex = *cameraIndex
	cameras := camera.NewManager(camCfg)

	tracker := gaze.NewTracker(gazeCfg, engineCfg, cameras, nil)
	server := web.NewServer(*port, tracker, cameras)

	pub := &broadcaster{hub: server.GazeHub(), emitter: emitter}
	tracker.SetPublisher(pub)
	tracker.OnPreview = server.PreviewHub().BroadcastBinary

	server.StartAsync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *autostart {
		if err := tracker.Start(ctx); err != nil {
			log.Error("tracking failed to start", "err", err)
			os.Exit(1)
		}
	}

	<-ctx.Done()
	log.Info("shutting down")
	tracker.Stop()
	server.Shutdown()
}

// gaze-probe is a diagnostic tool: it runs the acceleration capability
// probe and checks that the capture device opens, without starting a
// tracking session.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Exiv-ai/exiv-gaze/internal/config"
	"github.com/Exiv-ai/exiv-gaze/internal/log"
	"github.com/Exiv-ai/exiv-gaze/pkg/camera"
	"github.com/Exiv-ai/exiv-gaze/pkg/gaze/detection"
)

func main() {
	cameraIndex := flag.Int("camera", config.CameraIndex(), "capture device index")
	skipCamera := flag.Bool("skip-camera", false, "probe the acceleration stack only")
	flag.Parse()

	log.Init(config.LogLevel())

	verdict := detection.Probe()
	fmt.Printf("renderer:    %s\n", verdict.Renderer)
	fmt.Printf("accelerated: %v\n", verdict.CanUseAccelerated)
	fmt.Printf("reason:      %s\n", verdict.Reason)

	if *skipCamera {
		return
	}

	cfg := camera.FallbackConfig()
	cfg.DeviceIndex = *cameraIndex
	stream, err := camera.Open(cfg)
	if err != nil {
		fmt.Printf("camera %d:    %v\n", *cameraIndex, err)
		os.Exit(1)
	}
	stream.Close()
	fmt.Printf("camera %d:    ok\n", *cameraIndex)
}

// Package config provides configuration helpers for exiv-gaze commands.
package config

import (
	"os"
	"strconv"
)

// Defaults for the gaze tracking service.
const (
	DefaultHTTPPort     = "8750"
	DefaultCameraIndex  = 0
	DefaultScreenWidth  = 1920
	DefaultScreenHeight = 1080
	DefaultModelPath    = "models/face_landmarker.onnx"
)

// HTTPPort returns the dashboard port from GAZE_HTTP_PORT.
func HTTPPort() string {
	if p := os.Getenv("GAZE_HTTP_PORT"); p != "" {
		return p
	}
	return DefaultHTTPPort
}

// CameraIndex returns the capture device index from GAZE_CAMERA_INDEX.
func CameraIndex() int {
	return getInt("GAZE_CAMERA_INDEX", DefaultCameraIndex)
}

// ScreenSize returns the target screen dimensions from
// GAZE_SCREEN_WIDTH / GAZE_SCREEN_HEIGHT.
func ScreenSize() (width, height int) {
	return getInt("GAZE_SCREEN_WIDTH", DefaultScreenWidth),
		getInt("GAZE_SCREEN_HEIGHT", DefaultScreenHeight)
}

// ModelPath returns the landmark model path from GAZE_MODEL_PATH.
func ModelPath() string {
	if p := os.Getenv("GAZE_MODEL_PATH"); p != "" {
		return p
	}
	return DefaultModelPath
}

// LogLevel returns the log level from GAZE_LOG_LEVEL ("info" if unset).
func LogLevel() string {
	if l := os.Getenv("GAZE_LOG_LEVEL"); l != "" {
		return l
	}
	return "info"
}

// HostEventURL returns the optional host bridge websocket URL from
// GAZE_HOST_EVENT_URL. Empty means no host forwarding.
func HostEventURL() string {
	return os.Getenv("GAZE_HOST_EVENT_URL")
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

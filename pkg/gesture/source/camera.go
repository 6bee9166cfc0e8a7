package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/teslashibe/go-gesture-home/pkg/debug"
	"github.com/teslashibe/go-gesture-home/pkg/gesture"
	"gocv.io/x/gocv"
)

// Config holds camera and hand-landmark model configuration.
type Config struct {
	Device         int     // Camera device index
	FrameWidth     int     // Requested capture width
	FrameHeight    int     // Requested capture height
	ModelPath      string  // Path to hand landmark ONNX model
	InputWidth     int     // Model input width
	InputHeight    int     // Model input height
	LandmarkOutput string  // Output layer with 21x3 landmarks
	PresenceOutput string  // Output layer with hand presence score ("" to skip)
	PresenceThresh float32 // Minimum presence score to report a hand
}

// DefaultConfig returns defaults for a 224x224 hand landmark model.
func DefaultConfig() Config {
	return Config{
		Device:         0,
		FrameWidth:     640,
		FrameHeight:    480,
		ModelPath:      "models/hand_landmark.onnx",
		InputWidth:     224,
		InputHeight:    224,
		LandmarkOutput: "Identity",
		PresenceOutput: "Identity_1",
		PresenceThresh: 0.5,
	}
}

// CameraSource reads frames from a local camera and runs a hand landmark
// model on each one.
type CameraSource struct {
	cfg     Config
	capture *gocv.VideoCapture
	net     gocv.Net
	img     gocv.Mat
	outputs []string
	mu      sync.Mutex
}

// OpenCamera opens the camera and loads the model. Any failure is
// reported as ErrUnavailable so callers can fall back to manual input.
func OpenCamera(cfg Config) (*CameraSource, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: model file not found: %s", ErrUnavailable, cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: failed to load model from %s", ErrUnavailable, cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	capture, err := gocv.VideoCaptureDevice(cfg.Device)
	if err != nil {
		net.Close()
		return nil, fmt.Errorf("%w: open camera %d: %v", ErrUnavailable, cfg.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		net.Close()
		return nil, fmt.Errorf("%w: camera %d not opened (permission denied?)", ErrUnavailable, cfg.Device)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.FrameWidth))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.FrameHeight))

	outputs := []string{cfg.LandmarkOutput}
	if cfg.PresenceOutput != "" {
		outputs = append(outputs, cfg.PresenceOutput)
	}

	return &CameraSource{
		cfg:     cfg,
		capture: capture,
		net:     net,
		img:     gocv.NewMat(),
		outputs: outputs,
	}, nil
}

// Next captures one frame and returns its landmarks.
func (s *CameraSource) Next(ctx context.Context) (gesture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return gesture.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok := s.capture.Read(&s.img); !ok || s.img.Empty() {
		return gesture.Frame{}, fmt.Errorf("%w: camera read failed", ErrUnavailable)
	}
	frame := gesture.Frame{Timestamp: time.Now()}

	blob := gocv.BlobFromImage(s.img, 1.0/255.0, image.Pt(s.cfg.InputWidth, s.cfg.InputHeight),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	outs := s.net.ForwardLayers(s.outputs)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()
	if len(outs) == 0 {
		return frame, errors.New("source: model returned no outputs")
	}

	if len(outs) > 1 {
		scores, err := outs[1].DataPtrFloat32()
		if err != nil || len(scores) == 0 || scores[0] < s.cfg.PresenceThresh {
			return frame, nil
		}
	}

	hand, err := s.parseLandmarks(outs[0])
	if err != nil {
		return frame, err
	}
	frame.Hands = []gesture.Hand{hand}
	debug.FrameLog("📷 hand landmarks: wrist=(%.2f,%.2f)\n", hand.Landmarks[0].X, hand.Landmarks[0].Y)
	return frame, nil
}

// parseLandmarks converts the 21x3 output (model input pixels) to
// normalized image coordinates.
func (s *CameraSource) parseLandmarks(out gocv.Mat) (gesture.Hand, error) {
	data, err := out.DataPtrFloat32()
	if err != nil {
		return gesture.Hand{}, fmt.Errorf("read landmark tensor: %w", err)
	}
	if len(data) < gesture.NumLandmarks*3 {
		return gesture.Hand{}, fmt.Errorf("landmark tensor too small: %d values", len(data))
	}

	w := float64(s.cfg.InputWidth)
	h := float64(s.cfg.InputHeight)
	var hand gesture.Hand
	for i := 0; i < gesture.NumLandmarks; i++ {
		hand.Landmarks[i] = gesture.Point{
			X: float64(data[i*3]) / w,
			Y: float64(data[i*3+1]) / h,
		}
	}
	return hand, nil
}

// Close releases the camera and model.
func (s *CameraSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.img.Close()
	s.net.Close()
	return s.capture.Close()
}

var _ Source = (*CameraSource)(nil)
